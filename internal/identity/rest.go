// REST implementation of [Provider]
//
// Endpoint shapes follow the Google Identity Toolkit conventions the hosted
// provider exposes: account operations on the base URL, refresh-token
// exchange on a separate token URL, both scoped by an API key.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
)

// RESTProvider implements [Provider] against the hosted identity service.
type RESTProvider struct {
	baseURL    string
	tokenURL   string
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	listeners []func(Event)
}

// NewRESTProvider creates a provider client for the given endpoints and API key.
func NewRESTProvider(baseURL, tokenURL, apiKey string, client *http.Client) *RESTProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTProvider{
		baseURL:    baseURL,
		tokenURL:   tokenURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

// OnStateChange registers a listener for state-change notifications.
//
// Notifications are delivered on the goroutine that completed the provider
// operation, after the operation's HTTP round trip has succeeded.
func (p *RESTProvider) OnStateChange(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *RESTProvider) notify(ev Event) {
	p.mu.Lock()
	listeners := make([]func(Event), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// accountResponse is the wire shape shared by the sign-in and sign-up endpoints.
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doRequest performs a JSON POST against the provider and decodes the response.
func (p *RESTProvider) doRequest(ctx context.Context, baseURL, endpoint string, payload, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	apiURL := fmt.Sprintf("%s%s?key=%s", baseURL, endpoint, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var perr providerError
		if err := json.NewDecoder(resp.Body).Decode(&perr); err == nil && perr.Error.Message != "" {
			return classifyProviderError(perr.Error.Message)
		}
		return fmt.Errorf("%w: status %d", shared.ErrProviderFailure, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classifyProviderError maps the provider's error codes onto the client's
// error taxonomy so callers can produce user-facing messaging.
func classifyProviderError(code string) error {
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, code)
	case "EMAIL_EXISTS":
		return fmt.Errorf("%w: %s", shared.ErrEmailInUse, code)
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN":
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, code)
	default:
		return fmt.Errorf("%w: %s", shared.ErrProviderFailure, code)
	}
}

func (a accountResponse) account() *Account {
	expires, _ := strconv.Atoi(a.ExpiresIn)
	return &Account{
		Identity: models.Identity{
			SubjectID:   a.LocalID,
			Email:       a.Email,
			DisplayName: a.DisplayName,
			AvatarURL:   a.PhotoURL,
		},
		IDToken:      a.IDToken,
		RefreshToken: a.RefreshToken,
		ExpiresIn:    expires,
	}
}

// SignInWithPassword authenticates with email and password.
func (p *RESTProvider) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	var resp accountResponse
	payload := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := p.doRequest(ctx, p.baseURL, "/accounts:signInWithPassword", payload, &resp); err != nil {
		return nil, err
	}

	account := resp.account()
	p.notify(Event{Identity: &account.Identity, RefreshToken: account.RefreshToken})
	return account, nil
}

// SignUp creates a new account with email and password.
func (p *RESTProvider) SignUp(ctx context.Context, email, password string) (*Account, error) {
	var resp accountResponse
	payload := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := p.doRequest(ctx, p.baseURL, "/accounts:signUp", payload, &resp); err != nil {
		return nil, err
	}

	account := resp.account()
	p.notify(Event{Identity: &account.Identity, RefreshToken: account.RefreshToken})
	return account, nil
}

// UpdateProfile applies display name and avatar to the account owning idToken.
func (p *RESTProvider) UpdateProfile(ctx context.Context, idToken, displayName, avatarURL string) error {
	var resp accountResponse
	payload := map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"photoUrl":          avatarURL,
		"returnSecureToken": false,
	}
	if err := p.doRequest(ctx, p.baseURL, "/accounts:update", payload, &resp); err != nil {
		return err
	}

	identity := models.Identity{
		SubjectID:   resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		AvatarURL:   resp.PhotoURL,
	}
	p.notify(Event{Identity: &identity, RefreshToken: resp.RefreshToken})
	return nil
}

// SignInWithIDP completes a federated sign-in with an OAuth access token.
func (p *RESTProvider) SignInWithIDP(ctx context.Context, providerID, accessToken string) (*Account, error) {
	var resp accountResponse
	payload := map[string]any{
		"postBody":            fmt.Sprintf("access_token=%s&providerId=%s", accessToken, providerID),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	if err := p.doRequest(ctx, p.baseURL, "/accounts:signInWithIdp", payload, &resp); err != nil {
		return nil, err
	}

	account := resp.account()
	p.notify(Event{Identity: &account.Identity, RefreshToken: account.RefreshToken})
	return account, nil
}

// tokenResponse is the wire shape of the refresh-token exchange endpoint.
type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// ExchangeRefreshToken mints a fresh short-lived credential.
func (p *RESTProvider) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.Credential, string, error) {
	if refreshToken == "" {
		return nil, "", shared.ErrNoRefreshToken
	}

	var resp tokenResponse
	payload := map[string]any{"grant_type": "refresh_token", "refresh_token": refreshToken}
	if err := p.doRequest(ctx, p.tokenURL, "/token", payload, &resp); err != nil {
		return nil, "", err
	}

	expires, _ := strconv.Atoi(resp.ExpiresIn)
	cred := &models.Credential{
		Token:     resp.IDToken,
		ExpiresAt: time.Now().Add(time.Duration(expires) * time.Second),
	}
	return cred, resp.RefreshToken, nil
}

// SignOut revokes the refresh token and notifies listeners of the cleared state.
func (p *RESTProvider) SignOut(ctx context.Context, refreshToken string) error {
	payload := map[string]any{"refreshToken": refreshToken}
	if err := p.doRequest(ctx, p.baseURL, "/accounts:signOut", payload, nil); err != nil {
		return err
	}

	p.notify(Event{Identity: nil})
	return nil
}
