package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bookhaven/haven/internal/models"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// State enumerates the session manager's authentication states.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return ""
	}
}

// SessionStore persists sign-in state across process restarts.
// Implemented by repositories.SessionStore; nil disables persistence.
type SessionStore interface {
	Save(identity models.Identity, refreshToken string) error
	Load() (*models.Identity, string, error)
	Clear() error
}

// FederatedFlow obtains an OAuth token from a federated provider, typically
// by opening a browser and waiting on a local callback server.
// Implemented by server.BrowserFlow; injectable for tests.
type FederatedFlow interface {
	Run(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)
}

// SignUpResult is the composite outcome of the two-phase sign-up.
//
// Account creation and profile application are reported separately: the
// account can exist (user signed in) while the profile step failed, and
// there is no rollback. Callers decide remediation from ProfileErr.
type SignUpResult struct {
	AccountCreated bool
	ProfileApplied bool
	ProfileErr     error
}

// Manager is the single source of truth for the signed-in Identity.
//
// State transitions are driven by provider notifications, not by the return
// values of sign-in calls.
type Manager struct {
	mu           sync.Mutex
	provider     Provider
	store        SessionStore
	flow         FederatedFlow
	oauthConfig  *oauth2.Config
	logger       *log.Logger
	state        State
	identity     *models.Identity
	refreshToken string
}

// ManagerOpts contains configuration options for creating a Manager.
type ManagerOpts struct {
	Provider    Provider
	Store       SessionStore
	Flow        FederatedFlow
	OAuthConfig *oauth2.Config
	Logger      *log.Logger
}

// NewManager creates a Manager observing the given provider.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	m := &Manager{
		provider:    opts.Provider,
		store:       opts.Store,
		flow:        opts.Flow,
		oauthConfig: opts.OAuthConfig,
		logger:      opts.Logger,
		state:       Unauthenticated,
	}

	opts.Provider.OnStateChange(m.handleEvent)
	return m
}

// handleEvent applies a provider state-change notification.
// This is the only place the mirrored Identity is replaced or cleared.
func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Identity == nil {
		m.state = Unauthenticated
		m.identity = nil
		m.refreshToken = ""
		if m.store != nil {
			if err := m.store.Clear(); err != nil {
				m.logger.Warn("failed to clear persisted session", "error", err)
			}
		}
		return
	}

	m.state = Authenticated
	m.identity = ev.Identity
	if ev.RefreshToken != "" {
		m.refreshToken = ev.RefreshToken
	}
	if m.store != nil {
		if err := m.store.Save(*ev.Identity, m.refreshToken); err != nil {
			m.logger.Warn("failed to persist session", "error", err)
		}
	}
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns a copy of the live Identity, or nil when signed out.
func (m *Manager) Identity() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

// beginAuth transitions to Authenticating, remembering nothing about the
// attempt: only the provider notification moves the manager forward.
func (m *Manager) beginAuth() {
	m.mu.Lock()
	m.state = Authenticating
	m.mu.Unlock()
}

// settleAuth reverts to Unauthenticated if no provider notification
// arrived during the attempt.
func (m *Manager) settleAuth() {
	m.mu.Lock()
	if m.state == Authenticating {
		m.state = Unauthenticated
	}
	m.mu.Unlock()
}

// SignInWithPassword authenticates with email and password.
//
// The returned error is classified (invalid credentials, provider failure);
// nothing is retried automatically.
func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) error {
	m.beginAuth()
	defer m.settleAuth()

	if _, err := m.provider.SignInWithPassword(ctx, email, password); err != nil {
		m.logger.Warn("password sign-in rejected", "error", err)
		return err
	}

	m.logger.Info("signed in", "email", email)
	return nil
}

// SignInWithProvider performs the federated sign-in flow: obtain an OAuth
// token via the injected flow (browser + local callback), then exchange it
// with the identity provider.
//
// A user closing the consent window surfaces as [shared.ErrSignInCancelled].
func (m *Manager) SignInWithProvider(ctx context.Context, providerID string) error {
	if m.flow == nil || m.oauthConfig == nil {
		return fmt.Errorf("%w: federated sign-in not configured", shared.ErrProviderFailure)
	}

	m.beginAuth()
	defer m.settleAuth()

	token, err := m.flow.Run(ctx, m.oauthConfig)
	if err != nil {
		if errors.Is(err, shared.ErrSignInCancelled) || errors.Is(err, context.Canceled) {
			m.logger.Info("federated sign-in cancelled")
			return shared.ErrSignInCancelled
		}
		return fmt.Errorf("%w: %v", shared.ErrProviderFailure, err)
	}

	if _, err := m.provider.SignInWithIDP(ctx, providerID, token.AccessToken); err != nil {
		m.logger.Warn("federated sign-in rejected", "error", err)
		return err
	}

	m.logger.Info("signed in", "provider", providerID)
	return nil
}

// SignUp creates a new account, then applies profile metadata as a second
// step. The two phases are reported separately in the result; a profile
// failure does not undo the already-created (and signed-in) account.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName, avatarURL string) (*SignUpResult, error) {
	m.beginAuth()
	defer m.settleAuth()

	account, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		m.logger.Warn("sign-up rejected", "error", err)
		return &SignUpResult{}, err
	}

	result := &SignUpResult{AccountCreated: true}

	if strings.TrimSpace(displayName) == "" && strings.TrimSpace(avatarURL) == "" {
		result.ProfileApplied = true
		return result, nil
	}

	if err := m.provider.UpdateProfile(ctx, account.IDToken, displayName, avatarURL); err != nil {
		m.logger.Warn("profile update failed after account creation", "error", err)
		result.ProfileErr = err
		return result, nil
	}

	result.ProfileApplied = true
	m.logger.Info("signed up", "email", email)
	return result, nil
}

// SignOut clears the live Identity.
//
// Fails only on provider-side errors, which are reported and not retried.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	token := m.refreshToken
	m.mu.Unlock()

	if err := m.provider.SignOut(ctx, token); err != nil {
		m.logger.Warn("sign-out failed", "error", err)
		return err
	}

	m.logger.Info("signed out")
	return nil
}

// MintCredential returns a fresh Credential for the live Identity, or nil
// when no Identity is live. Called once per outbound API request; the
// credential is never cached.
func (m *Manager) MintCredential(ctx context.Context) (*models.Credential, error) {
	m.mu.Lock()
	state := m.state
	token := m.refreshToken
	m.mu.Unlock()

	if state != Authenticated || token == "" {
		return nil, nil
	}

	cred, rotated, err := m.provider.ExchangeRefreshToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to mint credential: %w", err)
	}

	if rotated != "" && rotated != token {
		m.mu.Lock()
		m.refreshToken = rotated
		m.mu.Unlock()
	}

	return cred, nil
}

// Restore replays a persisted session from the store, verifying it by
// minting one credential. A missing or stale session leaves the manager
// unauthenticated without error.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	identity, refreshToken, err := m.store.Load()
	if err != nil || identity == nil {
		return nil
	}

	cred, rotated, err := m.provider.ExchangeRefreshToken(ctx, refreshToken)
	if err != nil || cred == nil {
		m.logger.Info("persisted session is stale, discarding")
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn("failed to clear stale session", "error", clearErr)
		}
		return nil
	}

	if rotated != "" {
		refreshToken = rotated
	}
	m.handleEvent(Event{Identity: identity, RefreshToken: refreshToken})
	m.logger.Info("session restored", "email", identity.Email)
	return nil
}
