package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/bookhaven/haven/internal/shared"
	"golang.org/x/oauth2"
)

// BrowserFlow runs a full federated sign-in round trip: start a local
// callback server, open the provider's consent page in the system browser,
// and wait for the redirect.
//
// Implements identity.FederatedFlow.
type BrowserFlow struct {
	// Timeout bounds the wait for the user to complete consent.
	// An expired wait is reported as a cancellation.
	Timeout time.Duration

	// OpenURL opens the consent page; defaults to [shared.OpenBrowser].
	OpenURL func(url string) error
}

// Run executes the flow and returns the exchanged OAuth token.
//
// The callback server binds to the host/port named in the config's redirect
// URL and is shut down before returning, whatever the outcome.
func (f *BrowserFlow) Run(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	if config == nil {
		return nil, fmt.Errorf("oauth config is required")
	}

	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	openURL := f.OpenURL
	if openURL == nil {
		openURL = shared.OpenBrowser
	}

	state := shared.GenerateID()
	handler := NewOAuthHandler(config, state)

	router := NewBasicRouter()
	router.Handler(handler)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback server: %w", err)
	}

	srv := &http.Server{Handler: router}
	go srv.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := openURL(config.AuthCodeURL(state, oauth2.AccessTypeOffline)); err != nil {
		return nil, fmt.Errorf("failed to open consent page: %w", err)
	}

	select {
	case result, ok := <-handler.Result():
		if !ok {
			return nil, shared.ErrSignInCancelled
		}
		if result.Error() != nil {
			return nil, result.Error()
		}
		return result.Token, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: consent window not completed", shared.ErrSignInCancelled)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrSignInCancelled, ctx.Err())
	}
}
