package identity

import (
	"context"

	"github.com/bookhaven/haven/internal/models"
)

// Account is the provider's response to a successful sign-in or sign-up:
// the mirrored identity plus the token pair for that identity.
type Account struct {
	Identity     models.Identity
	IDToken      string
	RefreshToken string
	ExpiresIn    int // seconds until IDToken expires
}

// Event is an asynchronous state-change notification from the provider.
//
// Identity is nil when the provider transitioned to signed-out.
type Event struct {
	Identity     *models.Identity
	RefreshToken string
}

// Provider defines the external identity provider the session manager
// observes. Implementations must emit an [Event] through every listener
// registered with OnStateChange after each successful sign-in, profile
// update, and sign-out; failed operations emit nothing.
type Provider interface {
	// SignInWithPassword authenticates with email and password.
	SignInWithPassword(ctx context.Context, email, password string) (*Account, error)

	// SignUp creates a new account. Profile metadata is applied separately
	// via UpdateProfile.
	SignUp(ctx context.Context, email, password string) (*Account, error)

	// UpdateProfile applies display name and avatar to the account owning idToken.
	UpdateProfile(ctx context.Context, idToken, displayName, avatarURL string) error

	// SignInWithIDP completes a federated sign-in using an access token
	// obtained from the named OAuth provider.
	SignInWithIDP(ctx context.Context, providerID, accessToken string) (*Account, error)

	// ExchangeRefreshToken mints a fresh short-lived credential from the
	// long-lived refresh token. Returns the credential and the (possibly
	// rotated) refresh token.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.Credential, string, error)

	// SignOut revokes the refresh token and clears provider-side session state.
	SignOut(ctx context.Context, refreshToken string) error

	// OnStateChange registers a listener for state-change notifications.
	OnStateChange(fn func(Event))
}
