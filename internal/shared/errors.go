package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors, classified per provider rejection.
	// ErrSignInCancelled is a non-fatal cancellation (user closed the
	// consent window), distinct from a provider rejection.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrEmailInUse         = fmt.Errorf("email already registered")
	ErrSignInCancelled    = fmt.Errorf("sign-in cancelled")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrProviderFailure    = fmt.Errorf("identity provider failure")
	ErrTokenExpired       = fmt.Errorf("access token expired")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token available")

	// Read-path errors
	ErrFetchFailed     = fmt.Errorf("fetch failed")
	ErrBookNotFound    = fmt.Errorf("book not found")
	ErrChannelInactive = fmt.Errorf("comment channel not subscribed")
	ErrChannelClosed   = fmt.Errorf("push channel closed")

	// Mutation errors, including ownership rejection on update/delete.
	ErrMutationFailed = fmt.Errorf("mutation failed")
	ErrNotOwner       = fmt.Errorf("not the book owner")
	ErrUploadFailed   = fmt.Errorf("image upload failed")

	// Input validation errors, enforced client-side before dispatch
	ErrEmptyComment    = fmt.Errorf("comment is empty")
	ErrInvalidBook     = fmt.Errorf("invalid book fields")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
