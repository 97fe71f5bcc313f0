package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookhaven/haven/internal/identity"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with email and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")

	r.logger.Info("signing in", "email", email)

	if err := r.manager.SignInWithPassword(ctx, email, password); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return fmt.Errorf("%w: check your email and password", shared.ErrInvalidCredentials)
		}
		return err
	}

	who := r.manager.Identity()
	name := who.DisplayName
	if name == "" {
		name = who.Email
	}
	return r.writePlain("✓ Signed in as %s\n", name)
}

// AuthGoogle signs in with Google through the browser redirect flow.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("starting federated sign-in")
	r.writePlain("Opening your browser for Google sign-in...\n")

	if err := r.manager.SignInWithProvider(ctx, "google.com"); err != nil {
		if errors.Is(err, shared.ErrSignInCancelled) {
			return r.writePlain("Sign-in cancelled\n")
		}
		return err
	}

	who := r.manager.Identity()
	return r.writePlain("✓ Signed in as %s\n", who.Email)
}

// AuthSignup creates a new account, applying the optional profile in a
// second step. A profile failure leaves the account signed in; the profile
// can be retried later.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")
	name := cmd.String("name")
	avatar := cmd.String("avatar")

	r.logger.Info("creating account", "email", email)

	result, err := r.manager.SignUp(ctx, email, password, name, avatar)
	if err != nil {
		if errors.Is(err, shared.ErrEmailInUse) {
			return fmt.Errorf("%w: %s already has an account", shared.ErrEmailInUse, email)
		}
		return err
	}

	r.writePlain("✓ Account created for %s\n", email)
	if result.ProfileErr != nil {
		r.writePlain("⚠ Profile could not be applied: %v\n", result.ProfileErr)
		r.writePlain("  You are signed in; update your profile later to retry.\n")
	}
	return nil
}

// AuthStatus shows the current authentication state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.restoreSession(ctx)

	state := r.manager.State()
	who := r.manager.Identity()

	if who == nil {
		r.writePlain("State: %s\n", state)
		r.writePlain("Not signed in. Run 'haven auth login' or 'haven auth google'.\n")
		return nil
	}

	r.writePlain("State: %s\n", identity.Authenticated)
	r.writePlain("Email: %s\n", who.Email)
	if who.DisplayName != "" {
		r.writePlain("Name: %s\n", who.DisplayName)
	}
	return nil
}

// AuthLogout signs out and clears the persisted session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.restoreSession(ctx)

	if r.manager.Identity() == nil {
		return r.writePlain("Not signed in\n")
	}

	if err := r.manager.SignOut(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}
