// Package identity implements the session manager for the Book Haven client.
//
// The package is built around two collaborators:
//
//   - [Provider] : the external identity provider (email/password and federated
//     sign-in, profile updates, refresh-token exchange). The REST implementation
//     is [RESTProvider].
//   - [Manager] : the single source of truth for "who is signed in". It owns the
//     session state machine and mints short-lived bearer credentials for the
//     request pipeline.
//
// The manager never trusts the immediate return value of a sign-in call.
// Providers emit [Event] notifications after each successful state transition,
// and the manager updates its mirrored Identity only in response to those
// notifications. A sign-in call that returns successfully but never produces a
// notification leaves the manager unauthenticated.
//
// Credentials are minted per outbound request via [Manager.MintCredential] and
// are never cached beyond a single request: two simultaneous requests may carry
// two different valid tokens without conflict.
package identity
