// Package comments maintains the live comment thread for a single book.
//
// [Channel] is the unit of state: a one-shot history load over the REST API
// followed by a push subscription over a [BroadcastChannel], with a polling
// fallback ([Poller]) when the push transport is down. Pushed and polled
// comments are deduplicated against the loaded history by stable comment
// identity, so a comment is never shown twice no matter which path delivered
// it first.
package comments
