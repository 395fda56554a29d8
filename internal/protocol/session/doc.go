// Package session owns adapter<->core transport policy.
//
// Ownership boundary:
// - connect/write timeouts
// - connect retry/backoff primitives
// - frame size limits applied to a session
package session
