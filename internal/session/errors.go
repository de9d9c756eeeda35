package session

import "errors"

// Domain-specific errors for session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when an operation requires a live
	// connection. No network call is issued.
	ErrNotConnected = errors.New("session: not connected")

	// ErrEmptyTopic is returned when a topic is empty. Rejected before
	// any network call.
	ErrEmptyTopic = errors.New("session: topic cannot be empty")

	// ErrInvalidClientID is returned when a client identifier does not
	// match [A-Za-z0-9_-]{1,128}.
	ErrInvalidClientID = errors.New("session: client id must match [A-Za-z0-9_-]{1,128}")

	// ErrNotSubscribed is returned by unsubscribe for a topic with no
	// registry entry. No network call is issued.
	ErrNotSubscribed = errors.New("session: not subscribed to topic")

	// ErrNoPairs is returned when a json command carries no valid
	// key=value pairs.
	ErrNoPairs = errors.New("session: no valid key=value pairs")
)
