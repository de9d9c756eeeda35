package transport

import "errors"

// Domain-specific errors for transport operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrIncompleteCredentials is returned when signing is attempted
	// without both an access key and a secret key.
	ErrIncompleteCredentials = errors.New("transport: incomplete credentials (access key and secret key required)")

	// ErrConnectionFailed is returned when a connection attempt fails.
	ErrConnectionFailed = errors.New("transport: connection failed")

	// ErrVersionUnsupported is returned when the requested MQTT protocol
	// version cannot be carried over this WebSocket stack.
	ErrVersionUnsupported = errors.New("transport: MQTT version not supported over WebSocket")

	// ErrUnknownVersion is returned when a version string does not parse.
	ErrUnknownVersion = errors.New("transport: unknown MQTT version")

	// ErrNotConnected is returned when attempting operations on a
	// disconnected connector.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("transport: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("transport: subscribe failed")

	// ErrUnsubscribeFailed is returned when an unsubscribe operation fails.
	ErrUnsubscribeFailed = errors.New("transport: unsubscribe failed")

	// ErrTimeout is returned when an operation times out waiting for the
	// broker's acknowledgement.
	ErrTimeout = errors.New("transport: operation timed out")
)
