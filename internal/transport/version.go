package transport

import "fmt"

// Version is the MQTT protocol version requested for a session.
type Version int

const (
	// Version311 is MQTT 3.1.1, the version AWS IoT negotiates as the
	// "mqtt" WebSocket sub-protocol.
	Version311 Version = iota

	// Version5 is MQTT 5.0. Requested sessions attempt it first and fall
	// back to 3.1.1 when the attempt fails.
	Version5
)

// ParseVersion converts a configuration string to a Version.
func ParseVersion(s string) (Version, error) {
	switch s {
	case "3.1.1", "":
		return Version311, nil
	case "5.0", "5":
		return Version5, nil
	default:
		return Version311, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
}

func (v Version) String() string {
	switch v {
	case Version5:
		return "5.0"
	default:
		return "3.1.1"
	}
}

// pahoProtocolVersion maps a Version onto the underlying library's protocol
// number. The WebSocket stack negotiates the "mqtt" sub-protocol for 3.1.1
// only, so Version5 reports ErrVersionUnsupported here and the caller is
// expected to fall back.
func pahoProtocolVersion(v Version) (uint, error) {
	switch v {
	case Version311:
		return 4, nil
	case Version5:
		return 0, ErrVersionUnsupported
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownVersion, int(v))
	}
}

// negotiate runs one connection attempt at the requested version. A failed
// Version5 attempt is retried exactly once at 3.1.1; the fallback is
// surfaced through the notify callback before the retry. The returned
// Version is the one that actually connected.
func negotiate(requested Version, attempt func(Version) error, notify func(from, to Version, err error)) (Version, error) {
	err := attempt(requested)
	if err == nil {
		return requested, nil
	}
	if requested != Version5 {
		return requested, err
	}

	notify(Version5, Version311, err)
	if err := attempt(Version311); err != nil {
		return Version311, err
	}
	return Version311, nil
}
