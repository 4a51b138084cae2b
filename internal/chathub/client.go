// Package chathub coordinates everything that happens between connected
// clients: the session registry and room directory, broadcast fan-out, and
// the per-connection protocol state machine.
package chathub

// Client abstracts one live connection. The hub only ever hands a client
// fully encrypted frames; the underlying transport is not its concern.
type Client interface {
	// Send offers one outbound frame without blocking. It returns false when
	// the client's buffer is full or the client is closed; callers treat
	// that as a delivery failure for this client only.
	Send(frame []byte) bool

	// Close tears the connection down. Safe to call more than once.
	Close()

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}
