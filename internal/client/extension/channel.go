// Package extension is the local channel between the vault client and the
// browser extension. Clients connect over a localhost websocket; each
// request is a JSON object and every response sequence ends with a JSON
// null terminator, so the extension never waits on a lookup that failed.
package extension

// Terminator closes every response sequence.
var Terminator = []byte("null")

// Client is one connected browser extension instance.
type Client interface {
	ID() string

	// Receive pops the next inbound request without blocking. The second
	// return is false when no request is pending.
	Receive() ([]byte, bool)

	// Send delivers one message to the extension.
	Send(message []byte) error
}

// Channel exposes the set of currently connected clients to the dispatcher.
type Channel interface {
	Clients() []Client
}
