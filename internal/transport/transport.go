// Package transport delivers opaque protocol messages between the game server
// and a named party (or a comma-joined set of parties sharing one connection).
// Three implementations honor the same envelope contract: an in-process pair,
// a request/poll HTTP server, and a websocket message channel.
package transport

import (
	"errors"

	"cardtable/internal/protocol"
)

var ErrNoHandler = errors.New("transport has no handler registered")

// Transport is the delivery mechanism for protocol messages. SendMessage is
// fire-and-forget from the caller's perspective; receipt invokes the handler
// registered with SetHandler. Delivery is reliable and ordered within one
// transport.
type Transport interface {
	// SendMessage delivers a message to the other end.
	SendMessage(protocol.Message) error
	// SetHandler registers the callback invoked with each received message.
	SetHandler(func(protocol.Message))
	// Users returns the comma-joined names of the parties this transport serves.
	Users() string
}
