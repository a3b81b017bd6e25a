package transport

import (
	"sync"

	"cardtable/internal/protocol"
)

// Local is one end of an in-process transport pair. Sending invokes the peer's
// handler synchronously; messages sent before the peer registers a handler are
// buffered and flushed on registration.
type Local struct {
	users string
	peer  *Local

	mu      sync.Mutex
	handler func(protocol.Message)
	backlog []protocol.Message
}

// NewLocalPair creates the two ends of a local transport serving the given
// user set: the server end and the client end.
func NewLocalPair(users string) (*Local, *Local) {
	server := &Local{users: users}
	client := &Local{users: users}
	server.peer = client
	client.peer = server
	return server, client
}

// Users returns the served user set.
func (l *Local) Users() string { return l.users }

// SetHandler registers the receive callback and flushes any buffered messages.
func (l *Local) SetHandler(handler func(protocol.Message)) {
	l.mu.Lock()
	l.handler = handler
	backlog := l.backlog
	l.backlog = nil
	l.mu.Unlock()
	for _, msg := range backlog {
		handler(msg)
	}
}

// SendMessage delivers msg to the peer's handler.
func (l *Local) SendMessage(msg protocol.Message) error {
	l.peer.deliver(msg)
	return nil
}

func (l *Local) deliver(msg protocol.Message) {
	l.mu.Lock()
	handler := l.handler
	if handler == nil {
		l.backlog = append(l.backlog, msg)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	handler(msg)
}
