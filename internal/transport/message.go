package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"cardtable/internal/protocol"
)

// MessageServer is the server side of the cross-boundary message transport:
// each registered endpoint serves one remote frame over a websocket. On
// connect the endpoint pushes a one-time config message telling the remote
// end which screen and user set to render, then replays anything queued while
// disconnected.
type MessageServer struct {
	logger *slog.Logger

	mu        sync.Mutex
	endpoints []*MessageEndpoint
}

// NewMessageServer creates a message transport server.
func NewMessageServer(logger *slog.Logger) *MessageServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageServer{logger: logger}
}

// Endpoint registers and returns the transport for a user set rendering the
// given screen.
func (s *MessageServer) Endpoint(users, screen string) *MessageEndpoint {
	ep := &MessageEndpoint{users: users, screen: screen, logger: s.logger}
	s.mu.Lock()
	s.endpoints = append(s.endpoints, ep)
	s.mu.Unlock()
	return ep
}

func (s *MessageServer) endpointFor(user string) *MessageEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range s.endpoints {
		if protocol.ContainsName(ep.users, user) {
			return ep
		}
	}
	return nil
}

// ServeHTTP accepts a websocket for the endpoint named by the user query
// parameter and pumps messages until the connection drops.
func (s *MessageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	ep := s.endpointFor(user)
	if ep == nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	ep.run(r.Context(), conn)
}

// MessageEndpoint is the server-side transport for one remote frame.
type MessageEndpoint struct {
	users  string
	screen string
	logger *slog.Logger

	mu      sync.Mutex
	send    chan []byte
	backlog [][]byte
	handler func(protocol.Message)
}

// Users returns the served user set.
func (e *MessageEndpoint) Users() string { return e.users }

// SetHandler registers the callback for messages from the remote end.
func (e *MessageEndpoint) SetHandler(handler func(protocol.Message)) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

// SendMessage serializes msg onto the connection, or queues it while the
// remote end is not connected.
func (e *MessageEndpoint) SendMessage(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.send == nil {
		e.backlog = append(e.backlog, data)
		return nil
	}
	select {
	case e.send <- data:
		return nil
	default:
		return fmt.Errorf("send to %s: outbox full", e.users)
	}
}

func (e *MessageEndpoint) run(ctx context.Context, conn *websocket.Conn) {
	send := make(chan []byte, 64)

	// The writer must be draining before the backlog replay: a backlog
	// larger than the channel buffer would otherwise block forever.
	go func() {
		for data := range send {
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				for range send {
				}
				return
			}
		}
	}()

	config := protocol.Message{
		Command: protocol.MessageConfig,
		Config:  &protocol.ScreenConfig{Users: e.users},
		Screen:  e.screen,
	}
	if data, err := config.Encode(); err == nil {
		send <- data
	}

	e.mu.Lock()
	for _, data := range e.backlog {
		send <- data
	}
	e.backlog = nil
	e.send = send
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.send = nil
		e.mu.Unlock()
		close(send)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	// reader
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			e.logger.Warn("message endpoint: bad frame", "users", e.users, "err", err)
			continue
		}
		e.mu.Lock()
		handler := e.handler
		e.mu.Unlock()
		if handler != nil {
			handler(msg)
		}
	}
}

// MessageClient is the remote side of the message transport.
type MessageClient struct {
	user string
	conn *websocket.Conn

	mu      sync.Mutex
	handler func(protocol.Message)
	backlog []protocol.Message

	// Screen is the render target announced by the server's config message.
	Screen string
}

// DialMessage connects to a MessageServer for the given user.
func DialMessage(ctx context.Context, url, user string) (*MessageClient, error) {
	conn, _, err := websocket.Dial(ctx, url+"?user="+user, nil)
	if err != nil {
		return nil, fmt.Errorf("dial message transport: %w", err)
	}
	c := &MessageClient{user: user, conn: conn}
	go c.readLoop(ctx)
	return c, nil
}

// Users returns the connected user.
func (c *MessageClient) Users() string { return c.user }

// SetHandler registers the receive callback and flushes anything that
// arrived before registration.
func (c *MessageClient) SetHandler(handler func(protocol.Message)) {
	c.mu.Lock()
	c.handler = handler
	backlog := c.backlog
	c.backlog = nil
	c.mu.Unlock()
	for _, msg := range backlog {
		handler(msg)
	}
}

// SendMessage writes msg to the server.
func (c *MessageClient) SendMessage(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return c.conn.Write(context.Background(), websocket.MessageText, data)
}

// Close shuts the connection down.
func (c *MessageClient) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *MessageClient) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			continue
		}
		c.mu.Lock()
		if msg.Command == protocol.MessageConfig {
			c.Screen = msg.Screen
		}
		handler := c.handler
		if handler == nil {
			c.backlog = append(c.backlog, msg)
			c.mu.Unlock()
			continue
		}
		c.mu.Unlock()
		handler(msg)
	}
}
