package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cardtable/internal/protocol"
)

// RESTServer queues outbound messages per endpoint between client polls and
// routes posted responses to the matching endpoint's handler.
//
// Routes:
//
//	GET  /messages?user=NAME  drain the queue for the endpoint serving NAME
//	POST /messages?user=NAME  deliver one message from NAME
type RESTServer struct {
	mu        sync.Mutex
	endpoints []*RESTEndpoint
}

// NewRESTServer creates an empty poll server.
func NewRESTServer() *RESTServer {
	return &RESTServer{}
}

// Endpoint registers and returns the server-side transport for a user set.
func (s *RESTServer) Endpoint(users string) *RESTEndpoint {
	ep := &RESTEndpoint{users: users}
	s.mu.Lock()
	s.endpoints = append(s.endpoints, ep)
	s.mu.Unlock()
	return ep
}

func (s *RESTServer) endpointFor(user string) *RESTEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range s.endpoints {
		if protocol.ContainsName(ep.users, user) {
			return ep
		}
	}
	return nil
}

// ServeHTTP implements the poll protocol.
func (s *RESTServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/messages" {
		http.NotFound(w, r)
		return
	}
	user := r.URL.Query().Get("user")
	ep := s.endpointFor(user)
	if ep == nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ep.drain())
	case http.MethodPost:
		var msg protocol.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "bad message", http.StatusBadRequest)
			return
		}
		ep.receive(msg)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// RESTEndpoint is the server-side transport for one polled user set.
type RESTEndpoint struct {
	users string

	mu      sync.Mutex
	queue   []protocol.Message
	handler func(protocol.Message)
}

// Users returns the served user set.
func (e *RESTEndpoint) Users() string { return e.users }

// SendMessage queues msg until the client's next poll.
func (e *RESTEndpoint) SendMessage(msg protocol.Message) error {
	e.mu.Lock()
	e.queue = append(e.queue, msg)
	e.mu.Unlock()
	return nil
}

// SetHandler registers the callback for posted client messages.
func (e *RESTEndpoint) SetHandler(handler func(protocol.Message)) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

func (e *RESTEndpoint) drain() []protocol.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.queue
	e.queue = nil
	if out == nil {
		out = []protocol.Message{}
	}
	return out
}

func (e *RESTEndpoint) receive(msg protocol.Message) {
	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

// RESTClient is the client-side transport: it posts responses and polls for
// queued messages on an interval.
type RESTClient struct {
	baseURL  string
	user     string
	interval time.Duration
	client   *http.Client

	mu      sync.Mutex
	handler func(protocol.Message)
}

// NewRESTClient creates a poller for one user against a RESTServer base URL.
func NewRESTClient(baseURL, user string, interval time.Duration) *RESTClient {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &RESTClient{
		baseURL:  baseURL,
		user:     user,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Users returns the polling user.
func (c *RESTClient) Users() string { return c.user }

// SetHandler registers the callback for polled messages.
func (c *RESTClient) SetHandler(handler func(protocol.Message)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// SendMessage posts msg to the server.
func (c *RESTClient) SendMessage(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.baseURL+"/messages?user="+c.user, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("post message: status %d", resp.StatusCode)
	}
	return nil
}

// Start polls until the context is canceled.
func (c *RESTClient) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Poll(ctx)
			}
		}
	}()
}

// Poll performs one fetch, dispatching every queued message to the handler.
func (c *RESTClient) Poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/messages?user="+c.user, nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	var messages []protocol.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return
	}
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}
	for _, msg := range messages {
		handler(msg)
	}
}
