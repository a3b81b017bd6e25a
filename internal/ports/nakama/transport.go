package nakama

import (
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"cardtable/internal/protocol"
	"cardtable/internal/transport"
)

// presenceLookup resolves a user name to its connected presence, if any.
type presenceLookup func(user string) (runtime.Presence, bool)

// dispatcherTransport bridges the Transport contract onto a Nakama match
// dispatcher. Outbound envelopes become broadcast messages targeted at the
// presences of the transport's users; inbound match data is injected by the
// match loop through deliver. All calls happen on the match goroutine.
type dispatcherTransport struct {
	users      string
	dispatcher runtime.MatchDispatcher
	lookup     presenceLookup
	logger     runtime.Logger
	handler    func(protocol.Message)
}

func newDispatcherTransport(users string, dispatcher runtime.MatchDispatcher, lookup presenceLookup, logger runtime.Logger) *dispatcherTransport {
	return &dispatcherTransport{
		users:      users,
		dispatcher: dispatcher,
		lookup:     lookup,
		logger:     logger,
	}
}

// Users returns the comma-joined user set this transport serves.
func (t *dispatcherTransport) Users() string { return t.users }

// SetHandler registers the inbound message consumer.
func (t *dispatcherTransport) SetHandler(h func(protocol.Message)) { t.handler = h }

// SendMessage broadcasts the envelope to the connected presences of this
// transport's users. With nobody connected the message is dropped rather than
// broadcast to the whole match.
func (t *dispatcherTransport) SendMessage(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	op, err := opcodeFor(msg.Command)
	if err != nil {
		return err
	}

	var recipients []runtime.Presence
	for _, user := range protocol.SplitNames(t.users) {
		if p, ok := t.lookup(user); ok {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		t.logger.Debug("dropping %s message, no presence for %s", msg.Command, t.users)
		return nil
	}
	return t.dispatcher.BroadcastMessage(op, data, recipients, nil, true)
}

// deliver hands an inbound envelope to the registered handler.
func (t *dispatcherTransport) deliver(msg protocol.Message) error {
	if t.handler == nil {
		return transport.ErrNoHandler
	}
	t.handler(msg)
	return nil
}

func opcodeFor(command string) (int64, error) {
	switch command {
	case protocol.MessageRule:
		return OpServerRule, nil
	case protocol.MessageBatch:
		return OpServerBatch, nil
	case protocol.MessageConfig:
		return OpServerConfig, nil
	case protocol.MessageNewGame:
		return OpServerNewGame, nil
	default:
		return 0, fmt.Errorf("no opcode for message command %q", command)
	}
}
