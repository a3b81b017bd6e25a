package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope commands recognized on any transport.
const (
	MessageRule    = "rule"
	MessageBatch   = "batch"
	MessageConfig  = "config"
	MessageNewGame = "newGame"
)

// ScreenConfig tells a remote endpoint which screen and user set to render.
// Sent once at connection setup by the message transport's server side.
type ScreenConfig struct {
	Users string `json:"users"`
}

// Message is the JSON envelope exchanged over every transport. Exactly one of
// the payload fields is set, selected by Command.
type Message struct {
	Command string        `json:"command"`
	Rule    *Rule         `json:"rule,omitempty"`
	Batch   *BatchCommand `json:"batch,omitempty"`
	Config  *ScreenConfig `json:"config,omitempty"`
	Screen  string        `json:"screen,omitempty"`
}

// Encode renders the envelope as wire bytes.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Command, err)
	}
	return data, nil
}

// DecodeMessage parses wire bytes back into an envelope.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}
