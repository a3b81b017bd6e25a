package nakama

import (
	"encoding/json"
	"testing"

	"cardtable/internal/protocol"
)

func TestOpenSeatCount(t *testing.T) {
	tests := []struct {
		name      string
		occupants map[string]string
		want      int
	}{
		{name: "all empty", occupants: map[string]string{}, want: 3},
		{name: "one taken", occupants: map[string]string{"player2": "u2"}, want: 2},
		{name: "full", occupants: map[string]string{"player1": "u1", "player2": "u2", "player3": "bot:player3"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &MatchState{
				Seats:     []string{"player1", "player2", "player3"},
				Occupants: tt.occupants,
			}
			if got := state.openSeatCount(); got != tt.want {
				t.Fatalf("openSeatCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSeatOf(t *testing.T) {
	state := &MatchState{
		Seats:     []string{"player1", "player2"},
		Occupants: map[string]string{"player1": "u1", "player2": ""},
	}
	if got := state.seatOf("u1"); got != "player1" {
		t.Fatalf("seatOf(u1) = %q, want player1", got)
	}
	if got := state.seatOf("stranger"); got != "" {
		t.Fatalf("seatOf(stranger) = %q, want empty", got)
	}
}

func TestMatchLabel(t *testing.T) {
	data, err := json.Marshal(matchLabel{Open: 2, State: "lobby"})
	if err != nil {
		t.Fatalf("marshal label: %v", err)
	}

	var label matchLabel
	if err := json.Unmarshal(data, &label); err != nil {
		t.Fatalf("label unmarshal failed: %v", err)
	}
	if label.Open != 2 || label.State != "lobby" {
		t.Fatalf("label unexpected: %+v", label)
	}
}

func TestOpcodeFor(t *testing.T) {
	tests := []struct {
		command string
		want    int64
		wantErr bool
	}{
		{command: protocol.MessageRule, want: OpServerRule},
		{command: protocol.MessageBatch, want: OpServerBatch},
		{command: protocol.MessageConfig, want: OpServerConfig},
		{command: protocol.MessageNewGame, want: OpServerNewGame},
		{command: "nonsense", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, err := opcodeFor(tt.command)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("opcodeFor(%q) accepted an unknown command", tt.command)
				}
				return
			}
			if err != nil {
				t.Fatalf("opcodeFor(%q) error = %v", tt.command, err)
			}
			if got != tt.want {
				t.Fatalf("opcodeFor(%q) = %d, want %d", tt.command, got, tt.want)
			}
		})
	}
}
