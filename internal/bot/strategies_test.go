package bot

import (
	"errors"
	"math/rand"
	"testing"

	"cardtable/internal/protocol"
)

func TestFirstBot(t *testing.T) {
	b := &FirstBot{}
	got, err := b.ChooseOutcome(&protocol.Rule{Type: "pick"}, 3)
	if err != nil {
		t.Fatalf("ChooseOutcome() error = %v", err)
	}
	if got != 0 {
		t.Fatalf("ChooseOutcome() = %d, want 0", got)
	}
	if _, err := b.ChooseOutcome(&protocol.Rule{Type: "pick"}, 0); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("error = %v, want ErrNoCandidates", err)
	}
}

func TestRandomBotStaysInRange(t *testing.T) {
	b := &RandomBot{Rng: rand.New(rand.NewSource(11))}
	for i := 0; i < 50; i++ {
		got, err := b.ChooseOutcome(&protocol.Rule{Type: "pickCard"}, 4)
		if err != nil {
			t.Fatalf("ChooseOutcome() error = %v", err)
		}
		if got < 0 || got >= 4 {
			t.Fatalf("ChooseOutcome() = %d, out of range", got)
		}
	}
}

func TestNewBrain(t *testing.T) {
	if _, err := NewBrain(BotLevelFirst, nil); err != nil {
		t.Errorf("first brain: %v", err)
	}
	if _, err := NewBrain(BotLevelRandom, nil); err == nil {
		t.Error("random brain accepted nil rng")
	}
	if _, err := NewBrain(BotLevel(99), nil); err == nil {
		t.Error("unknown level accepted")
	}
}

func TestLevelByName(t *testing.T) {
	tests := []struct {
		name string
		want BotLevel
	}{
		{"random", BotLevelRandom},
		{"first", BotLevelFirst},
		{"", BotLevelFirst},
		{"anything-else", BotLevelFirst},
	}
	for _, test := range tests {
		if got := LevelByName(test.name); got != test.want {
			t.Errorf("LevelByName(%q) = %d, want %d", test.name, got, test.want)
		}
	}
}

func TestAgentChooseFallsBackToFirst(t *testing.T) {
	agent := NewAgent("bot-1", &FirstBot{})
	if got := agent.Choose(&protocol.Rule{Type: "pick"}, 2); got != 0 {
		t.Fatalf("Choose() = %d, want 0", got)
	}
	// No candidates is an error inside the strategy; the agent still answers.
	if got := agent.Choose(&protocol.Rule{Type: "pick"}, 0); got != 0 {
		t.Fatalf("Choose() with no candidates = %d, want 0", got)
	}
}
