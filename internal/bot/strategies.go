package bot

import (
	"errors"
	"math/rand"

	"cardtable/internal/protocol"
)

var ErrNoCandidates = errors.New("no candidate outcomes to choose from")

// FirstBot always takes the first offered outcome, mirroring the interactive
// client's default.
type FirstBot struct{}

func (b *FirstBot) ChooseOutcome(rule *protocol.Rule, candidates int) (int, error) {
	if candidates == 0 {
		return 0, ErrNoCandidates
	}
	return 0, nil
}

func (b *FirstBot) OnEvent(any) {}

// RandomBot chooses uniformly among the offered outcomes with a seeded
// generator, so replays are deterministic.
type RandomBot struct {
	Rng *rand.Rand
}

func (b *RandomBot) ChooseOutcome(rule *protocol.Rule, candidates int) (int, error) {
	if candidates == 0 {
		return 0, ErrNoCandidates
	}
	return b.Rng.Intn(candidates), nil
}

func (b *RandomBot) OnEvent(any) {}
