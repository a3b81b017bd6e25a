package bot

import (
	"fmt"
	"math/rand"
)

// BotLevel selects a strategy for a bot agent.
type BotLevel int

const (
	// BotLevelFirst takes the first candidate, like a passive player.
	BotLevelFirst BotLevel = iota
	// BotLevelRandom plays a uniformly random candidate.
	BotLevelRandom
)

// LevelByName maps a configured strategy name to its level. Unknown names
// fall back to the passive first-candidate strategy.
func LevelByName(name string) BotLevel {
	if name == "random" {
		return BotLevelRandom
	}
	return BotLevelFirst
}

// NewBrain creates a strategy for the given level.
func NewBrain(level BotLevel, rng *rand.Rand) (Brain, error) {
	switch level {
	case BotLevelFirst:
		return &FirstBot{}, nil
	case BotLevelRandom:
		if rng == nil {
			return nil, fmt.Errorf("random bot requires a seeded rng")
		}
		return &RandomBot{Rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
