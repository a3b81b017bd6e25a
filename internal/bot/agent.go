package bot

import (
	"cardtable/internal/protocol"
)

// Agent is an autonomous player wrapping a strategy.
type Agent struct {
	ID       string
	Strategy Brain
}

// NewAgent creates an agent for a user with the given strategy.
func NewAgent(id string, strategy Brain) *Agent {
	return &Agent{ID: id, Strategy: strategy}
}

// Choose picks an outcome index; strategy failures fall back to the first
// candidate rather than stalling the game.
func (a *Agent) Choose(rule *protocol.Rule, candidates int) int {
	idx, err := a.Strategy.ChooseOutcome(rule, candidates)
	if err != nil || idx < 0 || idx >= candidates {
		return 0
	}
	return idx
}

// OnGameEvent notifies the strategy of a game event.
func (a *Agent) OnGameEvent(event any) {
	a.Strategy.OnEvent(event)
}
