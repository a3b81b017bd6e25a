package client

import (
	"log/slog"

	"cardtable/internal/bot"
	"cardtable/internal/domain"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
)

// AI is a client whose outcome choice is delegated to a bot agent. It adds no
// protocol behavior of its own: the point is that "how a rule gets resolved"
// is the only thing a variant changes.
type AI struct {
	*Base
	Agent *bot.Agent
}

// NewAI creates an AI client driven by the given agent.
func NewAI(user string, board *domain.Board, registry *plugin.Registry, logger *slog.Logger, agent *bot.Agent) *AI {
	base := NewBase(user, board, registry, logger)
	a := &AI{Base: base, Agent: agent}
	base.choose = func(rule *protocol.Rule, out *plugin.Outcomes) int {
		return agent.Choose(rule, out.Len())
	}
	return a
}
