package plugin

import (
	"errors"
	"fmt"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

var (
	ErrMissingUser    = errors.New("rule user is required")
	ErrMissingTargets = errors.New("rule has no targets")
)

func newRule(ruleType string, spec RuleSpec) (*protocol.Rule, error) {
	if spec.User == "" {
		return nil, fmt.Errorf("%s: %w", ruleType, ErrMissingUser)
	}
	return &protocol.Rule{Type: ruleType, User: spec.User}, nil
}

// movePlugin moves cards between locations. Resolution is pass-through: one
// move command per card, paired positionally with the from/to lists.
func movePlugin() *Plugin {
	return &Plugin{
		Type: "move",
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule("move", spec)
			if err != nil {
				return nil, err
			}
			if len(spec.Cards) == 0 || len(spec.To) == 0 {
				return nil, fmt.Errorf("move: %w", ErrMissingTargets)
			}
			from := spec.From
			if len(from) == 0 {
				for _, c := range spec.Cards {
					if loc := board.LocationByID(c.LocationID); loc != nil {
						from = append(from, loc)
					}
				}
			}
			rule.Cards = protocol.JoinIDs(cardIDs(spec.Cards))
			rule.From = protocol.JoinIDs(locationIDs(from))
			rule.To = protocol.JoinIDs(locationIDs(spec.To))
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != "move" {
				return false
			}
			cards := protocol.SplitIDs(rule.Cards)
			from := protocol.SplitIDs(rule.From)
			to := protocol.SplitIDs(rule.To)
			commands := make([]protocol.Command, 0, len(cards))
			for i, cardID := range cards {
				commands = append(commands, protocol.Command{
					Type:   protocol.CommandMove,
					CardID: cardID,
					FromID: idAt(from, i),
					ToID:   idAt(to, i),
					Index:  -1,
				})
			}
			out.Offer(commands)
			return true
		},
		UpdateBoard: func(board *domain.Board, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandMove {
				return false
			}
			// The authoritative board knows every element; a failed move here
			// is a protocol violation surfaced by the caller's board state.
			_ = board.MoveCard(cmd.CardID, cmd.FromID, cmd.ToID, cmd.Index)
			return true
		},
		UpdateClient: func(view View, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandMove {
				return false
			}
			// Partial boards may not know the card or endpoints.
			_ = view.Board().MoveCard(cmd.CardID, cmd.FromID, cmd.ToID, cmd.Index)
			return true
		},
	}
}
