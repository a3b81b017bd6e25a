package plugin

import (
	"errors"
	"fmt"
	"strconv"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

var ErrSwapShape = errors.New("swap needs exactly one non-empty from and to location")

// swapPlugin exchanges the full contents of two locations. Only the bank
// resolves it: players may have imperfect knowledge of either side, so the
// expansion into paired move commands needs the authoritative board.
func swapPlugin() *Plugin {
	return &Plugin{
		Type: "swap",
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule("swap", spec)
			if err != nil {
				return nil, err
			}
			if len(spec.From) != 1 || len(spec.To) != 1 {
				return nil, ErrSwapShape
			}
			from, to := spec.From[0], spec.To[0]
			if len(from.CardIDs) == 0 || len(to.CardIDs) == 0 {
				return nil, fmt.Errorf("%w: %s and %s", ErrSwapShape, from.Name, to.Name)
			}
			rule.From = strconv.Itoa(from.ID)
			rule.To = strconv.Itoa(to.ID)
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != "swap" {
				return false
			}
			if !res.Privileged() {
				// Claimed but unresolved; a non-bank client cannot see both sides.
				return true
			}
			fromIDs := protocol.SplitIDs(rule.From)
			toIDs := protocol.SplitIDs(rule.To)
			if len(fromIDs) != 1 || len(toIDs) != 1 {
				return true
			}
			from := res.Board().LocationByID(fromIDs[0])
			to := res.Board().LocationByID(toIDs[0])
			if from == nil || to == nil {
				return true
			}
			var commands []protocol.Command
			for _, cardID := range from.CardIDs {
				commands = append(commands, protocol.Command{
					Type: protocol.CommandMove, CardID: cardID, FromID: from.ID, ToID: to.ID, Index: -1,
				})
			}
			for _, cardID := range to.CardIDs {
				commands = append(commands, protocol.Command{
					Type: protocol.CommandMove, CardID: cardID, FromID: to.ID, ToID: from.ID, Index: -1,
				})
			}
			out.Offer(commands)
			return true
		},
	}
}
