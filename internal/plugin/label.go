package plugin

import (
	"fmt"
	"strings"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// labelPlugin toggles boolean labels on cards and locations, gated by an
// affects user set on the client side.
func labelPlugin() *Plugin {
	return &Plugin{
		Type: "label",
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule("label", spec)
			if err != nil {
				return nil, err
			}
			if len(spec.TargetCards) == 0 && len(spec.TargetLocations) == 0 {
				return nil, fmt.Errorf("label: %w", ErrMissingTargets)
			}
			rule.Key = spec.Key
			rule.Value = spec.Value
			rule.Cards = protocol.JoinIDs(cardIDs(spec.TargetCards))
			rule.From = protocol.JoinIDs(locationIDs(spec.TargetLocations))
			rule.Affects = strings.Join(spec.Affects, ",")
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != "label" {
				return false
			}
			var commands []protocol.Command
			for _, cardID := range protocol.SplitIDs(rule.Cards) {
				commands = append(commands, protocol.Command{
					Type: protocol.CommandLabel, CardID: cardID,
					Key: rule.Key, Value: rule.Value, Affects: rule.Affects,
				})
			}
			for _, locID := range protocol.SplitIDs(rule.From) {
				commands = append(commands, protocol.Command{
					Type: protocol.CommandLabel, LocationID: locID,
					Key: rule.Key, Value: rule.Value, Affects: rule.Affects,
				})
			}
			out.Offer(commands)
			return true
		},
		UpdateBoard: func(board *domain.Board, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandLabel {
				return false
			}
			applyLabel(board, cmd)
			return true
		},
		UpdateClient: func(view View, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandLabel {
				return false
			}
			if !affectsUser(cmd.Affects, view.User()) {
				return true
			}
			applyLabel(view.Board(), cmd)
			return true
		},
	}
}

func applyLabel(board *domain.Board, cmd protocol.Command) {
	on := cmd.Value == "true"
	if cmd.CardID != 0 {
		if card := board.CardByID(cmd.CardID); card != nil {
			card.Labels[cmd.Key] = on
		}
	}
	if cmd.LocationID != 0 {
		if loc := board.LocationByID(cmd.LocationID); loc != nil {
			loc.Labels[cmd.Key] = on
		}
	}
}
