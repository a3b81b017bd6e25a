package plugin

import (
	"strings"
	"time"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// setPlugin writes variables on cards, locations or the board itself. The
// rule key is rewritten to the element-specific command type at expansion.
// The temporary variant additionally reverts after its duration, and takes
// visible effect only on client views, never the authoritative board.
func setPlugin(temporary bool) *Plugin {
	ruleType := "set"
	if temporary {
		ruleType = "setTemporary"
	}
	return &Plugin{
		Type: ruleType,
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule(ruleType, spec)
			if err != nil {
				return nil, err
			}
			rule.Key = spec.Key
			rule.Value = spec.Value
			rule.Cards = protocol.JoinIDs(cardIDs(spec.TargetCards))
			rule.From = protocol.JoinIDs(locationIDs(spec.TargetLocations))
			rule.Affects = strings.Join(spec.Affects, ",")
			if temporary {
				rule.Duration = int(spec.Duration / time.Millisecond)
			}
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != ruleType {
				return false
			}
			var commands []protocol.Command
			base := protocol.Command{
				Key:      rule.Key,
				Value:    rule.Value,
				Affects:  rule.Affects,
				Duration: rule.Duration,
				Revert:   temporary,
			}
			for _, cardID := range protocol.SplitIDs(rule.Cards) {
				cmd := base
				cmd.Type = protocol.CommandSetCardVariable
				cmd.CardID = cardID
				commands = append(commands, cmd)
			}
			for _, locID := range protocol.SplitIDs(rule.From) {
				cmd := base
				cmd.Type = protocol.CommandSetLocationVariable
				cmd.LocationID = locID
				commands = append(commands, cmd)
			}
			if len(commands) == 0 {
				cmd := base
				cmd.Type = protocol.CommandSetBoardVariable
				commands = append(commands, cmd)
			}
			out.Offer(commands)
			return true
		},
		UpdateBoard: func(board *domain.Board, cmd protocol.Command) bool {
			if !isSetCommand(cmd.Type) {
				return false
			}
			// Temporary writes are a client-visible effect only.
			if !cmd.Revert {
				applySet(board, cmd, cmd.Value)
			}
			return true
		},
		UpdateClient: func(view View, cmd protocol.Command) bool {
			if !isSetCommand(cmd.Type) {
				return false
			}
			if !affectsUser(cmd.Affects, view.User()) {
				return true
			}
			previous := readSet(view.Board(), cmd)
			applySet(view.Board(), cmd, cmd.Value)
			if cmd.Revert {
				restore := previous
				view.Schedule(time.Duration(cmd.Duration)*time.Millisecond, func() {
					applySet(view.Board(), cmd, restore)
				})
			}
			return true
		},
	}
}

func isSetCommand(t string) bool {
	switch t {
	case protocol.CommandSetCardVariable, protocol.CommandSetLocationVariable, protocol.CommandSetBoardVariable:
		return true
	}
	return false
}

func applySet(board *domain.Board, cmd protocol.Command, value string) {
	switch cmd.Type {
	case protocol.CommandSetCardVariable:
		if card := board.CardByID(cmd.CardID); card != nil {
			card.Variables[cmd.Key] = value
		}
	case protocol.CommandSetLocationVariable:
		if loc := board.LocationByID(cmd.LocationID); loc != nil {
			loc.Variables[cmd.Key] = value
		}
	case protocol.CommandSetBoardVariable:
		board.Variables[cmd.Key] = value
	}
}

func readSet(board *domain.Board, cmd protocol.Command) string {
	switch cmd.Type {
	case protocol.CommandSetCardVariable:
		if card := board.CardByID(cmd.CardID); card != nil {
			return card.Variables[cmd.Key]
		}
	case protocol.CommandSetLocationVariable:
		if loc := board.LocationByID(cmd.LocationID); loc != nil {
			return loc.Variables[cmd.Key]
		}
	case protocol.CommandSetBoardVariable:
		return board.Variables[cmd.Key]
	}
	return ""
}
