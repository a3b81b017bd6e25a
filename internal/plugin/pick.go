package plugin

import (
	"fmt"
	"strconv"
	"strings"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// pickPlugin builds the pick family: a plain pick over arbitrary values, and
// the typed pickLocation/pickCard variants. Resolution offers one candidate
// per list entry; the addressed client's policy chooses among them.
func pickPlugin(kind string) *Plugin {
	return &Plugin{
		Type: kind,
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule(kind, spec)
			if err != nil {
				return nil, err
			}
			switch kind {
			case protocol.CommandPickLocation:
				if len(spec.TargetLocations) == 0 {
					return nil, fmt.Errorf("%s: %w", kind, ErrMissingTargets)
				}
				rule.List = protocol.JoinIDs(locationIDs(spec.TargetLocations))
			case protocol.CommandPickCard:
				if len(spec.TargetCards) == 0 {
					return nil, fmt.Errorf("%s: %w", kind, ErrMissingTargets)
				}
				rule.List = protocol.JoinIDs(cardIDs(spec.TargetCards))
			default:
				if len(spec.List) == 0 {
					return nil, fmt.Errorf("%s: %w", kind, ErrMissingTargets)
				}
				list := ""
				for i, v := range spec.List {
					if i > 0 {
						list += ","
					}
					list += v
				}
				rule.List = list
			}
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != kind {
				return false
			}
			for _, entry := range splitList(rule.List) {
				cmd := protocol.Command{Type: kind, Value: entry}
				if id, err := strconv.Atoi(entry); err == nil {
					switch kind {
					case protocol.CommandPickLocation:
						cmd.LocationID = id
					case protocol.CommandPickCard:
						cmd.CardID = id
					}
				}
				out.Offer([]protocol.Command{cmd})
			}
			return true
		},
		// Settled picks carry information but mutate nothing.
		UpdateBoard: func(board *domain.Board, cmd protocol.Command) bool {
			return cmd.Type == kind
		},
		UpdateClient: func(view View, cmd protocol.Command) bool {
			return cmd.Type == kind
		},
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
