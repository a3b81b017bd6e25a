package plugin

import (
	"errors"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

var ErrMissingName = errors.New("sendMessage name is required")

// sendMessagePlugin wraps a named event with a payload and bubbling flag. It
// is purely a UI-side notification; resolution is pass-through.
func sendMessagePlugin() *Plugin {
	return &Plugin{
		Type: "sendMessage",
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule("sendMessage", spec)
			if err != nil {
				return nil, err
			}
			if spec.Name == "" {
				return nil, ErrMissingName
			}
			rule.Name = spec.Name
			rule.Value = spec.Value
			rule.Bubbles = spec.Bubbles
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != "sendMessage" {
				return false
			}
			out.Offer([]protocol.Command{{
				Type:    protocol.CommandSendMessage,
				Name:    rule.Name,
				Value:   rule.Value,
				Bubbles: rule.Bubbles,
			}})
			return true
		},
		UpdateBoard: func(board *domain.Board, cmd protocol.Command) bool {
			return cmd.Type == protocol.CommandSendMessage
		},
		UpdateClient: func(view View, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandSendMessage {
				return false
			}
			view.Notify(cmd.Name, cmd.Value, cmd.Bubbles)
			return true
		},
	}
}
