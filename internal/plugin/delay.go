package plugin

import (
	"errors"
	"time"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

var ErrMissingDuration = errors.New("delay duration is required")

// delayPlugin pauses the script: the addressed client responds with an empty
// command set once the duration has elapsed, and the protocol resumes on its
// own. Timers are client-local; the server never times a step.
func delayPlugin() *Plugin {
	return &Plugin{
		Type: "delay",
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule("delay", spec)
			if err != nil {
				return nil, err
			}
			if spec.Duration <= 0 {
				return nil, ErrMissingDuration
			}
			rule.Duration = int(spec.Duration / time.Millisecond)
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != "delay" {
				return false
			}
			out.Delay = time.Duration(rule.Duration) * time.Millisecond
			out.Offer(nil)
			return true
		},
	}
}
