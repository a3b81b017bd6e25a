package plugin

import (
	"fmt"
	"strconv"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// shufflePlugin reorders one location with a seeded permutation. The settled
// command carries only {seed, locationId}; every observer replays the
// permutation deterministically against its own board copy.
func shufflePlugin() *Plugin {
	return &Plugin{
		Type: "shuffle",
		CreateRule: func(board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
			rule, err := newRule("shuffle", spec)
			if err != nil {
				return nil, err
			}
			if len(spec.TargetLocations) != 1 {
				return nil, fmt.Errorf("shuffle: exactly one location required: %w", ErrMissingTargets)
			}
			rule.From = strconv.Itoa(spec.TargetLocations[0].ID)
			rule.Seed = spec.Seed
			return rule, nil
		},
		PerformRule: func(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
			if rule.Type != "shuffle" {
				return false
			}
			locs := protocol.SplitIDs(rule.From)
			if len(locs) != 1 {
				return true
			}
			seed := rule.Seed
			if seed == 0 {
				seed = res.Rand().Int63()
			}
			out.Offer([]protocol.Command{{
				Type:       protocol.CommandShuffle,
				LocationID: locs[0],
				Seed:       seed,
			}})
			return true
		},
		UpdateBoard: func(board *domain.Board, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandShuffle {
				return false
			}
			_ = board.ShuffleWithSeed(cmd.LocationID, cmd.Seed)
			return true
		},
		UpdateClient: func(view View, cmd protocol.Command) bool {
			if cmd.Type != protocol.CommandShuffle {
				return false
			}
			_ = view.Board().ShuffleWithSeed(cmd.LocationID, cmd.Seed)
			return true
		},
	}
}
