package client

import (
	"log/slog"
	"sort"

	"cardtable/internal/domain"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
)

// Bank is the privileged, full-information client the server itself uses: it
// auto-resolves rules addressed to BANK and converts raw commands into the
// client-visible results handed back to the rule script. When a plugin offers
// several equally valid outcomes the bank selects uniformly at random with a
// seeded generator, so shuffles and hidden setup stay replayable.
type Bank struct {
	*Base
}

// NewBank creates the bank over the authoritative board.
func NewBank(board *domain.Board, registry *plugin.Registry, logger *slog.Logger, seed int64) *Bank {
	base := NewBase(BankUser, board, registry, logger)
	base.privileged = true
	base.SeedRand(seed)
	b := &Bank{Base: base}
	base.choose = func(rule *protocol.Rule, out *plugin.Outcomes) int {
		return base.rng.Intn(out.Len())
	}
	return b
}

// ApplyToBoard applies a settled batch to the authoritative board, in the
// same per-user order clients use.
func (b *Bank) ApplyToBoard(batch *protocol.BatchCommand) {
	for _, user := range sortedUsers(batch) {
		for _, cmd := range batch.Commands[user] {
			if cmd.Type == "" {
				b.logger.Error("batch command with empty type", "user", user, "ruleId", batch.RuleID)
				continue
			}
			if !b.registry.ApplyToBoard(b.board, cmd) {
				b.logger.Warn("no plugin claimed command", "type", cmd.Type, "user", user)
			}
		}
	}
}

// Results re-expresses one user's raw commands as script-visible results,
// resolving element references against the full board.
func (b *Bank) Results(commands []protocol.Command) []protocol.Result {
	results := make([]protocol.Result, 0, len(commands))
	for _, cmd := range commands {
		res := protocol.Result{Command: cmd, Value: cmd.Value}
		switch cmd.Type {
		case protocol.CommandMove:
			res.CardIDs = []int{cmd.CardID}
			res.LocationIDs = []int{cmd.FromID, cmd.ToID}
		case protocol.CommandPickCard:
			if cmd.CardID != 0 {
				res.CardIDs = []int{cmd.CardID}
			}
		case protocol.CommandPickLocation:
			if cmd.LocationID != 0 {
				res.LocationIDs = []int{cmd.LocationID}
			}
		case protocol.CommandShuffle:
			res.LocationIDs = []int{cmd.LocationID}
			if loc := b.board.LocationByID(cmd.LocationID); loc != nil {
				res.CardIDs = append([]int(nil), loc.CardIDs...)
			}
		}
		results = append(results, res)
	}
	return results
}

func sortedUsers(batch *protocol.BatchCommand) []string {
	users := make([]string, 0, len(batch.Commands))
	for user := range batch.Commands {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}
