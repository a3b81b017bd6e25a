package bot

import (
	"cardtable/internal/protocol"
)

// Brain is the interface all bot strategies implement: given a rule and the
// number of candidate outcomes its plugins offered, pick one.
type Brain interface {
	ChooseOutcome(rule *protocol.Rule, candidates int) (int, error)
	OnEvent(event any)
}
