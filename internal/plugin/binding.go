package plugin

import (
	"time"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// Binding is the ergonomic rule-factory surface handed to game-setup code.
// Each Wait* method forwards to the matching plugin's CreateRule with the
// bound board prepended; the binding is convenience only, not protocol.
type Binding struct {
	registry *Registry
	board    *domain.Board
}

// Board returns the bound board.
func (b *Binding) Board() *domain.Board { return b.board }

// WaitMove yields a move rule for the given cards between locations.
func (b *Binding) WaitMove(user string, cards []*domain.Card, from, to []*domain.Location) (*protocol.Rule, error) {
	return b.registry.CreateRule("move", b.board, RuleSpec{User: user, Cards: cards, From: from, To: to})
}

// WaitPick yields a pick rule over arbitrary candidate values.
func (b *Binding) WaitPick(user string, list []string) (*protocol.Rule, error) {
	return b.registry.CreateRule("pick", b.board, RuleSpec{User: user, List: list})
}

// WaitPickLocation yields a pick rule over locations.
func (b *Binding) WaitPickLocation(user string, locations []*domain.Location) (*protocol.Rule, error) {
	return b.registry.CreateRule("pickLocation", b.board, RuleSpec{User: user, TargetLocations: locations})
}

// WaitPickCard yields a pick rule over cards.
func (b *Binding) WaitPickCard(user string, cards []*domain.Card) (*protocol.Rule, error) {
	return b.registry.CreateRule("pickCard", b.board, RuleSpec{User: user, TargetCards: cards})
}

// WaitShuffle yields a shuffle rule for one location. A zero seed lets the
// resolving client draw one.
func (b *Binding) WaitShuffle(user string, location *domain.Location, seed int64) (*protocol.Rule, error) {
	return b.registry.CreateRule("shuffle", b.board, RuleSpec{User: user, TargetLocations: []*domain.Location{location}, Seed: seed})
}

// WaitSet yields a set rule writing a variable on the targeted elements.
func (b *Binding) WaitSet(user, key, value string, spec RuleSpec) (*protocol.Rule, error) {
	spec.User = user
	spec.Key = key
	spec.Value = value
	return b.registry.CreateRule("set", b.board, spec)
}

// WaitSetTemporary yields a set rule that UI clients revert after duration.
func (b *Binding) WaitSetTemporary(user, key, value string, duration time.Duration, spec RuleSpec) (*protocol.Rule, error) {
	spec.User = user
	spec.Key = key
	spec.Value = value
	spec.Duration = duration
	return b.registry.CreateRule("setTemporary", b.board, spec)
}

// WaitSwap yields a swap rule exchanging the full contents of two locations.
func (b *Binding) WaitSwap(user string, from, to *domain.Location) (*protocol.Rule, error) {
	return b.registry.CreateRule("swap", b.board, RuleSpec{User: user, From: []*domain.Location{from}, To: []*domain.Location{to}})
}

// WaitDelay yields a delay rule; the UI client responds after the duration
// with no commands.
func (b *Binding) WaitDelay(user string, duration time.Duration) (*protocol.Rule, error) {
	return b.registry.CreateRule("delay", b.board, RuleSpec{User: user, Duration: duration})
}

// WaitLabel yields a label rule toggling a boolean label on the targets.
func (b *Binding) WaitLabel(user, label string, on bool, spec RuleSpec) (*protocol.Rule, error) {
	spec.User = user
	spec.Key = label
	if on {
		spec.Value = "true"
	} else {
		spec.Value = "false"
	}
	return b.registry.CreateRule("label", b.board, spec)
}

// WaitSendMessage yields a sendMessage rule surfacing a named UI event.
func (b *Binding) WaitSendMessage(user, name, value string, bubbles bool) (*protocol.Rule, error) {
	return b.registry.CreateRule("sendMessage", b.board, RuleSpec{User: user, Name: name, Value: value, Bubbles: bubbles})
}
