// Package plugin decouples the protocol engine from game-specific semantics.
// A plugin is registered under a rule-type key and supplies up to four
// capabilities: a rule factory, client-side rule resolution, and command
// application against a client view or the authoritative board. Absent
// capabilities are nil fields, never runtime type checks.
package plugin

import (
	"math/rand"
	"time"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// Resolver is the client surface PerformRule works against.
type Resolver interface {
	// Board returns the resolver's (possibly partial) board view.
	Board() *domain.Board
	// User returns the resolving user's name.
	User() string
	// Rand returns the resolver's seeded generator.
	Rand() *rand.Rand
	// Privileged reports full-information access (the bank client).
	Privileged() bool
}

// View is the client surface commands are applied against.
type View interface {
	// Board returns the client's local board copy.
	Board() *domain.Board
	// User returns the owning user's name.
	User() string
	// Schedule runs fn after d on the client's timer (delay, setTemporary).
	Schedule(d time.Duration, fn func())
	// Notify surfaces a named event to the surrounding UI layer.
	Notify(name, value string, bubbles bool)
}

// Outcomes collects the candidate command sets a plugin offers for a rule.
// An empty collection after a claimed rule means resolution is still waiting
// (interactive input), which stalls the step without raising an error.
type Outcomes struct {
	// Delay postpones the client's response; used by the delay plugin.
	Delay time.Duration

	sets [][]protocol.Command
}

// Offer appends one candidate command set.
func (o *Outcomes) Offer(commands []protocol.Command) {
	o.sets = append(o.sets, commands)
}

// Len returns the number of offered candidates.
func (o *Outcomes) Len() int { return len(o.sets) }

// At returns the i-th candidate command set.
func (o *Outcomes) At(i int) []protocol.Command { return o.sets[i] }

// RuleSpec enumerates every option the built-in rule factories recognize.
// Factories validate the fields they use at construction time.
type RuleSpec struct {
	User string

	From  []*domain.Location
	To    []*domain.Location
	Cards []*domain.Card
	List  []string

	Key     string
	Value   string
	Affects []string

	TargetCards     []*domain.Card
	TargetLocations []*domain.Location

	Seed     int64
	Duration time.Duration
	Name     string
	Bubbles  bool
}

// Plugin bundles the capabilities registered under one rule-type key.
type Plugin struct {
	Type string

	// CreateRule builds an abstract rule from setup arguments, normalizing
	// element references to id strings.
	CreateRule func(*domain.Board, RuleSpec) (*protocol.Rule, error)

	// PerformRule attempts to resolve a rule on a client, pushing candidate
	// command sets into out. It returns whether this plugin claimed the rule.
	PerformRule func(Resolver, *protocol.Rule, *Outcomes) bool

	// UpdateClient applies a settled command to a client view, returning
	// whether it claimed the command.
	UpdateClient func(View, protocol.Command) bool

	// UpdateBoard applies a settled command to the authoritative board,
	// returning whether it claimed the command.
	UpdateBoard func(*domain.Board, protocol.Command) bool
}

func locationIDs(locs []*domain.Location) []int {
	ids := make([]int, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	return ids
}

func cardIDs(cards []*domain.Card) []int {
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// idAt pairs a possibly-shorter id list with a card index: a single entry
// applies to every card, otherwise entries pair positionally.
func idAt(ids []int, i int) int {
	if len(ids) == 0 {
		return 0
	}
	if len(ids) == 1 {
		return ids[0]
	}
	if i < len(ids) {
		return ids[i]
	}
	return ids[len(ids)-1]
}

// affectsUser reports whether an affects gate lets the named user observe the
// effect. An empty gate affects everyone.
func affectsUser(affects, user string) bool {
	if affects == "" {
		return true
	}
	return protocol.ContainsName(affects, user)
}
