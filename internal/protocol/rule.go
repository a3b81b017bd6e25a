// Package protocol defines the message vocabulary exchanged between the game
// server and its clients: abstract rules, concrete commands, settled batches
// and the JSON envelopes that carry them over any transport.
package protocol

import (
	"strconv"
	"strings"
)

// Rule is an abstract, not-yet-resolved action addressed to one or more users.
// Element references are normalized to comma-joined id strings before a rule
// leaves the authoritative side, so rules are transport-safe.
type Rule struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	User string `json:"user"`

	From     string `json:"from,omitempty"`    // location ids
	To       string `json:"to,omitempty"`      // location ids
	Cards    string `json:"cards,omitempty"`   // card ids
	List     string `json:"list,omitempty"`    // pick candidates (ids or values)
	Key      string `json:"key,omitempty"`     // variable or label key
	Value    string `json:"value,omitempty"`   // variable value or label toggle
	Affects  string `json:"affects,omitempty"` // user names gating visible effect
	Seed     int64  `json:"seed,omitempty"`
	Duration int    `json:"duration,omitempty"` // milliseconds
	Name     string `json:"name,omitempty"`     // sendMessage event name
	Bubbles  bool   `json:"bubbles,omitempty"`
}

// Users returns the de-duplicated addressed user set.
func (r *Rule) Users() []string {
	return SplitNames(r.User)
}

// JoinIDs renders ids as the comma-joined wire form.
func JoinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// SplitIDs parses the comma-joined wire form back into ids. Malformed entries
// are skipped.
func SplitIDs(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// SplitNames splits a comma-joined name set, trimming and de-duplicating while
// preserving first-seen order.
func SplitNames(s string) []string {
	if s == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ContainsName reports whether the comma-joined set contains the name.
func ContainsName(set, name string) bool {
	for _, n := range SplitNames(set) {
		if n == name {
			return true
		}
	}
	return false
}

// Intersects reports whether two comma-joined name sets share a member.
func Intersects(a, b string) bool {
	for _, n := range SplitNames(a) {
		if ContainsName(b, n) {
			return true
		}
	}
	return false
}
