package client

import (
	"log/slog"
	"sync"

	"cardtable/internal/domain"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
)

// Human is the interactive client. It resolves rules by taking the first
// offered outcome (the one that corresponds to waiting for real user input)
// and keeps an id-to-visual-element mapping the rendering layer reads after
// each applied batch. The rendering layer itself lives outside the core; it
// only ever sees settled commands and this lookup.
type Human struct {
	*Base

	mu        sync.Mutex
	cardElems map[int]any
	locElems  map[int]any
	onNotify  func(name, value string, bubbles bool)
}

// NewHuman creates an interactive client over a partial board view.
func NewHuman(user string, board *domain.Board, registry *plugin.Registry, logger *slog.Logger) *Human {
	base := NewBase(user, board, registry, logger)
	h := &Human{
		Base:      base,
		cardElems: map[int]any{},
		locElems:  map[int]any{},
	}
	base.choose = func(rule *protocol.Rule, out *plugin.Outcomes) int { return 0 }
	base.notify = func(name, value string, bubbles bool) {
		h.mu.Lock()
		fn := h.onNotify
		h.mu.Unlock()
		if fn != nil {
			fn(name, value, bubbles)
		}
	}
	return h
}

// OnNotify registers the UI callback for sendMessage events.
func (h *Human) OnNotify(fn func(name, value string, bubbles bool)) {
	h.mu.Lock()
	h.onNotify = fn
	h.mu.Unlock()
}

// BindCardElem associates a card id with its visual element.
func (h *Human) BindCardElem(cardID int, elem any) {
	h.mu.Lock()
	h.cardElems[cardID] = elem
	h.mu.Unlock()
}

// BindLocationElem associates a location id with its visual element.
func (h *Human) BindLocationElem(locationID int, elem any) {
	h.mu.Lock()
	h.locElems[locationID] = elem
	h.mu.Unlock()
}

// GetElemFromCard returns the visual element bound to a card id.
func (h *Human) GetElemFromCard(cardID int) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cardElems[cardID]
}

// GetElemFromLocation returns the visual element bound to a location id.
func (h *Human) GetElemFromLocation(locationID int) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locElems[locationID]
}
