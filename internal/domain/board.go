package domain

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrUnknownCard     = errors.New("card not found")
	ErrUnknownLocation = errors.New("location not found")
	ErrCardNotInPlace  = errors.New("card is not in the expected location")
)

// Board is the shared mutable state of one game instance: ordered locations,
// decks, cards, users and named variables. The authoritative side owns the
// only complete Board; client-side copies may be partial.
type Board struct {
	Locations []*Location
	Decks     []*Deck
	Cards     []*Card
	Users     []*User
	Variables Variables

	nextID int
}

// NewBoard creates an empty board with its own id counter.
func NewBoard() *Board {
	return &Board{Variables: Variables{}}
}

// NextID hands out board-scoped ids, unique and strictly increasing.
func (b *Board) NextID() int {
	b.nextID++
	return b.nextID
}

// CreateLocation adds an ordered card container to the board.
func (b *Board) CreateLocation(name string) *Location {
	loc := &Location{
		ID:         b.NextID(),
		Name:       name,
		Labels:     map[string]bool{},
		Variables:  Variables{},
		Visibility: map[string]Visibility{},
	}
	b.Locations = append(b.Locations, loc)
	return loc
}

// CreateDeck adds a named card grouping. A deck is not a container; it only
// tags the cards created through it.
func (b *Board) CreateDeck(name string) *Deck {
	deck := &Deck{ID: b.NextID(), Name: name}
	b.Decks = append(b.Decks, deck)
	return deck
}

// CreateCard adds a card belonging to deck (may be nil) and optionally places
// it at the bottom of loc.
func (b *Board) CreateCard(deck *Deck, loc *Location, display Display) *Card {
	card := &Card{
		ID:        b.NextID(),
		Display:   display,
		Labels:    map[string]bool{},
		Variables: Variables{},
	}
	if deck != nil {
		card.DeckID = deck.ID
	}
	b.Cards = append(b.Cards, card)
	if loc != nil {
		card.LocationID = loc.ID
		loc.CardIDs = append(loc.CardIDs, card.ID)
	}
	return card
}

// CreateUser registers a named participant.
func (b *Board) CreateUser(name string) *User {
	user := &User{ID: b.NextID(), Name: name}
	b.Users = append(b.Users, user)
	return user
}

// CardByID returns the card with the given id, or nil when the board does not
// know it (legal on partial client boards).
func (b *Board) CardByID(id int) *Card {
	for _, c := range b.Cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// LocationByID returns the location with the given id, or nil when unknown.
func (b *Board) LocationByID(id int) *Location {
	for _, l := range b.Locations {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// LocationsByLabel returns the locations carrying the given label, in board order.
func (b *Board) LocationsByLabel(label string) []*Location {
	var out []*Location
	for _, l := range b.Locations {
		if l.Labels[label] {
			out = append(out, l)
		}
	}
	return out
}

// UserByName returns the user with the given name, or nil.
func (b *Board) UserByName(name string) *User {
	for _, u := range b.Users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// CardsInDeck returns the cards created through the given deck, in creation order.
func (b *Board) CardsInDeck(deck *Deck) []*Card {
	var out []*Card
	for _, c := range b.Cards {
		if c.DeckID == deck.ID {
			out = append(out, c)
		}
	}
	return out
}

// MoveCard transfers a card from one location to another, inserting it at
// index (clamped; negative means append). Ownership transfers atomically: the
// card is never a member of two locations. On a partial board a move whose
// card or endpoints are unknown is applied as far as local knowledge allows.
func (b *Board) MoveCard(cardID, fromID, toID, index int) error {
	card := b.CardByID(cardID)
	if card == nil {
		return fmt.Errorf("move card %d: %w", cardID, ErrUnknownCard)
	}

	from := b.LocationByID(fromID)
	to := b.LocationByID(toID)
	if to == nil {
		return fmt.Errorf("move card %d to %d: %w", cardID, toID, ErrUnknownLocation)
	}

	if from != nil {
		if card.LocationID != from.ID {
			return fmt.Errorf("move card %d from %d: %w", cardID, fromID, ErrCardNotInPlace)
		}
		from.removeCard(cardID)
	}

	if index < 0 || index > len(to.CardIDs) {
		index = len(to.CardIDs)
	}
	to.CardIDs = append(to.CardIDs, 0)
	copy(to.CardIDs[index+1:], to.CardIDs[index:])
	to.CardIDs[index] = cardID
	card.LocationID = to.ID
	return nil
}

// ShuffleWithSeed permutes a location's card order using a seeded generator.
// Every observer replaying the same seed derives the same order.
func (b *Board) ShuffleWithSeed(locationID int, seed int64) error {
	loc := b.LocationByID(locationID)
	if loc == nil {
		return fmt.Errorf("shuffle %d: %w", locationID, ErrUnknownLocation)
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(loc.CardIDs), func(i, j int) {
		loc.CardIDs[i], loc.CardIDs[j] = loc.CardIDs[j], loc.CardIDs[i]
	})
	return nil
}

// VisibilityFor reports what the named user is allowed to know about a location.
func (b *Board) VisibilityFor(user string, locationID int) Visibility {
	loc := b.LocationByID(locationID)
	if loc == nil {
		return VisibilityNone
	}
	return loc.VisibilityFor(user)
}
