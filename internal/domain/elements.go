package domain

// Visibility is a per-user knowledge level for a location. Higher levels
// reveal strictly more: None < FaceDown < FaceUp.
type Visibility int

const (
	// VisibilityNone hides both card identity and movement.
	VisibilityNone Visibility = iota
	// VisibilityFaceDown reveals movement but not card identity.
	VisibilityFaceDown
	// VisibilityFaceUp reveals movement and card identity.
	VisibilityFaceUp
)

// Variables is a string-keyed variable mapping carried by boards, locations
// and cards.
type Variables map[string]string

// Display is the opaque front/back descriptor consumed by rendering code; the
// core never interprets it.
type Display struct {
	Front    string `json:"front,omitempty"`
	Back     string `json:"back,omitempty"`
	FaceDown bool   `json:"facedown,omitempty"`
}

// Location is an ordered card container. Order is significant: index 0 is the
// top of pile-like structures.
type Location struct {
	ID         int
	Name       string
	CardIDs    []int
	FaceDown   bool
	Labels     map[string]bool
	Variables  Variables
	Visibility map[string]Visibility
}

// SetVisibility records the knowledge level a user has into this location.
func (l *Location) SetVisibility(user string, v Visibility) {
	l.Visibility[user] = v
}

// VisibilityFor returns the recorded level for a user, VisibilityNone by default.
func (l *Location) VisibilityFor(user string) Visibility {
	return l.Visibility[user]
}

// Contains reports whether the location currently holds the card.
func (l *Location) Contains(cardID int) bool {
	for _, id := range l.CardIDs {
		if id == cardID {
			return true
		}
	}
	return false
}

func (l *Location) removeCard(cardID int) {
	for i, id := range l.CardIDs {
		if id == cardID {
			l.CardIDs = append(l.CardIDs[:i], l.CardIDs[i+1:]...)
			return
		}
	}
}

// Card belongs to at most one location at a time. LocationID is zero when the
// card is not placed anywhere (or the local board does not know where).
type Card struct {
	ID         int
	DeckID     int
	LocationID int
	Display    Display
	Labels     map[string]bool
	Variables  Variables
}

// Deck is a named grouping used to create and query batches of cards.
type Deck struct {
	ID   int
	Name string
}

// User is a named participant known at game-setup time.
type User struct {
	ID   int
	Name string
}
