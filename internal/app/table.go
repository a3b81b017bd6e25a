package app

import (
	"fmt"

	"cardtable/internal/domain"
)

var tableSuits = []string{"clubs", "diamonds", "hearts", "spades"}

var tableRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// NewTableBoard builds the standard hosting setup shared by the standalone
// server and the Nakama match: one user and one face-down hand location per
// seat, a shared face-up table location, and a 52-card deck stacked in a
// face-down draw pile. Hand locations are fully visible to their owner and
// face-down to everyone else; the table is face-up for all.
func NewTableBoard(users []string) *domain.Board {
	board := domain.NewBoard()

	deck := board.CreateDeck("standard")
	pile := board.CreateLocation("pile")
	pile.FaceDown = true
	pile.Labels["pile"] = true

	table := board.CreateLocation("table")
	table.Labels["table"] = true

	for _, name := range users {
		board.CreateUser(name)
		hand := board.CreateLocation(fmt.Sprintf("hand:%s", name))
		hand.FaceDown = true
		hand.Labels["hand"] = true
		hand.Variables["owner"] = name
		hand.SetVisibility(name, domain.VisibilityFaceUp)
	}

	for _, suit := range tableSuits {
		for _, rank := range tableRanks {
			board.CreateCard(deck, pile, domain.Display{
				Front: fmt.Sprintf("%s-%s", rank, suit),
				Back:  "back",
			})
		}
	}

	for _, name := range users {
		pile.SetVisibility(name, domain.VisibilityFaceDown)
		table.SetVisibility(name, domain.VisibilityFaceUp)
		for _, loc := range board.Locations {
			if loc.Labels["hand"] && loc.Variables["owner"] != name {
				loc.SetVisibility(name, domain.VisibilityFaceDown)
			}
		}
	}
	return board
}

// HandLocation returns the hand location owned by the named user, or nil.
func HandLocation(board *domain.Board, user string) *domain.Location {
	for _, loc := range board.Locations {
		if loc.Labels["hand"] && loc.Variables["owner"] == user {
			return loc
		}
	}
	return nil
}
