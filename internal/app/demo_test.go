package app

import (
	"testing"

	"cardtable/internal/client"
	"cardtable/internal/plugin"
)

func TestDemoScriptPlaysToCompletion(t *testing.T) {
	users := []string{"alice", "bob"}
	handSize := 3
	board := NewTableBoard(users)
	registry := plugin.NewRegistry(testLogger())
	bank := client.NewBank(board, registry, testLogger(), 9)
	gs := NewGameServer(board, registry, bank, DemoScript(registry, handSize), testLogger())
	attachClient(gs, registry, users, "alice")
	attachClient(gs, registry, users, "bob")

	if _, err := gs.NewGame(); err != nil {
		t.Fatalf("NewGame() error = %v", err)
	}
	if gs.State() != StateComplete {
		t.Fatalf("state = %s, want complete", gs.State())
	}

	pile := firstByLabel(board, "pile")
	table := firstByLabel(board, "table")
	if want := 52 - handSize*len(users); len(pile.CardIDs) != want {
		t.Fatalf("pile holds %d cards, want %d", len(pile.CardIDs), want)
	}
	if want := handSize * len(users); len(table.CardIDs) != want {
		t.Fatalf("table holds %d cards, want %d", len(table.CardIDs), want)
	}
	for _, user := range users {
		if hand := HandLocation(board, user); len(hand.CardIDs) != 0 {
			t.Fatalf("%s still holds %d cards", user, len(hand.CardIDs))
		}
	}
}
