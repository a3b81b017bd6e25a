package plugin

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResolver satisfies Resolver with a fixed identity.
type fakeResolver struct {
	board      *domain.Board
	user       string
	rng        *rand.Rand
	privileged bool
}

func (f *fakeResolver) Board() *domain.Board { return f.board }
func (f *fakeResolver) User() string         { return f.user }
func (f *fakeResolver) Rand() *rand.Rand     { return f.rng }
func (f *fakeResolver) Privileged() bool     { return f.privileged }

// fakeView records schedule and notify calls.
type fakeView struct {
	board     *domain.Board
	user      string
	scheduled []func()
	durations []time.Duration
	notified  []string
}

func (f *fakeView) Board() *domain.Board { return f.board }
func (f *fakeView) User() string         { return f.user }
func (f *fakeView) Schedule(d time.Duration, fn func()) {
	f.durations = append(f.durations, d)
	f.scheduled = append(f.scheduled, fn)
}
func (f *fakeView) Notify(name, value string, bubbles bool) {
	f.notified = append(f.notified, name)
}

func testBoard(t *testing.T) (*domain.Board, *domain.Location, *domain.Location, []*domain.Card) {
	t.Helper()
	board := domain.NewBoard()
	deck := board.CreateDeck("standard")
	pile := board.CreateLocation("pile")
	table := board.CreateLocation("table")
	cards := []*domain.Card{
		board.CreateCard(deck, pile, domain.Display{Front: "A"}),
		board.CreateCard(deck, pile, domain.Display{Front: "K"}),
		board.CreateCard(deck, pile, domain.Display{Front: "Q"}),
	}
	return board, pile, table, cards
}

func resolve(t *testing.T, r *Registry, res Resolver, rule *protocol.Rule) *Outcomes {
	t.Helper()
	var out Outcomes
	if !r.Perform(res, rule, &out) {
		t.Fatalf("rule %q not claimed", rule.Type)
	}
	return &out
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(testLogger())
	for _, kind := range []string{
		"move", "pick", "pickLocation", "pickCard", "shuffle",
		"set", "setTemporary", "swap", "delay", "label", "sendMessage",
	} {
		if _, ok := r.Lookup(kind); !ok {
			t.Errorf("builtin %q not registered", kind)
		}
	}

	if err := r.Register(&Plugin{Type: "move"}); !errors.Is(err, ErrDuplicatePlugin) {
		t.Errorf("duplicate registration error = %v, want ErrDuplicatePlugin", err)
	}
	if err := r.Register(&Plugin{}); err == nil {
		t.Error("registration without a type accepted")
	}
	if _, err := r.CreateRule("unheard-of", domain.NewBoard(), RuleSpec{}); !errors.Is(err, ErrUnknownPlugin) {
		t.Errorf("CreateRule(unknown) error = %v, want ErrUnknownPlugin", err)
	}
}

func TestMovePlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board, pile, table, cards := testBoard(t)

	t.Run("CreateDerivesFrom", func(t *testing.T) {
		rule, err := r.CreateRule("move", board, RuleSpec{
			User:  "BANK",
			Cards: cards[:2],
			To:    []*domain.Location{table},
		})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		if rule.From != protocol.JoinIDs([]int{pile.ID, pile.ID}) {
			t.Errorf("From = %q, want both pile ids", rule.From)
		}
	})

	t.Run("CreateRequiresTargets", func(t *testing.T) {
		if _, err := r.CreateRule("move", board, RuleSpec{User: "BANK"}); !errors.Is(err, ErrMissingTargets) {
			t.Fatalf("error = %v, want ErrMissingTargets", err)
		}
		if _, err := r.CreateRule("move", board, RuleSpec{Cards: cards, To: []*domain.Location{table}}); !errors.Is(err, ErrMissingUser) {
			t.Fatalf("error = %v, want ErrMissingUser", err)
		}
	})

	t.Run("PerformPairsPositionally", func(t *testing.T) {
		rule := &protocol.Rule{
			Type:  "move",
			User:  "BANK",
			Cards: protocol.JoinIDs([]int{cards[0].ID, cards[1].ID}),
			From:  protocol.JoinIDs([]int{pile.ID}),
			To:    protocol.JoinIDs([]int{table.ID}),
		}
		out := resolve(t, r, &fakeResolver{board: board, user: "BANK"}, rule)
		if out.Len() != 1 {
			t.Fatalf("outcomes = %d, want 1", out.Len())
		}
		commands := out.At(0)
		if len(commands) != 2 {
			t.Fatalf("commands = %d, want one per card", len(commands))
		}
		for i, cmd := range commands {
			if cmd.FromID != pile.ID || cmd.ToID != table.ID || cmd.Index != -1 {
				t.Errorf("command %d = %+v", i, cmd)
			}
		}
	})

	t.Run("ApplyToBoard", func(t *testing.T) {
		board, pile, table, cards := testBoard(t)
		claimed := r.ApplyToBoard(board, protocol.Command{
			Type: protocol.CommandMove, CardID: cards[0].ID, FromID: pile.ID, ToID: table.ID, Index: -1,
		})
		if !claimed {
			t.Fatal("move command not claimed")
		}
		if !table.Contains(cards[0].ID) {
			t.Error("card not moved")
		}
	})
}

func TestPickPlugins(t *testing.T) {
	r := NewRegistry(testLogger())
	board, pile, table, cards := testBoard(t)
	res := &fakeResolver{board: board, user: "alice"}

	t.Run("PickOverValues", func(t *testing.T) {
		rule, err := r.CreateRule("pick", board, RuleSpec{User: "alice", List: []string{"yes", "no"}})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		out := resolve(t, r, res, rule)
		if out.Len() != 2 {
			t.Fatalf("outcomes = %d, want 2", out.Len())
		}
		if got := out.At(1)[0]; got.Value != "no" || got.CardID != 0 {
			t.Errorf("candidate = %+v", got)
		}
	})

	t.Run("PickCardCarriesID", func(t *testing.T) {
		rule, err := r.CreateRule("pickCard", board, RuleSpec{User: "alice", TargetCards: cards[:2]})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		out := resolve(t, r, res, rule)
		if out.Len() != 2 {
			t.Fatalf("outcomes = %d, want 2", out.Len())
		}
		if got := out.At(0)[0]; got.CardID != cards[0].ID {
			t.Errorf("candidate = %+v, want card id %d", got, cards[0].ID)
		}
	})

	t.Run("PickLocationCarriesID", func(t *testing.T) {
		rule, err := r.CreateRule("pickLocation", board, RuleSpec{
			User: "alice", TargetLocations: []*domain.Location{pile, table},
		})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		out := resolve(t, r, res, rule)
		if got := out.At(1)[0]; got.LocationID != table.ID {
			t.Errorf("candidate = %+v, want location id %d", got, table.ID)
		}
	})

	t.Run("EmptyListRejected", func(t *testing.T) {
		if _, err := r.CreateRule("pick", board, RuleSpec{User: "alice"}); !errors.Is(err, ErrMissingTargets) {
			t.Fatalf("error = %v, want ErrMissingTargets", err)
		}
	})

	t.Run("SettledPickMutatesNothing", func(t *testing.T) {
		before := len(pile.CardIDs)
		if !r.ApplyToBoard(board, protocol.Command{Type: protocol.CommandPickCard, CardID: cards[0].ID}) {
			t.Fatal("pickCard command not claimed")
		}
		if len(pile.CardIDs) != before {
			t.Error("settled pick moved cards")
		}
	})
}

func TestShufflePlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board, pile, _, _ := testBoard(t)

	rule, err := r.CreateRule("shuffle", board, RuleSpec{
		User: "BANK", TargetLocations: []*domain.Location{pile},
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	res := &fakeResolver{board: board, user: "BANK", rng: rand.New(rand.NewSource(7)), privileged: true}
	out := resolve(t, r, res, rule)
	cmd := out.At(0)[0]
	if cmd.Seed == 0 {
		t.Fatal("resolver did not draw a seed")
	}
	if want := rand.New(rand.NewSource(7)).Int63(); cmd.Seed != want {
		t.Fatalf("seed = %d, want %d from the resolver's generator", cmd.Seed, want)
	}

	// Replaying the settled command on a second board gives the same order.
	other, otherPile, _, _ := testBoard(t)
	r.ApplyToBoard(board, cmd)
	r.ApplyToBoard(other, protocol.Command{Type: protocol.CommandShuffle, LocationID: otherPile.ID, Seed: cmd.Seed})
	for i := range pile.CardIDs {
		if pile.CardIDs[i] != otherPile.CardIDs[i] {
			t.Fatalf("replay diverged: %v vs %v", pile.CardIDs, otherPile.CardIDs)
		}
	}

	if _, err := r.CreateRule("shuffle", board, RuleSpec{User: "BANK"}); !errors.Is(err, ErrMissingTargets) {
		t.Fatalf("error = %v, want ErrMissingTargets", err)
	}
}

func TestSetPlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board, pile, _, cards := testBoard(t)
	res := &fakeResolver{board: board, user: "BANK", privileged: true}

	t.Run("ExpandsPerTarget", func(t *testing.T) {
		rule, err := r.CreateRule("set", board, RuleSpec{
			User: "BANK", Key: "suit", Value: "spades",
			TargetCards:     cards[:1],
			TargetLocations: []*domain.Location{pile},
		})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		out := resolve(t, r, res, rule)
		commands := out.At(0)
		if len(commands) != 2 {
			t.Fatalf("commands = %d, want one per target", len(commands))
		}
		if commands[0].Type != protocol.CommandSetCardVariable || commands[1].Type != protocol.CommandSetLocationVariable {
			t.Errorf("command types = %s, %s", commands[0].Type, commands[1].Type)
		}
	})

	t.Run("NoTargetsMeansBoardVariable", func(t *testing.T) {
		rule, err := r.CreateRule("set", board, RuleSpec{User: "BANK", Key: "round", Value: "2"})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		out := resolve(t, r, res, rule)
		cmd := out.At(0)[0]
		if cmd.Type != protocol.CommandSetBoardVariable {
			t.Fatalf("command type = %s", cmd.Type)
		}
		r.ApplyToBoard(board, cmd)
		if board.Variables["round"] != "2" {
			t.Errorf("board variable not written")
		}
	})

	t.Run("AffectsGatesClients", func(t *testing.T) {
		cmd := protocol.Command{
			Type: protocol.CommandSetCardVariable, CardID: cards[0].ID,
			Key: "marked", Value: "yes", Affects: "alice",
		}
		alice := &fakeView{board: board, user: "alice"}
		bob := &fakeView{board: board, user: "bob"}

		if !r.ApplyToClient(alice, cmd) {
			t.Fatal("set command not claimed")
		}
		if cards[0].Variables["marked"] != "yes" {
			t.Error("affected client did not apply")
		}

		cards[0].Variables["marked"] = ""
		if !r.ApplyToClient(bob, cmd) {
			t.Fatal("set command not claimed for unaffected user")
		}
		if cards[0].Variables["marked"] != "" {
			t.Error("unaffected client applied the write")
		}
	})

	t.Run("TemporaryRevertsOnClientOnly", func(t *testing.T) {
		board, _, _, cards := testBoard(t)
		cards[0].Variables["state"] = "idle"
		cmd := protocol.Command{
			Type: protocol.CommandSetCardVariable, CardID: cards[0].ID,
			Key: "state", Value: "flash", Duration: 100, Revert: true,
		}

		view := &fakeView{board: board, user: "alice"}
		r.ApplyToClient(view, cmd)
		if cards[0].Variables["state"] != "flash" {
			t.Fatal("temporary write not applied")
		}
		if len(view.scheduled) != 1 || view.durations[0] != 100*time.Millisecond {
			t.Fatalf("revert not scheduled: %v", view.durations)
		}
		view.scheduled[0]()
		if cards[0].Variables["state"] != "idle" {
			t.Errorf("revert restored %q, want idle", cards[0].Variables["state"])
		}

		// The authoritative board never sees temporary writes.
		authoritative, _, _, authCards := testBoard(t)
		authCmd := cmd
		authCmd.CardID = authCards[0].ID
		r.ApplyToBoard(authoritative, authCmd)
		if authCards[0].Variables["state"] != "" {
			t.Error("temporary write leaked onto the board")
		}
	})
}

func TestSwapPlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board := domain.NewBoard()
	deck := board.CreateDeck("standard")
	locA := board.CreateLocation("a")
	locB := board.CreateLocation("b")
	a1 := board.CreateCard(deck, locA, domain.Display{})
	a2 := board.CreateCard(deck, locA, domain.Display{})
	b1 := board.CreateCard(deck, locB, domain.Display{})

	rule, err := r.CreateRule("swap", board, RuleSpec{
		User: "BANK", From: []*domain.Location{locA}, To: []*domain.Location{locB},
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	t.Run("UnprivilegedCannotResolve", func(t *testing.T) {
		var out Outcomes
		if !r.Perform(&fakeResolver{board: board, user: "alice"}, rule, &out) {
			t.Fatal("swap not claimed")
		}
		if out.Len() != 0 {
			t.Fatalf("unprivileged resolver offered %d outcomes", out.Len())
		}
	})

	t.Run("BankSwapsBothSides", func(t *testing.T) {
		out := resolve(t, r, &fakeResolver{board: board, user: "BANK", privileged: true}, rule)
		for _, cmd := range out.At(0) {
			if !r.ApplyToBoard(board, cmd) {
				t.Fatalf("command %+v not claimed", cmd)
			}
		}
		if !locA.Contains(b1.ID) || len(locA.CardIDs) != 1 {
			t.Errorf("a = %v, want only %d", locA.CardIDs, b1.ID)
		}
		if !locB.Contains(a1.ID) || !locB.Contains(a2.ID) || len(locB.CardIDs) != 2 {
			t.Errorf("b = %v, want %d and %d", locB.CardIDs, a1.ID, a2.ID)
		}
	})

	t.Run("SecondSwapRestoresMembership", func(t *testing.T) {
		inverse, err := r.CreateRule("swap", board, RuleSpec{
			User: "BANK", From: []*domain.Location{locA}, To: []*domain.Location{locB},
		})
		if err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
		out := resolve(t, r, &fakeResolver{board: board, user: "BANK", privileged: true}, inverse)
		for _, cmd := range out.At(0) {
			if !r.ApplyToBoard(board, cmd) {
				t.Fatalf("command %+v not claimed", cmd)
			}
		}
		if !locA.Contains(a1.ID) || !locA.Contains(a2.ID) || len(locA.CardIDs) != 2 {
			t.Errorf("a = %v, want %d and %d back", locA.CardIDs, a1.ID, a2.ID)
		}
		if !locB.Contains(b1.ID) || len(locB.CardIDs) != 1 {
			t.Errorf("b = %v, want only %d back", locB.CardIDs, b1.ID)
		}
	})

	t.Run("EmptySideRejected", func(t *testing.T) {
		empty := board.CreateLocation("empty")
		if _, err := r.CreateRule("swap", board, RuleSpec{
			User: "BANK", From: []*domain.Location{locA}, To: []*domain.Location{empty},
		}); !errors.Is(err, ErrSwapShape) {
			t.Fatalf("error = %v, want ErrSwapShape", err)
		}
	})
}

func TestDelayPlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board := domain.NewBoard()

	if _, err := r.CreateRule("delay", board, RuleSpec{User: "alice"}); !errors.Is(err, ErrMissingDuration) {
		t.Fatalf("error = %v, want ErrMissingDuration", err)
	}

	rule, err := r.CreateRule("delay", board, RuleSpec{User: "alice", Duration: 2 * time.Second})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	if rule.Duration != 2000 {
		t.Fatalf("Duration = %d ms, want 2000", rule.Duration)
	}

	out := resolve(t, r, &fakeResolver{board: board, user: "alice"}, rule)
	if out.Delay != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", out.Delay)
	}
	if out.Len() != 1 || len(out.At(0)) != 0 {
		t.Errorf("delay offered commands: %v", out.At(0))
	}
}

func TestLabelPlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board, pile, _, cards := testBoard(t)

	rule, err := r.CreateRule("label", board, RuleSpec{
		User: "BANK", Key: "selected", Value: "true",
		TargetCards:     cards[:1],
		TargetLocations: []*domain.Location{pile},
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	out := resolve(t, r, &fakeResolver{board: board, user: "BANK", privileged: true}, rule)
	for _, cmd := range out.At(0) {
		r.ApplyToBoard(board, cmd)
	}
	if !cards[0].Labels["selected"] || !pile.Labels["selected"] {
		t.Error("labels not applied")
	}

	// Toggling off.
	r.ApplyToBoard(board, protocol.Command{
		Type: protocol.CommandLabel, CardID: cards[0].ID, Key: "selected", Value: "false",
	})
	if cards[0].Labels["selected"] {
		t.Error("label not cleared")
	}
}

func TestSendMessagePlugin(t *testing.T) {
	r := NewRegistry(testLogger())
	board := domain.NewBoard()

	if _, err := r.CreateRule("sendMessage", board, RuleSpec{User: "alice"}); !errors.Is(err, ErrMissingName) {
		t.Fatalf("error = %v, want ErrMissingName", err)
	}

	rule, err := r.CreateRule("sendMessage", board, RuleSpec{
		User: "alice", Name: "gameOver", Value: "alice", Bubbles: true,
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	out := resolve(t, r, &fakeResolver{board: board, user: "alice"}, rule)
	cmd := out.At(0)[0]
	if cmd.Name != "gameOver" || !cmd.Bubbles {
		t.Fatalf("command = %+v", cmd)
	}

	view := &fakeView{board: board, user: "alice"}
	if !r.ApplyToClient(view, cmd) {
		t.Fatal("sendMessage command not claimed")
	}
	if len(view.notified) != 1 || view.notified[0] != "gameOver" {
		t.Errorf("notified = %v", view.notified)
	}
}
