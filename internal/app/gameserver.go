package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"cardtable/internal/client"
	"cardtable/internal/domain"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
	"cardtable/internal/transport"
)

var (
	ErrNotReady            = errors.New("engine is not ready")
	ErrMalformedRule       = errors.New("malformed rule")
	ErrNoTransport         = errors.New("addressed user has no transport")
	ErrRuleMismatch        = errors.New("batch ruleId does not match outstanding rule")
	ErrDuplicateResponse   = errors.New("user already responded to this rule")
	ErrUnexpectedResponder = errors.New("user is not addressed by this rule")
	ErrUnknownMessage      = errors.New("unknown message command")
)

type registeredTransport struct {
	users string
	t     transport.Transport
}

type outboundMessage struct {
	t   transport.Transport
	msg protocol.Message
}

// GameServer owns the authoritative board and drives one rule script: it
// addresses each yielded rule to the transports serving its users, merges the
// responses into a batch, and broadcasts the settled batch to every transport
// once all addressed users have answered. Rules addressed to BANK are
// resolved in-process by the privileged bank client.
type GameServer struct {
	logger   *slog.Logger
	board    *domain.Board
	registry *plugin.Registry
	bank     *client.Bank
	script   Script

	mu          sync.Mutex // held across protocol-state mutation, not sends
	state       State
	task        *task
	transports  []registeredTransport
	nextRuleID  int
	outstanding *protocol.Rule
	pending     map[string][]protocol.Command
	outbox      []outboundMessage
}

// NewGameServer creates an engine over the authoritative board. The bank must
// share the same board and registry.
func NewGameServer(board *domain.Board, registry *plugin.Registry, bank *client.Bank, script Script, logger *slog.Logger) *GameServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameServer{
		logger:   logger,
		board:    board,
		registry: registry,
		bank:     bank,
		script:   script,
	}
}

func (gs *GameServer) lock()   { gs.mu.Lock() }
func (gs *GameServer) unlock() { gs.mu.Unlock() }

// AddTransport registers a transport serving the given comma-joined user set
// and wires its inbound messages into the engine. Registration order is the
// broadcast order.
func (gs *GameServer) AddTransport(users string, t transport.Transport) {
	gs.lock()
	gs.transports = append(gs.transports, registeredTransport{users: users, t: t})
	gs.unlock()
	t.SetHandler(func(msg protocol.Message) {
		if err := gs.HandleMessage(msg); err != nil {
			gs.logger.Error("handle message", "users", users, "err", err)
		}
	})
}

// State returns the engine state.
func (gs *GameServer) State() State {
	gs.lock()
	defer gs.unlock()
	return gs.state
}

// OutstandingRuleID returns the id of the rule currently awaiting responses,
// or zero when none is outstanding.
func (gs *GameServer) OutstandingRuleID() int {
	gs.lock()
	defer gs.unlock()
	if gs.outstanding == nil {
		return 0
	}
	return gs.outstanding.ID
}

// NewGame (re)initializes the script against the board and performs the first
// step immediately; no prior user input is consumed.
func (gs *GameServer) NewGame() (State, error) {
	gs.lock()
	if gs.task != nil {
		gs.task.abort()
	}
	gs.task = startTask(gs.script, gs.board)
	gs.state = StateReady
	gs.nextRuleID = 0
	gs.outstanding = nil
	gs.pending = nil
	// Rule ids restart at 1, so clients must reset their batch tracking
	// before the first broadcast arrives.
	msg := protocol.Message{Command: protocol.MessageNewGame}
	for _, rt := range gs.transports {
		gs.outbox = append(gs.outbox, outboundMessage{t: rt.t, msg: msg})
	}
	out := gs.takeOutbox()
	gs.unlock()
	gs.flush(out)
	return gs.Step(nil)
}

// HandleMessage is the engine's sole inbound entry point. Only batch messages
// are accepted; a completed aggregation resumes the script.
func (gs *GameServer) HandleMessage(msg protocol.Message) error {
	if msg.Command != protocol.MessageBatch || msg.Batch == nil {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Command)
	}
	gs.lock()
	complete, agg, err := gs.handleCommands(msg.Batch)
	out := gs.takeOutbox()
	gs.unlock()
	gs.flush(out)
	if err != nil || !complete {
		return err
	}
	_, err = gs.Step(agg)
	return err
}

// Step resumes the script with the aggregated results of the just-completed
// rule and dispatches the next one. It loops while steps settle synchronously
// (consecutive BANK-only rules).
func (gs *GameServer) Step(agg protocol.Aggregate) (State, error) {
	for {
		gs.lock()
		state, complete, nextAgg, err := gs.step(agg)
		out := gs.takeOutbox()
		gs.unlock()
		gs.flush(out)
		if err != nil || state != StateReady || !complete {
			return state, err
		}
		agg = nextAgg
	}
}

// step advances the script one rule. It reports whether the new rule settled
// immediately (bank-only addressing), along with its aggregate. Callers hold
// the lock.
func (gs *GameServer) step(agg protocol.Aggregate) (State, bool, protocol.Aggregate, error) {
	if gs.state != StateReady {
		return gs.state, false, nil, fmt.Errorf("%w: state %s", ErrNotReady, gs.state)
	}
	if gs.outstanding != nil {
		return gs.state, false, nil, fmt.Errorf("%w: rule %d still outstanding", ErrNotReady, gs.outstanding.ID)
	}

	// The first step only receives the first yielded rule; every later step
	// hands the script the previous aggregate first.
	if gs.task.started {
		select {
		case gs.task.flow.resume <- agg:
		case err := <-gs.task.done:
			return gs.finishTask(err)
		}
	} else {
		gs.task.started = true
	}

	var rule *protocol.Rule
	select {
	case rule = <-gs.task.flow.rules:
	case err := <-gs.task.done:
		return gs.finishTask(err)
	}

	if rule == nil || rule.Type == "" || rule.User == "" {
		gs.state = StateError
		gs.task.abort()
		err := fmt.Errorf("%w: missing type or user", ErrMalformedRule)
		gs.logger.Error("step", "err", err)
		return gs.state, false, nil, err
	}

	gs.nextRuleID++
	rule.ID = gs.nextRuleID
	gs.outstanding = rule
	gs.pending = map[string][]protocol.Command{}

	addressed := rule.Users()
	var matched []transport.Transport
	for _, user := range addressed {
		if user == client.BankUser {
			continue
		}
		found := false
		for _, rt := range gs.transports {
			if protocol.ContainsName(rt.users, user) {
				found = true
			}
		}
		if !found {
			gs.state = StateError
			gs.task.abort()
			err := fmt.Errorf("%w: %s (rule %d)", ErrNoTransport, user, rule.ID)
			gs.logger.Error("step", "err", err)
			return gs.state, false, nil, err
		}
	}
	for _, rt := range gs.transports {
		if protocol.Intersects(rt.users, rule.User) {
			matched = append(matched, rt.t)
		}
	}

	// The bank answers before the rule goes out; it shares the process.
	var complete bool
	var nextAgg protocol.Aggregate
	if containsBank(addressed) {
		res := gs.bank.ResolveRule(rule)
		if res.Ready {
			var err error
			complete, nextAgg, err = gs.handleCommands(protocol.NewBatch(rule.ID, client.BankUser, res.Commands))
			if err != nil {
				return gs.state, false, nil, err
			}
		}
	}

	if !complete {
		msg := protocol.Message{Command: protocol.MessageRule, Rule: rule}
		for _, t := range matched {
			gs.outbox = append(gs.outbox, outboundMessage{t: t, msg: msg})
		}
	}
	return gs.state, complete, nextAgg, nil
}

// handleCommands merges one batch response into the in-flight aggregation.
// It reports completion, and on completion converts commands to results via
// the bank, queues the filtered broadcast for every transport and applies the
// settled batch to the authoritative board. Callers hold the lock.
func (gs *GameServer) handleCommands(batch *protocol.BatchCommand) (bool, protocol.Aggregate, error) {
	if gs.outstanding == nil || batch.RuleID != gs.outstanding.ID {
		outstanding := 0
		if gs.outstanding != nil {
			outstanding = gs.outstanding.ID
		}
		return false, nil, fmt.Errorf("%w: got %d, outstanding %d", ErrRuleMismatch, batch.RuleID, outstanding)
	}

	addressed := gs.outstanding.Users()
	for user := range batch.Commands {
		if !protocol.ContainsName(gs.outstanding.User, user) {
			return false, nil, fmt.Errorf("%w: %s (rule %d)", ErrUnexpectedResponder, user, batch.RuleID)
		}
		if _, dup := gs.pending[user]; dup {
			return false, nil, fmt.Errorf("%w: %s (rule %d)", ErrDuplicateResponse, user, batch.RuleID)
		}
	}
	for user, commands := range batch.Commands {
		gs.pending[user] = commands
	}

	if len(gs.pending) != len(addressed) {
		return false, nil, nil
	}

	settled := &protocol.BatchCommand{RuleID: gs.outstanding.ID, Commands: gs.pending}
	agg := protocol.Aggregate{}
	users := make([]string, 0, len(gs.pending))
	for user := range gs.pending {
		users = append(users, user)
	}
	sort.Strings(users)
	for _, user := range users {
		agg[user] = gs.bank.Results(gs.pending[user])
	}

	for _, rt := range gs.transports {
		filtered := gs.filterBatchFor(rt.users, settled)
		gs.outbox = append(gs.outbox, outboundMessage{
			t:   rt.t,
			msg: protocol.Message{Command: protocol.MessageBatch, Batch: filtered},
		})
	}

	gs.bank.ApplyToBoard(settled)
	gs.outstanding = nil
	gs.pending = nil
	return true, agg, nil
}

// filterBatchFor returns the per-recipient view of a settled batch: move
// commands invisible to every user on the transport are dropped. set/label
// commands carry their own affects gate and pass through.
func (gs *GameServer) filterBatchFor(users string, batch *protocol.BatchCommand) *protocol.BatchCommand {
	filtered := &protocol.BatchCommand{RuleID: batch.RuleID, Commands: map[string][]protocol.Command{}}
	for user, commands := range batch.Commands {
		var kept []protocol.Command
		for _, cmd := range commands {
			if cmd.Type == protocol.CommandMove && !gs.moveVisible(users, cmd) {
				continue
			}
			kept = append(kept, cmd)
		}
		filtered.Commands[user] = kept
	}
	return filtered
}

func (gs *GameServer) moveVisible(users string, cmd protocol.Command) bool {
	for _, user := range protocol.SplitNames(users) {
		if gs.board.VisibilityFor(user, cmd.FromID) > domain.VisibilityNone {
			return true
		}
		if gs.board.VisibilityFor(user, cmd.ToID) > domain.VisibilityNone {
			return true
		}
	}
	return false
}

func (gs *GameServer) takeOutbox() []outboundMessage {
	out := gs.outbox
	gs.outbox = nil
	return out
}

func (gs *GameServer) flush(out []outboundMessage) {
	for _, o := range out {
		if err := o.t.SendMessage(o.msg); err != nil {
			gs.logger.Error("send", "users", o.t.Users(), "command", o.msg.Command, "err", err)
		}
	}
}

// finishTask records the script's return value. Callers hold the lock.
func (gs *GameServer) finishTask(err error) (State, bool, protocol.Aggregate, error) {
	if err != nil {
		gs.state = StateError
		gs.logger.Error("script failed", "err", err)
		return gs.state, false, nil, err
	}
	gs.state = StateComplete
	return gs.state, false, nil, nil
}

func containsBank(users []string) bool {
	for _, u := range users {
		if u == client.BankUser {
			return true
		}
	}
	return false
}
