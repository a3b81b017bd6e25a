// Package client implements the parties on the receiving end of the rule
// protocol: the default pass-through client, the privileged bank, the
// interactive human client and the bot-driven AI client. All variants share
// the Base mechanics and differ only in how a resolved rule's candidate
// outcomes are chosen.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"cardtable/internal/domain"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
	"cardtable/internal/transport"
)

// BankUser is the reserved name rules use to address the privileged bank.
const BankUser = "BANK"

var (
	ErrEmptyCommandType = errors.New("command with empty type")
	ErrBatchMismatch    = errors.New("batch ruleId does not match outstanding rule")
	ErrStaleBatch       = errors.New("batch ruleId is not newer than the last applied batch")
)

// Resolution is the outcome of resolving one rule. Ready is false while the
// client is still waiting for input (a resolution gap, not an error); Delay
// postpones the response without commands.
type Resolution struct {
	Commands []protocol.Command
	Ready    bool
	Delay    time.Duration
}

// Base is the default client: rules no plugin claims are cast directly into a
// single pass-through command, and settled batches are applied through the
// first claiming plugin in registration order.
type Base struct {
	user     string
	board    *domain.Board
	registry *plugin.Registry
	logger   *slog.Logger
	rng      *rand.Rand

	privileged bool
	choose     func(rule *protocol.Rule, out *plugin.Outcomes) int
	notify     func(name, value string, bubbles bool)
	schedule   func(d time.Duration, fn func())

	transport transport.Transport
	screen    string

	outstandingID int
	lastBatchID   int
}

// NewBase creates a default client for the named user over its local board copy.
func NewBase(user string, board *domain.Board, registry *plugin.Registry, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Base{
		user:     user,
		board:    board,
		registry: registry,
		logger:   logger,
		rng:      rand.New(rand.NewSource(1)),
	}
	c.choose = func(*protocol.Rule, *plugin.Outcomes) int { return 0 }
	c.schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	return c
}

// User returns the client's user name.
func (c *Base) User() string { return c.user }

// Board returns the client's local board copy.
func (c *Base) Board() *domain.Board { return c.board }

// Rand returns the client's seeded generator.
func (c *Base) Rand() *rand.Rand { return c.rng }

// Privileged reports full-information access.
func (c *Base) Privileged() bool { return c.privileged }

// Schedule runs fn after d on the client's timer.
func (c *Base) Schedule(d time.Duration, fn func()) { c.schedule(d, fn) }

// Notify surfaces a named event to the surrounding UI layer.
func (c *Base) Notify(name, value string, bubbles bool) {
	if c.notify != nil {
		c.notify(name, value, bubbles)
	}
}

// Screen returns the render target announced by a config message, if any.
func (c *Base) Screen() string { return c.screen }

// SeedRand replaces the client's generator with a seeded one.
func (c *Base) SeedRand(seed int64) { c.rng = rand.New(rand.NewSource(seed)) }

// ResolveRule turns a rule into this client's command response. A claimed
// rule with no offered outcome is a resolution gap: the step simply does not
// advance yet.
func (c *Base) ResolveRule(rule *protocol.Rule) Resolution {
	var out plugin.Outcomes
	claimed := c.registry.Perform(c, rule, &out)
	if !claimed {
		return Resolution{Commands: []protocol.Command{castCommand(rule)}, Ready: true}
	}
	if out.Len() == 0 {
		if out.Delay > 0 {
			return Resolution{Ready: true, Delay: out.Delay}
		}
		c.logger.Info("client waiting for input", "user", c.user, "rule", rule.Type, "ruleId", rule.ID)
		return Resolution{}
	}
	idx := c.choose(rule, &out)
	if idx < 0 || idx >= out.Len() {
		idx = 0
	}
	return Resolution{Commands: out.At(idx), Ready: true, Delay: out.Delay}
}

// castCommand is the pass-through default: the rule becomes a single command
// of the same type.
func castCommand(rule *protocol.Rule) protocol.Command {
	cmd := protocol.Command{
		Type:     rule.Type,
		Key:      rule.Key,
		Value:    rule.Value,
		Affects:  rule.Affects,
		Seed:     rule.Seed,
		Duration: rule.Duration,
		Name:     rule.Name,
		Bubbles:  rule.Bubbles,
	}
	if cards := protocol.SplitIDs(rule.Cards); len(cards) == 1 {
		cmd.CardID = cards[0]
	}
	if from := protocol.SplitIDs(rule.From); len(from) == 1 {
		cmd.FromID = from[0]
	}
	if to := protocol.SplitIDs(rule.To); len(to) == 1 {
		cmd.ToID = to[0]
	}
	return cmd
}

// ApplyBatch applies a settled batch to the client's board and UI, grouped by
// user in stable order, each command through the first claiming plugin. A
// batch that does not answer the client's outstanding rule, or that is not
// newer than the last applied one, is rejected without touching local state.
func (c *Base) ApplyBatch(batch *protocol.BatchCommand) error {
	if c.outstandingID != 0 && batch.RuleID != c.outstandingID {
		return fmt.Errorf("%w: got %d, outstanding %d", ErrBatchMismatch, batch.RuleID, c.outstandingID)
	}
	if batch.RuleID <= c.lastBatchID {
		return fmt.Errorf("%w: got %d, last %d", ErrStaleBatch, batch.RuleID, c.lastBatchID)
	}
	c.outstandingID = 0
	c.lastBatchID = batch.RuleID

	users := make([]string, 0, len(batch.Commands))
	for user := range batch.Commands {
		users = append(users, user)
	}
	sort.Strings(users)

	var firstErr error
	for _, user := range users {
		for _, cmd := range batch.Commands[user] {
			if cmd.Type == "" {
				c.logger.Error("batch command with empty type", "user", user, "ruleId", batch.RuleID)
				if firstErr == nil {
					firstErr = ErrEmptyCommandType
				}
				continue
			}
			if !c.registry.ApplyToClient(c, cmd) {
				c.logger.Warn("no plugin claimed command", "type", cmd.Type, "user", user)
			}
		}
	}
	return firstErr
}

// Attach wires the client to a transport: rules addressed to this user are
// resolved and answered, settled batches are applied, and config messages set
// the screen.
func (c *Base) Attach(t transport.Transport) {
	c.transport = t
	t.SetHandler(c.HandleMessage)
}

// HandleMessage is the client's inbound entry point for transport messages.
func (c *Base) HandleMessage(msg protocol.Message) {
	switch msg.Command {
	case protocol.MessageRule:
		if msg.Rule == nil || !protocol.ContainsName(msg.Rule.User, c.user) {
			return
		}
		c.outstandingID = msg.Rule.ID
		c.respond(msg.Rule)
	case protocol.MessageBatch:
		if msg.Batch == nil {
			return
		}
		if err := c.ApplyBatch(msg.Batch); err != nil {
			c.logger.Error("apply batch", "user", c.user, "err", err)
		}
	case protocol.MessageConfig:
		c.screen = msg.Screen
	case protocol.MessageNewGame:
		c.outstandingID = 0
		c.lastBatchID = 0
	default:
		c.logger.Warn("unknown message command", "command", msg.Command)
	}
}

func (c *Base) respond(rule *protocol.Rule) {
	res := c.ResolveRule(rule)
	if !res.Ready {
		return
	}
	send := func() {
		if c.transport == nil {
			return
		}
		msg := protocol.Message{
			Command: protocol.MessageBatch,
			Batch:   protocol.NewBatch(rule.ID, c.user, res.Commands),
		}
		if err := c.transport.SendMessage(msg); err != nil {
			c.logger.Error("send batch", "user", c.user, "ruleId", rule.ID, "err", err)
		}
	}
	if res.Delay > 0 {
		c.Schedule(res.Delay, send)
		return
	}
	send()
}
