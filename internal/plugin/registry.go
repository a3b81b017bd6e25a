package plugin

import (
	"errors"
	"fmt"
	"log/slog"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

var (
	ErrDuplicatePlugin = errors.New("plugin type already registered")
	ErrUnknownPlugin   = errors.New("no plugin registered for type")
)

// Registry maps rule-type keys to plugins for one game instance. Lookup order
// for command application follows registration order. Registries are never
// shared between game instances.
type Registry struct {
	logger  *slog.Logger
	order   []string
	plugins map[string]*Plugin
}

// NewRegistry creates a registry pre-loaded with the built-in plugins, in
// their canonical registration order.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger, plugins: map[string]*Plugin{}}
	for _, p := range builtins() {
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("builtin registration: %v", err))
		}
	}
	return r
}

func builtins() []*Plugin {
	return []*Plugin{
		movePlugin(),
		pickPlugin(protocol.CommandPick),
		pickPlugin(protocol.CommandPickLocation),
		pickPlugin(protocol.CommandPickCard),
		shufflePlugin(),
		setPlugin(false),
		setPlugin(true),
		swapPlugin(),
		delayPlugin(),
		labelPlugin(),
		sendMessagePlugin(),
	}
}

// Register adds a plugin under its type key.
func (r *Registry) Register(p *Plugin) error {
	if p.Type == "" {
		return errors.New("plugin type is required")
	}
	if _, ok := r.plugins[p.Type]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Type)
	}
	r.plugins[p.Type] = p
	r.order = append(r.order, p.Type)
	return nil
}

// Lookup returns the plugin registered under the type key.
func (r *Registry) Lookup(ruleType string) (*Plugin, bool) {
	p, ok := r.plugins[ruleType]
	return p, ok
}

// CreateRule builds a rule through the plugin registered for ruleType.
func (r *Registry) CreateRule(ruleType string, board *domain.Board, spec RuleSpec) (*protocol.Rule, error) {
	p, ok := r.plugins[ruleType]
	if !ok || p.CreateRule == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, ruleType)
	}
	return p.CreateRule(board, spec)
}

// Perform asks the plugin registered for the rule's type to resolve it. It
// returns whether any plugin claimed the rule.
func (r *Registry) Perform(res Resolver, rule *protocol.Rule, out *Outcomes) bool {
	p, ok := r.plugins[rule.Type]
	if !ok || p.PerformRule == nil {
		return false
	}
	return p.PerformRule(res, rule, out)
}

// ApplyToBoard applies a settled command to the authoritative board via the
// first claiming plugin in registration order.
func (r *Registry) ApplyToBoard(board *domain.Board, cmd protocol.Command) bool {
	for _, key := range r.order {
		p := r.plugins[key]
		if p.UpdateBoard != nil && p.UpdateBoard(board, cmd) {
			return true
		}
	}
	return false
}

// ApplyToClient applies a settled command to a client view via the first
// claiming plugin in registration order.
func (r *Registry) ApplyToClient(view View, cmd protocol.Command) bool {
	for _, key := range r.order {
		p := r.plugins[key]
		if p.UpdateClient != nil && p.UpdateClient(view, cmd) {
			return true
		}
	}
	return false
}

// Bind returns the rule-factory surface game-setup code writes against,
// forwarding to CreateRule with the board prepended.
func (r *Registry) Bind(board *domain.Board) *Binding {
	return &Binding{registry: r, board: board}
}
