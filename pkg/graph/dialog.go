package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
)

// Limits bounds the recursive passes of the engine.
type Limits struct {
	MaxTransformDepth int
	MaxResultChain    int
	MaxEvalDepth      int
}

// DefaultLimits are used when no WithLimits option is given.
var DefaultLimits = Limits{
	MaxTransformDepth: 32,
	MaxResultChain:    64,
	MaxEvalDepth:      512,
}

// Option configures a Dialog.
type Option func(*Dialog)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dialog) {
		d.logger = logger
	}
}

// WithHooks installs lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dialog) {
		d.hooks = hooks
	}
}

// WithLimits overrides the recursion limits. Zero fields keep defaults.
func WithLimits(l Limits) Option {
	return func(d *Dialog) {
		if l.MaxTransformDepth > 0 {
			d.limits.MaxTransformDepth = l.MaxTransformDepth
		}
		if l.MaxResultChain > 0 {
			d.limits.MaxResultChain = l.MaxResultChain
		}
		if l.MaxEvalDepth > 0 {
			d.limits.MaxEvalDepth = l.MaxEvalDepth
		}
	}
}

// Dialog holds the graph and the state of one dialogue. It is not safe
// for concurrent use; callers serialise turns (see session.Manager).
type Dialog struct {
	reg    *Registry
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	limits Limits

	nodes      []*Node
	goals      []domain.NodeID
	otherGoals []domain.NodeID
	turn       int

	exceptions       []*domain.Error
	copiedExceptions []*domain.Error
	assign           map[string]domain.NodeID
	messages         []string
}

// NewDialog creates an empty dialogue bound to a type registry.
func NewDialog(reg *Registry, opts ...Option) *Dialog {
	d := &Dialog{
		reg:    reg,
		logger: logging.NewNop(),
		limits: DefaultLimits,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// Reset drops every node and all dialogue state.
func (d *Dialog) Reset() {
	d.nodes = []*Node{nil}
	d.goals = nil
	d.otherGoals = nil
	d.turn = 0
	d.exceptions = nil
	d.copiedExceptions = nil
	d.assign = make(map[string]domain.NodeID)
	d.messages = nil
}

func (d *Dialog) Registry() *Registry { return d.reg }
func (d *Dialog) Logger() *slog.Logger { return d.logger }
func (d *Dialog) CurrentTurn() int { return d.turn }
func (d *Dialog) Len() int { return len(d.nodes) - 1 }
func (d *Dialog) Messages() []string { return slices.Clone(d.messages) }

// Exceptions returns the exceptions recorded during the current turn.
func (d *Dialog) Exceptions() []*domain.Error {
	return slices.Clone(d.exceptions)
}

// PreviousExceptions returns the exceptions of the previous turn.
func (d *Dialog) PreviousExceptions() []*domain.Error {
	return slices.Clone(d.copiedExceptions)
}

// AddMessage appends a user-facing message for the current turn.
func (d *Dialog) AddMessage(format string, args ...any) {
	d.messages = append(d.messages, fmt.Sprintf(format, args...))
}

// Node returns the node with the given id, or nil.
func (d *Dialog) Node(id domain.NodeID) *Node {
	if id <= domain.None || int(id) >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

// NewNode allocates a node of a registered type at the type's default level.
func (d *Dialog) NewNode(typeName string) (*Node, error) {
	t, err := d.reg.Lookup(typeName)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, domain.None,
			fmt.Sprintf("unknown type %q", typeName), domain.WithCause(err))
	}
	var b Behavior = Base{}
	if t.Factory != nil {
		b = t.Factory()
	}
	n := &Node{
		id:       domain.NodeID(len(d.nodes)),
		typ:      t,
		outType:  t.OutType,
		behavior: b,
		dialog:   d,
		level:    t.Level,
		created:  d.turn,
	}
	n.result = n.id
	d.nodes = append(d.nodes, n)
	return n, nil
}

// NewLeaf allocates a leaf node holding v, coerced by the type when it
// implements Coercer.
func (d *Dialog) NewLeaf(typeName string, v any) (*Node, error) {
	n, err := d.NewNode(typeName)
	if err != nil {
		return nil, err
	}
	if !n.IsLeaf() {
		return nil, domain.Errorf(domain.KindInvalidInput, n.id, "%s is not a leaf type", typeName)
	}
	if c, ok := n.behavior.(Coercer); ok && v != nil {
		cv, err := c.Coerce(v)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidInput, n.id,
				fmt.Sprintf("bad %s value %v", typeName, v), domain.WithCause(err))
		}
		v = cv
	}
	n.leaf = v
	return n, nil
}

// NewSet builds an object-level SET node over the given elements.
func (d *Dialog) NewSet(elems ...*Node) (*Node, error) {
	s, err := d.NewNode(TypeSet)
	if err != nil {
		return nil, err
	}
	if err := s.SetLevel(domain.LevelObject); err != nil {
		return nil, err
	}
	for _, e := range elems {
		if err := s.AddPositional(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Assign binds a name of the assignment table to a node.
func (d *Dialog) Assign(name string, n *Node) {
	d.assign[name] = n.id
}

// Lookup resolves a name of the assignment table.
func (d *Dialog) Lookup(name string) (*Node, bool) {
	id, ok := d.assign[name]
	if !ok {
		return nil, false
	}
	return d.Node(id), true
}

// Goals returns the goal stack, oldest first.
func (d *Dialog) Goals() []*Node {
	return d.collect(d.goals)
}

// OtherGoals returns goals that were replaced or parked, oldest first.
func (d *Dialog) OtherGoals() []*Node {
	return d.collect(d.otherGoals)
}

// CurrentGoal returns the most recent goal, or nil.
func (d *Dialog) CurrentGoal() *Node {
	if len(d.goals) == 0 {
		return nil
	}
	return d.Node(d.goals[len(d.goals)-1])
}

func (d *Dialog) collect(ids []domain.NodeID) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.Node(id))
	}
	return out
}

// AddGoal pushes n as the most recent goal. A node already on the stack
// moves to the top.
func (d *Dialog) AddGoal(n *Node) {
	d.goals = slices.DeleteFunc(d.goals, func(id domain.NodeID) bool { return id == n.id })
	d.otherGoals = slices.DeleteFunc(d.otherGoals, func(id domain.NodeID) bool { return id == n.id })
	d.goals = append(d.goals, n.id)
}

// RemoveGoal drops n from the goal stack. Its nodes stay in the arena.
func (d *Dialog) RemoveGoal(n *Node) {
	d.goals = slices.DeleteFunc(d.goals, func(id domain.NodeID) bool { return id == n.id })
}

// ParkGoal moves n from the goal stack to the other goals.
func (d *Dialog) ParkGoal(n *Node) {
	d.RemoveGoal(n)
	if !slices.Contains(d.otherGoals, n.id) {
		d.otherGoals = append(d.otherGoals, n.id)
	}
}

// ReplaceGoal parks old and pushes repl as the most recent goal.
func (d *Dialog) ReplaceGoal(old, repl *Node) {
	if old != nil && old != repl {
		d.ParkGoal(old)
	}
	d.AddGoal(repl)
}

// RecordException adds err to the current turn's exceptions.
func (d *Dialog) RecordException(ctx context.Context, err *domain.Error, absorbed bool) {
	d.exceptions = append(d.exceptions, err)
	if absorbed {
		d.logger.Warn("exception converted", "node", err.NodeID, "kind", err.Kind, "msg", err.Message)
	} else {
		d.logger.Debug("exception recorded", "node", err.NodeID, "kind", err.Kind, "msg", err.Message)
	}
	if d.hooks.OnException != nil {
		d.hooks.OnException(ctx, &domain.ExceptionEvent{
			EventBase: d.event(domain.EventException),
			Err:       err,
			Absorbed:  absorbed,
		})
	}
}

// ClearExceptions forgets the exceptions of the current turn.
func (d *Dialog) ClearExceptions() {
	d.exceptions = nil
}

func (d *Dialog) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Turn: d.turn}
}

// pending returns the offending nodes of this and the previous turn's
// exceptions.
func (d *Dialog) pending() map[domain.NodeID]bool {
	out := make(map[domain.NodeID]bool)
	for _, errs := range [][]*domain.Error{d.copiedExceptions, d.exceptions} {
		for _, e := range errs {
			if e.NodeID != domain.None {
				out[e.NodeID] = true
			}
		}
	}
	return out
}
