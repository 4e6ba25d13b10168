package graph

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
)

// State is the evaluation lifecycle of a node.
type State int

const (
	StateUnvisited State = iota
	StateTransformed
	StateValidated
	StateEvaluating
	StateEvaluated
)

func (s State) String() string {
	switch s {
	case StateUnvisited:
		return "unvisited"
	case StateTransformed:
		return "transformed"
	case StateValidated:
		return "validated"
	case StateEvaluating:
		return "evaluating"
	case StateEvaluated:
		return "evaluated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Edge is a reverse edge: Node consumes the owner under input Name.
type Edge struct {
	Name string
	Node domain.NodeID
}

type inputSlot struct {
	name string
	id   domain.NodeID
}

// Shared is the payload of a mutable node. It is the only state shared
// between a mutable node and the graphs that reference it after revise.
type Shared struct {
	mu    sync.Mutex
	value any
}

func (s *Shared) Load() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Shared) Store(v any) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

// Update replaces the payload with fn(current) atomically.
func (s *Shared) Update(fn func(any) any) {
	s.mu.Lock()
	s.value = fn(s.value)
	s.mu.Unlock()
}

// Node is one vertex of the dialogue graph. Nodes are owned by the
// arena of their Dialog and addressed by ID.
type Node struct {
	id       domain.NodeID
	typ      *Type
	outType  string
	behavior Behavior
	dialog   *Dialog

	inputs  []inputSlot
	outputs []Edge
	result  domain.NodeID

	level     domain.Level
	state     State
	evaluated bool
	setCount  int

	tags    map[string]struct{}
	leaf    any
	dupOf   domain.NodeID
	mutable bool
	shared  *Shared
	err     *domain.Error
	created int
}

func (n *Node) ID() domain.NodeID { return n.id }
func (n *Node) Type() string { return n.typ.Name }
func (n *Node) OutType() string { return n.outType }
func (n *Node) Level() domain.Level { return n.level }
func (n *Node) State() State { return n.state }
func (n *Node) Evaluated() bool { return n.evaluated }
func (n *Node) Behavior() Behavior { return n.behavior }
func (n *Node) Dialog() *Dialog { return n.dialog }
func (n *Node) Mutable() bool { return n.mutable }
func (n *Node) Shared() *Shared { return n.shared }

// Turn returns the dialogue turn in which the node was created.
func (n *Node) Turn() int { return n.created }

// Err returns the exception raised at or propagated through this node
// during its last evaluation.
func (n *Node) Err() *domain.Error { return n.err }

// Signature returns the signature of the node's type.
func (n *Node) Signature() *registry.Signature { return n.typ.Signature }

// IsOperator reports whether the node is a dialogue operator.
func (n *Node) IsOperator() bool { return n.typ.Operator }

// SetLevel changes the constraint level. Once evaluation has started the
// level may only decrease.
func (n *Node) SetLevel(l domain.Level) error {
	if n.state >= StateEvaluating && l > n.level {
		return domain.Errorf(domain.KindInvalidResult, n.id,
			"cannot raise constraint level of %s from %d to %d during evaluation", n.typ.Name, n.level, l)
	}
	n.level = l
	return nil
}

// MarkMutable makes the node a shared, in-place editable object that
// revise never copies.
func (n *Node) MarkMutable() *Shared {
	n.mutable = true
	if n.shared == nil {
		n.shared = &Shared{}
	}
	return n.shared
}

// DupOf returns the original this node was copied from by revise.
func (n *Node) DupOf() *Node {
	return n.dialog.Node(n.dupOf)
}

// Tags returns the node tags in lexical order.
func (n *Node) Tags() []string {
	out := make([]string, 0, len(n.tags))
	for t := range n.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (n *Node) HasTag(tag string) bool {
	_, ok := n.tags[tag]
	return ok
}

func (n *Node) AddTag(tags ...string) {
	if n.tags == nil {
		n.tags = make(map[string]struct{}, len(tags))
	}
	for _, t := range tags {
		n.tags[t] = struct{}{}
	}
}

func (n *Node) RemoveTag(tag string) {
	delete(n.tags, tag)
}

// IsLeaf reports whether the node is of a leaf type.
func (n *Node) IsLeaf() bool { return n.typ.Leaf }

// Leaf returns the scalar value of a leaf node, nil when unset.
func (n *Node) Leaf() any { return n.leaf }

// SetLeaf replaces the scalar value and invalidates the node.
func (n *Node) SetLeaf(v any) {
	n.leaf = v
	n.evaluated = false
}

func (n *Node) Int() (int64, bool) {
	switch v := n.leaf.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), v == float64(int64(v))
	}
	return 0, false
}

func (n *Node) Float() (float64, bool) {
	switch v := n.leaf.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func (n *Node) Str() (string, bool) {
	v, ok := n.leaf.(string)
	return v, ok
}

func (n *Node) Bool() (bool, bool) {
	v, ok := n.leaf.(bool)
	return v, ok
}

// InputNames returns the canonical input names in declaration order.
func (n *Node) InputNames() []string {
	out := make([]string, len(n.inputs))
	for i, in := range n.inputs {
		out[i] = in.name
	}
	return out
}

func (n *Node) NumInputs() int { return len(n.inputs) }

func (n *Node) slot(name string) int {
	if _, canon, ok := n.typ.Signature.Resolve(name); ok {
		name = canon
	}
	for i, in := range n.inputs {
		if in.name == name {
			return i
		}
	}
	return -1
}

// HasInput reports whether the input is bound. Aliases are accepted.
func (n *Node) HasInput(name string) bool {
	return n.slot(name) >= 0
}

// Input returns the input node bound to name (intension), or nil.
func (n *Node) Input(name string) *Node {
	if i := n.slot(name); i >= 0 {
		return n.dialog.Node(n.inputs[i].id)
	}
	return nil
}

// InputRes returns the evaluated result of an input, or nil.
func (n *Node) InputRes(name string) *Node {
	if in := n.Input(name); in != nil {
		return in.Res()
	}
	return nil
}

// InputView returns the input as seen through its param view: the node
// itself for intension params, its result otherwise.
func (n *Node) InputView(name string) *Node {
	in := n.Input(name)
	if in == nil {
		return nil
	}
	if p, _, ok := n.typ.Signature.Resolve(name); ok && p.View == registry.ViewInt {
		return in
	}
	return in.Res()
}

// Positional returns the positional (posN) inputs in order.
func (n *Node) Positional() []*Node {
	var out []*Node
	for _, in := range n.inputs {
		if registry.ParseKey(in.name).Positional() {
			out = append(out, n.dialog.Node(in.id))
		}
	}
	return out
}

// Inputs returns every input node in declaration order.
func (n *Node) Inputs() []*Node {
	out := make([]*Node, len(n.inputs))
	for i, in := range n.inputs {
		out[i] = n.dialog.Node(in.id)
	}
	return out
}

// Outputs returns the reverse edges of the node.
func (n *Node) Outputs() []Edge {
	return slices.Clone(n.outputs)
}

// Parents returns the distinct nodes consuming this node.
func (n *Node) Parents() []*Node {
	seen := make(map[domain.NodeID]bool, len(n.outputs))
	var out []*Node
	for _, e := range n.outputs {
		if !seen[e.Node] {
			seen[e.Node] = true
			out = append(out, n.dialog.Node(e.Node))
		}
	}
	return out
}

// SetInput binds child to the input name, replacing a previous binding.
// The name is resolved through the signature (aliases become the real
// param name); unknown names are rejected with InvalidInput.
func (n *Node) SetInput(name string, child *Node) error {
	if child == nil {
		return n.RemoveInput(name)
	}
	_, canon, ok := n.typ.Signature.Resolve(name)
	if !ok {
		return domain.NewError(domain.KindInvalidInput, n.id,
			fmt.Sprintf("%s has no parameter %q", n.typ.Name, name),
			domain.WithHints("signature: "+n.typ.Name+n.typ.Signature.String()))
	}
	if i := n.slot(canon); i >= 0 {
		old := n.dialog.Node(n.inputs[i].id)
		old.removeOutput(n.id, canon)
		n.inputs[i].id = child.id
	} else {
		sig := n.typ.Signature
		at := sort.Search(len(n.inputs), func(i int) bool {
			return sig.Order(n.inputs[i].name) > sig.Order(canon)
		})
		n.inputs = slices.Insert(n.inputs, at, inputSlot{name: canon, id: child.id})
	}
	child.outputs = append(child.outputs, Edge{Name: canon, Node: n.id})
	n.evaluated = false
	return nil
}

// AddPositional binds child to the next free posN input.
func (n *Node) AddPositional(child *Node) error {
	return n.SetInput(registry.PosName(len(n.Positional())+1), child)
}

// RemoveInput unbinds an input. Removing an absent input is a no-op.
func (n *Node) RemoveInput(name string) error {
	i := n.slot(name)
	if i < 0 {
		return nil
	}
	in := n.inputs[i]
	if old := n.dialog.Node(in.id); old != nil {
		old.removeOutput(n.id, in.name)
	}
	n.inputs = slices.Delete(n.inputs, i, i+1)
	n.evaluated = false
	return nil
}

func (n *Node) removeOutput(parent domain.NodeID, name string) {
	for i, e := range n.outputs {
		if e.Node == parent && e.Name == name {
			n.outputs = slices.Delete(n.outputs, i, i+1)
			return
		}
	}
}

// Res returns the final result of the node, following result links.
// A cyclic chain stops at the last node before the cycle closes.
func (n *Node) Res() *Node {
	r, _ := n.ResolveResult()
	return r
}

// ResolveResult follows result links and reports a cycle or an overlong
// chain as InvalidResult.
func (n *Node) ResolveResult() (*Node, error) {
	limit := n.dialog.limits.MaxResultChain
	cur := n
	seen := map[domain.NodeID]bool{n.id: true}
	for i := 0; cur.result != cur.id; i++ {
		next := n.dialog.Node(cur.result)
		if next == nil {
			return cur, domain.Errorf(domain.KindInvalidResult, cur.id, "dangling result %s", cur.result)
		}
		if seen[next.id] {
			return cur, domain.Errorf(domain.KindInvalidResult, n.id, "result chain of %s is cyclic", n.id)
		}
		if limit > 0 && i >= limit {
			return cur, domain.Errorf(domain.KindInvalidResult, n.id, "result chain of %s exceeds %d links", n.id, limit)
		}
		seen[next.id] = true
		cur = next
	}
	return cur, nil
}

// SetResult points the node's result at r (nil means the node itself).
// Exec may call it at most once and it never closes a cycle.
func (n *Node) SetResult(r *Node) error {
	if r == nil {
		r = n
	}
	n.setCount++
	if n.setCount > 1 {
		return domain.Errorf(domain.KindInvalidResult, n.id, "%s set its result more than once", n.typ.Name)
	}
	seen := map[domain.NodeID]bool{r.id: true}
	for cur := r; cur != n && cur.result != cur.id; {
		next := n.dialog.Node(cur.result)
		if next == nil || seen[next.id] {
			break
		}
		if next == n {
			return domain.Errorf(domain.KindInvalidResult, n.id, "result %s would close a cycle", r.id)
		}
		seen[next.id] = true
		cur = next
	}
	n.result = r.id
	return nil
}

// String returns the canonical P-expression of the node.
func (n *Node) String() string {
	return n.dialog.Sexp(n)
}
