package graph

import (
	"cmp"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// MatchOption tunes Dialog.Match.
type MatchOption func(*matchConfig)

type matchConfig struct {
	missing       bool
	checkLevel    bool
	allowMismatch bool
}

// MatchMissing lets constraint fields flagged MatchMissingOK pass when
// the candidate does not have them.
func MatchMissing() MatchOption {
	return func(c *matchConfig) { c.missing = true }
}

// CheckLevel requires constraint and candidate to have equal levels.
func CheckLevel() MatchOption {
	return func(c *matchConfig) { c.checkLevel = true }
}

// AllowLevelMismatch lets two constraints of different levels match.
func AllowLevelMismatch() MatchOption {
	return func(c *matchConfig) { c.allowMismatch = true }
}

// MatchContext carries the options of one Match call into Matcher
// implementations so nested matches behave consistently.
type MatchContext struct {
	d     *Dialog
	cfg   matchConfig
	depth int
}

// Match reports whether candidate satisfies constraint.
func (d *Dialog) Match(constraint, candidate *Node, opts ...MatchOption) bool {
	m := &MatchContext{d: d}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	return m.Match(constraint, candidate)
}

func (m *MatchContext) Dialog() *Dialog { return m.d }

// Match matches recursively with the options of the outer call.
func (m *MatchContext) Match(c, x *Node) bool {
	if c == nil || x == nil {
		return false
	}
	if m.depth > m.d.limits.MaxEvalDepth {
		return false
	}
	m.depth++
	defer func() { m.depth-- }()

	// Two constraints of the same type compare structurally.
	if mt, ok := c.behavior.(Matcher); ok && (x.typ != c.typ || !x.level.IsConstraint()) {
		return mt.Match(m, c, x)
	}
	return m.MatchObject(c, x)
}

// MatchObject is the default structural match: types agree, leaves
// compare values and declared inputs match field by field.
func (m *MatchContext) MatchObject(c, x *Node) bool {
	if !c.level.IsConstraint() {
		c = c.Res()
	}
	x = x.Res()
	if !m.levelsAgree(c, x) {
		return false
	}
	if c.typ.Name != TypeAny && c.typ.Name != x.typ.Name {
		return false
	}
	if c.IsLeaf() {
		if c.leaf == nil {
			return true
		}
		r, ok := CompareValues(c.leaf, x.leaf)
		return ok && r == 0
	}
	sig := c.typ.Signature
	for _, in := range c.inputs {
		p, _, _ := sig.Resolve(in.name)
		if p != nil && p.MatchExclude {
			continue
		}
		xi := x.Input(in.name)
		if xi == nil {
			if p != nil && p.MatchMissingOK && m.cfg.missing {
				continue
			}
			return false
		}
		if !m.Match(m.d.Node(in.id), xi) {
			return false
		}
	}
	return true
}

func (m *MatchContext) levelsAgree(c, x *Node) bool {
	if m.cfg.checkLevel {
		return c.level == x.level
	}
	if c.level.IsConstraint() && x.level.IsConstraint() && c.level != x.level {
		return m.cfg.allowMismatch
	}
	return true
}

// Qualify applies a qualifier: the candidate is compared to the wrapped
// object through the wrapped type's Comparer. EQ and NEQ fall back to
// structural match. A SET candidate qualifies when any element does.
func (m *MatchContext) Qualify(op domain.Qualifier, wrapped, x *Node) bool {
	if wrapped == nil || x == nil {
		return false
	}
	w, xr := wrapped.Res(), x.Res()
	if xr.typ.Name == TypeSet && w.typ.Name != TypeSet {
		for _, e := range Elements(xr) {
			if m.Qualify(op, w, e) {
				return true
			}
		}
		return false
	}
	if c, ok := w.behavior.(Comparer); ok {
		return c.Compare(w, xr, op)
	}
	switch op {
	case domain.QualEQ:
		return m.Match(w, xr)
	case domain.QualNEQ:
		return !m.Match(w, xr)
	}
	m.d.logger.Debug("qualifier without comparer", "op", op, "type", w.typ.Name)
	return false
}

// Aggregate selects the semantics of an aggregator node.
type Aggregate string

const (
	AggAnd   Aggregate = "AND"
	AggOr    Aggregate = "OR"
	AggNot   Aggregate = "NOT"
	AggAny   Aggregate = "ANY"
	AggAll   Aggregate = "ALL"
	AggNone  Aggregate = "NONE"
	AggExact Aggregate = "EXACT"
	AggSet   Aggregate = "SET"
)

// Aggregate matches the candidate against a list of constraints.
func (m *MatchContext) Aggregate(kind Aggregate, children []*Node, x *Node) bool {
	switch kind {
	case AggAnd:
		for _, c := range children {
			if !m.Match(c, x) {
				return false
			}
		}
		return true
	case AggOr:
		for _, c := range children {
			if m.Match(c, x) {
				return true
			}
		}
		return false
	case AggNot:
		for _, c := range children {
			if m.Match(c, x) {
				return false
			}
		}
		return true
	}

	cs := unroll(children)
	xs := Elements(x)
	switch kind {
	case AggAny:
		return m.anyPair(cs, xs)
	case AggAll:
		return m.covers(cs, xs)
	case AggNone:
		return !m.anyPair(cs, xs)
	case AggExact, AggSet:
		return len(xs) == len(cs) && m.covers(cs, xs) && m.claimed(cs, xs)
	}
	return false
}

// anyPair reports whether some constraint matches some element.
func (m *MatchContext) anyPair(cs, xs []*Node) bool {
	for _, c := range cs {
		for _, e := range xs {
			if m.Match(c, e) {
				return true
			}
		}
	}
	return false
}

// covers reports whether every constraint matches some element.
func (m *MatchContext) covers(cs, xs []*Node) bool {
	for _, c := range cs {
		found := false
		for _, e := range xs {
			if m.Match(c, e) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// claimed reports whether every element matches some constraint.
func (m *MatchContext) claimed(cs, xs []*Node) bool {
	for _, e := range xs {
		found := false
		for _, c := range cs {
			if m.Match(c, e) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Elements returns the members of a SET result, or the result itself.
func Elements(n *Node) []*Node {
	if n == nil {
		return nil
	}
	r := n.Res()
	if r.typ.Name != TypeSet {
		return []*Node{r}
	}
	var out []*Node
	for _, e := range r.Positional() {
		out = append(out, Elements(e)...)
	}
	return out
}

func unroll(children []*Node) []*Node {
	var out []*Node
	for _, c := range children {
		if c.typ.Name == TypeSet {
			out = append(out, unroll(c.Positional())...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// CompareValues compares two leaf values. Numbers compare across int and
// float; strings and booleans compare within their kind.
func CompareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmp.Compare(av, bv), true
		case float64:
			return cmp.Compare(float64(av), bv), true
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return cmp.Compare(av, float64(bv)), true
		case float64:
			return cmp.Compare(av, bv), true
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}
