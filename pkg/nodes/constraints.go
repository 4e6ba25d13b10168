package nodes

import (
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

// qualifier compares candidates against the wrapped object.
type qualifier struct {
	graph.Base
	op domain.Qualifier
}

func (q qualifier) ValidConstraint(n *graph.Node) error {
	if !n.HasInput("obj") {
		return domain.Errorf(domain.KindInvalidInput, n.ID(), "%s needs an object to compare with", q.op)
	}
	return nil
}

func (q qualifier) ValidInput(n *graph.Node) error {
	return q.ValidConstraint(n)
}

func (q qualifier) Match(m *graph.MatchContext, c, x *graph.Node) bool {
	return m.Qualify(q.op, c.Input("obj"), x)
}

func (q qualifier) Describe(n *graph.Node) string {
	obj := n.Input("obj")
	if obj == nil {
		return string(q.op)
	}
	return strings.ToLower(string(q.op)) + " " + n.Dialog().Describe(obj)
}

// aggregator combines the match results of its positional children.
type aggregator struct {
	graph.Base
	kind graph.Aggregate
}

func (a aggregator) ValidConstraint(n *graph.Node) error {
	got := len(n.Positional())
	switch {
	case a.kind == graph.AggNot && got != 1:
		return domain.Errorf(domain.KindInvalidInput, n.ID(), "NOT takes exactly one constraint, got %d", got)
	case got == 0 && a.kind != graph.AggSet:
		return domain.Errorf(domain.KindInvalidInput, n.ID(), "%s needs at least one constraint", a.kind)
	}
	return nil
}

func (a aggregator) ValidInput(n *graph.Node) error {
	return a.ValidConstraint(n)
}

func (a aggregator) Match(m *graph.MatchContext, c, x *graph.Node) bool {
	return m.Aggregate(a.kind, c.Positional(), x)
}

// AllowsException lets an OR succeed when one branch fails, as long as
// some other branch can still succeed.
func (a aggregator) AllowsException(n *graph.Node, err *domain.Error) (bool, *domain.Error) {
	if a.kind != graph.AggOr {
		return false, nil
	}
	alive := 0
	for _, b := range n.Positional() {
		if b.Evaluated() || b.Err() == nil {
			alive++
		}
	}
	if alive == 0 {
		return false, nil
	}
	n.Dialog().Logger().Debug("OR branch failed", "node", n.ID(), "kind", err.Kind, "alive", alive)
	return true, nil
}

func (a aggregator) Describe(n *graph.Node) string {
	d := n.Dialog()
	parts := make([]string, 0, len(n.Positional()))
	for _, c := range n.Positional() {
		parts = append(parts, d.Describe(c))
	}
	sep := ", "
	switch a.kind {
	case graph.AggAnd:
		sep = " and "
	case graph.AggOr:
		sep = " or "
	}
	text := strings.Join(parts, sep)
	switch a.kind {
	case graph.AggNot, graph.AggNone:
		return "not " + text
	case graph.AggSet:
		return "{" + text + "}"
	}
	return text
}

// set is the SET aggregator. As an object it holds a collection; in auto
// revise mode new elements are appended.
type set struct {
	aggregator
}

func (s set) MergeWith(old, nw *graph.Node, _ string) (*graph.Node, error) {
	elems := []*graph.Node{nw}
	if nw.Type() == graph.TypeSet {
		elems = nw.Positional()
	}
	for _, e := range elems {
		if err := old.AddPositional(e); err != nil {
			return nil, err
		}
	}
	return old, nil
}
