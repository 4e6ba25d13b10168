package graph_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/nodes"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/stretchr/testify/require"
)

type person struct{ graph.Base }

func (person) Identity(n *graph.Node) (string, bool) {
	if name := n.InputRes("name"); name != nil {
		return name.Str()
	}
	return "", false
}

// record is only ever found by fallback search.
type record struct{ graph.Base }

func (record) FallbackSearch(_ context.Context, d *graph.Dialog, c *graph.Node, _ graph.ReferRequest) ([]*graph.Node, error) {
	id := "unknown"
	if c != nil {
		if in := c.InputRes("id"); in != nil {
			id, _ = in.Str()
		}
	}
	n, err := d.NewNode("Record")
	if err != nil {
		return nil, err
	}
	leaf, err := d.NewLeaf(graph.TypeStr, id)
	if err != nil {
		return nil, err
	}
	return []*graph.Node{n}, n.SetInput("id", leaf)
}

type counter struct {
	graph.Base
	calls *int
}

func (c counter) Exec(_ context.Context, n *graph.Node) error {
	*c.calls++
	return n.SetResult(n.Input("pos1"))
}

type twice struct{ graph.Base }

func (twice) Exec(_ context.Context, n *graph.Node) error {
	if err := n.SetResult(nil); err != nil {
		return err
	}
	return n.SetResult(nil)
}

type lookup struct{ graph.Base }

func (lookup) Exec(_ context.Context, n *graph.Node) error {
	return domain.NewError(domain.KindElementNotFound, n.ID(), "no such flight")
}

// guard converts lookup failures into a request for more input.
type guard struct{ graph.Base }

func (guard) AllowsException(n *graph.Node, err *domain.Error) (bool, *domain.Error) {
	if err.Kind != domain.KindElementNotFound {
		return false, nil
	}
	return true, domain.NewError(domain.KindMoreInputNeeded, n.ID(), "which flight do you mean?",
		domain.WithSuggestions("Flight(number=1)"))
}

// wrap rewrites itself into Box during transformation once v is set.
type wrap struct{ graph.Base }

func (wrap) TransformGraph(n *graph.Node) (*graph.Node, error) {
	if n.Level().IsConstraint() || !n.HasInput("v") {
		return n, nil
	}
	box, err := n.Dialog().NewNode("Box")
	if err != nil {
		return nil, err
	}
	return box, box.SetInput("pos1", n.Input("v"))
}

type failing struct{ graph.Base }

func (failing) ValidInput(n *graph.Node) error {
	if v := n.InputRes("v"); v != nil {
		if i, _ := v.Int(); i < 0 {
			return domain.Errorf(domain.KindInvalidInput, n.ID(), "negative value")
		}
	}
	return nil
}

func newTestRegistry(t *testing.T, calls *int) *graph.Registry {
	t.Helper()
	reg := nodes.NewRegistry()
	base := func() graph.Behavior { return graph.Base{} }
	intParam := func(name string) registry.Param {
		return registry.Param{Name: name, Types: []string{graph.TypeInt}}
	}

	require.NoError(t, reg.Register("Foo", base, registry.MustSignature(intParam("x"), intParam("y"))))
	require.NoError(t, reg.Register("Goal", base, registry.MustSignature(
		registry.Param{Name: "foo", Alias: "pos1", Types: []string{"Foo"}},
		registry.Param{Name: "note", Types: []string{graph.TypeStr}},
		registry.Param{Name: "scratch", Types: []string{graph.TypeStr}, OmitOnDuplicate: true},
	)))
	require.NoError(t, reg.Register("Team", base, registry.MustSignature(
		registry.Param{Name: "members", Multi: true},
		registry.Param{Name: "label", Types: []string{graph.TypeStr}, MatchExclude: true},
	)))
	require.NoError(t, reg.Register("Holder", base, registry.MustSignature().WithPositional(registry.Param{})))
	require.NoError(t, reg.Register("Person", func() graph.Behavior { return person{} }, registry.MustSignature(
		registry.Param{Name: "name", Alias: "pos1", Types: []string{graph.TypeStr}, Required: true},
		registry.Param{Name: "age", Types: []string{graph.TypeInt}, MatchMissingOK: true},
	)))
	require.NoError(t, reg.Register("Record", func() graph.Behavior { return record{} }, registry.MustSignature(
		registry.Param{Name: "id", Types: []string{graph.TypeStr}},
	)))
	require.NoError(t, reg.Register("Count", func() graph.Behavior { return counter{calls: calls} },
		registry.MustSignature().WithPositional(registry.Param{}), registry.OutType(graph.TypeAny)))
	require.NoError(t, reg.Register("Twice", func() graph.Behavior { return twice{} }, nil))
	require.NoError(t, reg.Register("Lookup", func() graph.Behavior { return lookup{} }, nil))
	require.NoError(t, reg.Register("Guard", func() graph.Behavior { return guard{} },
		registry.MustSignature().WithPositional(registry.Param{})))
	require.NoError(t, reg.Register("Wrap", func() graph.Behavior { return wrap{} },
		registry.MustSignature(registry.Param{Name: "v", Alias: "pos1", Types: []string{graph.TypeInt}})))
	require.NoError(t, reg.Register("Box", base, registry.MustSignature().WithPositional(registry.Param{})))
	require.NoError(t, reg.Register("Checked", func() graph.Behavior { return failing{} },
		registry.MustSignature(registry.Param{Name: "v", Alias: "pos1", Types: []string{graph.TypeInt}, Required: true})))
	return reg
}

func newTestDialog(t *testing.T, opts ...graph.Option) *graph.Dialog {
	t.Helper()
	var calls int
	return graph.NewDialog(newTestRegistry(t, &calls), opts...)
}

func turn(t *testing.T, d *graph.Dialog, src string) *graph.TurnResult {
	t.Helper()
	res, err := d.Turn(context.Background(), src)
	require.NoError(t, err, "turn %q", src)
	return res
}

func construct(t *testing.T, d *graph.Dialog, src string) *graph.Node {
	t.Helper()
	n, err := d.ConstructText(src)
	require.NoError(t, err, "construct %q", src)
	_, err = d.Evaluate(context.Background(), n)
	require.NoError(t, err, "evaluate %q", src)
	return n
}
