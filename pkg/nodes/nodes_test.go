package nodes_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/nodes"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type missingFlight struct{ graph.Base }

func (missingFlight) Exec(_ context.Context, n *graph.Node) error {
	return domain.NewError(domain.KindElementNotFound, n.ID(), "no such flight")
}

// archive is searched only as a fallback, and is always offline.
type archive struct{ graph.Base }

var errArchiveOffline = domain.NewError(domain.KindElementNotFound, domain.None, "archive offline")

func (archive) FallbackSearch(context.Context, *graph.Dialog, *graph.Node, graph.ReferRequest) ([]*graph.Node, error) {
	return nil, errArchiveOffline
}

// ask turns a missing flight into a question with two candidate answers.
type ask struct{ graph.Base }

func (ask) AllowsException(n *graph.Node, err *domain.Error) (bool, *domain.Error) {
	return true, domain.NewError(domain.KindMoreInputNeeded, n.ID(), "which flight?",
		domain.WithSuggestions("Flight(number=1)", "Flight(number=2, dest=LIS)"))
}

func newDialog(t *testing.T) *graph.Dialog {
	t.Helper()
	reg := nodes.NewRegistry()
	require.NoError(t, reg.Register("Flight", nil, registry.MustSignature(
		registry.Param{Name: "number", Alias: "pos1", Types: []string{graph.TypeInt}, Required: true},
		registry.Param{Name: "dest", Types: []string{graph.TypeStr}},
	)))
	require.NoError(t, reg.Register("FindFlight", func() graph.Behavior { return missingFlight{} }, nil))
	require.NoError(t, reg.Register("Ask", func() graph.Behavior { return ask{} },
		registry.MustSignature().WithPositional(registry.Param{})))
	require.NoError(t, reg.Register("Archive", func() graph.Behavior { return archive{} }, nil))
	require.NoError(t, reg.Register("Wrapper", nil,
		registry.MustSignature().WithPositional(registry.Param{})))
	return graph.NewDialog(reg)
}

func run(t *testing.T, d *graph.Dialog, src string) *graph.TurnResult {
	t.Helper()
	res, err := d.Turn(context.Background(), src)
	require.NoError(t, err, "turn %q", src)
	return res
}

func eval(t *testing.T, d *graph.Dialog, src string) *graph.Node {
	t.Helper()
	n, err := d.ConstructText(src)
	require.NoError(t, err, "construct %q", src)
	n, err = d.Evaluate(context.Background(), n)
	require.NoError(t, err, "evaluate %q", src)
	return n
}

func TestConstraint_Range(t *testing.T) {
	d := newDialog(t)
	res := run(t, d, "AND(GT(Int(2)), LT(Int(5)))")
	require.False(t, res.Failed(), "%v", res.Errors)
	c := res.Root
	assert.Equal(t, domain.LevelQuery, c.Level())

	assert.True(t, d.Match(c, eval(t, d, "Int(3)")))
	assert.False(t, d.Match(c, eval(t, d, "Int(6)")))
	assert.Equal(t, []string{"gt 2 and lt 5"}, res.Messages)
}

func TestLeaf_Coercion(t *testing.T) {
	d := newDialog(t)

	n := eval(t, d, `Int("42")`)
	v, ok := n.Int()
	require.True(t, ok)
	assert.Equal(t, int64(42), v)

	f := eval(t, d, "Float(3)")
	fv, ok := f.Float()
	require.True(t, ok)
	assert.Equal(t, 3.0, fv)

	b := eval(t, d, "Bool(true)")
	bv, ok := b.Bool()
	require.True(t, ok)
	assert.True(t, bv)

	flight := eval(t, d, `Flight(number="7")`)
	num, _ := flight.Input("number").Int()
	assert.Equal(t, int64(7), num, "literals are coerced to the declared param type")

	for _, src := range []string{"Int(abc)", "Int(2.5)", "Bool(maybe)"} {
		_, err := d.ConstructText(src)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, src)
	}
}

func TestLeaf_Compare(t *testing.T) {
	d := newDialog(t)
	john := eval(t, d, "Str(John)")

	tests := []struct {
		constraint string
		want       bool
	}{
		{"LIKE(oh)", true},
		{"LIKE(JOHN)", true},
		{"LIKE(ann)", false},
		{"EQ(John)", true},
		{"NEQ(John)", false},
		{"GT(Jim)", true},
		{"LT(3)", false},
		{"NEQ(3)", true},
		{"Str?()", true},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Match(eval(t, d, tt.constraint), john))
		})
	}
}

func TestAggregator_Validation(t *testing.T) {
	tests := []string{"NOT(1, 2)", "AND()", "GT()"}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			d := newDialog(t)
			res := run(t, d, src)
			require.Len(t, res.Errors, 1)
			assert.ErrorIs(t, res.Errors[0], domain.ErrInvalidInput)
		})
	}
}

func TestAggregator_OrToleratesFailedBranch(t *testing.T) {
	d := newDialog(t)
	res := run(t, d, "OR(EQ(FindFlight()), EQ(3))")

	assert.False(t, res.Failed(), "%v", res.Errors)
	assert.True(t, d.Match(res.Root, eval(t, d, "Int(3)")))
}

func TestAggregator_OrFailsWhenEveryBranchFails(t *testing.T) {
	d := newDialog(t)
	res := run(t, d, "OR(EQ(FindFlight()), EQ(FindFlight()))")

	require.True(t, res.Failed())
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrElementNotFound)
	assert.False(t, res.Root.Evaluated())
	assert.NotNil(t, res.Root.Err())
}

func TestGetattr(t *testing.T) {
	d := newDialog(t)

	res := run(t, d, "getattr(number, Flight(7, dest=OPO))")
	require.False(t, res.Failed(), "%v", res.Errors)
	v, _ := res.Result.Int()
	assert.Equal(t, int64(7), v)

	res = run(t, d, "getattr(dest, Flight(7))")
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrElementNotFound)
	assert.Equal(t, res.Root.ID(), res.Errors[0].NodeID)
	assert.NotEmpty(t, res.Errors[0].Hints)
}

func TestSingleton(t *testing.T) {
	d := newDialog(t)

	res := run(t, d, "singleton(SET(Flight(7)))")
	require.False(t, res.Failed(), "%v", res.Errors)
	assert.Equal(t, "Flight", res.Result.Type())

	res = run(t, d, "singleton(Flight(3))")
	require.False(t, res.Failed(), "%v", res.Errors)
	assert.Equal(t, "Flight", res.Result.Type())

	for _, src := range []string{"singleton(SET(Flight(1), Flight(2)))", "singleton(SET())"} {
		res = run(t, d, src)
		require.Len(t, res.Errors, 1, src)
		assert.ErrorIs(t, res.Errors[0], domain.ErrSingletonCardinality, src)
		assert.Equal(t, res.Root.ID(), res.Errors[0].NodeID, src)
	}
}

func TestRefer_FallbackErrorIsCopied(t *testing.T) {
	d := newDialog(t)
	res := run(t, d, "refer(Archive?())")

	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrElementNotFound)
	assert.Equal(t, res.Root.ID(), res.Errors[0].NodeID)
	assert.Equal(t, domain.None, errArchiveOffline.NodeID, "the collaborator's error is left alone")
}

func TestAcceptSuggestion(t *testing.T) {
	t.Run("runs the chosen suggestion", func(t *testing.T) {
		d := newDialog(t)
		failed := run(t, d, "Wrapper(Ask(FindFlight()))")
		require.Len(t, failed.Errors, 1)
		require.Len(t, failed.Errors[0].Suggestions, 2)

		res := run(t, d, "AcceptSuggestion(2)")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Equal(t, "Flight", res.Result.Type())
		dest, _ := res.Result.Input("dest").Str()
		assert.Equal(t, "LIS", dest)
		assert.Same(t, res.Result, d.CurrentGoal())
	})

	t.Run("defaults to the first", func(t *testing.T) {
		d := newDialog(t)
		run(t, d, "Wrapper(Ask(FindFlight()))")

		res := run(t, d, "AcceptSuggestion()")
		require.False(t, res.Failed(), "%v", res.Errors)
		num, _ := res.Result.Input("number").Int()
		assert.Equal(t, int64(1), num)
	})

	t.Run("index out of range", func(t *testing.T) {
		d := newDialog(t)
		run(t, d, "Wrapper(Ask(FindFlight()))")

		res := run(t, d, "AcceptSuggestion(3)")
		require.Len(t, res.Errors, 1)
		assert.ErrorIs(t, res.Errors[0], domain.ErrInvalidInput)
	})

	t.Run("nothing to accept", func(t *testing.T) {
		d := newDialog(t)
		run(t, d, "Flight(1)")

		res := run(t, d, "AcceptSuggestion()")
		require.Len(t, res.Errors, 1)
		assert.ErrorIs(t, res.Errors[0], domain.ErrElementNotFound)
		assert.Len(t, d.Goals(), 1, "operators never become goals")
	})
}

func TestRejectSuggestion(t *testing.T) {
	d := newDialog(t)
	failed := run(t, d, "Wrapper(FindFlight())")
	require.True(t, failed.Failed())
	require.Same(t, failed.Root, d.CurrentGoal())

	res := run(t, d, "RejectSuggestion()")
	require.False(t, res.Failed(), "%v", res.Errors)
	assert.Equal(t, []string{"OK, never mind."}, res.Messages)
	assert.Nil(t, d.CurrentGoal())
	assert.Equal(t, []*graph.Node{failed.Root}, d.OtherGoals())

	res = run(t, d, "RejectSuggestion()")
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrElementNotFound)
}

func TestRegister_Duplicate(t *testing.T) {
	reg := nodes.NewRegistry()
	assert.Error(t, nodes.Register(reg), "core types are registered once")
}
