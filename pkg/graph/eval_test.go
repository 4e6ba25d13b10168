package graph_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/dsl"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurn_LeafLiteral(t *testing.T) {
	d := newTestDialog(t)

	res := turn(t, d, "Int(3)")

	require.False(t, res.Failed())
	n := res.Root
	assert.True(t, n.IsLeaf())
	v, ok := n.Int()
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, domain.LevelObject, n.Level())
	assert.True(t, n.Evaluated())
	assert.Equal(t, graph.StateEvaluated, n.State())
	assert.Equal(t, n, res.Goal)
	assert.Equal(t, []string{"3"}, res.Messages)
}

func TestEvaluate_Idempotent(t *testing.T) {
	var calls int
	d := graph.NewDialog(newTestRegistry(t, &calls))
	ctx := context.Background()

	root, err := d.ConstructText("Count(Int(4))")
	require.NoError(t, err)
	_, err = d.Evaluate(ctx, root)
	require.NoError(t, err)
	first := root.Res()
	v, _ := first.Int()
	assert.Equal(t, int64(4), v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, graph.TypeInt, root.OutType(), "Node out type freezes to the result type")

	_, err = d.Evaluate(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "evaluated nodes are skipped")
	assert.Same(t, first, root.Res())

	require.NoError(t, d.Execute(ctx, root, true))
	assert.Equal(t, 2, calls, "clear forces re-execution")
	assert.Same(t, first, root.Res())
}

func TestEvaluate_SetResultTwice(t *testing.T) {
	d := newTestDialog(t)

	res := turn(t, d, "Twice()")

	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0], domain.ErrInvalidResult))
	assert.False(t, res.Root.Evaluated())
	assert.Equal(t, res.Root, res.Goal, "failed goals stay on the stack for repair")
}

func TestEvaluate_Validation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"missing required", "Person(age=3)", domain.ErrInvalidInput},
		{"wrong input type", "Goal(foo=Int(1))", domain.ErrInvalidInput},
		{"behavior check", "Checked(-1)", domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDialog(t)
			res := turn(t, d, tt.src)
			require.Len(t, res.Errors, 1)
			assert.ErrorIs(t, res.Errors[0], tt.want)
		})
	}

	t.Run("constraints skip required params", func(t *testing.T) {
		d := newTestDialog(t)
		res := turn(t, d, "Person?(age=3)")
		assert.False(t, res.Failed())
	})
}

func TestTurn_ConstructionErrors(t *testing.T) {
	d := newTestDialog(t)
	ctx := context.Background()

	_, err := d.Turn(ctx, "Unknown(1)")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = d.Turn(ctx, "Foo(z=1)")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = d.Turn(ctx, "Foo(")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = d.Turn(ctx, "Foo(x=$nope)")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = d.Turn(ctx, "Int("+strings.Repeat("1", dsl.MaxInputSize)+")")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, dsl.ErrInputTooLarge)

	res, err := d.Turn(ctx, "Int(\x1b3)")
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.NotContains(t, res.Expression, "\x1b")
}

func TestEvaluate_AbsorbedException(t *testing.T) {
	d := newTestDialog(t)

	res := turn(t, d, "Holder(Guard(Lookup()))")

	require.Len(t, res.Errors, 1)
	ex := res.Errors[0]
	assert.Equal(t, domain.KindMoreInputNeeded, ex.Kind)
	assert.ErrorIs(t, ex, domain.ErrMoreInputNeeded)
	require.Len(t, ex.Chain, 1)
	assert.Equal(t, domain.KindElementNotFound, ex.Chain[0].Kind)
	assert.Equal(t, []string{"Flight(number=1)"}, ex.Suggestions)

	assert.True(t, res.Root.Evaluated(), "propagation stops at the absorbing ancestor")
	guardNode := res.Root.Input("pos1")
	assert.True(t, guardNode.Evaluated())
	assert.False(t, guardNode.Input("pos1").Evaluated())
}

func TestEvaluate_UnhandledException(t *testing.T) {
	d := newTestDialog(t)

	res := turn(t, d, "Holder(Lookup())")

	require.Len(t, res.Errors, 1)
	ex := res.Errors[0]
	assert.ErrorIs(t, ex, domain.ErrElementNotFound)
	lookupNode := res.Root.Input("pos1")
	assert.Equal(t, lookupNode.ID(), ex.NodeID)
	assert.Equal(t, ex, lookupNode.Err())
	assert.Equal(t, ex, res.Root.Err())
	assert.Equal(t, res.Root, d.CurrentGoal())

	// The next turn sees the failure as a previous exception.
	turn(t, d, "Int(1)")
	require.Len(t, d.PreviousExceptions(), 1)
	assert.Empty(t, d.Exceptions())
}

func TestTransform_ReplacesNode(t *testing.T) {
	d := newTestDialog(t)

	res := turn(t, d, "Holder(Wrap(3))")
	require.False(t, res.Failed())
	box := res.Root.Input("pos1")
	assert.Equal(t, "Box", box.Type())
	v, _ := box.Input("pos1").Int()
	assert.Equal(t, int64(3), v)

	res = turn(t, d, "Wrap(5)")
	assert.Equal(t, "Box", res.Root.Type(), "root position is taken over")
	assert.Equal(t, res.Root, d.CurrentGoal())
}

func TestEvaluate_CycleDetected(t *testing.T) {
	d := newTestDialog(t)
	a, err := d.NewNode("Holder")
	require.NoError(t, err)
	b, err := d.NewNode("Holder")
	require.NoError(t, err)
	require.NoError(t, a.SetInput("pos1", b))
	require.NoError(t, b.SetInput("pos1", a))

	err = d.Execute(context.Background(), a, false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNode_ResultCycleRefused(t *testing.T) {
	d := newTestDialog(t)
	a, _ := d.NewNode("Holder")
	b, _ := d.NewNode("Holder")

	require.NoError(t, a.SetResult(b))
	err := b.SetResult(a)
	assert.ErrorIs(t, err, domain.ErrInvalidResult)
	assert.Same(t, b, a.Res())
	_, err = a.ResolveResult()
	assert.NoError(t, err)
}

func TestNode_LevelNeverIncreases(t *testing.T) {
	d := newTestDialog(t)
	n := construct(t, d, "Foo?(x=1)")

	assert.ErrorIs(t, n.SetLevel(domain.LevelPartial), domain.ErrInvalidResult)
	assert.NoError(t, n.SetLevel(domain.LevelObject))
	assert.Equal(t, domain.LevelObject, n.Level())
}

func TestNode_EdgesStayConsistent(t *testing.T) {
	d := newTestDialog(t)
	n := construct(t, d, "Foo(x=1, y=2)")
	x := n.Input("x")

	require.Equal(t, []graph.Edge{{Name: "x", Node: n.ID()}}, x.Outputs())
	require.NoError(t, n.RemoveInput("x"))
	assert.Empty(t, x.Outputs())
	assert.Equal(t, []string{"y"}, n.InputNames())

	require.NoError(t, n.SetInput("x", x))
	assert.Equal(t, []string{"x", "y"}, n.InputNames(), "inputs keep declaration order")
	assert.Error(t, n.SetInput("z", x))
}

func TestDialog_Hooks(t *testing.T) {
	var evaluated, turns, exceptions int
	hooks := domain.LifecycleHooks{
		OnNodeEvaluated: func(context.Context, *domain.NodeEvent) { evaluated++ },
		OnTurn:          func(context.Context, *domain.TurnEvent) { turns++ },
		OnException:     func(context.Context, *domain.ExceptionEvent) { exceptions++ },
	}
	d := newTestDialog(t, graph.WithHooks(hooks))

	turn(t, d, "Foo(x=1)")
	turn(t, d, "Holder(Lookup())")

	assert.Equal(t, 2, evaluated)
	assert.Equal(t, 2, turns)
	assert.Equal(t, 1, exceptions)
}

func TestDialog_Reset(t *testing.T) {
	d := newTestDialog(t)
	turn(t, d, "{f}Foo(x=1)")
	_, ok := d.Lookup("f")
	require.True(t, ok)

	d.Reset()

	assert.Zero(t, d.Len())
	assert.Empty(t, d.Goals())
	assert.Zero(t, d.CurrentTurn())
	_, ok = d.Lookup("f")
	assert.False(t, ok)
}

func TestSexp_RoundTrip(t *testing.T) {
	d := newTestDialog(t)
	n := construct(t, d, `Goal(foo=Foo(x=1, y=2), note="hello world", ^urgent)`)

	text := d.Sexp(n)
	assert.Equal(t, `Goal(foo=Foo(x=Int(1), y=Int(2)), note=Str("hello world"), ^urgent)`, text)

	again := construct(t, d, text)
	assert.Equal(t, text, d.Sexp(again))
	assert.Equal(t, fmt.Sprintf("$#%d", n.ID()), d.IDSexp(n))

	spliced := construct(t, d, "Holder("+d.IDSexp(n)+")")
	assert.Same(t, n, spliced.Input("pos1"))
}

func TestReplay_RebuildsGoalsWithoutHooks(t *testing.T) {
	exprs := []string{"Foo(x=1)", "Goal(", "revise(old=Foo?(), new=Foo?(x=2), newMode=overwrite)", "Person(Ann)"}

	live := newTestDialog(t)
	for _, e := range exprs {
		_, _ = live.Turn(context.Background(), e)
	}

	turns := 0
	d := graph.NewDialog(live.Registry(), graph.WithHooks(domain.LifecycleHooks{
		OnTurn: func(context.Context, *domain.TurnEvent) { turns++ },
	}))
	require.NoError(t, d.Replay(context.Background(), exprs))

	assert.Zero(t, turns, "replayed turns are not observed")
	assert.Equal(t, live.Snapshot("x"), d.Snapshot("x"))

	_, err := d.Turn(context.Background(), "Int(1)")
	require.NoError(t, err)
	assert.Equal(t, 1, turns, "hooks are restored after replay")
}

func TestReplay_Cancelled(t *testing.T) {
	d := newTestDialog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Replay(ctx, []string{"Foo(x=1)"}), context.Canceled)
}
