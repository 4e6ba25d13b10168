package graph_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intOf(t *testing.T, n *graph.Node) int64 {
	t.Helper()
	require.NotNil(t, n)
	v, ok := n.Res().Int()
	require.True(t, ok, "%s is not an Int", n.Type())
	return v
}

func TestRevise_Overwrite(t *testing.T) {
	d := newTestDialog(t)
	first := turn(t, d, "Goal(foo=Foo(x=1), note=keep)").Root
	oldFoo := first.Input("foo")

	res := turn(t, d, "revise(old=Foo?(), new=Foo?(y=2), newMode=overwrite)")
	require.False(t, res.Failed(), "%v", res.Errors)

	goal := res.Goal
	require.NotSame(t, first, goal)
	assert.Same(t, goal, res.Result)
	assert.True(t, goal.Evaluated())

	foo := goal.Input("foo")
	assert.Equal(t, int64(1), intOf(t, foo.Input("x")))
	assert.Equal(t, int64(2), intOf(t, foo.Input("y")))
	assert.Equal(t, domain.LevelObject, foo.Level(), "overwrite keeps the level of old")
	assert.Same(t, oldFoo, foo.DupOf())
	assert.Same(t, first, goal.DupOf())

	// The original goal is untouched and parked.
	assert.Equal(t, []string{"x"}, oldFoo.InputNames())
	assert.Same(t, oldFoo, first.Input("foo"))
	assert.Equal(t, []*graph.Node{first}, d.OtherGoals())
	assert.Equal(t, []*graph.Node{goal}, d.Goals())

	// Nodes off the revised path are shared.
	assert.Same(t, first.Input("note"), goal.Input("note"))
	assert.Same(t, oldFoo.Input("x"), foo.Input("x"))
}

func TestRevise_NewReplacesTarget(t *testing.T) {
	d := newTestDialog(t)
	turn(t, d, "Goal(foo=Foo(x=1))")

	res := turn(t, d, "revise(Foo?(), Foo(x=5))")
	require.False(t, res.Failed(), "%v", res.Errors)

	foo := res.Goal.Input("foo")
	assert.Equal(t, int64(5), intOf(t, foo.Input("x")))
	assert.Nil(t, foo.DupOf(), "new mode uses the new node itself")
	assert.Same(t, res.Root.Input("new"), foo)
}

func TestRevise_TransformedRootBecomesGoal(t *testing.T) {
	d := newTestDialog(t)
	first := turn(t, d, "Wrap()").Root
	require.Equal(t, "Wrap", first.Type())

	res := turn(t, d, "revise(old=Wrap?(), new=Wrap?(v=1), newMode=overwrite)")
	require.False(t, res.Failed(), "%v", res.Errors)

	goal := d.CurrentGoal()
	assert.Equal(t, "Box", goal.Type())
	assert.True(t, goal.Evaluated())
	assert.Same(t, goal, res.Result)
	assert.Equal(t, int64(1), intOf(t, goal.Input("pos1")))
	assert.Equal(t, []*graph.Node{goal}, d.Goals())
	assert.Equal(t, []*graph.Node{first}, d.OtherGoals())
}

func TestRevise_NoMatch(t *testing.T) {
	d := newTestDialog(t)
	turn(t, d, "Goal(foo=Foo(x=1))")

	res := turn(t, d, "revise(old=Person?(), new=Person(Ann))")

	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrNoReviseMatch)
	assert.Equal(t, "I don't know what you're referring to", res.Errors[0].Message)
	assert.Len(t, d.Goals(), 1, "failed revisions leave the goals alone")
	assert.Empty(t, d.OtherGoals())
}

func TestRevise_Ranking(t *testing.T) {
	t.Run("recent goals first", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Goal(foo=Foo(x=1))")
		turn(t, d, "Goal(foo=Foo(x=2))")

		res := turn(t, d, "revise(old=Foo?(), new=Foo?(y=9), newMode=overwrite)")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Equal(t, int64(2), intOf(t, res.Goal.Input("foo").Input("x")))
	})

	t.Run("identity beats recency", func(t *testing.T) {
		d := newTestDialog(t)
		oldest := turn(t, d, "Goal(foo=Foo(x=1))").Root
		turn(t, d, "Goal(foo=Foo(x=2))")

		src := fmt.Sprintf("revise(old=%s, new=Foo?(y=9), newMode=overwrite)", d.IDSexp(oldest.Input("foo")))
		res := turn(t, d, src)
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Same(t, oldest, res.Goal.DupOf())
		assert.Equal(t, int64(1), intOf(t, res.Goal.Input("foo").Input("x")))
	})

	t.Run("root selects the goal", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Goal(foo=Foo(x=1), note=a)")
		turn(t, d, "Goal(foo=Foo(x=2), note=b)")

		res := turn(t, d, "revise(root=Goal?(note=a), old=Foo?(), new=Foo?(y=3), newMode=overwrite)")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Equal(t, int64(1), intOf(t, res.Goal.Input("foo").Input("x")))
	})

	t.Run("pending exception wins", func(t *testing.T) {
		d := newTestDialog(t)
		failed := turn(t, d, "Holder(Checked(7), Checked(-1))")
		require.True(t, failed.Failed())
		bad := failed.Root.Input("pos2")
		require.Equal(t, bad.ID(), failed.Errors[0].NodeID)

		res := turn(t, d, "revise(old=Checked?(), new=Checked(3))")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Equal(t, int64(7), intOf(t, res.Goal.Input("pos1").Input("v")))
		assert.Equal(t, int64(3), intOf(t, res.Goal.Input("pos2").Input("v")))
		assert.True(t, res.Goal.Evaluated())
	})
}

func TestRevise_Strictness(t *testing.T) {
	d := newTestDialog(t)
	turn(t, d, "Goal(foo=Foo(x=1))")

	res := turn(t, d, "revise(old=Foo?(), new=Foo?(y=2), newMode=overwrite, match=strict)")
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrNoReviseMatch, "a query never strictly matches an object")

	res = turn(t, d, "revise(old=Foo(x=1), new=Foo?(y=2), newMode=overwrite, match=strict)")
	require.False(t, res.Failed(), "%v", res.Errors)
	assert.Equal(t, int64(2), intOf(t, res.Goal.Input("foo").Input("y")))

	res = turn(t, d, "revise(old=Foo?(), new=Foo?(y=2), match=sometimes)")
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrInvalidInput)
}

func TestRevise_Modes(t *testing.T) {
	ctx := context.Background()

	t.Run("extend fills an empty slot", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Goal(foo=Foo(x=1))")

		res := turn(t, d, "revise(old=Foo?(), new=5, newMode=extend, slot=y)")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Equal(t, int64(5), intOf(t, res.Goal.Input("foo").Input("y")))

		res = turn(t, d, "revise(old=Foo?(), new=6, newMode=extend, slot=x)")
		require.Len(t, res.Errors, 1)
		assert.ErrorIs(t, res.Errors[0], domain.ErrInvalidInput, "x is already set")
	})

	t.Run("addAnd wraps a constraint", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Goal?(foo=Foo?(x=GT(1)))")

		res := turn(t, d, "revise(old=GT(1), new=LT(5), newMode=addAnd)")
		require.False(t, res.Failed(), "%v", res.Errors)
		foo := res.Goal.Input("foo")
		and := foo.Input("x")
		assert.Equal(t, graph.TypeAnd, and.Type())
		assert.Len(t, and.Positional(), 2)

		assert.True(t, d.Match(foo, construct(t, d, "Foo(x=3)")))
		assert.False(t, d.Match(foo, construct(t, d, "Foo(x=7)")))
		assert.False(t, d.Match(foo, construct(t, d, "Foo(x=0)")))
	})

	t.Run("addOr extends an existing OR", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Foo?(x=OR(EQ(1), EQ(2)))")

		res := turn(t, d, "revise(old=OR(EQ(1), EQ(2)), new=EQ(3), newMode=addOr)")
		require.False(t, res.Failed(), "%v", res.Errors)
		or := res.Goal.Input("x")
		assert.Equal(t, graph.TypeOr, or.Type())
		assert.Len(t, or.Positional(), 3)
		assert.True(t, d.Match(res.Goal, construct(t, d, "Foo(x=3)")))
	})

	t.Run("modif constrains a slot", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Foo?(x=GT(0))")

		res := turn(t, d, "revise(old=Foo?(), new=LT(4), newMode=modif, slot=x)")
		require.False(t, res.Failed(), "%v", res.Errors)
		and := res.Goal.Input("x")
		assert.Equal(t, graph.TypeAnd, and.Type())
		assert.Equal(t, []string{"GT", "LT"}, []string{and.Positional()[0].Type(), and.Positional()[1].Type()})
	})

	t.Run("auto appends to a set", func(t *testing.T) {
		d := newTestDialog(t)
		first := turn(t, d, "Team(members=SET(ann, bob))").Root

		res := turn(t, d, "revise(old=SET?(), new=cy, newMode=auto)")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Len(t, graph.Elements(res.Goal.Input("members")), 3)
		assert.Len(t, graph.Elements(first.Input("members")), 2)
	})

	t.Run("autotop merges into the goal", func(t *testing.T) {
		d := newTestDialog(t)
		first := turn(t, d, "Goal(foo=Foo(x=1))").Root

		res := turn(t, d, "revise(new=Goal?(note=hi), newMode=autotop)")
		require.False(t, res.Failed(), "%v", res.Errors)
		assert.Same(t, first, res.Goal.DupOf())
		assert.Same(t, first.Input("foo"), res.Goal.Input("foo"))
		note, _ := res.Goal.Input("note").Str()
		assert.Equal(t, "hi", note)
	})

	t.Run("unknown mode", func(t *testing.T) {
		d := newTestDialog(t)
		turn(t, d, "Goal(foo=Foo(x=1))")
		_, err := d.Revise(ctx, graph.ReviseRequest{
			Old:  construct(t, d, "Foo?()"),
			New:  construct(t, d, "Foo?(y=1)"),
			Mode: domain.MergeMode("sideways"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRevise_OmitOnDuplicate(t *testing.T) {
	d := newTestDialog(t)
	first := turn(t, d, "Goal(foo=Foo(x=1), scratch=tmp)").Root

	res := turn(t, d, "revise(old=Foo?(), new=Foo?(y=2), newMode=overwrite)")
	require.False(t, res.Failed(), "%v", res.Errors)

	assert.False(t, res.Goal.HasInput("scratch"))
	assert.True(t, first.HasInput("scratch"))
}

func TestDuplicateSubgraph(t *testing.T) {
	t.Run("copies the path only", func(t *testing.T) {
		d := newTestDialog(t)
		root := construct(t, d, "Goal(foo=Foo(x=1, y=2), note=n)")
		x := root.Input("foo").Input("x")

		dup, err := d.DuplicateSubgraph(root, x)
		require.NoError(t, err)
		assert.Len(t, dup.Copies, 3)
		assert.Same(t, x, dup.Old.DupOf())
		assert.Same(t, root.Input("note"), dup.Root.Input("note"))
		assert.Same(t, root.Input("foo").Input("y"), dup.Root.Input("foo").Input("y"))
	})

	t.Run("stops at mutable nodes", func(t *testing.T) {
		d := newTestDialog(t)
		root := construct(t, d, "Goal(foo=Foo(x=1))")
		foo := root.Input("foo")
		foo.MarkMutable()

		dup, err := d.DuplicateSubgraph(root, foo.Input("x"))
		require.NoError(t, err)
		assert.Len(t, dup.Copies, 1)
		assert.Same(t, foo, dup.Root.Input("foo"), "mutable nodes are shared, not copied")
		assert.Same(t, foo.Input("x"), dup.Old)
	})

	t.Run("target must be below root", func(t *testing.T) {
		d := newTestDialog(t)
		root := construct(t, d, "Goal(foo=Foo(x=1))")
		other := construct(t, d, "Foo(x=2)")

		_, err := d.DuplicateSubgraph(root, other)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
