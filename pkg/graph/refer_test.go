package graph_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefer_Recency(t *testing.T) {
	d := newTestDialog(t)
	ctx := context.Background()
	turn(t, d, "Foo(x=1)")
	turn(t, d, "Foo(x=2)")

	got, err := d.Refer(ctx, graph.ReferRequest{Constraint: construct(t, d, "Foo?()")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), intOf(t, got.Input("x")))

	got, err = d.Refer(ctx, graph.ReferRequest{Constraint: construct(t, d, "Foo?(x=1)")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), intOf(t, got.Input("x")))

	got, err = d.Refer(ctx, graph.ReferRequest{Constraint: construct(t, d, "Foo?(x=GT(1))")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), intOf(t, got.Input("x")))
}

func TestRefer_SearchesParkedGoals(t *testing.T) {
	d := newTestDialog(t)
	first := turn(t, d, "Person(Ann)").Root
	d.ParkGoal(first)
	turn(t, d, "Foo(x=1)")

	got, err := d.Refer(context.Background(), graph.ReferRequest{Type: "Person"})
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRefer_Multi(t *testing.T) {
	d := newTestDialog(t)
	turn(t, d, "Person(John)")
	turn(t, d, "Person(Mary)")
	turn(t, d, "Holder(Person(John))")

	got, err := d.Refer(context.Background(), graph.ReferRequest{
		Constraint: construct(t, d, "Person?()"),
		Multi:      true,
	})
	require.NoError(t, err)
	require.Equal(t, graph.TypeSet, got.Type())
	assert.True(t, got.Evaluated())

	var names []string
	for _, e := range graph.Elements(got) {
		s, _ := e.Input("name").Str()
		names = append(names, s)
	}
	assert.Equal(t, []string{"John", "Mary"}, names, "people with the same name are one person")
}

func TestRefer_Filters(t *testing.T) {
	ctx := context.Background()
	d := newTestDialog(t)
	turn(t, d, "Goal(foo=Foo(x=1))")
	turn(t, d, "Holder(Foo(x=2))")

	tests := []struct {
		name string
		req  graph.ReferRequest
		want int64
	}{
		{"type", graph.ReferRequest{Type: "Foo"}, 2},
		{"role", graph.ReferRequest{Type: "Foo", Role: "foo"}, 1},
		{"mid", graph.ReferRequest{Type: "Foo", Mid: construct(t, d, "Goal?()")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Refer(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, intOf(t, got.Input("x")))
		})
	}
}

func TestRefer_MatchMissing(t *testing.T) {
	ctx := context.Background()
	d := newTestDialog(t)
	turn(t, d, "Person(John)")
	c := construct(t, d, "Person?(name=John, age=30)")

	_, err := d.Refer(ctx, graph.ReferRequest{Constraint: c})
	assert.ErrorIs(t, err, domain.ErrElementNotFound)

	got, err := d.Refer(ctx, graph.ReferRequest{Constraint: c, MatchMissing: true})
	require.NoError(t, err)
	assert.Equal(t, "Person", got.Type())
}

func TestRefer_Fallback(t *testing.T) {
	ctx := context.Background()
	d := newTestDialog(t)

	got, err := d.Refer(ctx, graph.ReferRequest{Constraint: construct(t, d, "Record?(id=r7)")})
	require.NoError(t, err)
	assert.True(t, got.Evaluated())
	id, _ := got.Input("id").Str()
	assert.Equal(t, "r7", id)

	_, err = d.Refer(ctx, graph.ReferRequest{Type: "Record", NoFallback: true})
	assert.ErrorIs(t, err, domain.ErrElementNotFound)
}

func TestRefer_Operator(t *testing.T) {
	d := newTestDialog(t)
	turn(t, d, "Foo(x=4)")

	res := turn(t, d, "Holder(refer(Foo?()))")
	require.False(t, res.Failed(), "%v", res.Errors)
	assert.Equal(t, int64(4), intOf(t, res.Root.InputRes("pos1").Input("x")))

	res = turn(t, d, "refer(Foo?(x=9), noFallback=true)")
	require.Len(t, res.Errors, 1)
	ex := res.Errors[0]
	assert.ErrorIs(t, ex, domain.ErrElementNotFound)
	assert.Equal(t, "no Foo found", ex.Message)
	assert.Equal(t, res.Root.ID(), ex.NodeID)

	res = turn(t, d, "refer(role=foo)")
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrInvalidInput)
}
