package graph_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/tendril/pkg/graph"
	"github.com/stretchr/testify/assert"
)

func TestMatch_RangeConstraint(t *testing.T) {
	d := newTestDialog(t)
	c := construct(t, d, "AND(GT(Int(2)), LT(Int(5)))")

	assert.True(t, d.Match(c, construct(t, d, "Int(3)")))
	assert.False(t, d.Match(c, construct(t, d, "Int(6)")))
	assert.False(t, d.Match(c, construct(t, d, "Int(2)")))
	assert.True(t, d.Match(c, construct(t, d, "Float(4.5)")), "ints and floats compare numerically")
}

func TestMatch_AggregatorLaws(t *testing.T) {
	d := newTestDialog(t)
	atoms := []string{"GT(2)", "LT(5)", "EQ(3)", "NEQ(4)", "Int?()", "GE(Float(2.5))", "AND(GT(1), LT(4))", "OR(EQ(0), EQ(6))"}
	var constraints []*graph.Node
	for _, src := range atoms {
		constraints = append(constraints, construct(t, d, src))
	}
	var candidates []*graph.Node
	for i := 0; i <= 6; i++ {
		candidates = append(candidates, construct(t, d, fmt.Sprintf("Int(%d)", i)))
	}

	for _, a := range constraints {
		not := construct(t, d, "NOT("+d.IDSexp(a)+")")
		for _, x := range candidates {
			assert.Equal(t, !d.Match(a, x), d.Match(not, x), "NOT(%s) on %s", d.Sexp(a), d.Sexp(x))
		}
		for _, b := range constraints {
			and := construct(t, d, fmt.Sprintf("AND(%s, %s)", d.IDSexp(a), d.IDSexp(b)))
			or := construct(t, d, fmt.Sprintf("OR(%s, %s)", d.IDSexp(a), d.IDSexp(b)))
			for _, x := range candidates {
				ma, mb := d.Match(a, x), d.Match(b, x)
				assert.Equal(t, ma && mb, d.Match(and, x), "AND(%s, %s) on %s", d.Sexp(a), d.Sexp(b), d.Sexp(x))
				assert.Equal(t, ma || mb, d.Match(or, x), "OR(%s, %s) on %s", d.Sexp(a), d.Sexp(b), d.Sexp(x))
			}
		}
	}
}

func TestMatch_SetAggregators(t *testing.T) {
	d := newTestDialog(t)
	team := construct(t, d, "Team(members=SET(ann, bob, cy), label=devs)")

	tests := []struct {
		constraint string
		want       bool
	}{
		{"Team?(members=ALL(ann, bob))", true},
		{"Team?(members=ALL(ann, dan))", false},
		{"Team?(members=ANY(dan, cy))", true},
		{"Team?(members=ANY(dan, eve))", false},
		{"Team?(members=NONE(dan, eve))", true},
		{"Team?(members=NONE(dan, bob))", false},
		{"Team?(members=EXACT(ann, bob))", false},
		{"Team?(members=EXACT(ann, bob, cy))", true},
		{"Team?(members=EXACT(ann, bob, dan))", false},
		{"Team?(members=SET(cy, bob, ann))", true},
		{"Team?(members=SET(ann, bob))", false},
		{"Team?(members=EQ(bob))", true},
		{"Team?(members=LIKE(Str(B)))", true},
		{"Team?(label=ops)", true},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			c := construct(t, d, tt.constraint)
			assert.Equal(t, tt.want, d.Match(c, team))
		})
	}
}

func TestMatch_ExactCardinality(t *testing.T) {
	d := newTestDialog(t)
	exact := construct(t, d, "EXACT(a, b)")

	assert.True(t, d.Match(exact, construct(t, d, "SET(b, a)")))
	assert.False(t, d.Match(exact, construct(t, d, "SET(a, b, c)")), "one extra member")
	assert.False(t, d.Match(exact, construct(t, d, "SET(a)")))
	assert.False(t, d.Match(construct(t, d, "EXACT(a, a)"), construct(t, d, "SET(a, b)")), "b is matched by nothing")
	assert.False(t, d.Match(exact, construct(t, d, "Str(a)")))
	assert.True(t, d.Match(construct(t, d, "ALL(a, b)"), construct(t, d, "SET(a, b, c)")))
}

func TestMatch_Objects(t *testing.T) {
	d := newTestDialog(t)
	john := construct(t, d, "Person(John)")

	assert.True(t, d.Match(construct(t, d, "Person?()"), john))
	assert.True(t, d.Match(construct(t, d, "Person?(name=John)"), john))
	assert.False(t, d.Match(construct(t, d, "Person?(name=Mary)"), john))
	assert.False(t, d.Match(construct(t, d, "Foo?()"), john), "types must agree")

	withAge := construct(t, d, "Person?(name=John, age=30)")
	assert.False(t, d.Match(withAge, john))
	assert.True(t, d.Match(withAge, john, graph.MatchMissing()), "age is MatchMissingOK")
}

func TestMatch_Levels(t *testing.T) {
	d := newTestDialog(t)
	query := construct(t, d, "Foo?(x=1)")
	partial := construct(t, d, "Foo??(x=1)")
	object := construct(t, d, "Foo(x=1)")

	assert.True(t, d.Match(query, object))
	assert.False(t, d.Match(query, partial), "constraints of different levels")
	assert.True(t, d.Match(query, partial, graph.AllowLevelMismatch()))
	assert.False(t, d.Match(query, object, graph.CheckLevel()))
	assert.True(t, d.Match(query, construct(t, d, "Foo?(x=1, y=2)"), graph.CheckLevel()))
}
