package graph

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/registry"
)

// Names of the core types the engine itself relies on.
const (
	TypeAny   = registry.AnyType
	TypeInt   = "Int"
	TypeFloat = "Float"
	TypeStr   = "Str"
	TypeBool  = "Bool"
	TypeSet   = "SET"
	TypeAnd   = "AND"
	TypeOr    = "OR"
)

// Behavior is the capability every registered node type implements.
type Behavior interface {
	// ValidInput checks preconditions on the final input set.
	ValidInput(n *Node) error
	// Exec performs the computation of an object node and may call
	// n.SetResult at most once.
	Exec(ctx context.Context, n *Node) error
}

// Factory builds the behavior of a new node.
type Factory func() Behavior

// Registry is the type registry specialised for node behaviors.
type Registry = registry.Registry[Factory]

// Type is a registered node type.
type Type = registry.Type[Factory]

// NewRegistry creates an empty node type registry.
func NewRegistry() *Registry {
	return registry.New[Factory]()
}

// Base is embedded by behaviors that need no validation and whose
// result is the node itself.
type Base struct{}

func (Base) ValidInput(*Node) error { return nil }

func (Base) Exec(context.Context, *Node) error { return nil }

// ConstraintValidator validates nodes evaluated at a constraint level.
type ConstraintValidator interface {
	ValidConstraint(n *Node) error
}

// Transformer rewrites a node before execution. Returning a different
// node replaces n in all of its parents.
type Transformer interface {
	TransformGraph(n *Node) (*Node, error)
}

// FallbackSearcher looks up objects outside the dialogue graph when refer
// finds nothing in it. The constraint may be nil for type-only lookups.
type FallbackSearcher interface {
	FallbackSearch(ctx context.Context, d *Dialog, constraint *Node, req ReferRequest) ([]*Node, error)
}

// Describer renders a user-facing message for an evaluated node.
type Describer interface {
	Describe(n *Node) string
}

// Comparer implements qualifier comparisons for a comparable type.
type Comparer interface {
	Compare(self, other *Node, op domain.Qualifier) bool
}

// Merger decides how a revise in auto mode combines old and new.
type Merger interface {
	MergeWith(old, new *Node, slot string) (*Node, error)
}

// Matcher overrides the default structural match of a constraint node.
type Matcher interface {
	Match(m *MatchContext, constraint, candidate *Node) bool
}

// ExceptionAbsorber lets an ancestor intercept an error raised below it.
// Returning (true, converted) records converted and keeps evaluating the
// ancestor; (true, nil) suppresses the error; (false, _) propagates it.
type ExceptionAbsorber interface {
	AllowsException(n *Node, err *domain.Error) (bool, *domain.Error)
}

// Identifier reports the real-world identity of an object (e.g. an
// external record id) so refer can collapse equivalent results.
type Identifier interface {
	Identity(n *Node) (string, bool)
}

// QueryGenerator translates a constraint into a store-specific query.
type QueryGenerator interface {
	GenerateQuery(n *Node) (any, error)
}

// Coercer converts a literal into the value representation of a leaf type.
type Coercer interface {
	Coerce(v any) (any, error)
}
