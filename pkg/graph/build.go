package graph

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/dsl"
	"github.com/aretw0/tendril/pkg/registry"
)

// Construct builds the node graph described by a P-expression. Node
// references ($#id) and assignment references ($name) splice existing
// nodes into the new graph.
func (d *Dialog) Construct(e *dsl.Expr) (*Node, error) {
	return d.construct(e, nil)
}

// ConstructText parses and constructs a P-expression.
func (d *Dialog) ConstructText(src string) (*Node, error) {
	e, err := dsl.Parse(src)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, domain.None, "cannot parse expression",
			domain.WithCause(err), domain.WithHints(src))
	}
	return d.Construct(e)
}

func (d *Dialog) construct(e *dsl.Expr, param *registry.Param) (*Node, error) {
	var (
		n   *Node
		err error
	)
	switch e.Kind {
	case dsl.KindNodeRef:
		n = d.Node(e.NodeID)
		if n == nil {
			return nil, domain.Errorf(domain.KindInvalidInput, domain.None, "unknown node %s", e.NodeID)
		}
		return n, nil
	case dsl.KindRef:
		var ok bool
		n, ok = d.Lookup(e.Name)
		if !ok {
			return nil, domain.Errorf(domain.KindInvalidInput, domain.None, "unknown reference $%s", e.Name)
		}
		return n, nil
	case dsl.KindCall:
		n, err = d.constructCall(e)
	default:
		n, err = d.constructLiteral(e, param)
	}
	if err != nil {
		return nil, err
	}
	n.AddTag(e.Tags...)
	if e.Assign != "" {
		d.Assign(e.Assign, n)
	}
	return n, nil
}

func (d *Dialog) constructCall(e *dsl.Expr) (*Node, error) {
	t, err := d.reg.Lookup(e.Name)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, domain.None,
			fmt.Sprintf("unknown type %q", e.Name), domain.WithCause(err))
	}
	if t.Leaf {
		return d.constructLeafCall(e)
	}
	n, err := d.NewNode(e.Name)
	if err != nil {
		return nil, err
	}
	n.level = max(n.level, e.Level)
	for _, a := range e.Args {
		p, _, ok := t.Signature.Resolve(a.Name)
		if !ok {
			return nil, domain.NewError(domain.KindInvalidInput, n.id,
				fmt.Sprintf("%s has no parameter %q", t.Name, a.Name),
				domain.WithHints("signature: "+t.Name+t.Signature.String()))
		}
		child, err := d.construct(a.Value, p)
		if err != nil {
			return nil, err
		}
		if err := n.SetInput(a.Name, child); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (d *Dialog) constructLeafCall(e *dsl.Expr) (*Node, error) {
	var v any
	switch {
	case len(e.Args) == 1 && e.Args[0].Positional && e.Args[0].Value.IsLiteral():
		v = e.Args[0].Value.Literal()
	case len(e.Args) == 0 && e.Level.IsConstraint():
		// A valueless leaf query such as Int?() matches any value.
	default:
		return nil, domain.Errorf(domain.KindInvalidInput, domain.None,
			"%s takes exactly one literal value", e.Name)
	}
	n, err := d.NewLeaf(e.Name, v)
	if err != nil {
		return nil, err
	}
	n.level = max(n.level, e.Level)
	return n, nil
}

// constructLiteral builds a leaf for a bare literal. When the receiving
// param accepts a single type the literal is coerced to it: another leaf
// type takes the value directly, a composite type receives it as pos1.
func (d *Dialog) constructLiteral(e *dsl.Expr, param *registry.Param) (*Node, error) {
	typeName := literalType(e)
	if param != nil && len(param.Types) == 1 && !param.Allows(typeName) {
		target := param.Types[0]
		t, err := d.reg.Lookup(target)
		if err == nil && t.Leaf {
			return d.NewLeaf(target, e.Literal())
		}
		if err == nil && t.Signature.Allows(registry.PosName(1)) {
			n, err := d.NewNode(target)
			if err != nil {
				return nil, err
			}
			leaf, err := d.NewLeaf(typeName, e.Literal())
			if err != nil {
				return nil, err
			}
			return n, n.SetInput(registry.PosName(1), leaf)
		}
	}
	return d.NewLeaf(typeName, e.Literal())
}

func literalType(e *dsl.Expr) string {
	switch e.Kind {
	case dsl.KindInt:
		return TypeInt
	case dsl.KindFloat:
		return TypeFloat
	case dsl.KindBool:
		return TypeBool
	default:
		return TypeStr
	}
}
