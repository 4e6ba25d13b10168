package graph

import (
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/dsl"
	"github.com/aretw0/tendril/pkg/registry"
)

// Sexp returns the canonical P-expression of the graph under n. Parsing
// and constructing it builds an equivalent graph.
func (d *Dialog) Sexp(n *Node) string {
	return d.ToExpr(n).String()
}

// IDSexp returns the node reference "$#id", usable inside new expressions
// to splice the existing node.
func (d *Dialog) IDSexp(n *Node) string {
	return dsl.NodeRef(n.id).String()
}

// ToExpr converts the graph under n back to an expression tree. Nodes met
// again on the current path are emitted as node references.
func (d *Dialog) ToExpr(n *Node) *dsl.Expr {
	return d.toExpr(n, make(map[domain.NodeID]bool))
}

func (d *Dialog) toExpr(n *Node, path map[domain.NodeID]bool) *dsl.Expr {
	if path[n.id] {
		return dsl.NodeRef(n.id)
	}
	path[n.id] = true
	defer delete(path, n.id)

	e := dsl.Call(n.typ.Name).AtLevel(n.level)
	if n.IsLeaf() {
		if lit := literal(n.leaf); lit != nil {
			e.Append(lit)
		}
	} else {
		pos := 0
		for _, in := range n.inputs {
			child := d.toExpr(d.Node(in.id), path)
			// posN prints positionally only while the numbering is contiguous.
			if key := registry.ParseKey(in.name); key.Pos == pos+1 {
				pos++
				e.Args = append(e.Args, dsl.Arg{Name: in.name, Value: child, Positional: true})
				continue
			}
			e.Args = append(e.Args, dsl.Arg{Name: in.name, Value: child})
		}
	}
	e.Tag(n.Tags()...)
	return e
}

func literal(v any) *dsl.Expr {
	switch x := v.(type) {
	case int64:
		return dsl.Int(x)
	case float64:
		return dsl.Float(x)
	case string:
		return dsl.Str(x)
	case bool:
		return dsl.Bool(x)
	}
	return nil
}
