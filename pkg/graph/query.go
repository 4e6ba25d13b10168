package graph

import "github.com/aretw0/tendril/pkg/domain"

// GenerateQuery asks the constraint's type to translate it into a query
// for its backing store.
func (d *Dialog) GenerateQuery(n *Node) (any, error) {
	q, ok := n.behavior.(QueryGenerator)
	if !ok {
		return nil, domain.Errorf(domain.KindInvalidInput, n.id, "%s cannot be turned into a query", n.typ.Name)
	}
	return q.GenerateQuery(n)
}

// Describe returns the user-facing text of the node's result, falling
// back to its canonical expression.
func (d *Dialog) Describe(n *Node) string {
	r := n.Res()
	if desc, ok := r.behavior.(Describer); ok {
		if s := desc.Describe(r); s != "" {
			return s
		}
	}
	return d.Sexp(r)
}
