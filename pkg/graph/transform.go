package graph

import "github.com/aretw0/tendril/pkg/domain"

// Transform runs graph transformations bottom-up over the subgraph of
// root, once per node, and returns the (possibly replaced) root.
func (d *Dialog) Transform(root *Node) (*Node, error) {
	return d.transform(root, make(map[domain.NodeID]bool), 0)
}

func (d *Dialog) transform(n *Node, done map[domain.NodeID]bool, depth int) (*Node, error) {
	if done[n.id] || n.evaluated {
		return n, nil
	}
	if depth > d.limits.MaxTransformDepth {
		return n, domain.Errorf(domain.KindInvalidInput, n.id,
			"transformation of %s exceeds depth %d", n.typ.Name, d.limits.MaxTransformDepth)
	}
	done[n.id] = true

	for _, in := range append([]inputSlot(nil), n.inputs...) {
		child := d.Node(in.id)
		repl, err := d.transform(child, done, depth+1)
		if err != nil {
			return n, err
		}
		if repl != child && n.slot(in.name) >= 0 && n.Input(in.name) == child {
			if err := n.SetInput(in.name, repl); err != nil {
				return n, err
			}
		}
	}

	t, ok := n.behavior.(Transformer)
	if !ok {
		n.state = max(n.state, StateTransformed)
		return n, nil
	}
	parents := n.Outputs()
	repl, err := t.TransformGraph(n)
	if err != nil {
		return n, domain.AsError(err, n.id)
	}
	if repl == nil || repl == n {
		n.state = max(n.state, StateTransformed)
		return n, nil
	}
	d.logger.Debug("node transformed", "node", n.id, "type", n.typ.Name, "into", repl.id, "repl_type", repl.typ.Name)
	if err := d.redirect(n, repl, parents); err != nil {
		return n, err
	}
	n.state = max(n.state, StateTransformed)
	return d.transform(repl, done, depth+1)
}

// redirect moves the given reverse edges of old onto repl.
func (d *Dialog) redirect(old, repl *Node, edges []Edge) error {
	for _, e := range edges {
		parent := d.Node(e.Node)
		if parent == nil || parent == repl || parent.Input(e.Name) != old {
			continue
		}
		if err := parent.SetInput(e.Name, repl); err != nil {
			return err
		}
	}
	return nil
}
