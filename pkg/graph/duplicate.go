package graph

import (
	"maps"

	"github.com/aretw0/tendril/pkg/domain"
)

// Duplicate is the outcome of copying the path between a goal root and
// a node to be revised.
type Duplicate struct {
	Root *Node
	Old  *Node
	// Copies maps original node ids to their copies.
	Copies map[domain.NodeID]*Node
}

// DuplicateSubgraph copies every node on a root→old path except mutable
// nodes and whatever is only reachable through them. Everything off the
// path stays shared with the original graph.
func (d *Dialog) DuplicateSubgraph(root, old *Node) (*Duplicate, error) {
	path := d.pathTo(root, old)
	if path == nil {
		return nil, domain.Errorf(domain.KindInvalidInput, old.id, "%s is not under %s", old.id, root.id)
	}

	// Nodes reachable from root without passing through a mutable node.
	open := make(map[domain.NodeID]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if open[n.id] {
			return
		}
		open[n.id] = true
		if n.mutable {
			return
		}
		for _, in := range n.inputs {
			if path[in.id] {
				walk(d.Node(in.id))
			}
		}
	}
	walk(root)

	dup := &Duplicate{Copies: make(map[domain.NodeID]*Node)}
	var order []*Node
	for _, n := range d.Subnodes(root) {
		if path[n.id] && open[n.id] && !n.mutable {
			dup.Copies[n.id] = d.copyNode(n)
			order = append(order, n)
		}
	}

	for _, orig := range order {
		cp := dup.Copies[orig.id]
		for _, in := range orig.inputs {
			if p, _, ok := orig.typ.Signature.Resolve(in.name); ok && p.OmitOnDuplicate {
				continue
			}
			target := d.Node(in.id)
			if c, ok := dup.Copies[in.id]; ok {
				target = c
			}
			if err := cp.SetInput(in.name, target); err != nil {
				return nil, err
			}
		}
	}

	dup.Root, dup.Old = root, old
	if c, ok := dup.Copies[root.id]; ok {
		dup.Root = c
	}
	if c, ok := dup.Copies[old.id]; ok {
		dup.Old = c
	}
	d.logger.Debug("subgraph duplicated", "root", root.id, "old", old.id, "copies", len(dup.Copies))
	return dup, nil
}

func (d *Dialog) copyNode(orig *Node) *Node {
	n := &Node{
		id:       domain.NodeID(len(d.nodes)),
		typ:      orig.typ,
		outType:  orig.typ.OutType,
		behavior: orig.behavior,
		dialog:   d,
		level:    orig.level,
		tags:     maps.Clone(orig.tags),
		leaf:     orig.leaf,
		dupOf:    orig.id,
		created:  d.turn,
	}
	if orig.typ.Factory != nil {
		n.behavior = orig.typ.Factory()
	}
	n.result = n.id
	d.nodes = append(d.nodes, n)
	return n
}
