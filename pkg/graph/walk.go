package graph

import "github.com/aretw0/tendril/pkg/domain"

// Subnodes returns every node reachable from root through inputs
// (intension), root first, children in declaration order.
func (d *Dialog) Subnodes(root *Node) []*Node {
	var out []*Node
	seen := make(map[domain.NodeID]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || seen[n.id] {
			return
		}
		seen[n.id] = true
		out = append(out, n)
		for _, in := range n.inputs {
			walk(d.Node(in.id))
		}
	}
	walk(root)
	return out
}

func idSet(nodes []*Node) map[domain.NodeID]bool {
	out := make(map[domain.NodeID]bool, len(nodes))
	for _, n := range nodes {
		out[n.id] = true
	}
	return out
}

// heights returns the topological height of every node under root:
// leaves are 0, a parent is one more than its highest child.
func (d *Dialog) heights(root *Node) map[domain.NodeID]int {
	h := make(map[domain.NodeID]int)
	var visit func(n *Node, stack map[domain.NodeID]bool) int
	visit = func(n *Node, stack map[domain.NodeID]bool) int {
		if v, ok := h[n.id]; ok {
			return v
		}
		if stack[n.id] {
			return 0
		}
		stack[n.id] = true
		best := 0
		for _, in := range n.inputs {
			if c := d.Node(in.id); c != nil {
				best = max(best, visit(c, stack)+1)
			}
		}
		delete(stack, n.id)
		h[n.id] = best
		return best
	}
	visit(root, make(map[domain.NodeID]bool))
	return h
}

// pathTo returns the nodes lying on some root→target path (both ends
// included), or nil when target is not reachable.
func (d *Dialog) pathTo(root, target *Node) map[domain.NodeID]bool {
	memo := make(map[domain.NodeID]bool)
	done := make(map[domain.NodeID]bool)
	var reach func(n *Node) bool
	reach = func(n *Node) bool {
		if done[n.id] {
			return memo[n.id]
		}
		done[n.id] = true
		ok := n == target
		for _, in := range n.inputs {
			if c := d.Node(in.id); c != nil && reach(c) {
				ok = true
			}
		}
		memo[n.id] = ok
		return ok
	}
	if !reach(root) {
		return nil
	}
	out := make(map[domain.NodeID]bool)
	for id, ok := range memo {
		if ok {
			out[id] = true
		}
	}
	return out
}

// under returns the nodes reachable from any node of roots (inclusive).
func (d *Dialog) under(roots []*Node) map[domain.NodeID]bool {
	out := make(map[domain.NodeID]bool)
	for _, r := range roots {
		for _, n := range d.Subnodes(r) {
			out[n.id] = true
		}
	}
	return out
}

// hasRole reports whether some parent inside scope consumes n under the
// input name role.
func hasRole(n *Node, role string, scope map[domain.NodeID]bool) bool {
	for _, e := range n.outputs {
		if e.Name == role && scope[e.Node] {
			return true
		}
	}
	return false
}
