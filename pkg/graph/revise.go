package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/tendril/pkg/domain"
)

// ReviseRequest describes a graph revision.
type ReviseRequest struct {
	// Root optionally constrains which goal is revised.
	Root *Node
	// Mid optionally limits the search to nodes below a matching node.
	Mid *Node
	// Old selects the node to revise: an existing node or a constraint.
	Old *Node
	// New is the replacement or the material merged into old.
	New  *Node
	Mode domain.MergeMode
	// Slot names the input used by extend and modif.
	Slot string
	// Role requires old to be consumed under this input name.
	Role       string
	Strictness domain.Strictness
}

// Candidate is a ranked (goal, old) pair considered by revise.
type Candidate struct {
	Root  *Node
	Old   *Node
	Tier  int
	Score int
}

const (
	tierIdentity = iota
	tierStrict
	tierPrefer
	tierAny
)

const pendingBonus = 50

// ReviseCandidates returns the candidates for a revision, best first.
func (d *Dialog) ReviseCandidates(req ReviseRequest) []Candidate {
	strictness := req.Strictness
	if strictness == "" {
		strictness = domain.PreferMatch
	}
	pending := d.pending()

	var out []Candidate
	for gi, gid := range d.goals {
		g := d.Node(gid)
		if req.Root != nil && req.Root != g && !d.Match(req.Root, g, AllowLevelMismatch(), MatchMissing()) {
			continue
		}
		if req.Mode == domain.MergeAutoTop {
			if req.Old == nil || req.Old == g || d.Match(req.Old, g, AllowLevelMismatch(), MatchMissing()) {
				out = append(out, Candidate{Root: g, Old: g, Tier: tierPrefer, Score: (gi + 1) * 100})
			}
			continue
		}

		scope := d.Subnodes(g)
		scopeSet := idSet(scope)
		var within map[domain.NodeID]bool
		if req.Mid != nil {
			var mids []*Node
			for _, n := range scope {
				if d.Match(req.Mid, n, AllowLevelMismatch()) {
					mids = append(mids, n)
				}
			}
			within = d.under(mids)
		}
		heights := d.heights(g)

		for _, n := range scope {
			if within != nil && !within[n.id] {
				continue
			}
			if req.Role != "" && !hasRole(n, req.Role, scopeSet) {
				continue
			}
			tier, ok := d.oldTier(req.Old, n, strictness)
			if !ok {
				continue
			}
			score := (gi+1)*100 + min(heights[n.id], 99)
			if pending[n.id] {
				score += pendingBonus
			}
			out = append(out, Candidate{Root: g, Old: n, Tier: tier, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Score > out[j].Score
	})
	return out
}

// matchOld compares old with a graph node of the same type field by field,
// so aggregator and qualifier types are located by structure rather than
// by their match semantics.
func (d *Dialog) matchOld(old, n *Node, opts ...MatchOption) bool {
	m := &MatchContext{d: d}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	if old.typ == n.typ {
		return m.MatchObject(old, n)
	}
	return m.Match(old, n)
}

func (d *Dialog) oldTier(old, n *Node, strictness domain.Strictness) (int, bool) {
	if old == n {
		return tierIdentity, true
	}
	for t := range old.tags {
		if !n.HasTag(t) {
			return 0, false
		}
	}
	typeOK := old.typ.Name == TypeAny || old.typ.Name == n.typ.Name
	if typeOK && old.level == n.level && d.matchOld(old, n) {
		return tierStrict, true
	}
	if strictness == domain.StrictMatch {
		return 0, false
	}
	if typeOK && d.matchOld(old, n, AllowLevelMismatch()) {
		return tierPrefer, true
	}
	if strictness == domain.AnyMatch && d.Match(old, n.Res(), AllowLevelMismatch(), MatchMissing()) {
		return tierAny, true
	}
	return 0, false
}

// Revise applies a revision to the best candidate, replaces the revised
// goal with the new root and evaluates it.
func (d *Dialog) Revise(ctx context.Context, req ReviseRequest) (*Node, error) {
	if req.Old == nil && req.Mode != domain.MergeAutoTop {
		return nil, domain.Errorf(domain.KindInvalidInput, domain.None, "revise needs an old node")
	}
	if req.New == nil {
		return nil, domain.Errorf(domain.KindInvalidInput, domain.None, "revise needs a new node")
	}
	if req.Mode == "" {
		req.Mode = domain.MergeNew
	}
	cands := d.ReviseCandidates(req)
	if len(cands) == 0 {
		hint := "no goal to revise"
		if req.Old != nil {
			hint = "nothing matches " + d.Sexp(req.Old)
		}
		return nil, domain.NewError(domain.KindNoReviseMatch, domain.None,
			"I don't know what you're referring to", domain.WithHints(hint))
	}
	best := cands[0]
	d.logger.Debug("revise candidate selected", "root", best.Root.id, "old", best.Old.id,
		"tier", best.Tier, "score", best.Score, "candidates", len(cands))

	newRoot, dup, err := d.apply(best.Root, best.Old, req)
	if err != nil {
		return nil, err
	}
	// The goal is replaced even when evaluation fails, so the failed copy
	// stays reachable for the next revise.
	evaluated, evalErr := d.Evaluate(ctx, newRoot)
	if evaluated == nil {
		evaluated = newRoot
	}
	d.ReplaceGoal(best.Root, evaluated)
	if d.hooks.OnRevise != nil {
		d.hooks.OnRevise(ctx, &domain.ReviseEvent{
			EventBase:  d.event(domain.EventRevise),
			Mode:       req.Mode,
			OldRoot:    best.Root.id,
			NewRoot:    evaluated.id,
			Target:     best.Old.id,
			Duplicated: len(dup.Copies),
		})
	}
	return evaluated, evalErr
}

func (d *Dialog) apply(root, old *Node, req ReviseRequest) (*Node, *Duplicate, error) {
	dup, err := d.DuplicateSubgraph(root, old)
	if err != nil {
		return nil, nil, err
	}
	target := dup.Old
	scope := d.Subnodes(dup.Root)

	repl, err := d.merge(target, req.New, req.Mode, req.Slot)
	if err != nil {
		return nil, nil, err
	}
	newRoot := dup.Root
	if repl != target {
		for _, e := range target.Outputs() {
			parent := d.Node(e.Node)
			if parent == repl || !containsNode(scope, parent) || parent.Input(e.Name) != target {
				continue
			}
			if err := parent.SetInput(e.Name, repl); err != nil {
				return nil, nil, err
			}
		}
		if target == dup.Root {
			newRoot = repl
		}
	}
	d.invalidate(newRoot, repl)
	return newRoot, dup, nil
}

func containsNode(nodes []*Node, n *Node) bool {
	for _, x := range nodes {
		if x == n {
			return true
		}
	}
	return false
}

// invalidate clears the evaluation of every node on a root→n path so the
// next evaluation recomputes what the revision changed.
func (d *Dialog) invalidate(root, n *Node) {
	for id := range d.pathTo(root, n) {
		x := d.Node(id)
		x.evaluated = false
		x.result = x.id
		if x.state > StateTransformed {
			x.state = StateTransformed
		}
	}
}

func (d *Dialog) merge(old, nw *Node, mode domain.MergeMode, slot string) (*Node, error) {
	switch mode {
	case domain.MergeNew:
		return nw, nil
	case domain.MergeOverwrite:
		return d.overwrite(old, nw)
	case domain.MergeExtend:
		name, err := d.slotFor(old, nw, slot)
		if err != nil {
			return nil, err
		}
		if old.HasInput(name) {
			return nil, domain.NewError(domain.KindInvalidInput, old.id,
				fmt.Sprintf("%s already has %q", old.typ.Name, name),
				domain.WithHints("use newMode=overwrite to replace it"))
		}
		return old, old.SetInput(name, nw)
	case domain.MergeAddAnd:
		return d.combine(TypeAnd, old, nw)
	case domain.MergeAddOr:
		return d.combine(TypeOr, old, nw)
	case domain.MergeModif:
		name, err := d.slotFor(old, nw, slot)
		if err != nil {
			return nil, err
		}
		existing := old.Input(name)
		if existing == nil {
			return old, old.SetInput(name, nw)
		}
		and, err := d.NewNode(TypeAnd)
		if err != nil {
			return nil, err
		}
		parts := []*Node{existing}
		if existing.typ.Name == TypeAnd {
			parts = existing.Positional()
		}
		for _, p := range append(parts, nw) {
			if err := and.AddPositional(p); err != nil {
				return nil, err
			}
		}
		return old, old.SetInput(name, and)
	case domain.MergeAuto, domain.MergeAutoTop:
		if m, ok := old.behavior.(Merger); ok {
			repl, err := m.MergeWith(old, nw, slot)
			if err != nil {
				return nil, domain.AsError(err, old.id)
			}
			if repl == nil {
				return old, nil
			}
			return repl, nil
		}
		d.logger.Debug("type has no merger, overwriting", "type", old.typ.Name)
		return d.overwrite(old, nw)
	}
	return nil, domain.Errorf(domain.KindInvalidInput, old.id, "unknown merge mode %q", mode)
}

// overwrite copies every input of nw onto old, replacing existing ones.
// Leaf values are replaced too; old keeps its level.
func (d *Dialog) overwrite(old, nw *Node) (*Node, error) {
	if old.IsLeaf() && nw.IsLeaf() && nw.leaf != nil {
		old.SetLeaf(nw.leaf)
	}
	for _, in := range append([]inputSlot(nil), nw.inputs...) {
		if err := old.SetInput(in.name, d.Node(in.id)); err != nil {
			return nil, err
		}
	}
	return old, nil
}

// combine wraps old and nw in an aggregator, extending old in place when
// it already is one.
func (d *Dialog) combine(agg string, old, nw *Node) (*Node, error) {
	if old.typ.Name == agg {
		return old, old.AddPositional(nw)
	}
	n, err := d.NewNode(agg)
	if err != nil {
		return nil, err
	}
	if err := n.AddPositional(old); err != nil {
		return nil, err
	}
	return n, n.AddPositional(nw)
}

// slotFor returns the explicit slot or the first empty param of old
// accepting nw.
func (d *Dialog) slotFor(old, nw *Node, slot string) (string, error) {
	if slot != "" {
		if _, canon, ok := old.typ.Signature.Resolve(slot); ok {
			return canon, nil
		}
		return "", domain.Errorf(domain.KindInvalidInput, old.id, "%s has no parameter %q", old.typ.Name, slot)
	}
	for _, p := range old.typ.Signature.Params() {
		if !old.HasInput(p.Name) && (p.Allows(nw.typ.Name) || p.Allows(nw.outType)) {
			return p.Name, nil
		}
	}
	return "", domain.Errorf(domain.KindInvalidInput, old.id, "no slot of %s accepts %s", old.typ.Name, nw.typ.Name)
}
