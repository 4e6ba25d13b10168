package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/tendril/pkg/domain"
)

// ReferRequest describes a reference to an object mentioned earlier in
// the dialogue.
type ReferRequest struct {
	Constraint *Node
	// Role requires the object to be consumed under this input name.
	Role string
	// Type requires the result type when no constraint is given.
	Type string
	// Mid limits the search to nodes below a matching node.
	Mid          *Node
	Multi        bool
	NoFallback   bool
	MatchMissing bool
}

func (r ReferRequest) typeName() string {
	if r.Constraint != nil && r.Constraint.typ.Name != TypeAny {
		return r.Constraint.typ.Name
	}
	return r.Type
}

// Candidates returns the objects matching the request, most recent goal
// first and root first within a goal. It falls back to the type's
// FallbackSearcher when the graph holds no match.
func (d *Dialog) Candidates(ctx context.Context, req ReferRequest) ([]*Node, error) {
	var opts []MatchOption
	if req.MatchMissing {
		opts = append(opts, MatchMissing())
	}
	typeName := req.typeName()
	seen := make(map[string]bool)
	var out []*Node
	add := func(r *Node) {
		key := identityKey(r)
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}

	goals := slices.Clone(d.goals)
	slices.Reverse(goals)
	others := slices.Clone(d.otherGoals)
	slices.Reverse(others)
	for _, gid := range append(goals, others...) {
		scope := d.Subnodes(d.Node(gid))
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
		for _, n := range scope {
			if !n.evaluated || n.level.IsConstraint() {
				continue
			}
			if within != nil && !within[n.id] {
				continue
			}
			r := n.Res()
			if r.level.IsConstraint() || r == req.Constraint {
				continue
			}
			if typeName != "" && r.typ.Name != typeName {
				continue
			}
			if req.Role != "" && !hasRole(n, req.Role, scopeSet) {
				continue
			}
			if req.Constraint != nil && !d.Match(req.Constraint, r, opts...) {
				continue
			}
			add(r)
		}
	}
	if len(out) > 0 || req.NoFallback {
		return out, nil
	}

	found, err := d.fallback(ctx, req, typeName)
	if err != nil {
		return nil, err
	}
	for _, r := range found {
		add(r.Res())
	}
	return out, nil
}

func (d *Dialog) fallback(ctx context.Context, req ReferRequest, typeName string) ([]*Node, error) {
	var fs FallbackSearcher
	if req.Constraint != nil {
		fs, _ = req.Constraint.behavior.(FallbackSearcher)
	}
	if fs == nil && typeName != "" {
		t, err := d.reg.Lookup(typeName)
		if err == nil && t.Factory != nil {
			fs, _ = t.Factory().(FallbackSearcher)
		}
	}
	if fs == nil {
		return nil, nil
	}
	d.logger.Debug("refer fallback search", "type", typeName)
	found, err := fs.FallbackSearch(ctx, d, req.Constraint, req)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, domain.AsError(err, domain.None)
	}
	for _, n := range found {
		if !n.evaluated {
			if err := d.Execute(ctx, n, false); err != nil {
				return nil, err
			}
		}
	}
	return found, nil
}

// Refer resolves the request to a single object, or to a SET of every
// match when Multi is set.
func (d *Dialog) Refer(ctx context.Context, req ReferRequest) (*Node, error) {
	cands, err := d.Candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	switch {
	case len(cands) == 0:
		what := req.typeName()
		if what == "" {
			what = "matching object"
		}
		var opts []domain.ErrorOption
		if req.Constraint != nil {
			opts = append(opts, domain.WithHints("looked for "+d.Sexp(req.Constraint)))
		}
		return nil, domain.NewError(domain.KindElementNotFound, domain.None,
			fmt.Sprintf("no %s found", what), opts...)
	case len(cands) == 1 || !req.Multi:
		return cands[0], nil
	}
	set, err := d.NewSet(cands...)
	if err != nil {
		return nil, err
	}
	if err := d.Execute(ctx, set, false); err != nil {
		return nil, err
	}
	return set, nil
}

func identityKey(n *Node) string {
	if id, ok := n.behavior.(Identifier); ok {
		if key, ok := id.Identity(n); ok {
			return n.typ.Name + ":" + key
		}
	}
	return "node:" + n.id.String()
}
