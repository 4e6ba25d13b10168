package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

// Evaluate transforms and executes the graph under root and returns the
// root after transformation.
func (d *Dialog) Evaluate(ctx context.Context, root *Node) (*Node, error) {
	root, err := d.Transform(root)
	if err != nil {
		return root, err
	}
	return root, d.Execute(ctx, root, false)
}

// Execute evaluates the subgraph of n bottom-up. Already evaluated nodes
// are skipped unless clear is set.
func (d *Dialog) Execute(ctx context.Context, n *Node, clear bool) error {
	if clear {
		for _, s := range d.Subnodes(n) {
			s.evaluated = false
			s.result = s.id
			s.err = nil
			if s.state > StateTransformed {
				s.state = StateTransformed
			}
		}
	}
	return d.eval(ctx, n, make(map[domain.NodeID]bool), 0)
}

func (d *Dialog) eval(ctx context.Context, n *Node, visiting map[domain.NodeID]bool, depth int) error {
	if n.evaluated {
		return nil
	}
	if visiting[n.id] {
		return domain.Errorf(domain.KindInvalidInput, n.id, "cycle through inputs of %s", n.typ.Name)
	}
	if depth > d.limits.MaxEvalDepth {
		return domain.Errorf(domain.KindInvalidInput, n.id, "graph deeper than %d", d.limits.MaxEvalDepth)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	visiting[n.id] = true
	defer delete(visiting, n.id)
	n.err = nil
	for _, in := range n.inputs {
		if child := d.Node(in.id); !child.evaluated {
			child.err = nil
		}
	}

	for _, in := range append([]inputSlot(nil), n.inputs...) {
		child := d.Node(in.id)
		err := d.eval(ctx, child, visiting, depth+1)
		if err == nil {
			continue
		}
		if isContextErr(err) {
			return err
		}
		e := domain.AsError(err, child.id)
		if child.err == nil {
			child.err = e
		}
		if d.absorb(ctx, n, e) {
			continue
		}
		n.err = e
		return e
	}

	if err := d.validate(n); err != nil {
		n.err = domain.AsError(err, n.id)
		return n.err
	}
	n.state = StateValidated

	start := time.Now()
	n.state = StateEvaluating
	n.setCount = 0
	if !n.level.IsConstraint() {
		if err := n.behavior.Exec(ctx, n); err != nil {
			n.state = StateValidated
			if isContextErr(err) {
				return err
			}
			n.err = domain.AsError(err, n.id)
			return n.err
		}
	}
	res, err := n.ResolveResult()
	if err != nil {
		n.state = StateValidated
		n.err = domain.AsError(err, n.id)
		return n.err
	}
	if n.outType == TypeAny {
		n.outType = res.typ.Name
	}
	n.evaluated = true
	n.state = StateEvaluated

	d.logger.Debug("node evaluated", "node", n.id, "type", n.typ.Name, "level", n.level, "result", res.id)
	if d.hooks.OnNodeEvaluated != nil {
		d.hooks.OnNodeEvaluated(ctx, &domain.NodeEvent{
			EventBase: d.event(domain.EventNodeEvaluated),
			NodeID:    n.id,
			NodeType:  n.typ.Name,
			Level:     n.level,
			Duration:  time.Since(start),
		})
	}
	return nil
}

// absorb gives n the chance to intercept the error of one of its inputs.
func (d *Dialog) absorb(ctx context.Context, n *Node, e *domain.Error) bool {
	a, ok := n.behavior.(ExceptionAbsorber)
	if !ok {
		return false
	}
	allowed, converted := a.AllowsException(n, e)
	if !allowed {
		return false
	}
	if converted != nil {
		d.RecordException(ctx, e.Replace(converted), true)
	} else {
		d.logger.Debug("exception suppressed", "node", n.id, "kind", e.Kind)
	}
	return true
}

func (d *Dialog) validate(n *Node) error {
	sig := n.typ.Signature
	if !n.level.IsConstraint() {
		for _, name := range sig.Required() {
			if !n.HasInput(name) {
				return domain.NewError(domain.KindInvalidInput, n.id,
					fmt.Sprintf("%s is missing required parameter %q", n.typ.Name, name),
					domain.WithHints("signature: "+n.typ.Name+sig.String()))
			}
		}
	}
	for _, in := range n.inputs {
		p, _, ok := sig.Resolve(in.name)
		if !ok {
			return domain.Errorf(domain.KindInvalidInput, n.id, "%s has no parameter %q", n.typ.Name, in.name)
		}
		child := d.Node(in.id)
		if child.level.IsConstraint() || p.Allows(child.typ.Name) || p.Allows(child.outType) || p.Allows(child.Res().typ.Name) {
			continue
		}
		return domain.NewError(domain.KindInvalidInput, n.id,
			fmt.Sprintf("parameter %q of %s does not accept %s", in.name, n.typ.Name, child.typ.Name),
			domain.WithHints(fmt.Sprintf("allowed: %v", p.Types)))
	}
	if n.level.IsConstraint() {
		if cv, ok := n.behavior.(ConstraintValidator); ok {
			return asInvalidInput(cv.ValidConstraint(n), n.id)
		}
		return nil
	}
	return asInvalidInput(n.behavior.ValidInput(n), n.id)
}

func asInvalidInput(err error, id domain.NodeID) error {
	if err == nil {
		return nil
	}
	var e *domain.Error
	if errors.As(err, &e) {
		return e
	}
	return domain.NewError(domain.KindInvalidInput, id, err.Error(), domain.WithCause(err))
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
