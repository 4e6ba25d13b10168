package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/dsl"
	"github.com/aretw0/tendril/pkg/graph"
)

func strInput(n *graph.Node, name string) string {
	if in := n.InputRes(name); in != nil {
		if s, ok := in.Str(); ok {
			return s
		}
	}
	return ""
}

func boolInput(n *graph.Node, name string) bool {
	if in := n.InputRes(name); in != nil {
		if b, ok := in.Bool(); ok {
			return b
		}
	}
	return false
}

// revise edits an earlier goal.
type revise struct {
	graph.Base
}

func (revise) ValidInput(n *graph.Node) error {
	if _, err := domain.ParseMergeMode(strInput(n, "newMode")); err != nil {
		return domain.NewError(domain.KindInvalidInput, n.ID(), err.Error(),
			domain.WithHints("modes: new, overwrite, extend, addAnd, addOr, modif, auto, autotop"))
	}
	if _, err := domain.ParseStrictness(strInput(n, "match")); err != nil {
		return domain.NewError(domain.KindInvalidInput, n.ID(), err.Error())
	}
	return nil
}

func (revise) Exec(ctx context.Context, n *graph.Node) error {
	mode, _ := domain.ParseMergeMode(strInput(n, "newMode"))
	strictness, _ := domain.ParseStrictness(strInput(n, "match"))
	root, err := n.Dialog().Revise(ctx, graph.ReviseRequest{
		Root:       n.InputView("root"),
		Mid:        n.InputView("mid"),
		Old:        n.InputView("old"),
		New:        n.InputView("new"),
		Mode:       mode,
		Slot:       strInput(n, "slot"),
		Role:       strInput(n, "role"),
		Strictness: strictness,
	})
	if err != nil {
		return err
	}
	return n.SetResult(root)
}

// refer finds an object mentioned earlier in the dialogue.
type refer struct {
	graph.Base
}

func (refer) Exec(ctx context.Context, n *graph.Node) error {
	r, err := n.Dialog().Refer(ctx, graph.ReferRequest{
		Constraint:   n.InputView("cond"),
		Role:         strInput(n, "role"),
		Type:         strInput(n, "type"),
		Mid:          n.InputView("mid"),
		Multi:        boolInput(n, "multi"),
		NoFallback:   boolInput(n, "noFallback"),
		MatchMissing: boolInput(n, "matchMissing"),
	})
	if err != nil {
		var e *domain.Error
		if errors.As(err, &e) && e.NodeID == domain.None {
			out := *e
			out.NodeID = n.ID()
			return &out
		}
		return err
	}
	return n.SetResult(r)
}

func (refer) ValidInput(n *graph.Node) error {
	if !n.HasInput("cond") && strInput(n, "type") == "" {
		return domain.Errorf(domain.KindInvalidInput, n.ID(), "refer needs a constraint or a type")
	}
	return nil
}

// singleton unwraps a result that must hold exactly one element.
type singleton struct {
	graph.Base
}

func (singleton) Exec(_ context.Context, n *graph.Node) error {
	elems := graph.Elements(n.Input("obj"))
	switch len(elems) {
	case 1:
		return n.SetResult(elems[0])
	case 0:
		return domain.NewError(domain.KindSingletonCardinality, n.ID(), "expected one result, found none")
	default:
		return domain.NewError(domain.KindSingletonCardinality, n.ID(),
			fmt.Sprintf("expected one result, found %d", len(elems)),
			domain.WithHints("narrow the request to a single "+elems[0].Type()))
	}
}

// getattr reads a named input of an object.
type getattr struct {
	graph.Base
}

func (getattr) Exec(_ context.Context, n *graph.Node) error {
	name := strInput(n, "name")
	obj := n.InputRes("obj")
	attr := obj.Input(name)
	if attr == nil {
		return domain.NewError(domain.KindElementNotFound, n.ID(),
			fmt.Sprintf("%s has no %s", obj.Type(), name),
			domain.WithHints("signature: "+obj.Type()+obj.Signature().String()))
	}
	return n.SetResult(attr.Res())
}

// acceptSuggestion runs a repair suggested by the previous turn.
type acceptSuggestion struct {
	graph.Base
}

func suggestions(d *graph.Dialog) []string {
	var out []string
	for _, e := range d.PreviousExceptions() {
		out = append(out, e.Suggestions...)
	}
	return out
}

func (acceptSuggestion) Exec(ctx context.Context, n *graph.Node) error {
	d := n.Dialog()
	sugg := suggestions(d)
	idx := int64(1)
	if in := n.InputRes("index"); in != nil {
		idx, _ = in.Int()
	}
	if len(sugg) == 0 {
		return domain.Errorf(domain.KindElementNotFound, n.ID(), "there is no suggestion to accept")
	}
	if idx < 1 || int(idx) > len(sugg) {
		return domain.Errorf(domain.KindInvalidInput, n.ID(), "suggestion %d does not exist (have %d)", idx, len(sugg))
	}
	e, err := dsl.Parse(sugg[idx-1])
	if err != nil {
		return domain.NewError(domain.KindInvalidResult, n.ID(), "suggestion is not a valid expression", domain.WithCause(err))
	}
	root, err := d.Construct(e)
	if err != nil {
		return err
	}
	root, err = d.Evaluate(ctx, root)
	if !root.IsOperator() {
		d.AddGoal(root)
	}
	if err != nil {
		return err
	}
	return n.SetResult(root.Res())
}

// rejectSuggestion drops the goal that failed in the previous turn.
type rejectSuggestion struct {
	graph.Base
}

func (rejectSuggestion) Exec(_ context.Context, n *graph.Node) error {
	d := n.Dialog()
	if len(d.PreviousExceptions()) == 0 {
		return domain.Errorf(domain.KindElementNotFound, n.ID(), "there is no suggestion to reject")
	}
	if g := d.CurrentGoal(); g != nil && g.Err() != nil {
		d.ParkGoal(g)
	}
	d.AddMessage("OK, never mind.")
	return nil
}
