package graph

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/dsl"
)

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Turn       int
	Expression string
	// Root is the evaluated root of the turn's expression.
	Root *Node
	// Goal is the current goal after the turn.
	Goal     *Node
	Result   *Node
	Messages []string
	Errors   []*domain.Error
}

// Failed reports whether the turn left unresolved exceptions.
func (r *TurnResult) Failed() bool {
	return len(r.Errors) > 0
}

// BeginTurn starts a new turn: the previous turn's exceptions become the
// copied exceptions used for revise ranking and suggestion acceptance.
func (d *Dialog) BeginTurn() {
	d.turn++
	d.copiedExceptions = d.exceptions
	d.exceptions = nil
	d.messages = nil
}

// Turn parses, constructs and evaluates one P-expression. Evaluation
// failures are recorded on the dialogue and reported in the result; only
// syntax errors, unknown types and cancellation are returned as errors.
func (d *Dialog) Turn(ctx context.Context, text string) (*TurnResult, error) {
	text, err := dsl.Sanitize(text)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, domain.None, err.Error(), domain.WithCause(err))
	}
	e, err := dsl.Parse(text)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, domain.None, "cannot parse expression", domain.WithCause(err))
	}
	return d.TurnExpr(ctx, e)
}

// TurnExpr is Turn for an already parsed expression.
func (d *Dialog) TurnExpr(ctx context.Context, e *dsl.Expr) (*TurnResult, error) {
	start := time.Now()
	d.BeginTurn()
	text := e.String()
	d.logger.Debug("turn started", "turn", d.turn, "expr", text)

	root, err := d.Construct(e)
	if err != nil {
		return nil, err
	}
	root, evalErr := d.Evaluate(ctx, root)
	if evalErr != nil && isContextErr(evalErr) {
		return nil, evalErr
	}
	if !root.IsOperator() {
		d.AddGoal(root)
	}
	if evalErr != nil {
		ex := domain.AsError(evalErr, root.id)
		root.err = ex
		d.RecordException(ctx, ex, false)
	} else if desc, ok := root.Res().behavior.(Describer); ok {
		if msg := desc.Describe(root.Res()); msg != "" {
			d.messages = append(d.messages, msg)
		}
	}

	res := &TurnResult{
		Turn:       d.turn,
		Expression: text,
		Root:       root,
		Goal:       d.CurrentGoal(),
		Result:     root.Res(),
		Messages:   d.Messages(),
		Errors:     d.Exceptions(),
	}
	if d.hooks.OnTurn != nil {
		ev := &domain.TurnEvent{
			EventBase:  d.event(domain.EventTurn),
			Expression: text,
			Failed:     res.Failed(),
			Duration:   time.Since(start),
		}
		if res.Goal != nil {
			ev.Goal = res.Goal.id
		}
		d.hooks.OnTurn(ctx, ev)
	}
	return res, nil
}
