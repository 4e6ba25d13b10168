package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/internal/validator"
	"github.com/aretw0/tendril/pkg/domain"
)

// ScriptSummary counts the outcome of a scripted run.
type ScriptSummary struct {
	Turns      int
	Mismatches []string
}

// OK reports whether every turn behaved as expected.
func (s *ScriptSummary) OK() bool {
	return len(s.Mismatches) == 0
}

// LoadScript reads and validates a script file against the engine types.
func LoadScript(engine *tendril.Engine, path string) (*dto.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := dto.DecodeScript(data)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateScript(engine.Registry(), s); err != nil {
		return nil, err
	}
	return s, nil
}

// RunScript evaluates every turn of s in a fresh dialogue and prints each
// report to w. A turn without expectations is unexpected when it fails
// with anything but a question.
func RunScript(ctx context.Context, engine *tendril.Engine, s *dto.Script, w io.Writer) (*ScriptSummary, error) {
	d := engine.NewDialog()
	sum := &ScriptSummary{}
	for i, turn := range s.Turns {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Turns++
		fmt.Fprintf(w, "> %s\n", turn.Expr)

		res, err := d.Turn(ctx, turn.Expr)
		if err != nil && ctx.Err() != nil {
			return sum, err
		}
		var rep *domain.TurnReport
		if err != nil {
			// Rejected before evaluation: report it like an evaluation failure.
			rep = &domain.TurnReport{Turn: d.CurrentTurn(), Expression: turn.Expr, Errors: []*domain.Error{asDomainError(err)}}
		} else {
			rep = res.Report(s.Name)
		}
		fmt.Fprintln(w, strings.TrimSpace(tendril.FormatReport(rep)))
		fmt.Fprintln(w)

		for _, problem := range check(rep, turn.Expect) {
			sum.Mismatches = append(sum.Mismatches, fmt.Sprintf("turn %d (%s): %s", i+1, turn.Expr, problem))
		}
	}
	return sum, nil
}

func asDomainError(err error) *domain.Error {
	var e *domain.Error
	if errors.As(err, &e) {
		return e
	}
	return domain.NewError(domain.KindInvalidInput, domain.None, err.Error(), domain.WithCause(err))
}

func check(rep *domain.TurnReport, want *dto.Expectation) []string {
	var problems []string
	if want == nil {
		for _, e := range rep.Errors {
			if !e.Kind.IsRequest() {
				problems = append(problems, fmt.Sprintf("unexpected %s: %s", e.Kind, e.Message))
			}
		}
		return problems
	}

	if want.Failed != nil && *want.Failed != rep.Failed() {
		problems = append(problems, fmt.Sprintf("failed = %v, want %v", rep.Failed(), *want.Failed))
	}
	if want.Kind != "" {
		got := ""
		if len(rep.Errors) > 0 {
			got = string(rep.Errors[0].Kind)
		}
		if got != want.Kind {
			problems = append(problems, fmt.Sprintf("kind = %q, want %q", got, want.Kind))
		}
	}
	if want.Result != "" && rep.Result != want.Result {
		problems = append(problems, fmt.Sprintf("result = %s, want %s", rep.Result, want.Result))
	}
	if want.Message != "" && !slices.ContainsFunc(rep.Messages, func(m string) bool {
		return strings.Contains(m, want.Message)
	}) {
		problems = append(problems, fmt.Sprintf("no message containing %q", want.Message))
	}
	return problems
}
