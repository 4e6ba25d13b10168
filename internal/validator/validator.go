// Package validator checks scripted dialogues against a type registry
// without evaluating them.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/pkg/dsl"
	"github.com/aretw0/tendril/pkg/graph"
)

// ValidateScript parses every turn and reports unknown types and params.
// All problems are collected into one error.
func ValidateScript(reg *graph.Registry, s *dto.Script) error {
	var errors []string
	for i, turn := range s.Turns {
		e, err := dsl.Parse(turn.Expr)
		if err != nil {
			errors = append(errors, fmt.Sprintf("turn %d: %v", i+1, err))
			continue
		}
		for _, msg := range check(reg, e) {
			errors = append(errors, fmt.Sprintf("turn %d: %s", i+1, msg))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

func check(reg *graph.Registry, e *dsl.Expr) []string {
	if e.Kind != dsl.KindCall {
		return nil
	}
	if !reg.Has(e.Name) {
		return []string{fmt.Sprintf("unknown type %q", e.Name)}
	}
	var out []string
	for _, a := range e.Args {
		if !reg.AllowsParam(e.Name, a.Name) {
			out = append(out, fmt.Sprintf("%s has no param %q", e.Name, a.Name))
		}
		out = append(out, check(reg, a.Value)...)
	}
	return out
}
