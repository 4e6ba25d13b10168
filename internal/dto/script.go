// Package dto holds the file formats read by the CLI.
package dto

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Script is a scripted dialogue, as run by "tendril eval".
// It uses "mapstructure" tags to match the YAML keys.
type Script struct {
	Name   string            `json:"name" mapstructure:"name"`
	Labels map[string]string `json:"labels" mapstructure:"labels"`
	Turns  []ScriptTurn      `json:"turns" mapstructure:"turns" validate:"required,min=1,dive"`
}

// ScriptTurn is one user turn and what it is expected to produce.
type ScriptTurn struct {
	Expr   string       `json:"expr" mapstructure:"expr" validate:"required"`
	Expect *Expectation `json:"expect" mapstructure:"expect"`
}

// Expectation describes the outcome of a turn. Empty fields are not checked.
type Expectation struct {
	// Failed requires the turn to end with (or without) exceptions.
	Failed *bool `json:"failed" mapstructure:"failed"`
	// Kind is the kind of the first exception.
	Kind string `json:"kind" mapstructure:"kind" validate:"omitempty,oneof=invalid_input invalid_result element_not_found singleton_cardinality no_revise_match confirmation_needed more_input_needed oracle_override"`
	// Result is the canonical P-expression of the turn result.
	Result string `json:"result" mapstructure:"result"`
	// Message must appear among the turn messages.
	Message string `json:"message" mapstructure:"message"`
}

var validate = validator.New()

// DecodeScript parses a YAML script. A bare list of strings is accepted
// as a script with no expectations.
func DecodeScript(data []byte) (*Script, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if list, ok := raw.([]any); ok {
		turns := make([]any, len(list))
		for i, v := range list {
			turns[i] = map[string]any{"expr": v}
		}
		raw = map[string]any{"turns": turns}
	}

	var s Script
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &s,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &s, nil
}
