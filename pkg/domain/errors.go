package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a structured engine error.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindInvalidResult        Kind = "invalid_result"
	KindElementNotFound      Kind = "element_not_found"
	KindSingletonCardinality Kind = "singleton_cardinality"
	KindNoReviseMatch        Kind = "no_revise_match"
	KindConfirmationNeeded   Kind = "confirmation_needed"
	KindMoreInputNeeded      Kind = "more_input_needed"
	KindOracleOverride       Kind = "oracle_override"
)

// Sentinels matched by errors.Is against any *Error of the same Kind.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidResult        = errors.New("invalid result")
	ErrElementNotFound      = errors.New("element not found")
	ErrSingletonCardinality = errors.New("singleton cardinality")
	ErrNoReviseMatch        = errors.New("no revise match")
	ErrConfirmationNeeded   = errors.New("confirmation needed")
	ErrMoreInputNeeded      = errors.New("more input needed")
	ErrOracleOverride       = errors.New("oracle override")
)

// ErrDialogueNotFound is returned when a dialogue ID cannot be found in the store.
var ErrDialogueNotFound = errors.New("dialogue not found")

var sentinels = map[Kind]error{
	KindInvalidInput:         ErrInvalidInput,
	KindInvalidResult:        ErrInvalidResult,
	KindElementNotFound:      ErrElementNotFound,
	KindSingletonCardinality: ErrSingletonCardinality,
	KindNoReviseMatch:        ErrNoReviseMatch,
	KindConfirmationNeeded:   ErrConfirmationNeeded,
	KindMoreInputNeeded:      ErrMoreInputNeeded,
	KindOracleOverride:       ErrOracleOverride,
}

// IsRequest reports whether the kind is a request for the next user turn
// rather than a failure.
func (k Kind) IsRequest() bool {
	return k == KindConfirmationNeeded || k == KindMoreInputNeeded
}

// Error is a user-visible failure raised while evaluating a node.
// Suggestions are P-expressions the next turn may execute verbatim.
type Error struct {
	Kind        Kind     `json:"kind"`
	Message     string   `json:"message"`
	NodeID      NodeID   `json:"node_id,omitempty"`
	Hints       []string `json:"hints,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Cause       error    `json:"-"`
	// Chain holds the errors this one replaced, oldest first.
	Chain []*Error `json:"chain,omitempty"`
}

// ErrorOption decorates an Error at construction.
type ErrorOption func(*Error)

// WithHints attaches human readable hints.
func WithHints(hints ...string) ErrorOption {
	return func(e *Error) {
		e.Hints = append(e.Hints, hints...)
	}
}

// WithSuggestions attaches repair expressions.
func WithSuggestions(exprs ...string) ErrorOption {
	return func(e *Error) {
		e.Suggestions = append(e.Suggestions, exprs...)
	}
}

// WithCause records the origin error.
func WithCause(err error) ErrorOption {
	return func(e *Error) {
		e.Cause = err
	}
}

// NewError creates a structured error of the given kind attached to a node.
func NewError(kind Kind, node NodeID, msg string, opts ...ErrorOption) *Error {
	e := &Error{Kind: kind, Message: msg, NodeID: node}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Errorf is NewError with a formatted message.
func Errorf(kind Kind, node NodeID, format string, args ...any) *Error {
	return NewError(kind, node, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.NodeID != None {
		fmt.Fprintf(&b, " at %s", e.NodeID)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinel (e.g. ErrElementNotFound).
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && s == target {
		return true
	}
	return false
}

// Replace returns a copy of next whose chain records e as its predecessor.
func (e *Error) Replace(next *Error) *Error {
	out := *next
	out.Chain = append(append(append([]*Error{}, e.Chain...), e), next.Chain...)
	if out.Cause == nil {
		out.Cause = e
	}
	return &out
}

// AsError converts any error into a structured *Error, wrapping foreign
// errors as InvalidResult.
func AsError(err error, node NodeID) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(KindInvalidResult, node, "evaluation failed", WithCause(err))
}

// KindOf returns the kind of a structured error or the empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
