package schema

import "fmt"

// ValidationError represents a single declaration failure.
type ValidationError struct {
	Record string // Record type name
	Field  string // Field name, empty for record level failures
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("type %q: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("type %q field %q: %s", e.Record, e.Field, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
