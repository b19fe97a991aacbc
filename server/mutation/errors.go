package mutation

import "fmt"

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + " " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MissingOccurrenceDateError is returned when a scope that targets a single
// instant is used without occurrenceDate. It unwraps to a *ValidationError.
type MissingOccurrenceDateError struct {
	Scope Scope
}

func (e *MissingOccurrenceDateError) Error() string {
	return fmt.Sprintf("occurrenceDate is required when scope is %q", e.Scope)
}

func (e *MissingOccurrenceDateError) Unwrap() error {
	return &ValidationError{Field: "occurrenceDate", Message: "is required for " + string(e.Scope)}
}
