package parsing

import "fmt"

// ParseError represents a failure to recover a JSON object from generator output
type ParseError struct {
	Message string
	Preview string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error: %s", e.Message)
	if e.Preview != "" {
		msg += fmt.Sprintf(" (output starts %q)", e.Preview)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
