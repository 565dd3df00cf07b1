// Package validation re-checks normalized session reports against the required-field
// list of the report contract.
package validation

import (
	"fmt"
	"strings"
)

// Error represents a general validation error
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// MissingFieldsError lists required fields that are absent, null or blank
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("validation error: missing required fields: %s", strings.Join(e.Fields, ", "))
}
