// Package generation runs the session report pipeline and tracks its persisted state:
// load inputs, assemble the prompt, call the generator, parse, repair, validate, and
// record exactly one terminal outcome per attempt.
package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrGenerationInProgress is returned when a report for the session is already queued or running
var ErrGenerationInProgress = errors.New("report generation already in progress")

// ErrInvalidTransition is returned by record stores when a status change is not allowed
// from the record's current status
var ErrInvalidTransition = errors.New("invalid generation status transition")

// ErrRecordNotFound is returned by record stores when no record exists for the session
var ErrRecordNotFound = errors.New("generation record not found")

// InputNotFoundError is returned when the session or its transcript is missing
type InputNotFoundError struct {
	SessionID uuid.UUID
	Message   string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input not found for session %s: %s", e.SessionID, e.Message)
}

// GeneratorUnavailableError is returned when the generator failed after every retry
type GeneratorUnavailableError struct {
	Cause error
}

func (e *GeneratorUnavailableError) Error() string {
	return fmt.Sprintf("generator unavailable: %v", e.Cause)
}

func (e *GeneratorUnavailableError) Unwrap() error {
	return e.Cause
}

// UnparsableOutputError is returned when no JSON object could be extracted from the
// generator output
type UnparsableOutputError struct {
	Cause error
}

func (e *UnparsableOutputError) Error() string {
	return fmt.Sprintf("unparsable generator output: %v", e.Cause)
}

func (e *UnparsableOutputError) Unwrap() error {
	return e.Cause
}

// SchemaViolationError is returned when a normalized artifact still lacks required fields.
// It indicates a repair defect and is not retried.
type SchemaViolationError struct {
	Missing []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("report is missing required fields after repair: %s", strings.Join(e.Missing, ", "))
}
