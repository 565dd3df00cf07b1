package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/session-report/internal/generation"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrReportNotRequested indicates no generation has been triggered for the session yet
type ErrReportNotRequested struct{}

func (e *ErrReportNotRequested) Error() string {
	return "no report has been requested for this session"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr  *ErrValidation
		notRequested   *ErrReportNotRequested
		inputErr       *generation.InputNotFoundError
		unavailableErr *generation.GeneratorUnavailableError
		unparsableErr  *generation.UnparsableOutputError
		schemaErr      *generation.SchemaViolationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notRequested), errors.As(err, &inputErr):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.As(err, &unavailableErr), errors.As(err, &unparsableErr):
		return http.StatusBadGateway
	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
