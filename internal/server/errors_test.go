package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/session-report/internal/generation"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "id", Message: "must be a UUID"}
	assert.Equal(t, "validation error: id - must be a UUID", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &ErrValidation{Field: "id"}, http.StatusBadRequest},
		{"not requested", &ErrReportNotRequested{}, http.StatusNotFound},
		{"input not found", &generation.InputNotFoundError{SessionID: uuid.New(), Message: "session"}, http.StatusNotFound},
		{"in progress", generation.ErrGenerationInProgress, http.StatusConflict},
		{"wrapped in progress", fmt.Errorf("trigger: %w", generation.ErrGenerationInProgress), http.StatusConflict},
		{"generator unavailable", &generation.GeneratorUnavailableError{Cause: errors.New("503")}, http.StatusBadGateway},
		{"unparsable", &generation.UnparsableOutputError{Cause: errors.New("no JSON")}, http.StatusBadGateway},
		{"schema violation", &generation.SchemaViolationError{Missing: []string{"title"}}, http.StatusInternalServerError},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
