package types

import (
	"time"

	"github.com/google/uuid"
)

// GenerationStatus is the lifecycle state of a report generation record
type GenerationStatus string

// GenerationStatus constants
const (
	StatusQueued  GenerationStatus = "queued"
	StatusRunning GenerationStatus = "running"
	StatusReady   GenerationStatus = "ready"
	StatusFailed  GenerationStatus = "failed"
)

// Valid reports whether s is one of the known statuses
func (s GenerationStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends a generation attempt
func (s GenerationStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// GenerationRecord is the persisted state of report generation for one session.
// Report is non-nil iff Status is ready; LastError is non-nil iff Status is failed.
type GenerationRecord struct {
	SessionID uuid.UUID        `json:"session_id"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	Status    GenerationStatus `json:"status"`
	Attempts  int              `json:"attempts"`
	Report    *ReportArtifact  `json:"report,omitempty"`
	LastError *string          `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TriggerResult reports whether a generation trigger was accepted
type TriggerResult struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}
