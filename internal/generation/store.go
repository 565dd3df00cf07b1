package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/session-report/internal/types"
)

// SessionStore reads sessions and their transcripts. Lookups are scoped to the owner:
// a session owned by someone else is reported as not found.
type SessionStore interface {
	// FindSession returns nil, nil when the session does not exist for the owner
	FindSession(ctx context.Context, sessionID, ownerID uuid.UUID) (*types.Session, error)
	// FindTranscript returns the segments in transcript order
	FindTranscript(ctx context.Context, sessionID, ownerID uuid.UUID) ([]types.TranscriptSegment, error)
	// FindInsights returns prior analysis artifacts, possibly none
	FindInsights(ctx context.Context, sessionID, ownerID uuid.UUID) ([]types.Insight, error)
}

// RecordStore persists one generation record per session.
//
// Implementations must make UpsertQueued atomic (a unique key on the session id) and
// SetRunning conditional on the current status, so concurrent triggers for one session
// cannot both start a generation.
type RecordStore interface {
	// FindRecord returns nil, nil when no record exists
	FindRecord(ctx context.Context, sessionID uuid.UUID) (*types.GenerationRecord, error)
	// UpsertQueued creates a queued record if none exists and reports whether it did
	UpsertQueued(ctx context.Context, sessionID, ownerID uuid.UUID) (created bool, err error)
	// SetRunning moves a queued or failed record to running and clears its error.
	// Any other current status yields ErrInvalidTransition.
	SetRunning(ctx context.Context, sessionID uuid.UUID) error
	// IncrementAttempts adds one to the attempts counter
	IncrementAttempts(ctx context.Context, sessionID uuid.UUID) error
	// SetReady stores the artifact, marks the record ready and clears any error
	SetReady(ctx context.Context, sessionID uuid.UUID, report *types.ReportArtifact) error
	// SetFailed stores the message and marks the record failed
	SetFailed(ctx context.Context, sessionID uuid.UUID, message string) error
}

// FailedLister lists failed records so they can be re-triggered explicitly
type FailedLister interface {
	ListFailed(ctx context.Context, limit int) ([]types.GenerationRecord, error)
}
