package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/types"
)

// -----------------------------------------------------------------------------
// Report Generation Methods
// -----------------------------------------------------------------------------

const recordColumns = `session_id, owner_id, status, attempts, report, last_error, created_at, updated_at`

// FindRecord returns the generation record for a session, or nil if none exists
func (db *DB) FindRecord(ctx context.Context, sessionID uuid.UUID) (*types.GenerationRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM report_generations WHERE session_id = $1`,
		sessionID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find generation record: %w", err)
	}
	return rec, nil
}

// UpsertQueued inserts a queued record unless one already exists for the session.
// The primary key makes this safe under concurrent callers.
func (db *DB) UpsertQueued(ctx context.Context, sessionID, ownerID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO report_generations (session_id, owner_id, status)
		 VALUES ($1, $2, 'queued')
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to queue generation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetRunning moves a queued or failed record to running and clears its error
func (db *DB) SetRunning(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE report_generations
		 SET status = 'running', last_error = NULL, report = NULL, updated_at = NOW()
		 WHERE session_id = $1 AND status IN ('queued', 'failed')`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark generation running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.transitionError(ctx, sessionID)
	}
	return nil
}

// IncrementAttempts adds one to the attempts counter
func (db *DB) IncrementAttempts(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE report_generations SET attempts = attempts + 1, updated_at = NOW() WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return generation.ErrRecordNotFound
	}
	return nil
}

// SetReady stores the report and marks a running record ready
func (db *DB) SetReady(ctx context.Context, sessionID uuid.UUID, report *types.ReportArtifact) error {
	if report == nil {
		return fmt.Errorf("failed to mark generation ready: report is nil")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE report_generations
		 SET status = 'ready', report = $2, last_error = NULL, updated_at = NOW()
		 WHERE session_id = $1 AND status = 'running'`,
		sessionID, data,
	)
	if err != nil {
		return fmt.Errorf("failed to mark generation ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.transitionError(ctx, sessionID)
	}
	return nil
}

// SetFailed records the error and marks a running record failed. Any stored report is
// cleared so that a record never carries both a report and an error.
func (db *DB) SetFailed(ctx context.Context, sessionID uuid.UUID, message string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE report_generations
		 SET status = 'failed', last_error = $2, report = NULL, updated_at = NOW()
		 WHERE session_id = $1 AND status = 'running'`,
		sessionID, message,
	)
	if err != nil {
		return fmt.Errorf("failed to mark generation failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.transitionError(ctx, sessionID)
	}
	return nil
}

// ListFailed returns failed records, least recently updated first. A limit of zero
// returns all of them.
func (db *DB) ListFailed(ctx context.Context, limit int) ([]types.GenerationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM report_generations
		 WHERE status = 'failed'
		 ORDER BY updated_at, session_id
		 LIMIT NULLIF($1, 0)`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed generations: %w", err)
	}
	defer rows.Close()

	var records []types.GenerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read failed generations: %w", err)
	}
	return records, nil
}

// transitionError distinguishes a missing record from a status that does not allow
// the requested change
func (db *DB) transitionError(ctx context.Context, sessionID uuid.UUID) error {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM report_generations WHERE session_id = $1)`,
		sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check generation record: %w", err)
	}
	if !exists {
		return generation.ErrRecordNotFound
	}
	return generation.ErrInvalidTransition
}

func scanRecord(row pgx.Row) (*types.GenerationRecord, error) {
	var rec types.GenerationRecord
	var status string
	var report []byte
	err := row.Scan(&rec.SessionID, &rec.OwnerID, &status, &rec.Attempts, &report,
		&rec.LastError, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = types.GenerationStatus(status)
	if len(report) > 0 {
		var artifact types.ReportArtifact
		if err := json.Unmarshal(report, &artifact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		rec.Report = &artifact
	}
	return &rec, nil
}
