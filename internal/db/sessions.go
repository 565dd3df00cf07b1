package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/session-report/internal/types"
)

// -----------------------------------------------------------------------------
// Session Methods
// -----------------------------------------------------------------------------

// CreateSession inserts a session. A nil ID is replaced with a new one.
func (db *DB) CreateSession(ctx context.Context, s *types.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var startedAt *time.Time
	if !s.StartedAt.IsZero() {
		startedAt = &s.StartedAt
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, owner_id, title, client_name, client_company, rep_name,
		                       channel, started_at, duration_seconds, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		s.ID, s.OwnerID, s.Title, s.ClientName, s.ClientCompany, s.RepName,
		s.Channel, startedAt, s.DurationSeconds, s.Notes,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// AddTranscriptSegments appends segments to a session transcript in one batch
func (db *DB) AddTranscriptSegments(ctx context.Context, sessionID uuid.UUID, segments []types.TranscriptSegment) error {
	if len(segments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, seg := range segments {
		batch.Queue(
			`INSERT INTO transcript_segments (session_id, seq, offset_ms, speaker, text)
			 VALUES ($1, $2, $3, $4, $5)`,
			sessionID, seg.Seq, seg.Offset.Milliseconds(), seg.Speaker, seg.Text,
		)
	}
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to add transcript segments: %w", err)
	}
	return nil
}

// AddInsight attaches a prior analysis artifact to a session
func (db *DB) AddInsight(ctx context.Context, sessionID uuid.UUID, insight types.Insight) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO session_insights (session_id, kind, content) VALUES ($1, $2, $3)`,
		sessionID, insight.Kind, insight.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to add insight: %w", err)
	}
	return nil
}

// FindSession returns the session if it belongs to ownerID, or nil if not found
func (db *DB) FindSession(ctx context.Context, sessionID, ownerID uuid.UUID) (*types.Session, error) {
	var s types.Session
	var startedAt *time.Time
	err := db.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, client_name, client_company, rep_name, channel,
		        started_at, duration_seconds, notes, created_at
		 FROM sessions
		 WHERE id = $1 AND owner_id = $2`,
		sessionID, ownerID,
	).Scan(&s.ID, &s.OwnerID, &s.Title, &s.ClientName, &s.ClientCompany, &s.RepName, &s.Channel,
		&startedAt, &s.DurationSeconds, &s.Notes, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if startedAt != nil {
		s.StartedAt = *startedAt
	}
	return &s, nil
}

// FindTranscript returns the session transcript ordered by sequence number. Sessions of
// other owners yield no segments.
func (db *DB) FindTranscript(ctx context.Context, sessionID, ownerID uuid.UUID) ([]types.TranscriptSegment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT t.seq, t.offset_ms, t.speaker, t.text
		 FROM transcript_segments t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.session_id = $1 AND s.owner_id = $2
		 ORDER BY t.seq`,
		sessionID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()

	var segments []types.TranscriptSegment
	for rows.Next() {
		var seg types.TranscriptSegment
		var offsetMs int64
		if err := rows.Scan(&seg.Seq, &offsetMs, &seg.Speaker, &seg.Text); err != nil {
			return nil, fmt.Errorf("failed to scan transcript segment: %w", err)
		}
		seg.Offset = time.Duration(offsetMs) * time.Millisecond
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return segments, nil
}

// FindInsights returns prior analysis artifacts in insertion order
func (db *DB) FindInsights(ctx context.Context, sessionID, ownerID uuid.UUID) ([]types.Insight, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT i.kind, i.content
		 FROM session_insights i
		 JOIN sessions s ON s.id = i.session_id
		 WHERE i.session_id = $1 AND s.owner_id = $2
		 ORDER BY i.id`,
		sessionID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []types.Insight
	for rows.Next() {
		var in types.Insight
		if err := rows.Scan(&in.Kind, &in.Content); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read insights: %w", err)
	}
	return insights, nil
}
