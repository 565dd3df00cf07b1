// Package sqlite is a single-file SessionStore and RecordStore for local runs. It keeps
// the same tables and transition rules as the PostgreSQL store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/types"
)

// Store implements the generation stores backed by a SQLite database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) a SQLite database and applies the schema
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers, which is what makes the conditional
	// updates below race-free.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ---------- Sessions ----------

// CreateSession inserts a session. A nil ID is replaced with a new one.
func (s *Store) CreateSession(ctx context.Context, session *types.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	var startedAt sql.NullInt64
	if !session.StartedAt.IsZero() {
		startedAt = sql.NullInt64{Int64: session.StartedAt.UnixNano(), Valid: true}
	}
	session.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, title, client_name, client_company, rep_name,
		                       channel, started_at, duration_seconds, notes, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		session.ID.String(), session.OwnerID.String(), session.Title, session.ClientName,
		session.ClientCompany, session.RepName, session.Channel, startedAt,
		session.DurationSeconds, session.Notes, session.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// AddTranscriptSegments appends segments to a session transcript in one transaction
func (s *Store) AddTranscriptSegments(ctx context.Context, sessionID uuid.UUID, segments []types.TranscriptSegment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, seg := range segments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_segments (session_id, seq, offset_ms, speaker, text) VALUES (?,?,?,?,?)`,
			sessionID.String(), seg.Seq, seg.Offset.Milliseconds(), seg.Speaker, seg.Text,
		)
		if err != nil {
			return fmt.Errorf("insert transcript segment %d: %w", seg.Seq, err)
		}
	}
	return tx.Commit()
}

// AddInsight attaches a prior analysis artifact to a session
func (s *Store) AddInsight(ctx context.Context, sessionID uuid.UUID, insight types.Insight) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_insights (session_id, kind, content) VALUES (?,?,?)`,
		sessionID.String(), insight.Kind, insight.Content,
	)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// FindSession implements generation.SessionStore
func (s *Store) FindSession(ctx context.Context, sessionID, ownerID uuid.UUID) (*types.Session, error) {
	var session types.Session
	var id, owner string
	var startedAt sql.NullInt64
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, client_name, client_company, rep_name, channel,
		        started_at, duration_seconds, notes, created_at
		 FROM sessions WHERE id = ? AND owner_id = ?`,
		sessionID.String(), ownerID.String(),
	).Scan(&id, &owner, &session.Title, &session.ClientName, &session.ClientCompany,
		&session.RepName, &session.Channel, &startedAt, &session.DurationSeconds,
		&session.Notes, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	if session.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if session.OwnerID, err = uuid.Parse(owner); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	if startedAt.Valid {
		session.StartedAt = time.Unix(0, startedAt.Int64).UTC()
	}
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	return &session, nil
}

// FindTranscript implements generation.SessionStore
func (s *Store) FindTranscript(ctx context.Context, sessionID, ownerID uuid.UUID) ([]types.TranscriptSegment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.seq, t.offset_ms, t.speaker, t.text
		 FROM transcript_segments t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.session_id = ? AND s.owner_id = ?
		 ORDER BY t.seq`,
		sessionID.String(), ownerID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var segments []types.TranscriptSegment
	for rows.Next() {
		var seg types.TranscriptSegment
		var offsetMs int64
		if err := rows.Scan(&seg.Seq, &offsetMs, &seg.Speaker, &seg.Text); err != nil {
			return nil, err
		}
		seg.Offset = time.Duration(offsetMs) * time.Millisecond
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// FindInsights implements generation.SessionStore
func (s *Store) FindInsights(ctx context.Context, sessionID, ownerID uuid.UUID) ([]types.Insight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.kind, i.content
		 FROM session_insights i
		 JOIN sessions s ON s.id = i.session_id
		 WHERE i.session_id = ? AND s.owner_id = ?
		 ORDER BY i.id`,
		sessionID.String(), ownerID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var insights []types.Insight
	for rows.Next() {
		var in types.Insight
		if err := rows.Scan(&in.Kind, &in.Content); err != nil {
			return nil, err
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

// ---------- Generation records ----------

const recordColumns = `session_id, owner_id, status, attempts, report, last_error, created_at, updated_at`

// FindRecord implements generation.RecordStore
func (s *Store) FindRecord(ctx context.Context, sessionID uuid.UUID) (*types.GenerationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM report_generations WHERE session_id = ?`,
		sessionID.String(),
	)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query generation record: %w", err)
	}
	return rec, nil
}

// UpsertQueued implements generation.RecordStore
func (s *Store) UpsertQueued(ctx context.Context, sessionID, ownerID uuid.UUID) (bool, error) {
	now := s.now().UnixNano()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO report_generations (session_id, owner_id, status, created_at, updated_at)
		 VALUES (?, ?, 'queued', ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID.String(), ownerID.String(), now, now,
	)
	if err != nil {
		return false, fmt.Errorf("queue generation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetRunning implements generation.RecordStore
func (s *Store) SetRunning(ctx context.Context, sessionID uuid.UUID) error {
	return s.transition(ctx, sessionID,
		`UPDATE report_generations
		 SET status = 'running', last_error = NULL, report = NULL, updated_at = ?
		 WHERE session_id = ? AND status IN ('queued', 'failed')`,
		s.now().UnixNano(), sessionID.String(),
	)
}

// IncrementAttempts implements generation.RecordStore
func (s *Store) IncrementAttempts(ctx context.Context, sessionID uuid.UUID) error {
	return s.transition(ctx, sessionID,
		`UPDATE report_generations SET attempts = attempts + 1, updated_at = ? WHERE session_id = ?`,
		s.now().UnixNano(), sessionID.String(),
	)
}

// SetReady implements generation.RecordStore
func (s *Store) SetReady(ctx context.Context, sessionID uuid.UUID, report *types.ReportArtifact) error {
	if report == nil {
		return fmt.Errorf("set ready: report is nil")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.transition(ctx, sessionID,
		`UPDATE report_generations
		 SET status = 'ready', report = ?, last_error = NULL, updated_at = ?
		 WHERE session_id = ? AND status = 'running'`,
		string(data), s.now().UnixNano(), sessionID.String(),
	)
}

// SetFailed implements generation.RecordStore. Any stored report is cleared.
func (s *Store) SetFailed(ctx context.Context, sessionID uuid.UUID, message string) error {
	return s.transition(ctx, sessionID,
		`UPDATE report_generations
		 SET status = 'failed', last_error = ?, report = NULL, updated_at = ?
		 WHERE session_id = ? AND status = 'running'`,
		message, s.now().UnixNano(), sessionID.String(),
	)
}

// ListFailed implements generation.FailedLister, oldest update first. A limit of zero
// returns every failed record.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]types.GenerationRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		 FROM report_generations
		 WHERE status = 'failed'
		 ORDER BY updated_at, session_id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query failed generations: %w", err)
	}
	defer rows.Close()

	var records []types.GenerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// transition runs a conditional update. When no row matched it reports whether the
// record is missing or in a status that forbids the change.
func (s *Store) transition(ctx context.Context, sessionID uuid.UUID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update generation record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM report_generations WHERE session_id = ?)`,
		sessionID.String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check generation record: %w", err)
	}
	if !exists {
		return generation.ErrRecordNotFound
	}
	return generation.ErrInvalidTransition
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.GenerationRecord, error) {
	var rec types.GenerationRecord
	var sessionID, ownerID, status string
	var report, lastError sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&sessionID, &ownerID, &status, &rec.Attempts, &report, &lastError, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if rec.SessionID, err = uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if rec.OwnerID, err = uuid.Parse(ownerID); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	rec.Status = types.GenerationStatus(status)
	if report.Valid {
		var artifact types.ReportArtifact
		if err := json.Unmarshal([]byte(report.String), &artifact); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		rec.Report = &artifact
	}
	if lastError.Valid {
		msg := lastError.String
		rec.LastError = &msg
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &rec, nil
}
