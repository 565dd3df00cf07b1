package generation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/session-report/internal/types"
)

// MemoryStore is an in-process SessionStore, RecordStore and FailedLister. It backs
// single-shot CLI runs and tests.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]types.Session
	transcripts map[uuid.UUID][]types.TranscriptSegment
	insights    map[uuid.UUID][]types.Insight
	records     map[uuid.UUID]*types.GenerationRecord
	now         func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[uuid.UUID]types.Session),
		transcripts: make(map[uuid.UUID][]types.TranscriptSegment),
		insights:    make(map[uuid.UUID][]types.Insight),
		records:     make(map[uuid.UUID]*types.GenerationRecord),
		now:         time.Now,
	}
}

// AddSession stores a session with its transcript and insights, replacing any previous copy
func (m *MemoryStore) AddSession(session types.Session, segments []types.TranscriptSegment, insights []types.Insight) {
	m.mu.Lock()
	defer m.mu.Unlock()

	segs := append([]types.TranscriptSegment(nil), segments...)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Seq < segs[j].Seq })
	m.sessions[session.ID] = session
	m.transcripts[session.ID] = segs
	m.insights[session.ID] = append([]types.Insight(nil), insights...)
}

// FindSession implements SessionStore
func (m *MemoryStore) FindSession(_ context.Context, sessionID, ownerID uuid.UUID) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.OwnerID != ownerID {
		return nil, nil
	}
	return &s, nil
}

// FindTranscript implements SessionStore
func (m *MemoryStore) FindTranscript(_ context.Context, sessionID, ownerID uuid.UUID) ([]types.TranscriptSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; !ok || s.OwnerID != ownerID {
		return nil, nil
	}
	return append([]types.TranscriptSegment(nil), m.transcripts[sessionID]...), nil
}

// FindInsights implements SessionStore
func (m *MemoryStore) FindInsights(_ context.Context, sessionID, ownerID uuid.UUID) ([]types.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; !ok || s.OwnerID != ownerID {
		return nil, nil
	}
	return append([]types.Insight(nil), m.insights[sessionID]...), nil
}

// FindRecord implements RecordStore
func (m *MemoryStore) FindRecord(_ context.Context, sessionID uuid.UUID) (*types.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// UpsertQueued implements RecordStore
func (m *MemoryStore) UpsertQueued(_ context.Context, sessionID, ownerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[sessionID]; ok {
		return false, nil
	}
	now := m.now()
	m.records[sessionID] = &types.GenerationRecord{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Status:    types.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return true, nil
}

// SetRunning implements RecordStore
func (m *MemoryStore) SetRunning(_ context.Context, sessionID uuid.UUID) error {
	return m.update(sessionID, func(rec *types.GenerationRecord) error {
		if rec.Status != types.StatusQueued && rec.Status != types.StatusFailed {
			return ErrInvalidTransition
		}
		rec.Status = types.StatusRunning
		rec.LastError = nil
		return nil
	})
}

// IncrementAttempts implements RecordStore
func (m *MemoryStore) IncrementAttempts(_ context.Context, sessionID uuid.UUID) error {
	return m.update(sessionID, func(rec *types.GenerationRecord) error {
		rec.Attempts++
		return nil
	})
}

// SetReady implements RecordStore
func (m *MemoryStore) SetReady(_ context.Context, sessionID uuid.UUID, report *types.ReportArtifact) error {
	return m.update(sessionID, func(rec *types.GenerationRecord) error {
		if rec.Status != types.StatusRunning {
			return ErrInvalidTransition
		}
		rec.Status = types.StatusReady
		rec.Report = report
		rec.LastError = nil
		return nil
	})
}

// SetFailed implements RecordStore
func (m *MemoryStore) SetFailed(_ context.Context, sessionID uuid.UUID, message string) error {
	return m.update(sessionID, func(rec *types.GenerationRecord) error {
		if rec.Status != types.StatusRunning {
			return ErrInvalidTransition
		}
		rec.Status = types.StatusFailed
		rec.Report = nil
		rec.LastError = &message
		return nil
	})
}

// ListFailed implements FailedLister, oldest update first
func (m *MemoryStore) ListFailed(_ context.Context, limit int) ([]types.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.GenerationRecord
	for _, rec := range m.records {
		if rec.Status == types.StatusFailed {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].SessionID.String() < out[j].SessionID.String()
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) update(sessionID uuid.UUID, fn func(rec *types.GenerationRecord) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return ErrRecordNotFound
	}
	if err := fn(rec); err != nil {
		return err
	}
	rec.UpdatedAt = m.now()
	return nil
}
