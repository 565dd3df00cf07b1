// Package storetest holds the behavior every generation store implementation must share.
// Store packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/repair"
	"github.com/jonathan/session-report/internal/types"
)

// Fixture is a fresh, empty store under test
type Fixture struct {
	Sessions generation.SessionStore
	Records  generation.RecordStore
	Failed   generation.FailedLister
	// Seed stores a session with its transcript and insights
	Seed func(t *testing.T, session types.Session, segments []types.TranscriptSegment, insights []types.Insight)
}

// NewSession returns a session owned by ownerID with a fixed start time
func NewSession(ownerID uuid.UUID) types.Session {
	return types.Session{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Title:           "Q3 renewal call",
		ClientName:      "Dana Whitfield",
		ClientCompany:   "Northwind",
		RepName:         "Sam Ortiz",
		Channel:         "zoom",
		StartedAt:       time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC),
		DurationSeconds: 1860,
	}
}

// Transcript returns n segments in order
func Transcript(n int) []types.TranscriptSegment {
	out := make([]types.TranscriptSegment, n)
	for i := range out {
		speaker := "Sam"
		if i%2 == 1 {
			speaker = "Dana"
		}
		out[i] = types.TranscriptSegment{
			Seq:     i + 1,
			Offset:  time.Duration(i*15) * time.Second,
			Speaker: speaker,
			Text:    fmt.Sprintf("Segment %d of the conversation.", i+1),
		}
	}
	return out
}

// Run exercises a store implementation
func Run(t *testing.T, newFixture func(t *testing.T) Fixture) {
	t.Run("SessionOwnership", func(t *testing.T) { testSessionOwnership(t, newFixture(t)) })
	t.Run("UpsertQueuedIdempotent", func(t *testing.T) { testUpsertQueuedIdempotent(t, newFixture(t)) })
	t.Run("ConcurrentUpsertQueued", func(t *testing.T) { testConcurrentUpsert(t, newFixture(t)) })
	t.Run("ReadyLifecycle", func(t *testing.T) { testReadyLifecycle(t, newFixture(t)) })
	t.Run("FailedThenRequeued", func(t *testing.T) { testFailedThenRequeued(t, newFixture(t)) })
	t.Run("UnknownRecord", func(t *testing.T) { testUnknownRecord(t, newFixture(t)) })
	t.Run("ListFailed", func(t *testing.T) { testListFailed(t, newFixture(t)) })
}

func testSessionOwnership(t *testing.T, f Fixture) {
	ctx := context.Background()
	owner := uuid.New()
	session := NewSession(owner)
	segments := Transcript(3)
	reversed := []types.TranscriptSegment{segments[2], segments[0], segments[1]}
	f.Seed(t, session, reversed, []types.Insight{{Kind: "sentiment", Content: "positive"}})

	got, err := f.Sessions.FindSession(ctx, session.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.ClientName, got.ClientName)
	assert.Equal(t, session.DurationSeconds, got.DurationSeconds)
	assert.True(t, session.StartedAt.Equal(got.StartedAt))

	other, err := f.Sessions.FindSession(ctx, session.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, other)

	missing, err := f.Sessions.FindSession(ctx, uuid.New(), owner)
	require.NoError(t, err)
	assert.Nil(t, missing)

	gotSegments, err := f.Sessions.FindTranscript(ctx, session.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, segments, gotSegments)

	foreign, err := f.Sessions.FindTranscript(ctx, session.ID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, foreign)

	insights, err := f.Sessions.FindInsights(ctx, session.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, []types.Insight{{Kind: "sentiment", Content: "positive"}}, insights)
}

func testUpsertQueuedIdempotent(t *testing.T, f Fixture) {
	ctx := context.Background()
	sessionID, owner := seeded(t, f)

	created, err := f.Records.UpsertQueued(ctx, sessionID, owner)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.Records.UpsertQueued(ctx, sessionID, owner)
	require.NoError(t, err)
	assert.False(t, created)

	rec, err := f.Records.FindRecord(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, types.StatusQueued, rec.Status)
	assert.Equal(t, 0, rec.Attempts)
	assert.Nil(t, rec.Report)
	assert.Nil(t, rec.LastError)
	assert.Equal(t, owner, rec.OwnerID)
}

func testConcurrentUpsert(t *testing.T, f Fixture) {
	ctx := context.Background()
	sessionID, owner := seeded(t, f)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.Records.UpsertQueued(ctx, sessionID, owner)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func testReadyLifecycle(t *testing.T, f Fixture) {
	ctx := context.Background()
	sessionID, owner := seeded(t, f)

	_, err := f.Records.UpsertQueued(ctx, sessionID, owner)
	require.NoError(t, err)
	require.NoError(t, f.Records.SetRunning(ctx, sessionID))
	assert.ErrorIs(t, f.Records.SetRunning(ctx, sessionID), generation.ErrInvalidTransition)
	require.NoError(t, f.Records.IncrementAttempts(ctx, sessionID))

	report := repair.Normalize(map[string]any{"title": "Renewal"})
	require.NoError(t, f.Records.SetReady(ctx, sessionID, report))

	rec, err := f.Records.FindRecord(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusReady, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Nil(t, rec.LastError)
	require.NotNil(t, rec.Report)
	assert.Equal(t, report, rec.Report)

	assert.ErrorIs(t, f.Records.SetRunning(ctx, sessionID), generation.ErrInvalidTransition)
}

func testFailedThenRequeued(t *testing.T, f Fixture) {
	ctx := context.Background()
	sessionID, owner := seeded(t, f)

	_, err := f.Records.UpsertQueued(ctx, sessionID, owner)
	require.NoError(t, err)
	require.NoError(t, f.Records.SetRunning(ctx, sessionID))
	require.NoError(t, f.Records.IncrementAttempts(ctx, sessionID))
	require.NoError(t, f.Records.SetFailed(ctx, sessionID, "generator unavailable"))

	rec, err := f.Records.FindRecord(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, rec.Status)
	assert.Nil(t, rec.Report)
	require.NotNil(t, rec.LastError)
	assert.Equal(t, "generator unavailable", *rec.LastError)

	require.NoError(t, f.Records.SetRunning(ctx, sessionID))
	require.NoError(t, f.Records.IncrementAttempts(ctx, sessionID))

	rec, err = f.Records.FindRecord(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, rec.Status)
	assert.Equal(t, 2, rec.Attempts)
	assert.Nil(t, rec.LastError)
}

func testUnknownRecord(t *testing.T, f Fixture) {
	ctx := context.Background()
	id := uuid.New()

	rec, err := f.Records.FindRecord(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.ErrorIs(t, f.Records.SetRunning(ctx, id), generation.ErrRecordNotFound)
	assert.ErrorIs(t, f.Records.IncrementAttempts(ctx, id), generation.ErrRecordNotFound)
	assert.Error(t, f.Records.SetFailed(ctx, id, "x"))
}

func testListFailed(t *testing.T, f Fixture) {
	ctx := context.Background()

	var failed []uuid.UUID
	for i := 0; i < 3; i++ {
		sessionID, owner := seeded(t, f)
		_, err := f.Records.UpsertQueued(ctx, sessionID, owner)
		require.NoError(t, err)
		require.NoError(t, f.Records.SetRunning(ctx, sessionID))
		if i == 1 {
			require.NoError(t, f.Records.SetReady(ctx, sessionID, repair.Normalize(nil)))
			continue
		}
		require.NoError(t, f.Records.SetFailed(ctx, sessionID, "boom"))
		failed = append(failed, sessionID)
	}

	recs, err := f.Failed.ListFailed(ctx, 0)
	require.NoError(t, err)
	got := make([]uuid.UUID, 0, len(recs))
	for _, r := range recs {
		got = append(got, r.SessionID)
		assert.Equal(t, types.StatusFailed, r.Status)
	}
	assert.ElementsMatch(t, failed, got)

	limited, err := f.Failed.ListFailed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func seeded(t *testing.T, f Fixture) (uuid.UUID, uuid.UUID) {
	owner := uuid.New()
	session := NewSession(owner)
	f.Seed(t, session, Transcript(3), nil)
	return session.ID, owner
}
