package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/generation/storetest"
	"github.com/jonathan/session-report/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Fixture {
		s := newTestStore(t)
		return storetest.Fixture{
			Sessions: s,
			Records:  s,
			Failed:   s,
			Seed: func(t *testing.T, session types.Session, segments []types.TranscriptSegment, insights []types.Insight) {
				ctx := context.Background()
				require.NoError(t, s.CreateSession(ctx, &session))
				require.NoError(t, s.AddTranscriptSegments(ctx, session.ID, segments))
				for _, in := range insights {
					require.NoError(t, s.AddInsight(ctx, session.ID, in))
				}
			},
		}
	})
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	session := storetest.NewSession(uuid.New())
	require.NoError(t, s.CreateSession(ctx, &session))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FindSession(ctx, session.ID, session.OwnerID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Title, got.Title)
}

func TestSetFailed_RequiresRunning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := storetest.NewSession(uuid.New())
	require.NoError(t, s.CreateSession(ctx, &session))
	_, err := s.UpsertQueued(ctx, session.ID, session.OwnerID)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetFailed(ctx, session.ID, "boom"), generation.ErrInvalidTransition)

	rec, err := s.FindRecord(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, types.StatusQueued, rec.Status)
	assert.Nil(t, rec.LastError)
}

func TestListFailed_OldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		session := storetest.NewSession(uuid.New())
		require.NoError(t, s.CreateSession(ctx, &session))
		_, err := s.UpsertQueued(ctx, session.ID, session.OwnerID)
		require.NoError(t, err)
		require.NoError(t, s.SetRunning(ctx, session.ID))
		require.NoError(t, s.SetFailed(ctx, session.ID, "generator unavailable"))
		ids = append(ids, session.ID)
	}

	recs, err := s.ListFailed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ids[0], recs[0].SessionID)
	assert.Equal(t, ids[1], recs[1].SessionID)
	require.NotNil(t, recs[0].LastError)
	assert.Equal(t, "generator unavailable", *recs[0].LastError)
}
