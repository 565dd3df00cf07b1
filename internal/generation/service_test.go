package generation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/generation/storetest"
	"github.com/jonathan/session-report/internal/llm"
	"github.com/jonathan/session-report/internal/types"
)

// stubGenerator returns a fixed output or error and counts calls
type stubGenerator struct {
	output string
	err    error
	calls  atomic.Int32
	last   llm.Request
	mu     sync.Mutex
}

func (g *stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.last = req
	g.mu.Unlock()
	return g.output, g.err
}

func (g *stubGenerator) Close() error { return nil }

type harness struct {
	store   *generation.MemoryStore
	session types.Session
	owner   uuid.UUID
}

func newHarness(t *testing.T, segments int) *harness {
	t.Helper()
	owner := uuid.New()
	session := storetest.NewSession(owner)
	store := generation.NewMemoryStore()
	store.AddSession(session, storetest.Transcript(segments), nil)
	return &harness{store: store, session: session, owner: owner}
}

func (h *harness) record(t *testing.T) *types.GenerationRecord {
	t.Helper()
	rec, err := h.store.FindRecord(context.Background(), h.session.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

// assertTerminal checks that exactly one of report and error is set, matching the status
func assertTerminal(t *testing.T, rec *types.GenerationRecord) {
	t.Helper()
	switch rec.Status {
	case types.StatusReady:
		assert.NotNil(t, rec.Report)
		assert.Nil(t, rec.LastError)
	case types.StatusFailed:
		assert.Nil(t, rec.Report)
		assert.NotNil(t, rec.LastError)
	default:
		t.Fatalf("record is not terminal: %s", rec.Status)
	}
}

func TestGenerate_EndToEndWithSparseOutput(t *testing.T) {
	h := newHarness(t, 3)
	gen := &stubGenerator{output: `{"p1_key_points": ["a"]}`}
	svc := generation.NewService(h.store, h.store, gen)

	report, err := svc.Generate(context.Background(), h.session.ID, h.owner)
	require.NoError(t, err)
	require.NotNil(t, report)

	require.GreaterOrEqual(t, len(report.KeyPoints), 3)
	assert.True(t, strings.HasPrefix(report.KeyPoints[0], "a"))
	require.Len(t, report.StageEval, 11)
	for i, e := range report.StageEval {
		assert.Equal(t, contract.Stages[i], e.Stage)
	}
	assert.Equal(t, "Dana Whitfield", report.ClientName)
	assert.Equal(t, "2026-03-04", report.SessionDate)

	rec := h.record(t)
	assert.Equal(t, types.StatusReady, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assertTerminal(t, rec)

	assert.Contains(t, gen.last.User, "Segment 3 of the conversation.")
	assert.NotNil(t, gen.last.Schema)
}

func TestGenerate_RetryExhaustion(t *testing.T) {
	h := newHarness(t, 3)
	inner := &stubGenerator{err: errors.New("connection refused")}
	var delays []time.Duration
	retrying := llm.NewRetryingGenerator(inner, llm.DefaultRetryPolicy()).
		WithSleep(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		})
	svc := generation.NewService(h.store, h.store, retrying)

	_, err := svc.Generate(context.Background(), h.session.ID, h.owner)
	require.Error(t, err)

	var unavailable *generation.GeneratorUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)

	rec := h.record(t)
	assert.Equal(t, types.StatusFailed, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assertTerminal(t, rec)
	assert.Contains(t, *rec.LastError, "connection refused")

	// an explicit re-trigger re-queues from failed and counts one more attempt
	_, err = svc.Generate(context.Background(), h.session.ID, h.owner)
	require.Error(t, err)
	assert.Equal(t, int32(6), inner.calls.Load())
	assert.Equal(t, 2, h.record(t).Attempts)
}

func TestGenerate_TerminalStateExclusivity(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		genErr     error
		validator  func(*types.ReportArtifact) ([]string, error)
		segments   int
		wantStatus types.GenerationStatus
		wantErr    any
	}{
		{name: "success", output: `{"title": "Renewal"}`, segments: 3, wantStatus: types.StatusReady},
		{name: "prose wrapped", output: "Sure! {\"title\": \"Renewal\"} Hope that helps.", segments: 3, wantStatus: types.StatusReady},
		{name: "generator error", genErr: errors.New("503"), segments: 3, wantStatus: types.StatusFailed, wantErr: new(*generation.GeneratorUnavailableError)},
		{name: "unparsable output", output: "I cannot help with that.", segments: 3, wantStatus: types.StatusFailed, wantErr: new(*generation.UnparsableOutputError)},
		{name: "empty transcript", output: `{}`, segments: 0, wantStatus: types.StatusFailed, wantErr: new(*generation.InputNotFoundError)},
		{
			name:     "schema violation",
			output:   `{}`,
			segments: 3,
			validator: func(*types.ReportArtifact) ([]string, error) {
				return []string{"p1_key_points"}, nil
			},
			wantStatus: types.StatusFailed,
			wantErr:    new(*generation.SchemaViolationError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.segments)
			var opts []generation.Option
			if tt.validator != nil {
				opts = append(opts, generation.WithValidator(tt.validator))
			}
			svc := generation.NewService(h.store, h.store, &stubGenerator{output: tt.output, err: tt.genErr}, opts...)

			_, err := svc.Generate(context.Background(), h.session.ID, h.owner)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorAs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			rec := h.record(t)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, 1, rec.Attempts)
			assertTerminal(t, rec)
		})
	}
}

func TestGenerate_ReadyIsNoOp(t *testing.T) {
	h := newHarness(t, 3)
	gen := &stubGenerator{output: `{"title": "First"}`}
	svc := generation.NewService(h.store, h.store, gen)

	first, err := svc.Generate(context.Background(), h.session.ID, h.owner)
	require.NoError(t, err)

	gen.output = `{"title": "Second"}`
	second, err := svc.Generate(context.Background(), h.session.ID, h.owner)
	require.NoError(t, err)

	assert.Equal(t, "First", second.Title)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, 1, h.record(t).Attempts)
}

func TestGenerate_InProgressIsNotDuplicated(t *testing.T) {
	for _, status := range []types.GenerationStatus{types.StatusQueued, types.StatusRunning} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t, 3)
			ctx := context.Background()
			_, err := h.store.UpsertQueued(ctx, h.session.ID, h.owner)
			require.NoError(t, err)
			if status == types.StatusRunning {
				require.NoError(t, h.store.SetRunning(ctx, h.session.ID))
			}
			gen := &stubGenerator{output: `{}`}
			svc := generation.NewService(h.store, h.store, gen)

			_, err = svc.Generate(ctx, h.session.ID, h.owner)
			assert.ErrorIs(t, err, generation.ErrGenerationInProgress)
			assert.Equal(t, int32(0), gen.calls.Load())

			rec := h.record(t)
			assert.Equal(t, status, rec.Status)
			assert.Equal(t, 0, rec.Attempts)

			result := svc.TriggerGenerate(ctx, h.session.ID, h.owner)
			assert.True(t, result.Accepted)
			assert.Empty(t, result.Error)
		})
	}
}

func TestGenerate_UnknownSessionCreatesNoRecord(t *testing.T) {
	h := newHarness(t, 3)
	svc := generation.NewService(h.store, h.store, &stubGenerator{output: `{}`})

	for _, tc := range []struct {
		name      string
		sessionID uuid.UUID
		ownerID   uuid.UUID
	}{
		{name: "missing session", sessionID: uuid.New(), ownerID: h.owner},
		{name: "foreign owner", sessionID: h.session.ID, ownerID: uuid.New()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tc.sessionID, tc.ownerID)
			var notFound *generation.InputNotFoundError
			require.ErrorAs(t, err, &notFound)

			rec, err := h.store.FindRecord(context.Background(), tc.sessionID)
			require.NoError(t, err)
			assert.Nil(t, rec)
		})
	}
}

func TestTriggerGenerate(t *testing.T) {
	h := newHarness(t, 3)
	svc := generation.NewService(h.store, h.store, &stubGenerator{err: errors.New("boom")})

	result := svc.TriggerGenerate(context.Background(), h.session.ID, h.owner)
	assert.False(t, result.Accepted)
	assert.Contains(t, result.Error, "generator unavailable")

	h2 := newHarness(t, 3)
	svc2 := generation.NewService(h2.store, h2.store, &stubGenerator{output: `{}`})
	result = svc2.TriggerGenerate(context.Background(), h2.session.ID, h2.owner)
	assert.Equal(t, types.TriggerResult{Accepted: true}, result)
}

func TestTriggerAsync(t *testing.T) {
	h := newHarness(t, 3)
	svc := generation.NewService(h.store, h.store, &stubGenerator{output: `{"title": "Async"}`})

	ctx, cancel := context.WithCancel(context.Background())
	result := svc.TriggerAsync(ctx, h.session.ID, h.owner)
	cancel()
	assert.True(t, result.Accepted)

	require.NoError(t, svc.Close())
	rec := h.record(t)
	assert.Equal(t, types.StatusReady, rec.Status)
	assert.Equal(t, "Async", rec.Report.Title)
}

// blockingGenerator holds every call until released
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *blockingGenerator) Generate(ctx context.Context, _ llm.Request) (string, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	select {
	case <-g.release:
		return `{}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *blockingGenerator) Close() error { return nil }

func TestGenerate_ConcurrentTriggersRunOnce(t *testing.T) {
	h := newHarness(t, 3)
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	svc := generation.NewService(h.store, h.store, gen)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(ctx, h.session.ID, h.owner)
		done <- err
	}()
	<-gen.started

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(ctx, h.session.ID, h.owner)
			assert.ErrorIs(t, err, generation.ErrGenerationInProgress)
		}()
	}
	wg.Wait()

	close(gen.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, 1, h.record(t).Attempts)
}
