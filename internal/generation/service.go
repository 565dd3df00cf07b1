package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/llm"
	"github.com/jonathan/session-report/internal/parsing"
	"github.com/jonathan/session-report/internal/prompts"
	"github.com/jonathan/session-report/internal/repair"
	"github.com/jonathan/session-report/internal/types"
	"github.com/jonathan/session-report/internal/validation"
)

// DefaultTerminalWriteTimeout bounds the final ready/failed write, which runs even when
// the caller's context is already done
const DefaultTerminalWriteTimeout = 10 * time.Second

// Service orchestrates report generation for one session at a time
type Service struct {
	sessions  SessionStore
	records   RecordStore
	generator llm.Generator
	assembler *prompts.Assembler
	schema    map[string]any
	tier      llm.ModelTier
	validate  func(*types.ReportArtifact) ([]string, error)

	terminalTimeout time.Duration
	wg              sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithAssembler overrides the prompt assembler
func WithAssembler(a *prompts.Assembler) Option {
	return func(s *Service) { s.assembler = a }
}

// WithTier selects the model tier used for generation
func WithTier(tier llm.ModelTier) Option {
	return func(s *Service) { s.tier = tier }
}

// WithValidator replaces the post-repair required-field check
func WithValidator(fn func(*types.ReportArtifact) ([]string, error)) Option {
	return func(s *Service) { s.validate = fn }
}

// WithTerminalWriteTimeout overrides DefaultTerminalWriteTimeout
func WithTerminalWriteTimeout(d time.Duration) Option {
	return func(s *Service) { s.terminalTimeout = d }
}

// NewService creates a generation service. The generator is used as given; wrap it in
// llm.RetryingGenerator to apply a retry policy.
func NewService(sessions SessionStore, records RecordStore, generator llm.Generator, opts ...Option) *Service {
	s := &Service{
		sessions:        sessions,
		records:         records,
		generator:       generator,
		schema:          contract.Report().JSONSchema(),
		tier:            llm.TierAdvanced,
		validate:        validation.MissingFields,
		terminalTimeout: DefaultTerminalWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.assembler == nil {
		s.assembler = prompts.NewAssembler(nil, nil)
	}
	return s
}

// Generate produces the report for a session and returns it. A ready report is returned
// as is; a queued or running one yields ErrGenerationInProgress. Any failure after the
// record is running is persisted as failed before being returned.
func (s *Service) Generate(ctx context.Context, sessionID, ownerID uuid.UUID) (*types.ReportArtifact, error) {
	session, ready, err := s.begin(ctx, sessionID, ownerID)
	if err != nil || ready != nil {
		return ready, err
	}
	return s.execute(ctx, session)
}

// TriggerGenerate runs Generate and reports acceptance instead of returning an error.
// A report that is already ready or in progress counts as accepted.
func (s *Service) TriggerGenerate(ctx context.Context, sessionID, ownerID uuid.UUID) types.TriggerResult {
	_, err := s.Generate(ctx, sessionID, ownerID)
	return triggerResult(err)
}

// TriggerAsync claims the record synchronously and runs the generation in the background.
// The background run is detached from ctx cancellation; Close waits for it.
func (s *Service) TriggerAsync(ctx context.Context, sessionID, ownerID uuid.UUID) types.TriggerResult {
	session, ready, err := s.begin(ctx, sessionID, ownerID)
	if err != nil || ready != nil {
		return triggerResult(err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.execute(context.WithoutCancel(ctx), session); err != nil {
			log.Printf("[generation] background generation for session %s failed: %v", sessionID, err)
		}
	}()
	return types.TriggerResult{Accepted: true}
}

// Close waits for background generations to finish
func (s *Service) Close() error {
	s.wg.Wait()
	return nil
}

func triggerResult(err error) types.TriggerResult {
	if err == nil || errors.Is(err, ErrGenerationInProgress) {
		return types.TriggerResult{Accepted: true}
	}
	return types.TriggerResult{Accepted: false, Error: err.Error()}
}

// begin checks ownership and claims the generation record. It returns the stored report
// when one is already ready, or the session when the caller now owns a running record.
func (s *Service) begin(ctx context.Context, sessionID, ownerID uuid.UUID) (*types.Session, *types.ReportArtifact, error) {
	session, err := s.sessions.FindSession(ctx, sessionID, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, nil, &InputNotFoundError{SessionID: sessionID, Message: "session does not exist"}
	}

	rec, err := s.records.FindRecord(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load generation record: %w", err)
	}

	if rec == nil {
		created, err := s.records.UpsertQueued(ctx, sessionID, ownerID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to queue generation: %w", err)
		}
		if !created {
			return nil, nil, ErrGenerationInProgress
		}
	} else {
		switch rec.Status {
		case types.StatusReady:
			return nil, rec.Report, nil
		case types.StatusQueued, types.StatusRunning:
			return nil, nil, ErrGenerationInProgress
		}
	}

	if err := s.records.SetRunning(ctx, sessionID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, nil, ErrGenerationInProgress
		}
		return nil, nil, fmt.Errorf("failed to start generation: %w", err)
	}
	return session, nil, nil
}

// execute runs the pipeline for a session whose record is running and records the
// terminal state
func (s *Service) execute(ctx context.Context, session *types.Session) (*types.ReportArtifact, error) {
	if err := s.records.IncrementAttempts(ctx, session.ID); err != nil {
		return nil, s.fail(ctx, session.ID, fmt.Errorf("failed to count attempt: %w", err))
	}

	artifact, err := s.run(ctx, session)
	if err != nil {
		return nil, s.fail(ctx, session.ID, err)
	}

	wctx, cancel := s.terminalContext(ctx)
	defer cancel()
	if err := s.records.SetReady(wctx, session.ID, artifact); err != nil {
		return nil, s.fail(ctx, session.ID, fmt.Errorf("failed to store report: %w", err))
	}
	log.Printf("[generation] report ready for session %s", session.ID)
	return artifact, nil
}

func (s *Service) run(ctx context.Context, session *types.Session) (*types.ReportArtifact, error) {
	segments, err := s.sessions.FindTranscript(ctx, session.ID, session.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	if len(segments) == 0 {
		return nil, &InputNotFoundError{SessionID: session.ID, Message: "transcript is empty"}
	}

	insights, err := s.sessions.FindInsights(ctx, session.ID, session.OwnerID)
	if err != nil {
		log.Printf("[generation] continuing without insights for session %s: %v", session.ID, err)
		insights = nil
	}

	prompt := s.assembler.Assemble(session, segments, insights)
	raw, err := s.generator.Generate(ctx, llm.Request{
		System: prompt.System,
		User:   prompt.User,
		Schema: s.schema,
		Tier:   s.tier,
	})
	if err != nil {
		return nil, &GeneratorUnavailableError{Cause: err}
	}

	parsed, err := parsing.Decode(raw)
	if err != nil {
		return nil, &UnparsableOutputError{Cause: err}
	}

	artifact := repair.NormalizeWith(parsed, repair.HintsFromSession(session))

	missing, err := s.validate(artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to validate report: %w", err)
	}
	if len(missing) > 0 {
		return nil, &SchemaViolationError{Missing: missing}
	}
	return artifact, nil
}

// fail records cause on the record and returns it unchanged
func (s *Service) fail(ctx context.Context, sessionID uuid.UUID, cause error) error {
	log.Printf("[generation] generation failed for session %s: %v", sessionID, cause)

	wctx, cancel := s.terminalContext(ctx)
	defer cancel()
	if err := s.records.SetFailed(wctx, sessionID, cause.Error()); err != nil {
		log.Printf("[generation] failed to record failure for session %s: %v", sessionID, err)
	}
	return cause
}

func (s *Service) terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.terminalTimeout)
}
