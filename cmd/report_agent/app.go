package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/session-report/internal/config"
	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/db"
	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/llm"
	"github.com/jonathan/session-report/internal/prompts"
	"github.com/jonathan/session-report/internal/sqlite"
	"github.com/jonathan/session-report/internal/types"
)

// loadConfig layers the config file (if any) over the defaults, then the environment
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		fileCfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(config.Default())
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// sessionWriter is implemented by the persistent stores
type sessionWriter interface {
	CreateSession(ctx context.Context, session *types.Session) error
	AddTranscriptSegments(ctx context.Context, sessionID uuid.UUID, segments []types.TranscriptSegment) error
	AddInsight(ctx context.Context, sessionID uuid.UUID, insight types.Insight) error
}

// store bundles the views of one backing store that the commands need
type store struct {
	kind     string
	sessions generation.SessionStore
	records  generation.RecordStore
	failed   generation.FailedLister
	writer   sessionWriter // nil for the memory store
	ping     func(ctx context.Context) error
	close    func()
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*store, error) {
	switch cfg.Kind {
	case config.StorePostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return &store{
			kind:     cfg.Kind,
			sessions: database,
			records:  database,
			failed:   database,
			writer:   database,
			ping:     database.Ping,
			close:    database.Close,
		}, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{
			kind:     cfg.Kind,
			sessions: s,
			records:  s,
			failed:   s,
			writer:   s,
			ping:     s.Ping,
			close: func() {
				if err := s.Close(); err != nil {
					log.Printf("[store] close failed: %v", err)
				}
			},
		}, nil
	case config.StoreMemory, "":
		return memoryStore(generation.NewMemoryStore()), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func memoryStore(m *generation.MemoryStore) *store {
	return &store{
		kind:     config.StoreMemory,
		sessions: m,
		records:  m,
		failed:   m,
		close:    func() {},
	}
}

// newGenerator builds the retrying generator for the configured provider. Tests swap it.
var newGenerator = func(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	if cfg.Generator.APIKey == "" && llm.Provider(cfg.Generator.Provider) != llm.ProviderOpenAI {
		return nil, fmt.Errorf("an API key is required: set GEMINI_API_KEY or REPORT_GENERATOR_API_KEY")
	}
	gen, err := llm.NewGenerator(ctx, cfg.LLMConfig(), cfg.Generator.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return llm.NewRetryingGenerator(gen, cfg.RetryPolicy()), nil
}

func newService(st *store, gen llm.Generator, opts ...generation.Option) *generation.Service {
	opts = append([]generation.Option{
		generation.WithAssembler(prompts.NewAssembler(prompts.Embedded(), contract.Report())),
	}, opts...)
	return generation.NewService(st.sessions, st.records, gen, opts...)
}

func parseTier(s string) (llm.ModelTier, error) {
	switch tier := llm.ModelTier(s); tier {
	case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
		return tier, nil
	default:
		return "", fmt.Errorf("invalid tier %q: must be lite, standard or advanced", s)
	}
}

// sessionFile is the on-disk form of a session used by generate --input and import
type sessionFile struct {
	Session    types.Session   `json:"session"`
	Transcript []segmentInput  `json:"transcript"`
	Insights   []types.Insight `json:"insights,omitempty"`
}

type segmentInput struct {
	Seq           int     `json:"seq,omitempty"`
	OffsetSeconds float64 `json:"offset_seconds"`
	Speaker       string  `json:"speaker"`
	Text          string  `json:"text"`
}

// readSessionFile loads a session file. Segments without a seq are numbered in file order.
func readSessionFile(path string) (*types.Session, []types.TranscriptSegment, []types.Insight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to unmarshal session JSON: %w", err)
	}
	if f.Session.Title == "" {
		return nil, nil, nil, fmt.Errorf("session file %s: session.title is required", path)
	}

	segments := make([]types.TranscriptSegment, 0, len(f.Transcript))
	for i, seg := range f.Transcript {
		seq := seg.Seq
		if seq == 0 {
			seq = i + 1
		}
		segments = append(segments, types.TranscriptSegment{
			Seq:     seq,
			Offset:  time.Duration(seg.OffsetSeconds * float64(time.Second)),
			Speaker: seg.Speaker,
			Text:    seg.Text,
		})
	}
	return &f.Session, segments, f.Insights, nil
}

func parseIDs(sessionID, ownerID string) (uuid.UUID, uuid.UUID, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid session id: %w", err)
	}
	if ownerID == "" {
		return uuid.Nil, uuid.Nil, fmt.Errorf("--owner is required with --session")
	}
	oid, err := uuid.Parse(ownerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid owner id: %w", err)
	}
	return sid, oid, nil
}

// writeJSON writes v as indented JSON to path, or to w when path is empty
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if path == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
