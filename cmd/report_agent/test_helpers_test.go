package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/config"
	"github.com/jonathan/session-report/internal/llm"
)

// stubGenerator returns a fixed output or error
type stubGenerator struct {
	output string
	err    error
}

func (g *stubGenerator) Generate(context.Context, llm.Request) (string, error) {
	return g.output, g.err
}

func (g *stubGenerator) Close() error { return nil }

// withGenerator makes every command use gen for the duration of the test
func withGenerator(t *testing.T, gen llm.Generator) {
	t.Helper()
	orig := newGenerator
	newGenerator = func(context.Context, *config.Config) (llm.Generator, error) { return gen, nil }
	t.Cleanup(func() { newGenerator = orig })
}

// useStore points the config at a store through the environment
func useStore(t *testing.T, kind string) {
	t.Helper()
	t.Setenv("REPORT_STORE", kind)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "reports.db"))
}

// resetFlags restores every flag to its default so commands can run repeatedly in one process
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and captures its output
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeSessionFile writes a small session file and returns its path
func writeSessionFile(t *testing.T, owner uuid.UUID) (string, uuid.UUID) {
	t.Helper()
	sessionID := uuid.New()
	f := map[string]any{
		"session": map[string]any{
			"id":               sessionID,
			"owner_id":         owner,
			"title":            "Q3 renewal",
			"client_name":      "Dana Whitfield",
			"client_company":   "Northwind",
			"rep_name":         "Sam Ortiz",
			"started_at":       "2026-09-14T15:00:00Z",
			"duration_seconds": 1860,
		},
		"transcript": []map[string]any{
			{"offset_seconds": 0, "speaker": "Sam Ortiz", "text": "Thanks for making time today."},
			{"offset_seconds": 4.5, "speaker": "Dana Whitfield", "text": "Happy to. Renewal is on our radar."},
			{"offset_seconds": 12, "speaker": "Sam Ortiz", "text": "Let's start with how the rollout went."},
		},
		"insights": []map[string]any{
			{"kind": "summary", "content": "Client is open to expanding seats."},
		},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, sessionID
}
