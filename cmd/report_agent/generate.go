package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/generation"
	"github.com/jonathan/session-report/internal/observability"
	"github.com/jonathan/session-report/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the report for one session",
	Long: `Generate the structured report for a session and print it as JSON.

The session is read either from the configured store (--session and --owner) or from a
session file (--input) holding the session, its transcript and any prior insights.`,
	RunE: runGenerate,
}

var (
	generateSessionID string
	generateOwnerID   string
	generateInput     string
	generateOutput    string
	generateTier      string
)

func init() {
	generateCmd.Flags().StringVarP(&generateSessionID, "session", "s", "", "Session ID to load from the store")
	generateCmd.Flags().StringVarP(&generateOwnerID, "owner", "u", "", "Owner ID of the session (required with --session)")
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "Path to a session JSON file")
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Path to write the report JSON (default: stdout)")
	generateCmd.Flags().StringVar(&generateTier, "tier", "advanced", "Model tier: lite, standard or advanced")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if generateInput != "" && generateSessionID != "" {
		return fmt.Errorf("cannot use --input with --session")
	}
	if generateInput == "" && generateSessionID == "" {
		return fmt.Errorf("must provide either --session or --input")
	}
	tier, err := parseTier(generateTier)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	printer := observability.NewPrinter(cmd.ErrOrStderr())

	var st *store
	var sessionID, ownerID uuid.UUID
	if generateInput != "" {
		session, segments, insights, err := readSessionFile(generateInput)
		if err != nil {
			return err
		}
		if session.ID == uuid.Nil {
			session.ID = uuid.New()
		}
		if session.OwnerID == uuid.Nil {
			session.OwnerID = uuid.New()
		}
		mem := generation.NewMemoryStore()
		mem.AddSession(*session, segments, insights)
		st = memoryStore(mem)
		sessionID, ownerID = session.ID, session.OwnerID

		if cfg.Verbose {
			printer.PrintSession(session, segments, insights)
		}
	} else {
		sessionID, ownerID, err = parseIDs(generateSessionID, generateOwnerID)
		if err != nil {
			return err
		}
		st, err = openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
	}
	defer st.close()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer gen.Close()

	service := newService(st, gen, generation.WithTier(tier))
	defer service.Close()

	report, err := service.Generate(ctx, sessionID, ownerID)
	if err != nil {
		if errors.Is(err, generation.ErrGenerationInProgress) {
			return fmt.Errorf("report for session %s is already being generated", sessionID)
		}
		return fmt.Errorf("report generation failed: %w", err)
	}

	if cfg.Verbose {
		printer.PrintReportSummary(report)
	}
	return writeReport(cmd, report)
}

func writeReport(cmd *cobra.Command, report *types.ReportArtifact) error {
	if err := writeJSON(cmd.OutOrStdout(), generateOutput, report); err != nil {
		return err
	}
	if generateOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", generateOutput)
	}
	return nil
}
