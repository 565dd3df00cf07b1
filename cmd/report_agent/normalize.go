package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/observability"
	"github.com/jonathan/session-report/internal/parsing"
	"github.com/jonathan/session-report/internal/repair"
	"github.com/jonathan/session-report/internal/schemas"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Repair raw generator output into a complete report",
	Long: `Read raw generator output (JSON, possibly wrapped in prose or markdown fences), repair
it against the report contract and print the complete report JSON.`,
	RunE: runNormalize,
}

var (
	normalizeInput  string
	normalizeOutput string
)

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeInput, "in", "i", "", "Path to raw generator output (required)")
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "out", "o", "", "Path to write the repaired report (default: stdout)")

	if err := normalizeCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(normalizeInput)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	raw, err := parsing.Decode(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse generator output: %w", err)
	}

	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintViolations(contract.Report().Check(raw))
	}

	report := repair.Normalize(raw)
	if err := schemas.ValidateArtifact(report); err != nil {
		return fmt.Errorf("repaired report failed schema validation: %w", err)
	}
	if err := writeJSON(cmd.OutOrStdout(), normalizeOutput, report); err != nil {
		return err
	}
	if normalizeOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Repaired report written to %s\n", normalizeOutput)
	}
	return nil
}
