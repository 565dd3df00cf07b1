package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/observability"
	"github.com/jonathan/session-report/internal/schemas"
	"github.com/jonathan/session-report/internal/types"
	"github.com/jonathan/session-report/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a report JSON file",
	Long: `Validate a report against the report contract's JSON Schema, or against an explicit
schema file when --schema is given, and check that every required field is present.`,
	RunE: runValidate,
}

var (
	validateInput  string
	validateSchema string
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to the report JSON file (required)")
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Path to a JSON Schema file (default: the built-in report schema)")

	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(validateInput)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	if validateSchema != "" {
		schemaPath := schemas.ResolveSchemaPath(validateSchema)
		if schemaPath == "" {
			return fmt.Errorf("schema file not found: %s", validateSchema)
		}
		if err := schemas.ValidateJSON(schemaPath, validateInput); err != nil {
			return err
		}
	} else if err := schemas.ValidateArtifactJSON(string(data)); err != nil {
		return err
	}

	var report types.ReportArtifact
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("failed to unmarshal report JSON: %w", err)
	}
	if err := validation.Validate(&report); err != nil {
		return err
	}

	if verbose {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err == nil {
			observability.NewPrinter(cmd.ErrOrStderr()).PrintViolations(contract.Report().Check(doc))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is a valid session report\n", validateInput)
	return nil
}
