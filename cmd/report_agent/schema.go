package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/contract"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the report JSON Schema",
	RunE:  runSchema,
}

var schemaOutput string

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "out", "o", "", "Path to write the schema (default: stdout)")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	schema := contract.Report().JSONSchemaString()
	if schemaOutput == "" {
		fmt.Fprintln(cmd.OutOrStdout(), schema)
		return nil
	}
	if err := os.WriteFile(schemaOutput, []byte(schema+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}
