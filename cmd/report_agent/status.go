package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/observability"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the generation status of a session's report",
	RunE:  runStatus,
}

var (
	statusSessionID string
	statusJSON      bool
)

func init() {
	statusCmd.Flags().StringVarP(&statusSessionID, "session", "s", "", "Session ID (required)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the full record as JSON")

	if err := statusCmd.MarkFlagRequired("session"); err != nil {
		panic(fmt.Sprintf("failed to mark session flag as required: %v", err))
	}

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	sessionID, err := uuid.Parse(statusSessionID)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.close()

	rec, err := st.records.FindRecord(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load generation record: %w", err)
	}

	if statusJSON {
		if rec == nil {
			return fmt.Errorf("no report has been requested for session %s", sessionID)
		}
		return writeJSON(cmd.OutOrStdout(), "", rec)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRecord(rec)
	return nil
}
