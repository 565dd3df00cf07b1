package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a session file into the store",
	Long: `Store a session, its transcript and its insights from a session JSON file so that
reports can be generated for it through the API or with generate --session.`,
	RunE: runImport,
}

var (
	importInput   string
	importOwnerID string
)

func init() {
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "Path to a session JSON file (required)")
	importCmd.Flags().StringVarP(&importOwnerID, "owner", "u", "", "Owner ID (overrides session.owner_id)")

	if err := importCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	session, segments, insights, err := readSessionFile(importInput)
	if err != nil {
		return err
	}
	if importOwnerID != "" {
		session.OwnerID, err = uuid.Parse(importOwnerID)
		if err != nil {
			return fmt.Errorf("invalid owner id: %w", err)
		}
	}
	if session.OwnerID == uuid.Nil {
		return fmt.Errorf("an owner is required: set session.owner_id or --owner")
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
	if st.writer == nil {
		return fmt.Errorf("import requires a persistent store (postgres or sqlite)")
	}

	if err := st.writer.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := st.writer.AddTranscriptSegments(ctx, session.ID, segments); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	for _, insight := range insights {
		if err := st.writer.AddInsight(ctx, session.ID, insight); err != nil {
			return fmt.Errorf("failed to save insight: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported session %s (%d segments, %d insights) for owner %s\n",
		session.ID, len(segments), len(insights), session.OwnerID)
	return nil
}
