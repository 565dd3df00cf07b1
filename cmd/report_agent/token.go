package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for an owner",
	Long:  `Issue a signed bearer token for the given owner, for use against the REST API.`,
	RunE:  runToken,
}

var tokenOwnerID string

func init() {
	tokenCmd.Flags().StringVarP(&tokenOwnerID, "owner", "u", "", "Owner ID (required)")

	if err := tokenCmd.MarkFlagRequired("owner"); err != nil {
		panic(fmt.Sprintf("failed to mark owner flag as required: %v", err))
	}

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	ownerID, err := uuid.Parse(tokenOwnerID)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Auth.Check(); err != nil {
		return err
	}

	token, err := server.NewJWTService(&cfg.Auth).GenerateToken(ownerID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
