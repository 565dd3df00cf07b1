// Package main provides the entry point for the session report agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "report_agent",
	Short: "Session Report generation service",
	Long:  "report_agent turns recorded sales sessions into structured, contract-complete coaching reports, either over a REST API or from the command line.",
}

var (
	configFile string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
