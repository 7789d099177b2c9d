// Package cmd implements the recall CLI.
//
// All application logic lives here so main.go stays a minimal entry point,
// following the pattern of kubectl, hugo, and other standard Go CLI tools.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall - retrieval pipeline for chat assistants",
	Long: `Recall ingests documents and conversation messages into an
owner-scoped vector index and retrieves token-budgeted context blocks
for language model prompts.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is the only entry point main calls.
func Execute() error {
	logger := log.New(log.Config{Level: logLevel()})
	slog.SetDefault(logger)
	return rootCmd.Execute()
}

// logLevel is controlled by the DEBUG environment variable.
func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
