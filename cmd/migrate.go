package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/db"
	"github.com/recallhq/recall/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply all pending schema migrations to the configured Postgres database.

Migrations also run automatically on startup for the durable backends;
this command exists for provisioning a database ahead of first use.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := db.Migrate(cfg.Postgres.ConnURL()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
