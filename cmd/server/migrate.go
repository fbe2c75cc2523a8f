package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/medtrack/internal/config"
	sqliteRepo "github.com/sakif/medtrack/internal/repository/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		// Opening the database applies pending migrations.
		statuses, err := db.MigrationStatuses(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database is at version %d\n", latestApplied(statuses))
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		statuses, err := db.MigrationStatuses(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
		for _, s := range statuses {
			fmt.Fprintf(tw, "%d\t%s\t%t\n", s.Version, s.Name, s.Applied)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openDatabase(cmd *cobra.Command) (*sqliteRepo.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := ensureDatabaseDir(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	db, err := sqliteRepo.New(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func latestApplied(statuses []sqliteRepo.MigrationStatus) int64 {
	var latest int64
	for _, s := range statuses {
		if s.Applied && s.Version > latest {
			latest = s.Version
		}
	}
	return latest
}
