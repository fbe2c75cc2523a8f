package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/medtrack/internal/config"
	"github.com/sakif/medtrack/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	// Missing settings are reported, not fatal: /api/health still answers
	// and auth endpoints name what is missing.
	if missing := cfg.Missing(true); len(missing) > 0 {
		logger.Warn("configuration incomplete", slog.Any("missing", missing))
	}

	if err := ensureDatabaseDir(cfg.DatabaseURL); err != nil {
		return err
	}

	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}

// ensureDatabaseDir creates the directory holding the SQLite file, like
// `mkdir -p`. In-memory databases need nothing.
func ensureDatabaseDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
