// Package main is the entry point for the medtrack API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (from env vars or a .env file)
// 2. Create dependencies (logger, database connections, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// COMMANDS:
// The binary is a small cobra CLI:
//
//	medtrack                 → same as "medtrack serve"
//	medtrack serve           → run the HTTP API
//	medtrack migrate up      → apply pending database migrations
//	medtrack migrate status  → list migrations and whether they are applied
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medtrack",
	Short: "Medicine reminder API",
	Long: `medtrack serves a JSON API for tracking medicines and daily reminders.

Running it without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
