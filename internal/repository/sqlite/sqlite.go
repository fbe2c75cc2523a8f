// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database. It lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. The app is a
// single-node, single-database deployment, which is exactly SQLite's sweet spot.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// SCHEMA:
// Tables are created by goose migrations embedded into the binary
// (see migrations/). New runs them on every start; already-applied
// versions are skipped.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pressly/goose/v3"

	// Importing modernc.org/sqlite also runs its init(), which registers a
	// database/sql driver named "sqlite". We use it directly for error codes.
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/medtrack/internal/repository/sqlite/migrations"
)

// busyTimeoutMillis is how long a connection waits for a competing writer
// before SQLite returns SQLITE_BUSY.
const busyTimeoutMillis = 5000

// DB wraps a sql.DB connection pool. The per-table repositories are reached
// through Users(), Medicines() and Reminders(); they share the pool.
type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the SQLite database at path and applies
// pending migrations.
//
// path examples:
//   - "data/medtrack.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (lost on close)
//
// PRAGMAS IN THE DSN:
// database/sql keeps a pool of connections, and PRAGMAs are per connection.
// Running "PRAGMA foreign_keys=ON" once would only configure whichever
// connection happened to execute it. Passing them as _pragma DSN parameters
// makes the driver apply them to every new connection.
func New(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate empty database, so the
	// pool must never hold more than one.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if _, err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn builds the modernc connection string for a path.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	if path == ":memory:" {
		return "file::memory:?" + q.Encode()
	}
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate applies all pending migrations and returns the versions applied.
func (db *DB) Migrate(ctx context.Context) ([]int64, error) {
	provider, err := db.migrator()
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// MigrationStatus describes one embedded migration.
type MigrationStatus struct {
	Version int64
	Name    string
	Applied bool
}

// MigrationStatuses reports every embedded migration and whether it has
// been applied.
func (db *DB) MigrationStatuses(ctx context.Context) ([]MigrationStatus, error) {
	provider, err := db.migrator()
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Name:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

func (db *DB) migrator() (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("creating migration provider: %w", err)
	}
	return provider, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// Fallback for drivers/wrappers that lose the typed error.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
