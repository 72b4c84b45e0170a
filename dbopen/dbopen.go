// Package dbopen opens the axwatch SQLite databases (decision journal,
// profile store) with the pragmas a long-running watcher daemon needs:
// WAL so journal writes never block profile reads, and a busy timeout so
// an external profile editor holding the write lock degrades to a wait
// instead of an error.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("journal.db", dbopen.WithSchema(journal.Schema))
//
// In tests:
//
//	db := dbopen.OpenMemory(t, dbopen.WithSchema(profile.Schema))
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type config struct {
	busyTimeoutMS int
	schemas       []string
	mkdirAll      bool
	ping          bool
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeoutMS = ms } }

// WithSchema queues SQL to execute after the pragmas are applied.
func WithSchema(sql string) Option { return func(c *config) { c.schemas = append(c.schemas, sql) } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithoutPing skips the connectivity check after opening.
func WithoutPing() Option { return func(c *config) { c.ping = false } }

// Open opens an SQLite database at path with the axwatch pragmas applied.
// The caller must blank-import a driver registering "sqlite".
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := config{busyTimeoutMS: 5000, ping: true}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}

	for _, s := range cfg.schemas {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: exec schema: %w", err)
		}
	}

	if cfg.ping {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: ping: %w", err)
		}
	}

	return db, nil
}

// OpenMemory opens an in-memory database for testing, limited to a single
// connection so every query hits the same database, closed via t.Cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
