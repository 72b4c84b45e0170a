// Package journal records coordinator decisions to SQLite: every
// suppression-flag transition and every notable decision (reshow settled
// or degraded, drift outcome, dropped stale analysis). The journal is how
// misbehaving host applications get diagnosed after the fact — a captured
// trace plus the journal shows exactly why the overlay hid when it did.
//
// Writes are non-blocking for the caller in the failure sense: errors are
// logged via slog and swallowed, a broken journal never stalls the
// coordinator.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/axwatch/idgen"
)

// Schema is the journal's SQLite schema, applied via dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS flag_transitions (
	transition_id TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	flag          TEXT NOT NULL,
	value         INTEGER NOT NULL,
	reason        TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flag_transitions_session
	ON flag_transitions(session_id, created_at);

CREATE TABLE IF NOT EXISTS decisions (
	decision_id TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	detail      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_session
	ON decisions(session_id, created_at);`

// Recorder writes journal rows for one axwatch process.
type Recorder struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator sets a custom ID generator for journal rows.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(r *Recorder) { r.newID = gen }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// New creates a Recorder on db. The schema must already exist.
func New(db *sql.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db:     db,
		newID:  idgen.Journal(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Transition records one suppression-flag change.
func (r *Recorder) Transition(ctx context.Context, sessionID, flag string, value bool, reason string) {
	if r == nil {
		return
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO flag_transitions (transition_id, session_id, flag, value, reason, created_at)
		VALUES (?,?,?,?,?,?)`,
		r.newID(), sessionID, flag, value, reason, time.Now().Unix())
	if err != nil {
		r.logger.Error("journal: transition write failed", "error", err, "flag", flag)
	}
}

// Decision records one coordinator decision.
func (r *Recorder) Decision(ctx context.Context, sessionID, kind, detail string) {
	if r == nil {
		return
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO decisions (decision_id, session_id, kind, detail, created_at)
		VALUES (?,?,?,?,?)`,
		r.newID(), sessionID, kind, detail, time.Now().Unix())
	if err != nil {
		r.logger.Error("journal: decision write failed", "error", err, "kind", kind)
	}
}

// RetentionConfig specifies per-table retention in days. Zero disables
// cleanup for that table.
type RetentionConfig struct {
	TransitionsDays int
	DecisionsDays   int
}

// Cleanup deletes rows older than the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()

	targets := []struct {
		table string
		days  int
	}{
		{"flag_transitions", cfg.TransitionsDays},
		{"decisions", cfg.DecisionsDays},
	}

	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days)*86400
		// Table names come from the fixed list above, never from input.
		res, err := db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", t.table), cutoff)
		if err != nil {
			return fmt.Errorf("journal: cleanup %s: %w", t.table, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			slog.Info("journal: cleanup", "table", t.table, "deleted", n)
		}
	}
	return nil
}
