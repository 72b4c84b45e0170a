package profile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Schema is the SQLite schema of a profile store. The axwatchd daemon
// creates it via dbopen.WithSchema; an external tool maintains the rows.
const Schema = `
CREATE TABLE IF NOT EXISTS app_profiles (
	bundle_id                     TEXT PRIMARY KEY,
	web_rendering                 INTEGER NOT NULL DEFAULT 0,
	unstable_text_retrieval       INTEGER NOT NULL DEFAULT 0,
	full_reanalysis_after_replace INTEGER NOT NULL DEFAULT 0,
	terminal                      INTEGER NOT NULL DEFAULT 0,
	messenger                     INTEGER NOT NULL DEFAULT 0,
	disable_scroll_hide           INTEGER NOT NULL DEFAULT 0,
	unreliable_notifications      INTEGER NOT NULL DEFAULT 0,
	scroll_reshow_delay_ms        INTEGER NOT NULL DEFAULT 0,
	conversation_switch_delay_ms  INTEGER NOT NULL DEFAULT 0
);`

// StoreOptions tunes the Store's change polling.
type StoreOptions struct {
	// Interval is the PRAGMA data_version polling frequency. Default: 2s.
	Interval time.Duration
	// Debounce is the quiet period after a change before reloading, so a
	// burst of row edits produces one reload. Default: 500ms.
	Debounce time.Duration
	// Logger overrides slog.Default().
	Logger *slog.Logger
}

func (o *StoreOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// StoreStats are point-in-time counters of the reload loop.
type StoreStats struct {
	Checks   int64 `json:"checks"`
	Changes  int64 `json:"changes_detected"`
	Errors   int64 `json:"errors"`
	Reloads  int64 `json:"reloads"`
	Profiles int   `json:"profiles"`
}

// Store is a Registry backed by a SQLite profile table. It keeps the whole
// table cached in memory and hot-reloads the cache when the database's
// PRAGMA data_version advances, so profile edits land without restarting
// the daemon.
type Store struct {
	db   *sql.DB
	opts StoreOptions

	mu       sync.RWMutex
	byBundle map[string]Profile

	version atomic.Int64
	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	reloads atomic.Int64
}

// NewStore creates a Store and performs the initial load.
func NewStore(ctx context.Context, db *sql.DB, opts StoreOptions) (*Store, error) {
	opts.defaults()
	s := &Store{db: db, opts: opts, byBundle: map[string]Profile{}}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup implements Registry. Unknown bundle IDs get the default profile.
func (s *Store) Lookup(bundleID string) Profile {
	s.mu.RLock()
	p, ok := s.byBundle[bundleID]
	s.mu.RUnlock()
	if ok {
		return p
	}
	return Default(bundleID)
}

// Stats returns the current reload counters.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	n := len(s.byBundle)
	s.mu.RUnlock()
	return StoreStats{
		Checks:   s.checks.Load(),
		Changes:  s.changes.Load(),
		Errors:   s.errors.Load(),
		Reloads:  s.reloads.Load(),
		Profiles: n,
	}
}

// Reload replaces the cached profile map from the database.
func (s *Store) Reload(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bundle_id, web_rendering, unstable_text_retrieval,
		       full_reanalysis_after_replace, terminal, messenger,
		       disable_scroll_hide, unreliable_notifications,
		       scroll_reshow_delay_ms, conversation_switch_delay_ms
		FROM app_profiles`)
	if err != nil {
		return fmt.Errorf("profile: load: %w", err)
	}
	defer rows.Close()

	next := make(map[string]Profile)
	for rows.Next() {
		var p Profile
		var scrollMs, convMs int64
		if err := rows.Scan(&p.BundleID, &p.WebRendering, &p.UnstableTextRetrieval,
			&p.FullReanalysisAfterReplace, &p.Terminal, &p.Messenger,
			&p.DisableScrollHide, &p.UnreliableNotifications,
			&scrollMs, &convMs); err != nil {
			return fmt.Errorf("profile: scan: %w", err)
		}
		p.ScrollReshowDelay = time.Duration(scrollMs) * time.Millisecond
		p.ConversationSwitchDelay = time.Duration(convMs) * time.Millisecond
		p.applyDefaults()
		next[p.BundleID] = p
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("profile: load: %w", err)
	}

	s.mu.Lock()
	s.byBundle = next
	s.mu.Unlock()
	s.reloads.Add(1)
	return nil
}

// dataVersion reads SQLite's per-connection change token. Two reads that
// differ mean another connection committed something.
func (s *Store) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// Watch blocks until ctx is cancelled, polling data_version at
// opts.Interval and reloading the cache after the debounce window passes
// without further changes. Reload errors keep the old cache and are
// retried on the next change.
func (s *Store) Watch(ctx context.Context) {
	log := s.opts.Logger

	if v, err := s.dataVersion(ctx); err != nil {
		log.Warn("profile: initial version check failed", "error", err)
	} else {
		s.version.Store(v)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	pending := int64(-1)

	log.Info("profile: store watch started",
		"interval", s.opts.Interval, "debounce", s.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			log.Info("profile: store watch stopped")
			return

		case <-ticker.C:
			s.checks.Add(1)
			cur, err := s.dataVersion(ctx)
			if err != nil {
				s.errors.Add(1)
				log.Warn("profile: version check failed", "error", err)
				continue
			}
			if cur != s.version.Load() && cur != pending {
				s.changes.Add(1)
				pending = cur
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.NewTimer(s.opts.Debounce)
				debounceCh = debounceTimer.C
				log.Debug("profile: change detected, debouncing", "pending_version", cur)
			}

		case <-debounceCh:
			debounceCh = nil
			if pending < 0 {
				continue
			}
			if err := s.Reload(ctx); err != nil {
				s.errors.Add(1)
				log.Error("profile: reload failed", "error", err)
				continue
			}
			s.version.Store(pending)
			pending = -1
			log.Info("profile: reloaded", "profiles", s.Stats().Profiles)
		}
	}
}
