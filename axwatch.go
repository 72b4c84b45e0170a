// Package axwatch coordinates overlay visibility for a focused editable
// element inside a third-party application. It polls window and element
// geometry, coalesces scroll activity, validates silent text drift, and
// gates every show command behind three independent suppression flags
// (moved-or-resizing, off-screen, scrolling) plus bounded settle checks.
// The accessibility event bus is unreliable for many hosts, so polling
// and settle detection carry the correctness burden, not push events.
//
// All coordinator state lives on one session goroutine; the public hooks
// translate caller activity into typed events delivered to that loop.
package axwatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hazyhaar/axwatch/hostio"
	"github.com/hazyhaar/axwatch/idgen"
	"github.com/hazyhaar/axwatch/journal"
	"github.com/hazyhaar/axwatch/profile"
	"github.com/hazyhaar/axwatch/timers"
)

// ErrAlreadyMonitoring is returned when StartMonitoring is called while a
// session is active. Callers stop the previous session first.
var ErrAlreadyMonitoring = errors.New("axwatch: already monitoring")

// Target describes the element a monitoring session observes.
type Target struct {
	PID      hostio.ProcessID
	BundleID string
	Element  hostio.Element
	// InitialText seeds the analyzed-text snapshot; empty means the
	// first analysis establishes it.
	InitialText string
}

// Snapshot is a point-in-time view of the coordinator state, safe to read
// from any goroutine.
type Snapshot struct {
	SessionID string `json:"sessionId"`
	BundleID  string `json:"bundleId"`

	MovedOrResizing bool `json:"movedOrResizing"`
	OffScreen       bool `json:"offScreen"`
	Scrolling       bool `json:"scrolling"`

	FindingCount       int `json:"findingCount"`
	PositionSyncSpent  int `json:"positionSyncSpent"`
	ContentStableCount int `json:"contentStableCount"`
}

// Visible reports whether overlays are eligible for display: all three
// suppression flags false.
func (s Snapshot) Visible() bool {
	return !s.MovedOrResizing && !s.OffScreen && !s.Scrolling
}

// Monitor owns at most one monitoring session at a time and exposes the
// hooks the application shell calls.
type Monitor struct {
	cfg       Config
	windows   hostio.WindowQuerier
	registry  profile.Registry
	analyzer  hostio.Analyzer
	presenter hostio.Presenter
	journal   *journal.Recorder
	clock     timers.Clock
	logger    *slog.Logger
	newID     idgen.Generator
	newReqID  idgen.Generator

	mu  sync.Mutex
	cur *session
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithConfig replaces the default timings and thresholds.
func WithConfig(cfg Config) Option {
	return func(m *Monitor) { m.cfg = cfg }
}

// WithClock injects a clock; tests pass timers.NewVirtual.
func WithClock(c timers.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithJournal records flag transitions and decisions to SQLite.
func WithJournal(r *journal.Recorder) Option {
	return func(m *Monitor) { m.journal = r }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithSessionIDs sets a custom session ID generator.
func WithSessionIDs(gen idgen.Generator) Option {
	return func(m *Monitor) { m.newID = gen }
}

// New creates a Monitor wired to the host query, profile registry,
// analysis engine, and presentation layer.
func New(windows hostio.WindowQuerier, registry profile.Registry, analyzer hostio.Analyzer, presenter hostio.Presenter, opts ...Option) *Monitor {
	m := &Monitor{
		windows:   windows,
		registry:  registry,
		analyzer:  analyzer,
		presenter: presenter,
		clock:     timers.Real(),
		logger:    slog.Default(),
		newID:     idgen.Session(),
		newReqID:  idgen.Request(),
	}
	for _, o := range opts {
		o(m)
	}
	m.cfg.applyDefaults()
	return m
}

// StartMonitoring begins a session observing target. Any previous session
// is stopped first and its timers confirmed cancelled before the new one
// starts, so a late callback can never corrupt fresh state.
func (m *Monitor) StartMonitoring(ctx context.Context, target Target) error {
	m.StopMonitoring()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		return ErrAlreadyMonitoring
	}

	prof := m.registry.Lookup(target.BundleID)
	s := newSession(m, target, prof)
	m.cur = s

	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(sctx)
	}()

	m.logger.Info("axwatch: monitoring started",
		"session", s.id, "bundle", target.BundleID, "pid", int32(target.PID))
	return nil
}

// StopMonitoring tears down the current session: cancels every scheduled
// timer, waits for the loop to exit, and resets all flags. Safe to call
// when nothing is being monitored.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	s := m.cur
	m.cur = nil
	m.mu.Unlock()
	if s == nil {
		return
	}

	s.cancel()
	s.sched.CancelAll()
	s.wg.Wait()
	m.logger.Info("axwatch: monitoring stopped", "session", s.id)
}

// HandleTextChange feeds the latest edited text; analysis is debounced
// and dispatched off the coordination goroutine.
func (m *Monitor) HandleTextChange(text string) {
	m.send(textChanged{text: text})
}

// NotifyScroll reports one raw scroll activity signal.
func (m *Monitor) NotifyScroll() {
	m.send(scrollSignal{})
}

// NoteReplacement marks an accepted text replacement, starting the grace
// periods that mute scroll and drift noise caused by its side effects.
func (m *Monitor) NoteReplacement() {
	m.send(replacementAccepted{})
}

// NotifyApplicationSwitched stops the current session. The shell starts a
// new one once the next application's focused element is known.
func (m *Monitor) NotifyApplicationSwitched() {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s != nil && m.journal != nil {
		m.journal.Decision(context.Background(), s.id, "app-switched", "session torn down")
	}
	m.StopMonitoring()
}

// Snapshot returns the current coordinator state. The zero Snapshot is
// returned when nothing is being monitored.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return Snapshot{}
	}
	return s.snapshot()
}

func (m *Monitor) send(ev event) {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
		m.logger.Warn("axwatch: event dropped, loop backlogged", "session", s.id)
	}
}

func (m *Monitor) recordTransition(s *session, flag string, value bool, reason string) {
	if m.journal != nil {
		m.journal.Transition(context.Background(), s.id, flag, value, reason)
	}
}

func (m *Monitor) recordDecision(s *session, kind, detail string) {
	if m.journal != nil {
		m.journal.Decision(context.Background(), s.id, kind, detail)
	}
}
