package timers

import (
	"log/slog"
	"sync"
	"time"
)

// Purpose names a scheduled delay. One timer per purpose: arming an
// already-armed purpose re-arms it, which is exactly the debounce
// behaviour the scroll and analyze paths need.
type Purpose string

const (
	PurposeFramePoll     Purpose = "frame-poll"
	PurposeDriftCheck    Purpose = "drift-check"
	PurposeReshow        Purpose = "reshow"
	PurposePositionSync  Purpose = "position-sync"
	PurposeContentSettle Purpose = "content-settle"
	PurposeToggleSettle  Purpose = "toggle-settle"
	PurposeScrollRestore Purpose = "scroll-restore"
	PurposeAnalyze       Purpose = "analyze"
	PurposeReanalyze     Purpose = "reanalyze"
	PurposeContextSwitch Purpose = "context-switch"
)

// Firing is delivered on the scheduler channel when a purpose comes due.
type Firing struct {
	Purpose Purpose
	At      time.Time
}

// Scheduler owns every pending delay of one monitor. All firings funnel
// into a single buffered channel so the monitor loop stays the only
// goroutine that reacts to time.
type Scheduler struct {
	clock  Clock
	logger *slog.Logger
	ch     chan Firing

	mu    sync.Mutex
	armed map[Purpose]Stopper
	gen   map[Purpose]uint64
}

// NewScheduler creates a Scheduler on the given clock.
func NewScheduler(clock Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		clock:  clock,
		logger: logger,
		ch:     make(chan Firing, 64),
		armed:  make(map[Purpose]Stopper),
		gen:    make(map[Purpose]uint64),
	}
}

// C is the firing channel consumed by the monitor loop.
func (s *Scheduler) C() <-chan Firing { return s.ch }

// Now returns the scheduler clock's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Arm schedules purpose to fire after d, replacing any pending timer for
// the same purpose.
func (s *Scheduler) Arm(p Purpose, d time.Duration) {
	s.mu.Lock()
	if old := s.armed[p]; old != nil {
		old.Stop()
	}
	s.gen[p]++
	g := s.gen[p]
	s.armed[p] = s.clock.AfterFunc(d, func() { s.fire(p, g) })
	s.mu.Unlock()
}

// Cancel drops any pending timer for purpose. A firing already scheduled
// by the underlying clock is invalidated by the generation check, so a
// cancelled purpose can never deliver late.
func (s *Scheduler) Cancel(p Purpose) {
	s.mu.Lock()
	if t := s.armed[p]; t != nil {
		t.Stop()
		delete(s.armed, p)
	}
	s.gen[p]++
	s.mu.Unlock()
}

// CancelAll drops every pending timer. Called when monitoring stops.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	for p, t := range s.armed {
		t.Stop()
		delete(s.armed, p)
		s.gen[p]++
	}
	s.mu.Unlock()
}

// Armed reports whether purpose has a pending timer.
func (s *Scheduler) Armed(p Purpose) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed[p] != nil
}

func (s *Scheduler) fire(p Purpose, g uint64) {
	s.mu.Lock()
	if s.gen[p] != g {
		// Re-armed or cancelled after this callback was scheduled.
		s.mu.Unlock()
		return
	}
	delete(s.armed, p)
	s.mu.Unlock()

	f := Firing{Purpose: p, At: s.clock.Now()}
	select {
	case s.ch <- f:
	default:
		// The loop is wedged badly enough that 64 firings are queued.
		// Dropping is safer than blocking the clock goroutine; the
		// pollers re-arm themselves so nothing stays stuck.
		s.logger.Warn("timers: firing dropped, channel full", "purpose", string(p))
	}
}
