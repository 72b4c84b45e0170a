// Package sampler implements the window frame poller. On every tick it
// queries the monitored process's frontmost window rectangle and reports a
// typed event: stable, movement-or-resize started, off-screen, or back on
// screen. The upstream notification bus is unreliable for many hosts, so
// this poll is the source of truth for window geometry.
package sampler

import (
	"context"
	"time"

	"github.com/hazyhaar/axwatch/geom"
	"github.com/hazyhaar/axwatch/hostio"
)

// Cause records what tripped the movement threshold.
type Cause int

const (
	CauseNone Cause = iota
	CausePosition
	CauseSize
	CausePositionAndSize
)

func (c Cause) String() string {
	switch c {
	case CausePosition:
		return "position"
	case CauseSize:
		return "size"
	case CausePositionAndSize:
		return "position+size"
	default:
		return "none"
	}
}

// Kind classifies one poll.
type Kind int

const (
	// Stable: the window is where it was. The only verdict under which a
	// debounced reshow timer may be armed.
	Stable Kind = iota
	// MoveStarted: position or size crossed a threshold this tick.
	MoveStarted
	// OffScreen: no window rectangle could be obtained.
	OffScreen
	// BackOnScreen: a rectangle is obtainable again after OffScreen.
	BackOnScreen
)

func (k Kind) String() string {
	switch k {
	case MoveStarted:
		return "move-started"
	case OffScreen:
		return "off-screen"
	case BackOnScreen:
		return "back-on-screen"
	default:
		return "stable"
	}
}

// Event is the result of one poll.
type Event struct {
	Kind   Kind
	Cause  Cause
	Bounds geom.Rect
	// Terminal marks an OffScreen event past the persistent-failure
	// threshold: the window is considered abandoned until it reappears.
	Terminal bool
	At       time.Time
}

// Config tunes a Sampler.
type Config struct {
	// PosThreshold is the Euclidean origin distance above which a move is
	// reported. Default 5.
	PosThreshold float64
	// SizeThreshold is the per-axis size delta above which a resize is
	// reported. Default 5.
	SizeThreshold float64
	// TerminalMisses is the run of consecutive failed queries after which
	// off-screen becomes terminal. Default 5.
	TerminalMisses int
}

func (c *Config) defaults() {
	if c.PosThreshold <= 0 {
		c.PosThreshold = 5
	}
	if c.SizeThreshold <= 0 {
		c.SizeThreshold = 5
	}
	if c.TerminalMisses <= 0 {
		c.TerminalMisses = 5
	}
}

// Sampler polls window geometry for one process. Driven by the monitor
// loop; not safe for concurrent use.
type Sampler struct {
	cfg Config
	win hostio.WindowQuerier
	pid hostio.ProcessID

	prev       geom.Rect
	havePrev   bool
	offScreen  bool
	misses     int
	lastResize time.Time
}

// New creates a Sampler for pid.
func New(win hostio.WindowQuerier, pid hostio.ProcessID, cfg Config) *Sampler {
	cfg.defaults()
	return &Sampler{cfg: cfg, win: win, pid: pid}
}

// Sample performs one poll at now and classifies the result.
func (s *Sampler) Sample(ctx context.Context, now time.Time) Event {
	bounds, err := s.win.FrontmostWindow(ctx, s.pid)
	if err != nil {
		// A single failed query is transient off-screen, re-evaluated
		// next tick. A run of them means the window is abandoned.
		s.misses++
		s.offScreen = true
		return Event{Kind: OffScreen, At: now, Terminal: s.misses >= s.cfg.TerminalMisses}
	}

	s.misses = 0
	if s.offScreen {
		// Reappeared. The off-screen condition is cleared explicitly by
		// this event, never implicitly by a stale previous frame.
		s.offScreen = false
		s.prev = bounds
		s.havePrev = true
		return Event{Kind: BackOnScreen, Bounds: bounds, At: now}
	}

	if !s.havePrev {
		s.prev = bounds
		s.havePrev = true
		return Event{Kind: Stable, Bounds: bounds, At: now}
	}

	posMoved := bounds.PosDelta(s.prev) > s.cfg.PosThreshold
	dw, dh := bounds.SizeDelta(s.prev)
	sizeMoved := dw > s.cfg.SizeThreshold || dh > s.cfg.SizeThreshold

	s.prev = bounds

	switch {
	case posMoved && sizeMoved:
		s.lastResize = now
		return Event{Kind: MoveStarted, Cause: CausePositionAndSize, Bounds: bounds, At: now}
	case sizeMoved:
		s.lastResize = now
		return Event{Kind: MoveStarted, Cause: CauseSize, Bounds: bounds, At: now}
	case posMoved:
		return Event{Kind: MoveStarted, Cause: CausePosition, Bounds: bounds, At: now}
	default:
		return Event{Kind: Stable, Bounds: bounds, At: now}
	}
}

// LastResize returns when a size change was last observed, so downstream
// settle logic can apply the stronger content-bounds gating after resizes.
func (s *Sampler) LastResize() time.Time { return s.lastResize }

// Last returns the most recent successfully sampled bounds.
func (s *Sampler) Last() (geom.Rect, bool) { return s.prev, s.havePrev }

// Reset forgets the previous sample, so the next poll re-baselines instead
// of reporting a spurious move. Used when monitoring refocuses.
func (s *Sampler) Reset() {
	s.havePrev = false
	s.prev = geom.Rect{}
	s.misses = 0
}
