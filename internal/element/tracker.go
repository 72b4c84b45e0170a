// Package element tracks the geometry of the observed editable element,
// independently of the window, and classifies each change by magnitude and
// sign. The same raw delta means different things in different hosts
// (message sent, conversation switched, focus toggled), so classification
// leans on the active behavior profile.
package element

import (
	"time"

	"github.com/hazyhaar/axwatch/geom"
	"github.com/hazyhaar/axwatch/profile"
)

// Change classifies one element geometry observation.
type Change int

const (
	// NoChange: within thresholds, nothing to do.
	NoChange Change = iota
	// ContentCleared: height shrank while findings were shown — the text
	// was sent or deleted. Clear findings, hide overlays.
	ContentCleared
	// ContentGrown: height grew while findings exist — positions shift
	// but the findings stay valid. Refresh geometry only.
	ContentGrown
	// ContextSwitch: a message-oriented host moved the element — a
	// different conversation is focused. Full re-analysis after the
	// profile delay.
	ContextSwitch
	// ElementReplaced: the move was too large to be the same element.
	// Reset tracking silently, no toggle animation.
	ElementReplaced
	// ToggleStarted: a moderate move began a toggle-settle episode.
	ToggleStarted
	// ToggleInProgress: a further move arrived during an unfinished
	// toggle episode; ignored to avoid re-triggering flicker.
	ToggleInProgress
)

func (c Change) String() string {
	switch c {
	case ContentCleared:
		return "content-cleared"
	case ContentGrown:
		return "content-grown"
	case ContextSwitch:
		return "context-switch"
	case ElementReplaced:
		return "element-replaced"
	case ToggleStarted:
		return "toggle-started"
	case ToggleInProgress:
		return "toggle-in-progress"
	default:
		return "no-change"
	}
}

// Config tunes a Tracker.
type Config struct {
	// HeightDelta is the height change above which content is considered
	// cleared or grown. Default 5.
	HeightDelta float64
	// MoveThreshold is the origin distance above which a move is
	// classified at all. Default 10.
	MoveThreshold float64
	// LargeMove is the origin distance above which a move means "a
	// different element is focused now". Heuristic constant, kept
	// tunable on purpose. Default 500.
	LargeMove float64
}

func (c *Config) defaults() {
	if c.HeightDelta <= 0 {
		c.HeightDelta = 5
	}
	if c.MoveThreshold <= 0 {
		c.MoveThreshold = 10
	}
	if c.LargeMove <= 0 {
		c.LargeMove = 500
	}
}

// Tracker classifies element geometry changes for one monitoring session.
// Driven by the monitor loop; not safe for concurrent use.
type Tracker struct {
	cfg  Config
	prof profile.Profile

	prev     geom.Rect
	havePrev bool
	toggling bool
	lastSeen time.Time
}

// New creates a Tracker with the session's behavior profile.
func New(prof profile.Profile, cfg Config) *Tracker {
	cfg.defaults()
	return &Tracker{cfg: cfg, prof: prof}
}

// Observe classifies the current element bounds against the previous ones.
// findingsShown reports whether any findings are currently displayed; the
// height heuristics only mean something while they are.
func (t *Tracker) Observe(cur geom.Rect, findingsShown bool, now time.Time) Change {
	t.lastSeen = now

	if !t.havePrev {
		t.prev = cur
		t.havePrev = true
		return NoChange
	}

	prev := t.prev
	t.prev = cur

	heightDelta := cur.H - prev.H
	moved := cur.PosDelta(prev)

	// Height heuristics take priority: a sent message both shrinks and
	// may reposition the element, and "cleared" is the classification
	// that keeps stale underlines off a now-empty field.
	if findingsShown && heightDelta < -t.cfg.HeightDelta {
		return ContentCleared
	}
	if findingsShown && heightDelta > t.cfg.HeightDelta {
		return ContentGrown
	}

	if moved <= t.cfg.MoveThreshold {
		return NoChange
	}

	// Ambiguous move: conversation switch, element swap, or focus toggle.
	switch {
	case t.prof.Messenger:
		return ContextSwitch
	case moved > t.cfg.LargeMove:
		t.toggling = false
		return ElementReplaced
	case t.toggling:
		return ToggleInProgress
	default:
		t.toggling = true
		return ToggleStarted
	}
}

// ToggleSettled ends the current toggle-settle episode.
func (t *Tracker) ToggleSettled() { t.toggling = false }

// Toggling reports whether a toggle-settle episode is in progress.
func (t *Tracker) Toggling() bool { return t.toggling }

// Last returns the most recent observed bounds.
func (t *Tracker) Last() (geom.Rect, bool) { return t.prev, t.havePrev }

// Reset forgets the baseline so the next observation re-baselines without
// classifying. Used after off-screen recovery and element replacement.
func (t *Tracker) Reset() {
	t.havePrev = false
	t.prev = geom.Rect{}
	t.toggling = false
}
