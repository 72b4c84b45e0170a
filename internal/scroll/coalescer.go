// Package scroll coalesces raw scroll activity signals into a single
// started/stopped pair. Hosts deliver scroll events in noisy bursts, and a
// just-applied text replacement fakes scroll activity in several of them,
// so the coalescer owns the grace and debounce decisions.
package scroll

import (
	"time"

	"github.com/hazyhaar/axwatch/profile"
)

// Action is the coalescer's verdict on one raw scroll signal.
type Action int

const (
	// Ignore: inside the replacement grace period or scroll-hide is
	// disabled for this host.
	Ignore Action = iota
	// Start: first signal in an idle state. Set the scrolling flag, hide
	// the underline layer, arm the restore timer.
	Start
	// Extend: scrolling already in progress. Re-arm the restore timer.
	Extend
)

func (a Action) String() string {
	switch a {
	case Start:
		return "start"
	case Extend:
		return "extend"
	default:
		return "ignore"
	}
}

// Config tunes a Coalescer.
type Config struct {
	// ReplacementGrace ignores scroll signals this long after an accepted
	// text replacement. Default 1.5s.
	ReplacementGrace time.Duration
}

func (c *Config) defaults() {
	if c.ReplacementGrace <= 0 {
		c.ReplacementGrace = 1500 * time.Millisecond
	}
}

// Coalescer converts raw scroll signals into started/stopped semantics for
// one session. Driven by the monitor loop; not safe for concurrent use.
type Coalescer struct {
	cfg    Config
	prof   profile.Profile
	active bool
}

// New creates a Coalescer with the session's behavior profile.
func New(prof profile.Profile, cfg Config) *Coalescer {
	cfg.defaults()
	return &Coalescer{cfg: cfg, prof: prof}
}

// OnSignal classifies one raw scroll signal. lastReplacement is the time
// of the last accepted text replacement (zero if none).
func (c *Coalescer) OnSignal(now, lastReplacement time.Time) Action {
	if !lastReplacement.IsZero() && now.Sub(lastReplacement) < c.cfg.ReplacementGrace {
		return Ignore
	}
	if c.prof.DisableScrollHide {
		return Ignore
	}
	if c.active {
		return Extend
	}
	c.active = true
	return Start
}

// Stopped ends the scrolling episode; called when the restore timer fires.
func (c *Coalescer) Stopped() { c.active = false }

// Active reports whether a scrolling episode is in progress.
func (c *Coalescer) Active() bool { return c.active }

// RestoreDelay is the debounce delay before underlines are redrawn,
// profile-specific (web-rendering hosts get the longer delay).
func (c *Coalescer) RestoreDelay() time.Duration {
	return c.prof.ScrollReshowDelay
}
