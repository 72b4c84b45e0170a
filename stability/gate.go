// Package stability implements the settle detection used after disruptive
// geometry events. A Gate consumes timestamped bounds samples and reports
// settled once enough consecutive samples stay within tolerance, or timed
// out once a wall-clock ceiling passes — it never blocks and never
// suppresses forever.
package stability

import (
	"time"

	"github.com/hazyhaar/axwatch/geom"
)

// Verdict is the outcome of one sample observation.
type Verdict int

const (
	// Pending: the episode continues, keep sampling.
	Pending Verdict = iota
	// Settled: the required run of stable samples was observed.
	Settled
	// TimedOut: the ceiling elapsed first; callers proceed with the
	// possibly-imperfect geometry rather than blocking the overlay.
	TimedOut
)

func (v Verdict) String() string {
	switch v {
	case Settled:
		return "settled"
	case TimedOut:
		return "timed-out"
	default:
		return "pending"
	}
}

// Config tunes a Gate. Two canonical parameter sets exist: position reshow
// (one stable comparison, externally bounded retries) and content settle
// (four consecutive samples within 3px position / 2px width, 1s ceiling).
type Config struct {
	// PosTolerance is the maximum origin distance between consecutive
	// samples that still counts as stable.
	PosTolerance float64
	// WidthTolerance is the maximum width delta that still counts as
	// stable. Height is deliberately not gated: content-bounds height
	// keeps creeping while web hosts reflow, and waiting on it starves
	// the reshow.
	WidthTolerance float64
	// Required is the run of consecutive stable comparisons to settle.
	Required int
	// Ceiling forces TimedOut this long after Begin. Zero means no
	// ceiling (callers bound the episode themselves).
	Ceiling time.Duration
}

// Gate tracks one settle episode. Not safe for concurrent use; it lives on
// the coordination goroutine like every other detector.
type Gate struct {
	cfg Config

	started  time.Time
	baseline geom.Rect
	haveBase bool
	stable   int
	done     bool
}

// NewGate creates a Gate; call Begin to start an episode.
func NewGate(cfg Config) *Gate {
	if cfg.Required <= 0 {
		cfg.Required = 1
	}
	return &Gate{cfg: cfg}
}

// Begin starts a fresh episode at now, discarding any previous samples.
// The first Observe establishes the comparison baseline.
func (g *Gate) Begin(now time.Time) {
	g.started = now
	g.haveBase = false
	g.stable = 0
	g.done = false
}

// BeginWith starts a fresh episode seeded with a baseline, so the very
// first Observe already counts as a comparison. Used when the disruptive
// event itself supplies the last known bounds.
func (g *Gate) BeginWith(now time.Time, baseline geom.Rect) {
	g.Begin(now)
	g.baseline = baseline
	g.haveBase = true
}

// Observe feeds the next sample. Once Settled or TimedOut is returned the
// episode is finished and further samples return the same verdict until
// Begin is called again.
func (g *Gate) Observe(s geom.Sample) Verdict {
	if g.done {
		return g.verdict()
	}

	if g.cfg.Ceiling > 0 && s.At.Sub(g.started) >= g.cfg.Ceiling {
		g.done = true
		return TimedOut
	}

	if !g.haveBase {
		g.baseline = s.Bounds
		g.haveBase = true
		return Pending
	}

	dw, _ := s.Bounds.SizeDelta(g.baseline)
	stable := s.Bounds.PosDelta(g.baseline) < g.cfg.PosTolerance && dw < g.cfg.WidthTolerance
	// Always compare against the previous sample, not the episode start.
	g.baseline = s.Bounds
	if !stable {
		g.stable = 0
		return Pending
	}
	g.stable++

	if g.stable >= g.cfg.Required {
		g.done = true
		return Settled
	}
	return Pending
}

// StableCount returns the current run of consecutive stable samples.
func (g *Gate) StableCount() int { return g.stable }

// Done reports whether the episode has concluded.
func (g *Gate) Done() bool { return g.done }

func (g *Gate) verdict() Verdict {
	if !g.done {
		return Pending
	}
	if g.stable >= g.cfg.Required {
		return Settled
	}
	return TimedOut
}
