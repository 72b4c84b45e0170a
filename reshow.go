package axwatch

import (
	"context"
	"time"

	"github.com/hazyhaar/axwatch/geom"
	"github.com/hazyhaar/axwatch/stability"
	"github.com/hazyhaar/axwatch/timers"
)

// reshowPhase tracks where the post-move reshow pipeline stands. The
// pipeline is: settle delay, then position sync (bounded retries), then,
// if the cycle included a resize, a content-bounds settle episode.
type reshowPhase int

const (
	reshowIdle reshowPhase = iota
	reshowPositionSync
	reshowContentSettle
)

func geomSample(r geom.Rect, at time.Time) geom.Sample {
	return geom.Sample{Bounds: r, At: at}
}

// cancelReshow drops every pending reshow timer and returns the pipeline
// to idle. Called when a new move begins or the window goes off screen.
func (s *session) cancelReshow() {
	s.sched.Cancel(timers.PurposeReshow)
	s.sched.Cancel(timers.PurposePositionSync)
	s.sched.Cancel(timers.PurposeContentSettle)
	s.phase = reshowIdle
}

// beginPositionSync starts the position-sync phase once the settle delay
// after the last stable poll has elapsed. Gates are seeded with the last
// known bounds so the first comparison is already meaningful.
func (s *session) beginPositionSync(now time.Time) {
	if !s.moved {
		return
	}
	s.phase = reshowPositionSync
	if base, ok := s.sampler.Last(); ok {
		s.winGate.BeginWith(now, base)
	} else {
		s.winGate.Begin(now)
	}
	if s.target.Element != nil {
		if base, ok := s.tracker.Last(); ok {
			s.elemGate.BeginWith(now, base)
		} else {
			s.elemGate.Begin(now)
		}
	}
	s.sched.Arm(timers.PurposePositionSync, s.m.cfg.PositionSyncInterval)
}

// onPositionSync is one bounded retry: re-verify that the window (and
// element, when attached) geometry agrees with the previous reading. On
// agreement the pipeline advances; on budget exhaustion it advances
// anyway with a degraded log instead of blocking the overlay forever.
func (s *session) onPositionSync(ctx context.Context, now time.Time) {
	if !s.moved || s.phase != reshowPositionSync {
		return
	}

	stable := false
	if w, err := s.m.windows.FrontmostWindow(ctx, s.target.PID); err == nil {
		stable = s.winGate.Observe(geomSample(w, now)) == stability.Settled
	}
	if stable && s.target.Element != nil {
		stable = false
		if e, err := s.target.Element.Frame(ctx); err == nil {
			stable = s.elemGate.Observe(geomSample(e, now)) == stability.Settled
		}
	}

	if stable {
		s.advanceReshow(now, false)
		return
	}
	if s.budget.Spend() {
		s.syncCounters()
		s.sched.Arm(timers.PurposePositionSync, s.m.cfg.PositionSyncInterval)
		return
	}
	s.m.logger.Warn("axwatch: position sync budget exhausted, proceeding degraded",
		"session", s.id, "retries", s.budget.Used())
	s.m.recordDecision(s, "reshow-degraded", "position sync never agreed, forced pass")
	s.advanceReshow(now, true)
}

func (s *session) advanceReshow(now time.Time, degraded bool) {
	s.syncCounters()
	lastResize := s.sampler.LastResize()
	if lastResize.IsZero() || lastResize.Before(s.cycleStart) {
		s.finishReshow(degraded, "position-sync")
		return
	}
	// A resize shifts content bounds for a while after the window stops;
	// require the stronger multi-sample settle before reshowing.
	s.phase = reshowContentSettle
	s.contentStart = now
	if s.target.Element != nil {
		if base, ok := s.tracker.Last(); ok {
			s.contentGate.BeginWith(now, base)
		} else {
			s.contentGate.Begin(now)
		}
	} else if base, ok := s.sampler.Last(); ok {
		s.contentGate.BeginWith(now, base)
	} else {
		s.contentGate.Begin(now)
	}
	s.sched.Arm(timers.PurposeContentSettle, s.m.cfg.ContentSettleInterval)
}

func (s *session) onContentSettle(ctx context.Context, now time.Time) {
	if !s.moved || s.phase != reshowContentSettle {
		return
	}

	bounds, ok := s.settleBounds(ctx)
	if !ok {
		// Query failures must not suppress forever; the ceiling still
		// applies even when no sample can be read.
		if now.Sub(s.contentStart) >= s.m.cfg.ContentSettle.Ceiling {
			s.finishReshow(true, "content-settle ceiling, no sample")
			return
		}
		s.sched.Arm(timers.PurposeContentSettle, s.m.cfg.ContentSettleInterval)
		return
	}

	verdict := s.contentGate.Observe(geomSample(bounds, now))
	s.syncCounters()
	if verdict == stability.Pending {
		s.sched.Arm(timers.PurposeContentSettle, s.m.cfg.ContentSettleInterval)
		return
	}
	s.finishReshow(verdict == stability.TimedOut, "content-settle "+verdict.String())
}

func (s *session) settleBounds(ctx context.Context) (geom.Rect, bool) {
	if el := s.target.Element; el != nil {
		r, err := el.Frame(ctx)
		return r, err == nil
	}
	r, err := s.m.windows.FrontmostWindow(ctx, s.target.PID)
	return r, err == nil
}

// finishReshow clears movedOrResizing and redraws cached findings at the
// new geometry, if the other suppression flags allow it.
func (s *session) finishReshow(degraded bool, detail string) {
	s.phase = reshowIdle
	s.tracker.Reset()
	s.setMoved(false, detail)
	s.refresh()
	if degraded {
		s.m.recordDecision(s, "reshow", "degraded: "+detail)
	} else {
		s.m.recordDecision(s, "reshow", detail)
	}
}
