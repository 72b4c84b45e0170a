package axwatch

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/axwatch/hostio"
	"github.com/hazyhaar/axwatch/internal/drift"
	"github.com/hazyhaar/axwatch/internal/element"
	"github.com/hazyhaar/axwatch/internal/sampler"
	"github.com/hazyhaar/axwatch/internal/scroll"
	"github.com/hazyhaar/axwatch/profile"
	"github.com/hazyhaar/axwatch/stability"
	"github.com/hazyhaar/axwatch/timers"
)

// session owns all coordinator state for one monitored element. Every
// field below snapMu is mutated only on the run goroutine.
type session struct {
	m      *Monitor
	id     string
	target Target
	prof   profile.Profile

	sched   *timers.Scheduler
	events  chan event
	results chan analysisResult
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	sampler   *sampler.Sampler
	tracker   *element.Tracker
	coalescer *scroll.Coalescer
	validator *drift.Validator

	// Suppression flags. Overlays are eligible only when all are false.
	moved     bool
	offScreen bool
	scrolling bool

	findings        []hostio.Finding
	analyzedText    string
	pendingText     string
	lastReplacement time.Time
	lastSwitch      time.Time
	analysisGen     uint64
	terminalNoted   bool

	// Reshow pipeline, see reshow.go.
	phase        reshowPhase
	winGate      *stability.Gate
	elemGate     *stability.Gate
	contentGate  *stability.Gate
	toggleGate   *stability.Gate
	budget       *stability.RetryBudget
	cycleStart   time.Time
	contentStart time.Time

	snapMu sync.Mutex
	snap   Snapshot
}

func newSession(m *Monitor, target Target, prof profile.Profile) *session {
	posSync := stability.Config{
		PosTolerance:   m.cfg.PositionSyncTolerance,
		WidthTolerance: m.cfg.PositionSyncTolerance,
		Required:       1,
	}
	s := &session{
		m:       m,
		id:      m.newID(),
		target:  target,
		prof:    prof,
		sched:   timers.NewScheduler(m.clock, m.logger),
		events:  make(chan event, 128),
		results: make(chan analysisResult, 8),

		sampler:   sampler.New(m.windows, target.PID, m.cfg.Sampler),
		tracker:   element.New(prof, m.cfg.Tracker),
		coalescer: scroll.New(prof, scroll.Config{ReplacementGrace: m.cfg.ReplacementGrace}),
		validator: drift.New(prof, drift.Config{
			ReplacementGrace: m.cfg.ReplacementGrace,
			SwitchGrace:      m.cfg.SwitchGrace,
		}),

		analyzedText: target.InitialText,

		winGate:     stability.NewGate(posSync),
		elemGate:    stability.NewGate(posSync),
		contentGate: stability.NewGate(m.cfg.ContentSettle),
		toggleGate:  stability.NewGate(m.cfg.ContentSettle),
		budget:      stability.NewRetryBudget(m.cfg.MaxPositionSyncRetries),
	}
	s.snap = Snapshot{SessionID: s.id, BundleID: target.BundleID}
	return s
}

func (s *session) run(ctx context.Context) {
	s.sched.Arm(timers.PurposeFramePoll, s.m.cfg.FramePollInterval)
	s.sched.Arm(timers.PurposeDriftCheck, s.m.cfg.DriftCheckInterval)
	if s.target.InitialText != "" {
		s.pendingText = s.target.InitialText
		s.sched.Arm(timers.PurposeAnalyze, s.m.cfg.AnalyzeDebounce)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.sched.C():
			s.handleFiring(ctx, f)
		case ev := <-s.events:
			s.handleEvent(ctx, ev)
		case res := <-s.results:
			s.handleResult(res)
		}
	}
}

func (s *session) handleFiring(ctx context.Context, f timers.Firing) {
	switch f.Purpose {
	case timers.PurposeFramePoll:
		s.onFramePoll(ctx, f.At)
	case timers.PurposeDriftCheck:
		s.onDriftCheck(ctx, f.At)
	case timers.PurposeReshow:
		s.beginPositionSync(f.At)
	case timers.PurposePositionSync:
		s.onPositionSync(ctx, f.At)
	case timers.PurposeContentSettle:
		s.onContentSettle(ctx, f.At)
	case timers.PurposeToggleSettle:
		s.onToggleSettle(ctx, f.At)
	case timers.PurposeScrollRestore:
		s.onScrollRestore()
	case timers.PurposeAnalyze:
		s.dispatchAnalysis(ctx, s.pendingText)
	case timers.PurposeReanalyze, timers.PurposeContextSwitch:
		s.reanalyzeCurrent(ctx)
	}
}

func (s *session) handleEvent(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case textChanged:
		s.pendingText = ev.text
		s.sched.Arm(timers.PurposeAnalyze, s.m.cfg.AnalyzeDebounce)
	case scrollSignal:
		s.onScrollSignal(s.sched.Now())
	case replacementAccepted:
		s.lastReplacement = s.sched.Now()
	}
}

// onFramePoll is one coordination tick: window geometry first, element
// geometry second, so a move detected this tick suppresses the element
// handler that would otherwise misclassify its cause.
func (s *session) onFramePoll(ctx context.Context, now time.Time) {
	defer s.sched.Arm(timers.PurposeFramePoll, s.m.cfg.FramePollInterval)

	ev := s.sampler.Sample(ctx, now)
	switch ev.Kind {
	case sampler.MoveStarted:
		s.onMoveStarted(ev)
	case sampler.OffScreen:
		s.onOffScreen(ev)
	case sampler.BackOnScreen:
		s.onBackOnScreen()
	case sampler.Stable:
		if s.moved && s.phase == reshowIdle && !s.sched.Armed(timers.PurposeReshow) {
			s.sched.Arm(timers.PurposeReshow, s.m.cfg.ReshowSettleDelay)
		}
		s.observeElement(ctx, now)
	}
}

func (s *session) onMoveStarted(ev sampler.Event) {
	if !s.moved {
		// A fresh movement cycle; resizes recorded from here on decide
		// whether the reshow needs the content-bounds settle.
		s.cycleStart = ev.At
	}
	s.setMoved(true, ev.Cause.String())
	s.hideAll()
	s.cancelReshow()
	s.budget.Reset()
	s.syncCounters()
}

func (s *session) onOffScreen(ev sampler.Event) {
	if !s.offScreen {
		s.setOffScreen(true, "no window rectangle")
		s.hideAll()
		s.cancelReshow()
	}
	if ev.Terminal && !s.terminalNoted {
		s.terminalNoted = true
		s.m.recordDecision(s, "off-screen-terminal", "element abandoned, waiting for reappearance")
	}
}

func (s *session) onBackOnScreen() {
	s.setOffScreen(false, "window rectangle obtainable again")
	s.terminalNoted = false
	s.tracker.Reset()
	// Cached analyzed text cannot be trusted after a disappearance;
	// force a fresh extraction cycle.
	s.analyzedText = ""
	if s.target.Element == nil {
		if len(s.findings) > 0 {
			// Underline positions need an element; the count-bearing
			// indicator does not.
			s.m.presenter.UpdateIndicator(s.findings)
		}
		return
	}
	s.sched.Arm(timers.PurposeReanalyze, s.m.cfg.SoftReanalyzeDelay)
}

func (s *session) observeElement(ctx context.Context, now time.Time) {
	el := s.target.Element
	if el == nil || s.offScreen {
		return
	}
	if s.moved || s.scrolling {
		// Element deltas during an open movement cycle or a scroll are
		// caused by the move or the scroll; classifying them would
		// mistake the cause. The tracker rebaselines afterwards.
		return
	}
	cur, err := el.Frame(ctx)
	if err != nil {
		return
	}

	switch s.tracker.Observe(cur, len(s.findings) > 0, now) {
	case element.ContentCleared:
		s.setFindings(nil)
		s.hideAll()
		s.m.recordDecision(s, "content-cleared", "element height shrank with findings shown")
	case element.ContentGrown:
		// Positions shifted but the findings themselves are intact.
		s.refresh()
	case element.ContextSwitch:
		s.lastSwitch = now
		s.setFindings(nil)
		s.hideAll()
		s.sched.Arm(timers.PurposeContextSwitch, s.prof.ConversationSwitchDelay)
	case element.ElementReplaced:
		s.tracker.Reset()
		s.m.recordDecision(s, "element-replaced", "large move, tracking reset")
	case element.ToggleStarted:
		s.m.presenter.SetToggleInProgress(true)
		s.toggleGate.BeginWith(now, cur)
		s.sched.Arm(timers.PurposeToggleSettle, s.m.cfg.ContentSettleInterval)
	case element.ToggleInProgress:
		// Already settling; re-triggering would flicker.
	}
}

func (s *session) onToggleSettle(ctx context.Context, now time.Time) {
	el := s.target.Element
	if el == nil {
		s.tracker.ToggleSettled()
		s.m.presenter.SetToggleInProgress(false)
		return
	}
	cur, err := el.Frame(ctx)
	if err != nil {
		s.sched.Arm(timers.PurposeToggleSettle, s.m.cfg.ContentSettleInterval)
		return
	}
	verdict := s.toggleGate.Observe(geomSample(cur, now))
	if verdict == stability.Pending {
		s.sched.Arm(timers.PurposeToggleSettle, s.m.cfg.ContentSettleInterval)
		return
	}
	s.tracker.ToggleSettled()
	s.m.presenter.SetToggleInProgress(false)
	s.refresh()
	s.m.recordDecision(s, "toggle-settled", verdict.String())
}

func (s *session) onDriftCheck(ctx context.Context, now time.Time) {
	defer s.sched.Arm(timers.PurposeDriftCheck, s.m.cfg.DriftCheckInterval)

	if len(s.findings) == 0 {
		return
	}
	el := s.target.Element
	if el == nil {
		return
	}
	text, err := el.Text(ctx)
	if err != nil {
		return
	}

	outcome := s.validator.Classify(s.analyzedText, text, now, s.lastReplacement, s.lastSwitch)
	switch outcome {
	case drift.Emptied:
		s.setFindings(nil)
		s.hideAll()
	case drift.ReanalyzeSoft:
		// Keep the overlays up to avoid flicker during focus bounce;
		// reanalysis replaces them shortly.
		s.setFindings(nil)
		s.sched.Arm(timers.PurposeReanalyze, s.m.cfg.SoftReanalyzeDelay)
	case drift.Hide:
		s.hideAll()
	case drift.HideAndReanalyze:
		s.hideAll()
		s.setFindings(nil)
		s.sched.Arm(timers.PurposeReanalyze, s.m.cfg.UnreliableReanalyzeDelay)
	}
	if outcome != drift.NoChange && outcome != drift.SkipGrace {
		s.m.recordDecision(s, "drift", outcome.String())
	}
}

func (s *session) onScrollSignal(now time.Time) {
	switch s.coalescer.OnSignal(now, s.lastReplacement) {
	case scroll.Start:
		s.setScrolling(true, "scroll activity")
		// Scroll-displaced element frames must not be classified as
		// element moves; forget the geometry baseline.
		s.tracker.Reset()
		// Only the underline layer hides during scrolling; the
		// indicator keeps its place.
		s.m.presenter.HideUnderlines()
		s.sched.Arm(timers.PurposeScrollRestore, s.coalescer.RestoreDelay())
	case scroll.Extend:
		s.sched.Arm(timers.PurposeScrollRestore, s.coalescer.RestoreDelay())
	case scroll.Ignore:
	}
}

func (s *session) onScrollRestore() {
	s.coalescer.Stopped()
	s.setScrolling(false, "scroll debounce elapsed")
	if s.eligible() && len(s.findings) > 0 {
		s.m.presenter.ShowUnderlines(s.findings, s.target.Element)
	}
}

func (s *session) dispatchAnalysis(ctx context.Context, text string) {
	s.analysisGen++
	gen := s.analysisGen
	reqID := s.m.newReqID()
	var elID string
	if s.target.Element != nil {
		elID = s.target.Element.ID()
	}
	s.m.logger.Debug("axwatch: analysis dispatched",
		"session", s.id, "request", reqID, "chars", len(text))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		findings, err := s.m.analyzer.Analyze(ctx, text)
		res := analysisResult{gen: gen, requestID: reqID, elementID: elID, text: text, findings: findings, err: err}
		select {
		case s.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (s *session) reanalyzeCurrent(ctx context.Context) {
	el := s.target.Element
	if el == nil {
		return
	}
	text, err := el.Text(ctx)
	if err != nil {
		return
	}
	s.dispatchAnalysis(ctx, text)
}

func (s *session) handleResult(res analysisResult) {
	var elID string
	if s.target.Element != nil {
		elID = s.target.Element.ID()
	}
	if res.gen != s.analysisGen || res.elementID != elID {
		s.m.recordDecision(s, "stale-analysis", "request "+res.requestID+" superseded, result dropped")
		return
	}
	if res.err != nil {
		s.m.logger.Warn("axwatch: analysis failed",
			"session", s.id, "request", res.requestID, "error", res.err)
		return
	}

	s.analyzedText = res.text
	s.setFindings(res.findings)
	if len(res.findings) == 0 {
		s.hideAll()
		return
	}
	s.refresh()
}

// eligible reports whether overlays may be shown: all three suppression
// flags false.
func (s *session) eligible() bool {
	return !s.moved && !s.offScreen && !s.scrolling
}

// refresh redraws the cached findings at current geometry, if eligible.
func (s *session) refresh() {
	if !s.eligible() || len(s.findings) == 0 {
		return
	}
	s.m.presenter.ShowUnderlines(s.findings, s.target.Element)
	s.m.presenter.UpdateIndicator(s.findings)
}

func (s *session) hideAll() {
	s.m.presenter.HideUnderlines()
	s.m.presenter.HideIndicator()
	s.m.presenter.HidePopover()
}

func (s *session) setMoved(v bool, reason string) {
	if s.moved == v {
		return
	}
	s.moved = v
	s.m.recordTransition(s, "movedOrResizing", v, reason)
	s.m.logger.Debug("axwatch: movedOrResizing", "session", s.id, "value", v, "reason", reason)
	s.snapMu.Lock()
	s.snap.MovedOrResizing = v
	s.snapMu.Unlock()
}

func (s *session) setOffScreen(v bool, reason string) {
	if s.offScreen == v {
		return
	}
	s.offScreen = v
	s.m.recordTransition(s, "offScreen", v, reason)
	s.m.logger.Debug("axwatch: offScreen", "session", s.id, "value", v, "reason", reason)
	s.snapMu.Lock()
	s.snap.OffScreen = v
	s.snapMu.Unlock()
}

func (s *session) setScrolling(v bool, reason string) {
	if s.scrolling == v {
		return
	}
	s.scrolling = v
	s.m.recordTransition(s, "scrolling", v, reason)
	s.m.logger.Debug("axwatch: scrolling", "session", s.id, "value", v, "reason", reason)
	s.snapMu.Lock()
	s.snap.Scrolling = v
	s.snapMu.Unlock()
}

func (s *session) setFindings(f []hostio.Finding) {
	s.findings = f
	s.snapMu.Lock()
	s.snap.FindingCount = len(f)
	s.snapMu.Unlock()
}

func (s *session) syncCounters() {
	s.snapMu.Lock()
	s.snap.PositionSyncSpent = s.budget.Used()
	s.snap.ContentStableCount = s.contentGate.StableCount()
	s.snapMu.Unlock()
}

func (s *session) snapshot() Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.snap
}
