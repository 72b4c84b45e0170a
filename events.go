package axwatch

import (
	"github.com/hazyhaar/axwatch/hostio"
)

// event is a typed message delivered to the session loop. Hooks on the
// Monitor translate caller activity into events; detectors never mutate
// shared state from outside the loop.
type event interface{ isEvent() }

// textChanged carries the latest edited text from the host shell.
type textChanged struct {
	text string
}

// scrollSignal is one raw scroll activity notification.
type scrollSignal struct{}

// replacementAccepted marks the moment a suggested replacement was
// applied, starting the grace periods that mute scroll and drift noise.
type replacementAccepted struct{}

func (textChanged) isEvent()         {}
func (scrollSignal) isEvent()        {}
func (replacementAccepted) isEvent() {}

// analysisResult is the outcome of one engine invocation, keyed by the
// element identity and generation captured at dispatch time so stale
// results from a superseded element are dropped.
type analysisResult struct {
	gen       uint64
	requestID string
	elementID string
	text      string
	findings  []hostio.Finding
	err       error
}
