// Package hostio defines the narrow interfaces between the axwatch
// coordinator and its external collaborators: the host window/element
// queries, the analysis engine, and the presentation layer.
//
// axwatch observes, it does not render and it does not analyze. Everything
// behind these interfaces lives outside this repository (platform
// accessibility bridges, the grammar engine, the overlay widgets); the
// coordinator only issues commands and consumes query results.
package hostio

import (
	"context"
	"errors"

	"github.com/hazyhaar/axwatch/geom"
)

// ErrNoWindow is returned by WindowQuerier when the monitored process has
// no frontmost window rectangle. The sampler treats it as off-screen.
var ErrNoWindow = errors.New("hostio: no window")

// ErrTextUnavailable is returned by Element.Text when text extraction
// fails. A single failure is never fatal; callers skip the tick and retry.
var ErrTextUnavailable = errors.New("hostio: text unavailable")

// ProcessID identifies the monitored host process.
type ProcessID int32

// WindowQuerier reports the frontmost window rectangle of a process, or
// ErrNoWindow when none can be obtained.
type WindowQuerier interface {
	FrontmostWindow(ctx context.Context, pid ProcessID) (geom.Rect, error)
}

// Element is an opaque handle to the observed editable sub-element. Its
// geometry has a lifecycle independent from the window's.
type Element interface {
	// ID is a stable identity token. Analysis results are keyed by the
	// ID captured at dispatch time and dropped when it no longer matches
	// the monitored element.
	ID() string
	// Frame returns the element rectangle.
	Frame(ctx context.Context) (geom.Rect, error)
	// Text extracts the element's current text content, or fails with
	// ErrTextUnavailable (wrapped or bare).
	Text(ctx context.Context) (string, error)
}

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one issue reported by the analysis engine, addressed by rune
// offsets into the analyzed text.
type Finding struct {
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	LintID      string   `json:"lint_id"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Analyzer runs the external analysis engine. Invocations are asynchronous
// from the coordinator's point of view; Analyze itself may block and is
// always called off the coordination goroutine.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Finding, error)
}

// Presenter is the imperative command surface of the overlay widgets. The
// coordinator decides when; the presenter decides how. Implementations must
// tolerate redundant commands (hide while hidden, repeated show).
type Presenter interface {
	ShowUnderlines(findings []Finding, el Element)
	HideUnderlines()
	UpdateIndicator(findings []Finding)
	HideIndicator()
	HidePopover()
	// SetToggleInProgress marks an element toggle-settle episode so the
	// presenter does not collapse to zero visible underlines mid-transition.
	SetToggleInProgress(active bool)
}
