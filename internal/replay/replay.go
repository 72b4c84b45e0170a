// Package replay feeds a captured host trace through the monitor. A
// trace is JSON lines, one record per host observation, with offsets
// relative to capture start. Replaying a trace against the stdout
// presenter reproduces the exact command sequence a live session would
// have issued, which is how host-specific misbehavior gets diagnosed
// without the host.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hazyhaar/axwatch/geom"
	"github.com/hazyhaar/axwatch/hostio"
)

// Record is one captured host observation.
type Record struct {
	// Offset from capture start, a time.ParseDuration string.
	Offset string `json:"offset"`
	// Kind: window, window-gone, element, text, scroll, replacement.
	Kind string `json:"kind"`

	Bounds *geom.Rect `json:"bounds,omitempty"`
	Text   string     `json:"text,omitempty"`
}

// At parses the record offset.
func (r Record) At() (time.Duration, error) {
	if r.Offset == "" {
		return 0, nil
	}
	return time.ParseDuration(r.Offset)
}

// Read decodes a whole trace.
func Read(r io.Reader) ([]Record, error) {
	var recs []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", line, err)
		}
		if _, err := rec.At(); err != nil {
			return nil, fmt.Errorf("replay: line %d: offset: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("replay: scan: %w", err)
	}
	return recs, nil
}

// Host is a replayed window and element: the monitor polls it like a
// live host while Apply mutates it from the trace.
type Host struct {
	mu      sync.Mutex
	window  geom.Rect
	hasWin  bool
	element geom.Rect
	hasElem bool
	text    string
}

// NewHost creates an empty Host; the first window record puts it on
// screen.
func NewHost() *Host { return &Host{} }

// FrontmostWindow implements hostio.WindowQuerier.
func (h *Host) FrontmostWindow(_ context.Context, _ hostio.ProcessID) (geom.Rect, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasWin {
		return geom.Rect{}, hostio.ErrNoWindow
	}
	return h.window, nil
}

// ID implements hostio.Element.
func (h *Host) ID() string { return "replay-element" }

// Frame implements hostio.Element.
func (h *Host) Frame(_ context.Context) (geom.Rect, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasElem {
		return geom.Rect{}, hostio.ErrTextUnavailable
	}
	return h.element, nil
}

// Text implements hostio.Element.
func (h *Host) Text(_ context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasElem {
		return "", hostio.ErrTextUnavailable
	}
	return h.text, nil
}

// Sink receives the records that are monitor hooks rather than host
// state. The Monitor satisfies it.
type Sink interface {
	HandleTextChange(text string)
	NotifyScroll()
	NoteReplacement()
}

// Apply mutates the host or forwards to the sink for one record.
func (h *Host) Apply(rec Record, sink Sink) {
	switch rec.Kind {
	case "window":
		h.mu.Lock()
		if rec.Bounds != nil {
			h.window = *rec.Bounds
			h.hasWin = true
		}
		h.mu.Unlock()
	case "window-gone":
		h.mu.Lock()
		h.hasWin = false
		h.mu.Unlock()
	case "element":
		h.mu.Lock()
		if rec.Bounds != nil {
			h.element = *rec.Bounds
			h.hasElem = true
		}
		if rec.Text != "" {
			h.text = rec.Text
		}
		h.mu.Unlock()
	case "text":
		h.mu.Lock()
		h.text = rec.Text
		h.mu.Unlock()
		if sink != nil {
			sink.HandleTextChange(rec.Text)
		}
	case "scroll":
		if sink != nil {
			sink.NotifyScroll()
		}
	case "replacement":
		if sink != nil {
			sink.NoteReplacement()
		}
	}
}
