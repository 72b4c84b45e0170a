// Package present contains presenter backends that render monitor
// commands. Stdout is the default: it writes each command as a JSON
// line, which the host overlay process consumes.
package present

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hazyhaar/axwatch/hostio"
)

// Command is one rendered presenter instruction.
type Command struct {
	Op        string           `json:"op"`
	At        time.Time        `json:"at"`
	ElementID string           `json:"elementId,omitempty"`
	Findings  []hostio.Finding `json:"findings,omitempty"`
	Value     *bool            `json:"value,omitempty"`
}

// Stdout writes commands as JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// StdoutOption configures a Stdout presenter.
type StdoutOption func(*Stdout)

// WithNow overrides the timestamp source. Used by tests.
func WithNow(now func() time.Time) StdoutOption {
	return func(s *Stdout) { s.now = now }
}

// NewStdout creates a Stdout presenter. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer, opts ...StdoutOption) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	s := &Stdout{enc: json.NewEncoder(w), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Stdout) emit(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd.At = s.now()
	s.enc.Encode(cmd)
}

func (s *Stdout) ShowUnderlines(findings []hostio.Finding, el hostio.Element) {
	var id string
	if el != nil {
		id = el.ID()
	}
	s.emit(Command{Op: "showUnderlines", ElementID: id, Findings: findings})
}

func (s *Stdout) HideUnderlines() { s.emit(Command{Op: "hideUnderlines"}) }

func (s *Stdout) UpdateIndicator(findings []hostio.Finding) {
	s.emit(Command{Op: "updateIndicator", Findings: findings})
}

func (s *Stdout) HideIndicator() { s.emit(Command{Op: "hideIndicator"}) }
func (s *Stdout) HidePopover()   { s.emit(Command{Op: "hidePopover"}) }

func (s *Stdout) SetToggleInProgress(v bool) {
	s.emit(Command{Op: "setToggleInProgress", Value: &v})
}
