// Package drift detects silent text changes: host text that no longer
// matches the last text the analysis engine processed, with no
// notification explaining why. For hosts with a broken event bus this
// periodic comparison is the only thing keeping underlines honest.
package drift

import (
	"strings"
	"time"

	"github.com/hazyhaar/axwatch/profile"
)

// Outcome classifies one drift check.
type Outcome int

const (
	// NoChange: text matches, or differs only by typing at one end.
	NoChange Outcome = iota
	// SkipGrace: inside a replacement or context-switch grace period.
	SkipGrace
	// Emptied: the text is gone (sent or cleared). Clear findings, hide
	// all overlays.
	Emptied
	// IgnoreNoisy: a change was seen but the host's text retrieval is
	// too noisy to trust it.
	IgnoreNoisy
	// ReanalyzeSoft: content changed on a host that requires a full
	// re-run after replacements. Clear findings, re-analyze after a
	// short delay, but do not hide; the change is usually focus bounce
	// and hiding would flicker.
	ReanalyzeSoft
	// Hide: content changed; hide overlays. The host's event bus is
	// reliable enough that the normal text-change path will follow up.
	Hide
	// HideAndReanalyze: content changed on an unreliable-notification
	// host; no follow-up will come, so clear findings and re-analyze
	// after a longer delay.
	HideAndReanalyze
)

func (o Outcome) String() string {
	switch o {
	case SkipGrace:
		return "skip-grace"
	case Emptied:
		return "emptied"
	case IgnoreNoisy:
		return "ignore-noisy"
	case ReanalyzeSoft:
		return "reanalyze-soft"
	case Hide:
		return "hide"
	case HideAndReanalyze:
		return "hide-reanalyze"
	default:
		return "no-change"
	}
}

// Config tunes a Validator.
type Config struct {
	// ReplacementGrace skips checks this long after an accepted text
	// replacement. Default 1.5s.
	ReplacementGrace time.Duration
	// SwitchGrace skips checks this long after a context switch.
	// Default 600ms.
	SwitchGrace time.Duration
}

func (c *Config) defaults() {
	if c.ReplacementGrace <= 0 {
		c.ReplacementGrace = 1500 * time.Millisecond
	}
	if c.SwitchGrace <= 0 {
		c.SwitchGrace = 600 * time.Millisecond
	}
}

// Validator classifies text drift for one session. Pure decision logic;
// the monitor owns extraction and the resulting commands.
type Validator struct {
	cfg  Config
	prof profile.Profile
}

// New creates a Validator with the session's behavior profile.
func New(prof profile.Profile, cfg Config) *Validator {
	cfg.defaults()
	return &Validator{cfg: cfg, prof: prof}
}

// Classify compares freshly extracted text against the last text the
// analysis engine accepted. lastReplacement and lastSwitch may be zero.
func (v *Validator) Classify(analyzed, current string, now, lastReplacement, lastSwitch time.Time) Outcome {
	if !lastReplacement.IsZero() && now.Sub(lastReplacement) < v.cfg.ReplacementGrace {
		return SkipGrace
	}
	if !lastSwitch.IsZero() && now.Sub(lastSwitch) < v.cfg.SwitchGrace {
		return SkipGrace
	}

	if current == analyzed {
		return NoChange
	}

	if current == "" && analyzed != "" {
		if v.prof.WebRendering {
			// Web hosts report empty text during transient focus
			// states; trusting it would wipe findings mid-keystroke.
			return IgnoreNoisy
		}
		return Emptied
	}

	// Typing appends or deletes at one end, leaving one string a prefix
	// of the other. That drift is expected and already covered by the
	// normal text-change path.
	if strings.HasPrefix(current, analyzed) || strings.HasPrefix(analyzed, current) {
		return NoChange
	}

	// Replaced content.
	if v.prof.WebRendering || v.prof.UnstableTextRetrieval {
		return IgnoreNoisy
	}
	if v.prof.FullReanalysisAfterReplace {
		return ReanalyzeSoft
	}
	if v.prof.UnreliableNotifications {
		return HideAndReanalyze
	}
	return Hide
}
