// Package profile models per-application behavior profiles: the known
// deviations of a host application from reliable notification and geometry
// behavior, plus its timing parameters.
//
// A profile is resolved once per monitoring session and read-only after
// that. The detectors consult it to pick thresholds and delays; they never
// write it back.
package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile describes one host application's quirks and timing parameters.
// The zero value plus applyDefaults is the conservative default profile:
// no quirks, standard delays.
type Profile struct {
	BundleID string `json:"bundle_id"`

	// Quirk flags.
	WebRendering               bool `json:"web_rendering"`                 // web-style rendering; transient empty focus states are common
	UnstableTextRetrieval      bool `json:"unstable_text_retrieval"`       // text queries return filtering/formatting noise
	FullReanalysisAfterReplace bool `json:"full_reanalysis_after_replace"` // replacement side effects require a clean re-run
	Terminal                   bool `json:"terminal"`                      // terminal emulator
	Messenger                  bool `json:"messenger"`                     // message-oriented; large element moves mean conversation switches
	DisableScrollHide          bool `json:"disable_scroll_hide"`
	UnreliableNotifications    bool `json:"unreliable_notifications"` // push event bus known broken for this host

	// Timing parameters.
	ScrollReshowDelay       time.Duration `json:"scroll_reshow_delay"`
	ConversationSwitchDelay time.Duration `json:"conversation_switch_delay"`
}

// Timing defaults. Web-rendering hosts redraw underlines noticeably slower
// after a scroll, hence the larger reshow delay.
const (
	DefaultScrollReshowDelay       = 300 * time.Millisecond
	WebScrollReshowDelay           = 700 * time.Millisecond
	DefaultConversationSwitchDelay = 800 * time.Millisecond
)

func (p *Profile) applyDefaults() {
	if p.ScrollReshowDelay <= 0 {
		if p.WebRendering {
			p.ScrollReshowDelay = WebScrollReshowDelay
		} else {
			p.ScrollReshowDelay = DefaultScrollReshowDelay
		}
	}
	if p.ConversationSwitchDelay <= 0 {
		p.ConversationSwitchDelay = DefaultConversationSwitchDelay
	}
}

// Default returns the conservative profile for an unknown bundle ID.
func Default(bundleID string) Profile {
	p := Profile{BundleID: bundleID}
	p.applyDefaults()
	return p
}

// Registry resolves an application identifier to an immutable Profile.
// Lookup never fails: unknown applications get the default profile.
type Registry interface {
	Lookup(bundleID string) Profile
}

// StaticRegistry is an in-memory Registry backed by a fixed profile set.
type StaticRegistry struct {
	byBundle map[string]Profile
}

// NewStaticRegistry builds a registry from a profile list. Later entries
// with a duplicated bundle ID win.
func NewStaticRegistry(profiles ...Profile) *StaticRegistry {
	r := &StaticRegistry{byBundle: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		p.applyDefaults()
		r.byBundle[p.BundleID] = p
	}
	return r
}

// Lookup implements Registry.
func (r *StaticRegistry) Lookup(bundleID string) Profile {
	if p, ok := r.byBundle[bundleID]; ok {
		return p
	}
	return Default(bundleID)
}

// Len returns the number of known profiles.
func (r *StaticRegistry) Len() int { return len(r.byBundle) }

// fileProfile is the YAML shape of one profile entry. Durations are
// strings ("700ms", "1.2s") because yaml.v3 does not decode time.Duration.
type fileProfile struct {
	BundleID                   string `yaml:"bundle_id"`
	WebRendering               bool   `yaml:"web_rendering"`
	UnstableTextRetrieval      bool   `yaml:"unstable_text_retrieval"`
	FullReanalysisAfterReplace bool   `yaml:"full_reanalysis_after_replace"`
	Terminal                   bool   `yaml:"terminal"`
	Messenger                  bool   `yaml:"messenger"`
	DisableScrollHide          bool   `yaml:"disable_scroll_hide"`
	UnreliableNotifications    bool   `yaml:"unreliable_notifications"`
	ScrollReshowDelay          string `yaml:"scroll_reshow_delay"`
	ConversationSwitchDelay    string `yaml:"conversation_switch_delay"`
}

type registryFile struct {
	Profiles []fileProfile `yaml:"profiles"`
}

func (f fileProfile) toProfile() (Profile, error) {
	p := Profile{
		BundleID:                   f.BundleID,
		WebRendering:               f.WebRendering,
		UnstableTextRetrieval:      f.UnstableTextRetrieval,
		FullReanalysisAfterReplace: f.FullReanalysisAfterReplace,
		Terminal:                   f.Terminal,
		Messenger:                  f.Messenger,
		DisableScrollHide:          f.DisableScrollHide,
		UnreliableNotifications:    f.UnreliableNotifications,
	}
	var err error
	if f.ScrollReshowDelay != "" {
		if p.ScrollReshowDelay, err = time.ParseDuration(f.ScrollReshowDelay); err != nil {
			return p, fmt.Errorf("profile %s: scroll_reshow_delay: %w", f.BundleID, err)
		}
	}
	if f.ConversationSwitchDelay != "" {
		if p.ConversationSwitchDelay, err = time.ParseDuration(f.ConversationSwitchDelay); err != nil {
			return p, fmt.Errorf("profile %s: conversation_switch_delay: %w", f.BundleID, err)
		}
	}
	return p, nil
}

// LoadFile reads a YAML profile registry.
func LoadFile(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}

	profiles := make([]Profile, 0, len(f.Profiles))
	for _, fp := range f.Profiles {
		p, err := fp.toProfile()
		if err != nil {
			return nil, fmt.Errorf("profile: %s: %w", path, err)
		}
		profiles = append(profiles, p)
	}
	return NewStaticRegistry(profiles...), nil
}
