package axwatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/axwatch/internal/element"
	"github.com/hazyhaar/axwatch/internal/sampler"
	"github.com/hazyhaar/axwatch/stability"
)

// Config holds every timing and threshold of the coordinator. The zero
// value is usable: applyDefaults fills in the tuned defaults.
type Config struct {
	// FramePollInterval is how often window geometry is sampled.
	FramePollInterval time.Duration
	// DriftCheckInterval is how often displayed text is re-validated.
	DriftCheckInterval time.Duration
	// ReshowSettleDelay is armed after the first stable poll following a
	// move, before position sync begins.
	ReshowSettleDelay time.Duration

	// PositionSyncInterval is the retry interval of the position-sync
	// phase; MaxPositionSyncRetries bounds it per movement cycle.
	PositionSyncInterval   time.Duration
	MaxPositionSyncRetries int
	// PositionSyncTolerance is the origin-distance tolerance of one
	// position-sync comparison.
	PositionSyncTolerance float64

	// ContentSettleInterval is the sampling interval of a content-bounds
	// settle episode; ContentSettle tunes its gate.
	ContentSettleInterval time.Duration
	ContentSettle         stability.Config

	// ReplacementGrace mutes scroll signals and drift checks this long
	// after an accepted text replacement; SwitchGrace mutes drift checks
	// after a context switch.
	ReplacementGrace time.Duration
	SwitchGrace      time.Duration

	// AnalyzeDebounce delays analysis after a text change so bursts of
	// keystrokes produce one engine call.
	AnalyzeDebounce time.Duration
	// SoftReanalyzeDelay schedules re-analysis after a replaced-content
	// drift on hosts that require it, without hiding overlays.
	SoftReanalyzeDelay time.Duration
	// UnreliableReanalyzeDelay schedules re-analysis after a hide on
	// hosts with an unreliable notification channel.
	UnreliableReanalyzeDelay time.Duration

	// Sampler and Tracker tune the window poller and the element
	// geometry classifier.
	Sampler sampler.Config
	Tracker element.Config
}

func (c *Config) applyDefaults() {
	if c.FramePollInterval <= 0 {
		c.FramePollInterval = 100 * time.Millisecond
	}
	if c.DriftCheckInterval <= 0 {
		c.DriftCheckInterval = time.Second
	}
	if c.ReshowSettleDelay <= 0 {
		c.ReshowSettleDelay = 150 * time.Millisecond
	}
	if c.PositionSyncInterval <= 0 {
		c.PositionSyncInterval = 50 * time.Millisecond
	}
	if c.MaxPositionSyncRetries <= 0 {
		c.MaxPositionSyncRetries = 10
	}
	if c.PositionSyncTolerance <= 0 {
		c.PositionSyncTolerance = 5
	}
	if c.ContentSettleInterval <= 0 {
		c.ContentSettleInterval = 100 * time.Millisecond
	}
	if c.ContentSettle.PosTolerance <= 0 {
		c.ContentSettle.PosTolerance = 3
	}
	if c.ContentSettle.WidthTolerance <= 0 {
		c.ContentSettle.WidthTolerance = 2
	}
	if c.ContentSettle.Required <= 0 {
		c.ContentSettle.Required = 4
	}
	if c.ContentSettle.Ceiling <= 0 {
		c.ContentSettle.Ceiling = time.Second
	}
	if c.ReplacementGrace <= 0 {
		c.ReplacementGrace = 1500 * time.Millisecond
	}
	if c.SwitchGrace <= 0 {
		c.SwitchGrace = 600 * time.Millisecond
	}
	if c.AnalyzeDebounce <= 0 {
		c.AnalyzeDebounce = 500 * time.Millisecond
	}
	if c.SoftReanalyzeDelay <= 0 {
		c.SoftReanalyzeDelay = 250 * time.Millisecond
	}
	if c.UnreliableReanalyzeDelay <= 0 {
		c.UnreliableReanalyzeDelay = time.Second
	}
}

// fileConfig is the YAML shape of Config. Durations are strings parsed
// with time.ParseDuration; yaml.v3 does not decode time.Duration.
type fileConfig struct {
	FramePollInterval  string `yaml:"frame_poll_interval"`
	DriftCheckInterval string `yaml:"drift_check_interval"`
	ReshowSettleDelay  string `yaml:"reshow_settle_delay"`

	PositionSyncInterval   string  `yaml:"position_sync_interval"`
	MaxPositionSyncRetries int     `yaml:"max_position_sync_retries"`
	PositionSyncTolerance  float64 `yaml:"position_sync_tolerance"`

	ContentSettleInterval string `yaml:"content_settle_interval"`
	ContentSettle         struct {
		PosTolerance   float64 `yaml:"pos_tolerance"`
		WidthTolerance float64 `yaml:"width_tolerance"`
		Required       int     `yaml:"required"`
		Ceiling        string  `yaml:"ceiling"`
	} `yaml:"content_settle"`

	ReplacementGrace string `yaml:"replacement_grace"`
	SwitchGrace      string `yaml:"switch_grace"`

	AnalyzeDebounce          string `yaml:"analyze_debounce"`
	SoftReanalyzeDelay       string `yaml:"soft_reanalyze_delay"`
	UnreliableReanalyzeDelay string `yaml:"unreliable_reanalyze_delay"`

	Sampler struct {
		PosThreshold   float64 `yaml:"pos_threshold"`
		SizeThreshold  float64 `yaml:"size_threshold"`
		TerminalMisses int     `yaml:"terminal_misses"`
	} `yaml:"sampler"`
	Tracker struct {
		HeightDelta   float64 `yaml:"height_delta"`
		MoveThreshold float64 `yaml:"move_threshold"`
		LargeMove     float64 `yaml:"large_move"`
	} `yaml:"tracker"`
}

// LoadConfig reads a YAML config file and applies defaults for anything
// left unset.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg, err = fc.toConfig(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (fc fileConfig) toConfig() (Config, error) {
	var cfg Config
	var err error
	parse := func(name, v string) time.Duration {
		if v == "" || err != nil {
			return 0
		}
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = fmt.Errorf("%s: %w", name, perr)
			return 0
		}
		return d
	}

	cfg.FramePollInterval = parse("frame_poll_interval", fc.FramePollInterval)
	cfg.DriftCheckInterval = parse("drift_check_interval", fc.DriftCheckInterval)
	cfg.ReshowSettleDelay = parse("reshow_settle_delay", fc.ReshowSettleDelay)
	cfg.PositionSyncInterval = parse("position_sync_interval", fc.PositionSyncInterval)
	cfg.MaxPositionSyncRetries = fc.MaxPositionSyncRetries
	cfg.PositionSyncTolerance = fc.PositionSyncTolerance
	cfg.ContentSettleInterval = parse("content_settle_interval", fc.ContentSettleInterval)
	cfg.ContentSettle = stability.Config{
		PosTolerance:   fc.ContentSettle.PosTolerance,
		WidthTolerance: fc.ContentSettle.WidthTolerance,
		Required:       fc.ContentSettle.Required,
		Ceiling:        parse("content_settle.ceiling", fc.ContentSettle.Ceiling),
	}
	cfg.ReplacementGrace = parse("replacement_grace", fc.ReplacementGrace)
	cfg.SwitchGrace = parse("switch_grace", fc.SwitchGrace)
	cfg.AnalyzeDebounce = parse("analyze_debounce", fc.AnalyzeDebounce)
	cfg.SoftReanalyzeDelay = parse("soft_reanalyze_delay", fc.SoftReanalyzeDelay)
	cfg.UnreliableReanalyzeDelay = parse("unreliable_reanalyze_delay", fc.UnreliableReanalyzeDelay)
	cfg.Sampler = sampler.Config{
		PosThreshold:   fc.Sampler.PosThreshold,
		SizeThreshold:  fc.Sampler.SizeThreshold,
		TerminalMisses: fc.Sampler.TerminalMisses,
	}
	cfg.Tracker = element.Config{
		HeightDelta:   fc.Tracker.HeightDelta,
		MoveThreshold: fc.Tracker.MoveThreshold,
		LargeMove:     fc.Tracker.LargeMove,
	}
	return cfg, err
}
