package axwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.FramePollInterval != 100*time.Millisecond {
		t.Errorf("FramePollInterval = %v", cfg.FramePollInterval)
	}
	if cfg.MaxPositionSyncRetries != 10 {
		t.Errorf("MaxPositionSyncRetries = %d", cfg.MaxPositionSyncRetries)
	}
	if cfg.ContentSettle.Required != 4 || cfg.ContentSettle.Ceiling != time.Second {
		t.Errorf("ContentSettle = %+v", cfg.ContentSettle)
	}
	if cfg.ContentSettle.PosTolerance != 3 || cfg.ContentSettle.WidthTolerance != 2 {
		t.Errorf("ContentSettle tolerances = %+v", cfg.ContentSettle)
	}
	if cfg.ReplacementGrace != 1500*time.Millisecond {
		t.Errorf("ReplacementGrace = %v, want 1.5s", cfg.ReplacementGrace)
	}
	if cfg.SwitchGrace != 600*time.Millisecond {
		t.Errorf("SwitchGrace = %v, want 600ms", cfg.SwitchGrace)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axwatch.yaml")
	data := `
frame_poll_interval: 250ms
drift_check_interval: 2s
position_sync_interval: 25ms
max_position_sync_retries: 20
replacement_grace: 2s
switch_grace: 1s
content_settle:
  required: 6
  ceiling: 1500ms
tracker:
  large_move: 800
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.FramePollInterval != 250*time.Millisecond {
		t.Errorf("FramePollInterval = %v, want 250ms", cfg.FramePollInterval)
	}
	if cfg.DriftCheckInterval != 2*time.Second {
		t.Errorf("DriftCheckInterval = %v, want 2s", cfg.DriftCheckInterval)
	}
	if cfg.MaxPositionSyncRetries != 20 {
		t.Errorf("MaxPositionSyncRetries = %d, want 20", cfg.MaxPositionSyncRetries)
	}
	if cfg.ContentSettle.Required != 6 || cfg.ContentSettle.Ceiling != 1500*time.Millisecond {
		t.Errorf("ContentSettle = %+v", cfg.ContentSettle)
	}
	if cfg.Tracker.LargeMove != 800 {
		t.Errorf("Tracker.LargeMove = %v, want 800", cfg.Tracker.LargeMove)
	}
	if cfg.ReplacementGrace != 2*time.Second || cfg.SwitchGrace != time.Second {
		t.Errorf("graces = %v/%v, want 2s/1s", cfg.ReplacementGrace, cfg.SwitchGrace)
	}
	// Unset fields still get defaults.
	if cfg.ReshowSettleDelay != 150*time.Millisecond {
		t.Errorf("ReshowSettleDelay = %v, want default 150ms", cfg.ReshowSettleDelay)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axwatch.yaml")
	if err := os.WriteFile(path, []byte("frame_poll_interval: fast\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}
