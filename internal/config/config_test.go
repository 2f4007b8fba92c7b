package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr = %s", cfg.App.Addr())
	}
	if cfg.SLA.WindowHours[1] != 4 || cfg.SLA.WindowHours[5] != 72 {
		t.Fatalf("unexpected SLA windows %v", cfg.SLA.WindowHours)
	}
	if cfg.Score.PriorityWeight[1] != 500 {
		t.Fatalf("unexpected priority weights %v", cfg.Score.PriorityWeight)
	}
	if cfg.Escalation.DefaultByLevel[2] != "supervisor" {
		t.Fatalf("unexpected escalation defaults %v", cfg.Escalation.DefaultByLevel)
	}
	if cfg.Sync.ShallowLookbackDays != 10 || cfg.Sync.DeepLookbackDays != 60 {
		t.Fatalf("unexpected sync windows %+v", cfg.Sync)
	}
	if len(cfg.Directory.Participants) != 3 {
		t.Fatalf("expected 3 default participants, got %d", len(cfg.Directory.Participants))
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_WINDOW_P1_HOURS", "2")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "60")
	t.Setenv("SYNC_DEEP_LOOKBACK_DAYS", "0")
	t.Setenv("GEO_STATIC_COORDS", "Centro:-23.55:-46.63,Norte:-23.48:-46.62")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SLA.WindowHours[1] != 2 {
		t.Fatalf("P1 window = %d, want 2", cfg.SLA.WindowHours[1])
	}
	if cfg.Escalation.SweepInterval() != time.Minute {
		t.Fatalf("sweep interval = %v", cfg.Escalation.SweepInterval())
	}
	// 0 means the deep pass is unbounded.
	if cfg.Sync.DeepLookbackDays != 0 {
		t.Fatalf("deep lookback = %d", cfg.Sync.DeepLookbackDays)
	}
	if len(cfg.Geo.StaticCoords) != 2 {
		t.Fatalf("geo entries = %v", cfg.Geo.StaticCoords)
	}
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed REDIS_DB")
	}
}
