package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.ListenAddr != def.ListenAddr || cfg.DBPath != def.DBPath {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Tuning != def.Tuning {
		t.Errorf("tuning defaults not applied: %+v", cfg.Tuning)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
listen_addr: ":8080"
defaults:
  search_query: hotel
  total: 200
tuning:
  settle_delay_ms: 500
  stall_threshold: 3
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.ListenAddr)
	}
	if cfg.Defaults.SearchQuery != "hotel" || cfg.Defaults.Total != 200 {
		t.Errorf("defaults override: %+v", cfg.Defaults)
	}
	// Untouched keys keep their built-in values.
	if cfg.DBPath != Default().DBPath {
		t.Errorf("db_path = %q, want default", cfg.DBPath)
	}
	if cfg.Tuning.SettleDelay() != 500*time.Millisecond {
		t.Errorf("settle delay = %s", cfg.Tuning.SettleDelay())
	}
	if cfg.Tuning.StallThreshold != 3 {
		t.Errorf("stall threshold = %d", cfg.Tuning.StallThreshold)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [:::"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}
