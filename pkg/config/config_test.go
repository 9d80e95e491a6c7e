package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DBPath == "" {
		t.Fatalf("default DBPath is empty")
	}
	if cfg.AnalysisCacheTTL != 10*time.Minute {
		t.Fatalf("AnalysisCacheTTL = %v, want 10m", cfg.AnalysisCacheTTL)
	}
	if cfg.RecallLimit != 5 {
		t.Fatalf("RecallLimit = %d, want 5", cfg.RecallLimit)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RecallLimit != 5 || cfg.LogLevel != "info" {
		t.Fatalf("missing file should fall back to defaults: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	saved := DefaultConfig()
	saved.DBPath = "/tmp/mnemo-test/ledger.db"
	saved.RecallLimit = 9
	saved.LogLevel = "debug"
	if err := Save(path, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != saved.DBPath || cfg.RecallLimit != 9 || cfg.LogLevel != "debug" {
		t.Fatalf("loaded %+v, want saved values", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	saved := DefaultConfig()
	saved.LogLevel = "debug"
	if err := Save(path, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("MNEMO_LOG_LEVEL", "warn")
	t.Setenv("MNEMO_RECALL_LIMIT", "3")
	t.Setenv("MNEMO_ANALYSIS_CACHE_TTL", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want env override warn", cfg.LogLevel)
	}
	if cfg.RecallLimit != 3 {
		t.Fatalf("RecallLimit = %d, want 3", cfg.RecallLimit)
	}
	if cfg.AnalysisCacheTTL != 90*time.Second {
		t.Fatalf("AnalysisCacheTTL = %v, want 90s", cfg.AnalysisCacheTTL)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed file must error")
	}
}
