package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config configures the memory engine. Values load from an optional JSON
// file, then MNEMO_* environment variables override.
type Config struct {
	// DBPath is the sqlite ledger location.
	DBPath string `json:"db_path" env:"MNEMO_DB_PATH"`

	// DictionaryPath points at a symbol dictionary YAML. Empty uses the
	// embedded default dictionary.
	DictionaryPath string `json:"dictionary_path" env:"MNEMO_DICTIONARY_PATH"`

	// AnalysisCacheTTL is how long symbol analyses stay fresh.
	AnalysisCacheTTL time.Duration `json:"analysis_cache_ttl" env:"MNEMO_ANALYSIS_CACHE_TTL"`

	// RecallLimit is the default number of entries a recall returns.
	RecallLimit int `json:"recall_limit" env:"MNEMO_RECALL_LIMIT"`

	// LogLevel is a zap level string (debug, info, warn, error).
	LogLevel string `json:"log_level" env:"MNEMO_LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		DBPath:           filepath.Join(defaultStateDir(), "ledger.db"),
		AnalysisCacheTTL: 10 * time.Minute,
		RecallLimit:      5,
		LogLevel:         "info",
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mnemo"
	}
	return filepath.Join(home, ".mnemo")
}

// Load reads path (missing file is fine) and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as indented JSON, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
