package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ReviewPolicy holds the scheduling constants. The reference values are
// defaults, not assumptions baked into the queue logic.
type ReviewPolicy struct {
	SpacingDays         []int `yaml:"spacing_days"`
	SessionMistakeLimit int   `yaml:"session_mistake_limit"`
	ReinsertOffset      int   `yaml:"reinsert_offset"`
}

type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Config struct {
	DataDir  string       `yaml:"-"`
	DBPath   string       `yaml:"-"`
	LogLevel string       `yaml:"log_level"`
	Remote   RemoteConfig `yaml:"remote"`
	Review   ReviewPolicy `yaml:"review"`
}

func defaults(dataDir string) Config {
	return Config{
		DataDir:  dataDir,
		DBPath:   filepath.Join(dataDir, "stats.db"),
		LogLevel: "info",
		Remote: RemoteConfig{
			TimeoutSeconds: 15,
		},
		Review: ReviewPolicy{
			SpacingDays:         []int{3, 7, 14, 28},
			SessionMistakeLimit: 4,
			ReinsertOffset:      3,
		},
	}
}

// New loads config.yaml from the data directory. A missing file yields the
// defaults; a present but unreadable file is an error.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data directory is required")
	}
	cfg := defaults(dataDir)

	raw, err := os.ReadFile(filepath.Join(dataDir, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Review.SpacingDays) == 0 {
		cfg.Review.SpacingDays = []int{3, 7, 14, 28}
	}
	if cfg.Review.SessionMistakeLimit <= 0 {
		cfg.Review.SessionMistakeLimit = 4
	}
	if cfg.Review.ReinsertOffset < 0 {
		cfg.Review.ReinsertOffset = 3
	}
	if cfg.Remote.TimeoutSeconds <= 0 {
		cfg.Remote.TimeoutSeconds = 15
	}
	cfg.DataDir = dataDir
	cfg.DBPath = filepath.Join(dataDir, "stats.db")
	return cfg, nil
}
