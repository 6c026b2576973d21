// Package config loads process configuration from the environment and
// builds the process logger.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the environment configuration of palletctl. Command-line flags
// override every field.
type Config struct {
	DB               string `env:"PALLET_DB"                 envDefault:"pallet.db"`
	BlockWeightLimit uint64 `env:"PALLET_BLOCK_WEIGHT_LIMIT" envDefault:"2000000000000"`
	WeightsFile      string `env:"PALLET_WEIGHTS_FILE"`
	LogLevel         string `env:"PALLET_LOG_LEVEL"          envDefault:"info"`
	LogNoColor       bool   `env:"PALLET_LOG_NO_COLOR"`
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("parse env: PALLET_LOG_LEVEL: %w", err)
	}
	if cfg.BlockWeightLimit == 0 {
		return Config{}, fmt.Errorf("parse env: PALLET_BLOCK_WEIGHT_LIMIT must be positive")
	}
	return cfg, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
