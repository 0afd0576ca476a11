// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/butterfly-city/internal/engine"
)

// Config holds butterfly-city process configuration.
type Config struct {
	Seed         int64         `env:"BUTTERFLY_SEED"`
	MaxEvents    int           `env:"BUTTERFLY_MAX_EVENTS"     envDefault:"100"`
	HTTPAddr     string        `env:"BUTTERFLY_HTTP_ADDR"      envDefault:":8080"`
	ArchivePath  string        `env:"BUTTERFLY_ARCHIVE_PATH"`
	LogLevel     string        `env:"BUTTERFLY_LOG_LEVEL"      envDefault:"info"`
	CORSOrigins  []string      `env:"BUTTERFLY_CORS_ORIGINS"   envSeparator:","`
	NudgeRate    int           `env:"BUTTERFLY_NUDGE_RATE"     envDefault:"120"`
	Tick         time.Duration `env:"BUTTERFLY_TICK"           envDefault:"50ms"`
	TrustProxy   bool          `env:"BUTTERFLY_TRUST_PROXY"`
	RandomOrgKey string        `env:"RANDOM_ORG_API_KEY"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("max events must be positive, got %d", c.MaxEvents))
	}
	if c.NudgeRate <= 0 {
		errs = append(errs, fmt.Errorf("nudge rate must be positive, got %d", c.NudgeRate))
	}
	if c.Tick <= 0 || c.Tick > engine.MaxTickDelta {
		errs = append(errs, fmt.Errorf("tick must be in (0, %s], got %s", engine.MaxTickDelta, c.Tick))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EffectiveSeed returns Seed, or a time-based seed when Seed is zero.
func (c Config) EffectiveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
