package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxEvents != 100 || cfg.HTTPAddr != ":8080" || cfg.NudgeRate != 120 || cfg.Tick != 50*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ArchivePath != "" || cfg.Seed != 0 {
		t.Fatalf("archive and seed should be unset: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BUTTERFLY_SEED", "7")
	t.Setenv("BUTTERFLY_MAX_EVENTS", "25")
	t.Setenv("BUTTERFLY_CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("BUTTERFLY_TICK", "20ms")
	t.Setenv("BUTTERFLY_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed != 7 || cfg.EffectiveSeed() != 7 || cfg.MaxEvents != 25 || cfg.Tick != 20*time.Millisecond {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("log level: %v", cfg.SlogLevel())
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Setenv("BUTTERFLY_MAX_EVENTS", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"zero max events", func(c *Config) { c.MaxEvents = 0 }},
		{"negative rate", func(c *Config) { c.NudgeRate = -1 }},
		{"zero tick", func(c *Config) { c.Tick = 0 }},
		{"tick longer than a plaza step", func(c *Config) { c.Tick = 100 * time.Millisecond }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{MaxEvents: 100, NudgeRate: 120, Tick: 50 * time.Millisecond, LogLevel: "info"}
			tt.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEffectiveSeedNonZero(t *testing.T) {
	if (Config{}).EffectiveSeed() == 0 {
		t.Fatal("time-based seed should not be zero")
	}
}
