package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "REDIS_URL", "DATA_DIR", "DICE_DELAY_MS", "SESSION_TTL", "GRAPH_CACHE_TTL"} {
		t.Setenv(k, "")
	}
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.RedisURL != "localhost:6379" || cfg.DataDir != "./data" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.DiceDelay != 700*time.Millisecond {
		t.Errorf("DiceDelay = %v, want 700ms", cfg.DiceDelay)
	}
	if cfg.SessionTTL != time.Hour || cfg.GraphCacheTTL != 10*time.Minute {
		t.Errorf("TTLs = %v/%v", cfg.SessionTTL, cfg.GraphCacheTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DICE_DELAY_MS", "0")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DiceDelay != 0 || cfg.SessionTTL != 30*time.Minute || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DICE_DELAY_MS", "soon"},
		{"DICE_DELAY_MS", "-5"},
		{"SESSION_TTL", "an hour"},
		{"GRAPH_CACHE_TTL", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "test")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
