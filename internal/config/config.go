package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Environment   string
	LogLevel      slog.Level
	RedisURL      string
	DataDir       string
	DiceDelay     time.Duration
	SessionTTL    time.Duration
	GraphCacheTTL time.Duration
}

// Load reads configuration from the environment. In development a .env file
// in the working directory is loaded first when present; variables already
// set in the environment win.
func Load() (*Config, error) {
	if getEnv("ENVIRONMENT", "development") == "development" {
		_ = godotenv.Load()
	}

	diceMS, err := getEnvInt("DICE_DELAY_MS", 700)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	graphTTL, err := getEnvDuration("GRAPH_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		DiceDelay:     time.Duration(diceMS) * time.Millisecond,
		SessionTTL:    sessionTTL,
		GraphCacheTTL: graphTTL,
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
