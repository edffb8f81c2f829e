// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds configuration for the classification subsystem.
type Config struct {
	MetaDBPath string // path to the SQLite fleet metastore file
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// FeatureDSLV4 selects the DSL v4 rule evaluator. When false the legacy
	// capability-token matcher runs instead; the flag is read once per pass.
	FeatureDSLV4 bool

	// ClassifyConcurrency bounds per-account parallelism inside a pass.
	ClassifyConcurrency int

	// ClassifyEvalRPS throttles account evaluations per second during a
	// pass. Zero disables the limiter.
	ClassifyEvalRPS float64

	// ClassifySchedule is a cron expression for scheduled passes. Empty
	// disables the scheduler.
	ClassifySchedule string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:       os.Getenv("META_DB_PATH"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Env:              os.Getenv("ENV"),
		FeatureDSLV4:     parseBoolEnvDefault("FEATURE_DSL_V4", true),
		ClassifySchedule: os.Getenv("CLASSIFY_SCHEDULE"),
	}

	if v := os.Getenv("CLASSIFY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("CLASSIFY_CONCURRENCY must be a positive integer, got %q", v)
		}
		cfg.ClassifyConcurrency = n
	}
	if v := os.Getenv("CLASSIFY_EVAL_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("CLASSIFY_EVAL_RPS must be a non-negative number, got %q", v)
		}
		cfg.ClassifyEvalRPS = f
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "dbfleet_meta.sqlite"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ClassifyConcurrency == 0 {
		cfg.ClassifyConcurrency = 8
	}
	if !cfg.FeatureDSLV4 {
		cfg.Warnings = append(cfg.Warnings, "FEATURE_DSL_V4 is off — passes use the legacy capability matcher")
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
