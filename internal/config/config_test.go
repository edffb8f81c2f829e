package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"META_DB_PATH", "LOG_LEVEL", "ENV", "FEATURE_DSL_V4",
		"CLASSIFY_CONCURRENCY", "CLASSIFY_EVAL_RPS", "CLASSIFY_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dbfleet_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.FeatureDSLV4)
	assert.Equal(t, 8, cfg.ClassifyConcurrency)
	assert.Zero(t, cfg.ClassifyEvalRPS)
	assert.Empty(t, cfg.ClassifySchedule)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("META_DB_PATH", "/tmp/fleet.sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CLASSIFY_CONCURRENCY", "4")
	t.Setenv("CLASSIFY_EVAL_RPS", "50")
	t.Setenv("CLASSIFY_SCHEDULE", "0 3 * * *")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fleet.sqlite", cfg.MetaDBPath)
	assert.Equal(t, 4, cfg.ClassifyConcurrency)
	assert.Equal(t, 50.0, cfg.ClassifyEvalRPS)
	assert.Equal(t, "0 3 * * *", cfg.ClassifySchedule)
}

func TestLoadFromEnv_LegacyFlagWarns(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEATURE_DSL_V4", "false")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.FeatureDSLV4)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "legacy")
}

func TestLoadFromEnv_BadConcurrency(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLASSIFY_CONCURRENCY", "zero")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLASSIFY_CONCURRENCY")
}

func TestLoadFromEnv_NegativeRPS(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLASSIFY_EVAL_RPS", "-1")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.True(t, (&Config{Env: "PRODUCTION"}).IsProduction())
	assert.False(t, (&Config{Env: "development"}).IsProduction())
	assert.False(t, (&Config{}).IsProduction())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# comment
META_DB_PATH=/data/fleet.sqlite
LOG_LEVEL="debug"

CLASSIFY_SCHEDULE='0 3 * * *'
not-a-kv-line
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	clearEnv(t)

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "/data/fleet.sqlite", os.Getenv("META_DB_PATH"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "0 3 * * *", os.Getenv("CLASSIFY_SCHEDULE"))
}

func TestLoadDotEnv_EnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "error", os.Getenv("LOG_LEVEL"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
