package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "FRONTEND_URL", "DATA_DIR", "DB_PATH", "IDENTITY_PATH", "SCHEMA_VERSION",
	"UI_DIR", "ADVISOR_BASE_URL", "ADVISOR_REQUEST_TIMEOUT", "ADVISOR_PROBE_TIMEOUT",
	"LOG_FILE", "LOG_LEVEL", "METRICS_NAMESPACE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, filepath.Join("data", "jobpt.db"), filepath.Clean(cfg.DBPath))
	assert.Equal(t, filepath.Join("data", "identity.yaml"), filepath.Clean(cfg.IdentityPath))
	assert.Equal(t, 1, cfg.SchemaVersion)
	assert.Equal(t, DefaultAdvisorBaseURL, cfg.Advisor.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Advisor.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Advisor.ProbeTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "jobpt", cfg.Metrics.Namespace)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/var/lib/jobpt")
	t.Setenv("SCHEMA_VERSION", "3")
	t.Setenv("ADVISOR_BASE_URL", "http://127.0.0.1:9000")
	t.Setenv("ADVISOR_REQUEST_TIMEOUT", "45")
	t.Setenv("ADVISOR_PROBE_TIMEOUT", "1500ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FRONTEND_URL", "https://jobpt.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/jobpt/jobpt.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.SchemaVersion)
	assert.Equal(t, 45*time.Second, cfg.Advisor.RequestTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Advisor.ProbeTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"zero schema":     {"SCHEMA_VERSION": "0"},
		"relative url":    {"ADVISOR_BASE_URL": "job-pt.fly.dev"},
		"negative probe":  {"ADVISOR_PROBE_TIMEOUT": "-1s"},
		"empty port":      {"PORT": ""},
		"empty namespace": {"METRICS_NAMESPACE": ""},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("Store opened", "version", 2)

	assert.Contains(t, stderr.String(), "Store opened")
	assert.NotContains(t, stderr.String(), "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry))
	assert.Equal(t, "Store opened", entry["msg"])
	assert.EqualValues(t, 2, entry["version"])
}

func TestSetupLoggerWritesFile(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "jobpt.log")

	logger, cleanup := setupLogger(&stderr, path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"msg":"hello"`))
}
