// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	FrontendURL   string
	DataDir       string
	DBPath        string
	IdentityPath  string
	SchemaVersion int
	UIDir         string
	Advisor       AdvisorConfig
	Log           LogConfig
	Metrics       MetricsConfig
}

// AdvisorConfig controls the remote advisory service client.
type AdvisorConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// LogConfig controls logger output.
type LogConfig struct {
	File  string
	Level slog.Level
}

// MetricsConfig controls Prometheus instrument naming.
type MetricsConfig struct {
	Namespace string
}

// DefaultAdvisorBaseURL is the hosted advisory service.
const DefaultAdvisorBaseURL = "https://job-pt.fly.dev"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DataDir:       dataDir,
		DBPath:        getEnv("DB_PATH", filepath.Join(dataDir, "jobpt.db")),
		IdentityPath:  getEnv("IDENTITY_PATH", filepath.Join(dataDir, "identity.yaml")),
		SchemaVersion: getEnvInt("SCHEMA_VERSION", 1),
		UIDir:         getEnv("UI_DIR", ""),
		Advisor: AdvisorConfig{
			BaseURL:        getEnv("ADVISOR_BASE_URL", DefaultAdvisorBaseURL),
			RequestTimeout: getEnvDuration("ADVISOR_REQUEST_TIMEOUT", 30*time.Second),
			ProbeTimeout:   getEnvDuration("ADVISOR_PROBE_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			File:  getEnv("LOG_FILE", filepath.Join(dataDir, "jobpt.log")),
			Level: getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "jobpt"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.IdentityPath == "" {
		return fmt.Errorf("IDENTITY_PATH cannot be empty")
	}
	if c.SchemaVersion < 1 {
		return fmt.Errorf("SCHEMA_VERSION must be >= 1")
	}
	u, err := url.Parse(c.Advisor.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ADVISOR_BASE_URL must be an absolute URL")
	}
	if c.Advisor.RequestTimeout <= 0 {
		return fmt.Errorf("ADVISOR_REQUEST_TIMEOUT must be > 0")
	}
	if c.Advisor.ProbeTimeout <= 0 {
		return fmt.Errorf("ADVISOR_PROBE_TIMEOUT must be > 0")
	}
	if c.Metrics.Namespace == "" {
		return fmt.Errorf("METRICS_NAMESPACE cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
