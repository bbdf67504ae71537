// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// defaultSyncEpoch is the floor for a user's first PR reconciliation: without
// a watermark, nothing older than this date is fetched.
const defaultSyncEpoch = "2025-01-01"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken   string
	GitHubHost    string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	ListenAddr    string
	DBPath        string
	SyncEpoch     time.Time
	Env           string
}

// IsDevelopment reports whether the app runs in development mode, which
// exposes internal error detail in API responses.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HasGeminiCredentials returns true when a Gemini API key is configured.
// Without one the app starts but the analyze endpoint is unavailable.
func (c *Config) HasGeminiCredentials() bool {
	return c.GeminiAPIKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// METRICTRACKER_GITHUB_TOKEN is required. Optional variables with defaults:
// METRICTRACKER_GITHUB_HOST (github.com), METRICTRACKER_LISTEN_ADDR (127.0.0.1:4000),
// METRICTRACKER_DB_PATH (metrictracker.db), METRICTRACKER_GEMINI_MODEL (gemini-2.5-flash),
// METRICTRACKER_GEMINI_BASE_URL, METRICTRACKER_SYNC_EPOCH (2025-01-01), METRICTRACKER_ENV.
func Load() (*Config, error) {
	token := os.Getenv("METRICTRACKER_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("METRICTRACKER_GITHUB_TOKEN is required")
	}

	githubHost := "github.com"
	if v, ok := os.LookupEnv("METRICTRACKER_GITHUB_HOST"); ok {
		githubHost = v
	}

	listenAddr := "127.0.0.1:4000"
	if v, ok := os.LookupEnv("METRICTRACKER_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "metrictracker.db"
	if v, ok := os.LookupEnv("METRICTRACKER_DB_PATH"); ok {
		dbPath = v
	}

	geminiModel := "gemini-2.5-flash"
	if v, ok := os.LookupEnv("METRICTRACKER_GEMINI_MODEL"); ok {
		geminiModel = v
	}

	geminiBaseURL := "https://generativelanguage.googleapis.com"
	if v, ok := os.LookupEnv("METRICTRACKER_GEMINI_BASE_URL"); ok {
		geminiBaseURL = v
	}

	epochStr := defaultSyncEpoch
	if v, ok := os.LookupEnv("METRICTRACKER_SYNC_EPOCH"); ok {
		epochStr = v
	}
	epoch, err := time.ParseInLocation("2006-01-02", epochStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("METRICTRACKER_SYNC_EPOCH has invalid date %q: %w", epochStr, err)
	}

	return &Config{
		GitHubToken:   token,
		GitHubHost:    githubHost,
		GeminiAPIKey:  os.Getenv("METRICTRACKER_GEMINI_API_KEY"),
		GeminiModel:   geminiModel,
		GeminiBaseURL: geminiBaseURL,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		SyncEpoch:     epoch,
		Env:           os.Getenv("METRICTRACKER_ENV"),
	}, nil
}
