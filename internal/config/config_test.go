package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every METRICTRACKER_ env var that Load() reads.
var allConfigKeys = []string{
	"METRICTRACKER_GITHUB_TOKEN",
	"METRICTRACKER_GITHUB_HOST",
	"METRICTRACKER_GEMINI_API_KEY",
	"METRICTRACKER_GEMINI_MODEL",
	"METRICTRACKER_GEMINI_BASE_URL",
	"METRICTRACKER_LISTEN_ADDR",
	"METRICTRACKER_DB_PATH",
	"METRICTRACKER_SYNC_EPOCH",
	"METRICTRACKER_ENV",
}

// isolateConfigEnv saves and unsets all METRICTRACKER_ env vars so tests
// don't inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("METRICTRACKER_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("METRICTRACKER_GITHUB_HOST", "github.example.com")
	t.Setenv("METRICTRACKER_GEMINI_API_KEY", "ai-key")
	t.Setenv("METRICTRACKER_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("METRICTRACKER_DB_PATH", "/tmp/test.db")
	t.Setenv("METRICTRACKER_SYNC_EPOCH", "2024-06-15")
	t.Setenv("METRICTRACKER_ENV", "development")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "github.example.com", cfg.GitHubHost)
	assert.Equal(t, "ai-key", cfg.GeminiAPIKey)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), cfg.SyncEpoch)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.HasGeminiCredentials())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("METRICTRACKER_GITHUB_TOKEN", "ghp_test123")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "github.com", cfg.GitHubHost)
	assert.Equal(t, "127.0.0.1:4000", cfg.ListenAddr)
	assert.Equal(t, "metrictracker.db", cfg.DBPath)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.GeminiBaseURL)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), cfg.SyncEpoch)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.HasGeminiCredentials())
}

func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METRICTRACKER_GITHUB_TOKEN")
}

func TestLoad_InvalidSyncEpoch(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("METRICTRACKER_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("METRICTRACKER_SYNC_EPOCH", "last tuesday")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METRICTRACKER_SYNC_EPOCH")
}
