package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps tests from picking up a developer's real config or .env
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"X_BEARER_TOKEN", "GOOGLE_SERP_BASE_URL", "GOOGLE_SERP_API_KEY",
		"GOOGLE_SERP_API_KEY_HEADER", "GOOGLE_SERP_BEARER_TOKEN",
		"BROWSERBASE_API_KEY", "BROWSERBASE_PROJECT_ID", "LINKEDIN_EMAIL",
		"LINKEDIN_PASSWORD", "LINKEDIN_TOTP_SECRET", "SOCIALFETCH_MAX_RETRIES",
		"SOCIALFETCH_RETRY_BACKOFF", "SOCIALFETCH_LOG_LEVEL", "REDIS_ADDR", "POSTGRES_DSN",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.x.com/2", cfg.X.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.X.PageDelay)
	assert.Equal(t, "X-API-Key", cfg.SERP.APIKeyHeader)
	assert.Equal(t, 20*time.Second, cfg.SERP.Timeout)
	assert.Equal(t, "https://export.arxiv.org/api/query", cfg.Arxiv.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Arxiv.APIDelay)
	assert.Equal(t, ".linkedin_context_id", cfg.LinkedIn.SessionFile)
	assert.Equal(t, 180*time.Second, cfg.LinkedIn.LoginTimeout)
	assert.Equal(t, 1, cfg.Download.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("X_BEARER_TOKEN", "bearer-abc")
	t.Setenv("GOOGLE_SERP_BASE_URL", "https://serp.example.com")
	t.Setenv("GOOGLE_SERP_API_KEY", "serp-key")
	t.Setenv("GOOGLE_SERP_API_KEY_HEADER", "X-Custom-Key")
	t.Setenv("BROWSERBASE_API_KEY", "bb-key")
	t.Setenv("BROWSERBASE_PROJECT_ID", "proj-1")
	t.Setenv("LINKEDIN_EMAIL", "me@example.com")
	t.Setenv("SOCIALFETCH_MAX_RETRIES", "5")
	t.Setenv("SOCIALFETCH_RETRY_BACKOFF", "2.5")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "bearer-abc", cfg.X.BearerToken)
	assert.Equal(t, "https://serp.example.com", cfg.SERP.BaseURL)
	assert.Equal(t, "serp-key", cfg.SERP.APIKey)
	assert.Equal(t, "X-Custom-Key", cfg.SERP.APIKeyHeader)
	assert.Equal(t, "bb-key", cfg.Browserbase.APIKey)
	assert.Equal(t, "proj-1", cfg.Browserbase.ProjectID)
	assert.Equal(t, "me@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 2500*time.Millisecond, cfg.Retry.InitialBackoff)
}

func TestLoadFromEnvInvalidNumbers(t *testing.T) {
	isolate(t)
	t.Setenv("SOCIALFETCH_MAX_RETRIES", "many")
	t.Setenv("SOCIALFETCH_RETRY_BACKOFF", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOCIALFETCH_MAX_RETRIES")
	assert.Contains(t, err.Error(), "SOCIALFETCH_RETRY_BACKOFF")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
x:
  base_url: http://localhost:9999/2
  page_delay: 250ms
retry:
  max_retries: 7
  initial_backoff: 4s
download:
  concurrency: 2
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "http://localhost:9999/2", cfg.X.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.X.PageDelay)
	assert.Equal(t, 7, cfg.Retry.MaxRetries)
	assert.Equal(t, 4*time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, 2, cfg.Download.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.Equal(t, "X-API-Key", cfg.SERP.APIKeyHeader)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "max retries cannot be negative"},
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }, "download concurrency must be positive"},
		{"too much concurrency", func(c *Config) { c.Download.Concurrency = 11 }, "should not exceed 10"},
		{"zero timeout", func(c *Config) { c.SERP.Timeout = 0 }, "serp timeout must be positive"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"no session file", func(c *Config) { c.LinkedIn.SessionFile = "" }, "session file is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxRetries = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 2, len(strings.Split(err.Error(), "\n")))
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"max-retries":   5,
		"retry-backoff": 5 * time.Second,
		"output":        "out",
		"overwrite":     true,
		"api-delay":     time.Duration(0),
		"x-base-url":    "http://127.0.0.1/2",
	})

	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, "out", cfg.Output.BaseDirectory)
	assert.True(t, cfg.Output.OverwriteExisting)
	assert.Equal(t, time.Duration(0), cfg.Arxiv.APIDelay)
	assert.Equal(t, "http://127.0.0.1/2", cfg.X.BaseURL)
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_retries: 1\nx:\n  bearer_token: from-file\n"), 0600))

	t.Setenv("X_BEARER_TOKEN", "from-env")
	t.Setenv("SOCIALFETCH_MAX_RETRIES", "2")

	cfg, err := Load(path, map[string]interface{}{"max-retries": 4})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.X.BearerToken)
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
}

func TestSaveAndRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.X.BearerToken = "AAAAAAAAAAAAAAAAbearer1234"
	cfg.LinkedIn.Password = "short"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg.X.BearerToken, loaded.X.BearerToken)

	red := cfg.Redacted()
	assert.Equal(t, "AAAA...1234", red.X.BearerToken)
	assert.Equal(t, "********", red.LinkedIn.Password)
	assert.Equal(t, "", red.SERP.APIKey)
	// original untouched
	assert.Equal(t, "short", cfg.LinkedIn.Password)
}
