package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "https://mainnet.zklighter.elliot.ai", cfg.Lighter.BaseURL)
	assert.Equal(t, 100, cfg.Lighter.PageLimit)
	assert.Equal(t, 3500*time.Millisecond, cfg.Lighter.PagePause.Duration)
	assert.Equal(t, 15*time.Second, cfg.Lighter.ThrottleBackoff.Duration)
	assert.Equal(t, 5, cfg.Lighter.MaxThrottleRetries)
	assert.Equal(t, time.Hour, cfg.Lighter.CatalogTTL.Duration)
	assert.Equal(t, 10*time.Minute, cfg.Auth.TokenTTL.Duration)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Empty(t, cfg.Redis.Addr, "redis is opt-in")

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[lighter]
base_url = "https://testnet.zklighter.elliot.ai"
page_limit = 50
page_pause = "2s"

[server]
port = 9000
cors_origins = ["https://example.com"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://testnet.zklighter.elliot.ai", cfg.Lighter.BaseURL)
	assert.Equal(t, 50, cfg.Lighter.PageLimit)
	assert.Equal(t, 2*time.Second, cfg.Lighter.PagePause.Duration)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)

	// Untouched sections keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Lighter.ThrottleBackoff.Duration)
	assert.Equal(t, 10*time.Minute, cfg.Auth.TokenTTL.Duration)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FILLSCOPE_LIGHTER_BASE_URL", "https://staging.example.com")
	t.Setenv("FILLSCOPE_LIGHTER_PAGE_LIMIT", "25")
	t.Setenv("FILLSCOPE_LIGHTER_PAGE_PAUSE", "1500ms")
	t.Setenv("FILLSCOPE_SERVER_API_KEY", "sekrit")
	t.Setenv("FILLSCOPE_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FILLSCOPE_REDIS_TLS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.Lighter.BaseURL)
	assert.Equal(t, 25, cfg.Lighter.PageLimit)
	assert.Equal(t, 1500*time.Millisecond, cfg.Lighter.PagePause.Duration)
	assert.Equal(t, "sekrit", cfg.Server.APIKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Redis.TLSEnabled)
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("FILLSCOPE_LIGHTER_PAGE_LIMIT", "lots")
	t.Setenv("FILLSCOPE_LIGHTER_PAGE_PAUSE", "soon")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Lighter.PageLimit)
	assert.Equal(t, 3500*time.Millisecond, cfg.Lighter.PagePause.Duration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Lighter.BaseURL = "" }},
		{"zero page limit", func(c *Config) { c.Lighter.PageLimit = 0 }},
		{"oversized page limit", func(c *Config) { c.Lighter.PageLimit = 5000 }},
		{"zero page pause", func(c *Config) { c.Lighter.PagePause.Duration = 0 }},
		{"zero throttle backoff", func(c *Config) { c.Lighter.ThrottleBackoff.Duration = 0 }},
		{"zero retry budget", func(c *Config) { c.Lighter.MaxThrottleRetries = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
