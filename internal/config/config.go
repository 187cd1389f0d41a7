// Package config defines the top-level configuration for the fillscope
// service and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FILLSCOPE_* environment
// variables.
type Config struct {
	Lighter  LighterConfig `toml:"lighter"`
	Auth     AuthConfig    `toml:"auth"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	LogLevel string        `toml:"log_level"`
}

// LighterConfig holds the exchange API endpoint and retrieval pacing
// parameters.
type LighterConfig struct {
	BaseURL string `toml:"base_url"`

	// PageLimit is the fills requested per trade-history page.
	PageLimit int `toml:"page_limit"`
	// PagePause is the wait between consecutive pages, chosen below the
	// exchange's request-rate ceiling.
	PagePause duration `toml:"page_pause"`
	// ThrottleBackoff is the initial wait after an HTTP 429; it doubles on
	// each retry of the same page.
	ThrottleBackoff duration `toml:"throttle_backoff"`
	// MaxThrottleRetries bounds throttle retries per page.
	MaxThrottleRetries int `toml:"max_throttle_retries"`
	// CatalogTTL is how long the market catalog stays fresh.
	CatalogTTL duration `toml:"catalog_ttl"`
}

// AuthConfig holds bearer-token issuance parameters.
type AuthConfig struct {
	TokenTTL duration `toml:"token_ttl"`
}

// RedisConfig holds Redis connection parameters for the per-client rate
// limiter. Leaving Addr empty disables Redis (and the rate limiter).
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the service's own endpoints; empty disables auth.
	APIKey string `toml:"api_key"`
	// StaticDir is served at /; empty disables static file serving.
	StaticDir string `toml:"static_dir"`
	// RateLimit is the per-client request budget per RateLimitWindow.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// Defaults returns the built-in configuration, matching the public Lighter
// mainnet deployment and its documented 20 requests/minute ceiling.
func Defaults() Config {
	return Config{
		Lighter: LighterConfig{
			BaseURL:            "https://mainnet.zklighter.elliot.ai",
			PageLimit:          100,
			PagePause:          duration{3500 * time.Millisecond},
			ThrottleBackoff:    duration{15 * time.Second},
			MaxThrottleRetries: 5,
			CatalogTTL:         duration{time.Hour},
		},
		Auth: AuthConfig{
			TokenTTL: duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Port:            8000,
			StaticDir:       "web/static",
			RateLimit:       60,
			RateLimitWindow: duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Lighter.BaseURL == "" {
		return fmt.Errorf("config: lighter.base_url must not be empty")
	}
	if c.Lighter.PageLimit <= 0 || c.Lighter.PageLimit > 1000 {
		return fmt.Errorf("config: lighter.page_limit must be in 1..1000, got %d", c.Lighter.PageLimit)
	}
	if c.Lighter.PagePause.Duration <= 0 {
		return fmt.Errorf("config: lighter.page_pause must be positive")
	}
	if c.Lighter.ThrottleBackoff.Duration <= 0 {
		return fmt.Errorf("config: lighter.throttle_backoff must be positive")
	}
	if c.Lighter.MaxThrottleRetries <= 0 {
		return fmt.Errorf("config: lighter.max_throttle_retries must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must not be negative")
	}
	return nil
}

// duration wraps time.Duration so TOML values can be written as "3.5s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
