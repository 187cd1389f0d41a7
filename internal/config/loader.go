package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FILLSCOPE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FILLSCOPE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Lighter ──
	setStr(&cfg.Lighter.BaseURL, "FILLSCOPE_LIGHTER_BASE_URL")
	setInt(&cfg.Lighter.PageLimit, "FILLSCOPE_LIGHTER_PAGE_LIMIT")
	setDuration(&cfg.Lighter.PagePause, "FILLSCOPE_LIGHTER_PAGE_PAUSE")
	setDuration(&cfg.Lighter.ThrottleBackoff, "FILLSCOPE_LIGHTER_THROTTLE_BACKOFF")
	setInt(&cfg.Lighter.MaxThrottleRetries, "FILLSCOPE_LIGHTER_MAX_THROTTLE_RETRIES")
	setDuration(&cfg.Lighter.CatalogTTL, "FILLSCOPE_LIGHTER_CATALOG_TTL")

	// ── Auth ──
	setDuration(&cfg.Auth.TokenTTL, "FILLSCOPE_AUTH_TOKEN_TTL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FILLSCOPE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FILLSCOPE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FILLSCOPE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FILLSCOPE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FILLSCOPE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FILLSCOPE_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "FILLSCOPE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FILLSCOPE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FILLSCOPE_SERVER_API_KEY")
	setStr(&cfg.Server.StaticDir, "FILLSCOPE_SERVER_STATIC_DIR")
	setInt(&cfg.Server.RateLimit, "FILLSCOPE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "FILLSCOPE_SERVER_RATE_LIMIT_WINDOW")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "FILLSCOPE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
