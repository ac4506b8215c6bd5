package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CONTRACTD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. A missing config file
// is not an error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CONTRACTD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Storage ──
	setStr(&cfg.Storage.Backend, "CONTRACTD_STORAGE_BACKEND")
	setInt(&cfg.Storage.TimeoutMs, "CONTRACTD_STORAGE_TIMEOUT_MS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CONTRACTD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CONTRACTD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CONTRACTD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CONTRACTD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CONTRACTD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CONTRACTD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CONTRACTD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CONTRACTD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CONTRACTD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CONTRACTD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CONTRACTD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CONTRACTD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CONTRACTD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CONTRACTD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CONTRACTD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CONTRACTD_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "CONTRACTD_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "CONTRACTD_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "CONTRACTD_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "CONTRACTD_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "CONTRACTD_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "CONTRACTD_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "CONTRACTD_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "CONTRACTD_ARCHIVE_FORCE_PATH_STYLE")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "CONTRACTD_FEED_ENABLED")
	setInt(&cfg.Feed.IntervalMs, "CONTRACTD_FEED_INTERVAL_MS")
	setFloat64(&cfg.Feed.BasePrice, "CONTRACTD_FEED_BASE_PRICE")
	setFloat64(&cfg.Feed.Volatility, "CONTRACTD_FEED_VOLATILITY")

	// ── Server ──
	setInt(&cfg.Server.Port, "CONTRACTD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CONTRACTD_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CONTRACTD_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
