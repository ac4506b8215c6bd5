// Package config defines the top-level configuration for contractd and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CONTRACTD_* environment
// variables.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Archive  ArchiveConfig  `toml:"archive"`
	Feed     FeedConfig     `toml:"feed"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// StorageConfig selects and tunes the durable snapshot store.
type StorageConfig struct {
	// Backend is "postgres" or "redis".
	Backend string `toml:"backend"`
	// TimeoutMs bounds every durable-store round trip on the serving path.
	TimeoutMs int `toml:"timeout_ms"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters for the
// settled-contract archive.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig holds the simulated price feed parameters.
type FeedConfig struct {
	Enabled    bool    `toml:"enabled"`
	IntervalMs int     `toml:"interval_ms"`
	BasePrice  float64 `toml:"base_price"`
	Volatility float64 `toml:"volatility"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Defaults returns a Config populated with sane development defaults.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend:   "postgres",
			TimeoutMs: 3000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "contractd",
			User:          "contractd",
			SSLMode:       "disable",
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Feed: FeedConfig{
			IntervalMs: 100,
			BasePrice:  100.0,
			Volatility: 0.5,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "postgres", "redis":
	default:
		return fmt.Errorf("config: unsupported storage backend %q", c.Storage.Backend)
	}

	if c.Storage.TimeoutMs <= 0 {
		return fmt.Errorf("config: storage timeout_ms must be positive, got %d", c.Storage.TimeoutMs)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("config: archive enabled but bucket is empty")
		}
		if c.Archive.Region == "" {
			return fmt.Errorf("config: archive enabled but region is empty")
		}
	}

	if c.Feed.Enabled && c.Feed.IntervalMs <= 0 {
		return fmt.Errorf("config: feed interval_ms must be positive, got %d", c.Feed.IntervalMs)
	}

	return nil
}
