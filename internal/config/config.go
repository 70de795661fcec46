// Package config defines the top-level configuration for marketd and
// provides loading and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETD_* environment
// variables.
type Config struct {
	Providers ProvidersConfig `toml:"providers"`
	Market    MarketConfig    `toml:"market"`
	Cache     CacheConfig     `toml:"cache"`
	Redis     RedisConfig     `toml:"redis"`
	History   HistoryConfig   `toml:"history"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Archive   ArchiveConfig   `toml:"archive"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	LogLevel  string          `toml:"log_level"`
}

// ProvidersConfig holds the REST endpoints of the market-data sources. The
// defaults point at the public APIs; overrides exist for tests and proxies.
type ProvidersConfig struct {
	CoinGeckoBaseURL   string `toml:"coingecko_base_url"`
	CoinPaprikaBaseURL string `toml:"coinpaprika_base_url"`
}

// MarketConfig holds the four observable contract constants of the fetch
// pipeline: per-kind race timeouts and auto-refresh periods.
type MarketConfig struct {
	CoinTimeoutSeconds    int `toml:"coin_timeout_seconds"`
	GlobalTimeoutSeconds  int `toml:"global_timeout_seconds"`
	CoinRefreshSeconds    int `toml:"coin_refresh_seconds"`
	GlobalRefreshSeconds  int `toml:"global_refresh_seconds"`
	DegradedAlertAfter    int `toml:"degraded_alert_after"`
}

// CoinTimeout returns the coin fetch race timeout.
func (m MarketConfig) CoinTimeout() time.Duration {
	return time.Duration(m.CoinTimeoutSeconds) * time.Second
}

// GlobalTimeout returns the global fetch race timeout.
func (m MarketConfig) GlobalTimeout() time.Duration {
	return time.Duration(m.GlobalTimeoutSeconds) * time.Second
}

// CoinRefresh returns the coin auto-refresh period.
func (m MarketConfig) CoinRefresh() time.Duration {
	return time.Duration(m.CoinRefreshSeconds) * time.Second
}

// GlobalRefresh returns the global auto-refresh period.
func (m MarketConfig) GlobalRefresh() time.Duration {
	return time.Duration(m.GlobalRefreshSeconds) * time.Second
}

// CacheConfig selects the snapshot/favorites backend.
type CacheConfig struct {
	// Backend is "file" or "redis".
	Backend string `toml:"backend"`

	// Dir is the data directory for the file backend.
	Dir string `toml:"dir"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// HistoryConfig controls the optional price-history store.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
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

// ArchiveConfig controls the optional cold-storage archiver.
type ArchiveConfig struct {
	Enabled       bool `toml:"enabled"`
	IntervalHours int  `toml:"interval_hours"`
	RetainDays    int  `toml:"retain_days"`
}

// Interval returns the archive cycle period.
func (a ArchiveConfig) Interval() time.Duration {
	return time.Duration(a.IntervalHours) * time.Hour
}

// Retain returns how much recent history stays in the primary store.
func (a ArchiveConfig) Retain() time.Duration {
	return time.Duration(a.RetainDays) * 24 * time.Hour
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel parameters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration: file-backed cache, history and
// archival disabled, and the contract constants (3s timeouts, 60s/180s
// refresh periods).
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			CoinTimeoutSeconds:   3,
			GlobalTimeoutSeconds: 3,
			CoinRefreshSeconds:   60,
			GlobalRefreshSeconds: 180,
			DegradedAlertAfter:   3,
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     "data",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Archive: ArchiveConfig{
			IntervalHours: 24,
			RetainDays:    7,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface later at wire time.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Cache.Backend) {
	case "file":
		if c.Cache.Dir == "" {
			return fmt.Errorf("config: cache.dir is required for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unsupported cache.backend %q", c.Cache.Backend)
	}

	if c.Market.CoinTimeoutSeconds <= 0 || c.Market.GlobalTimeoutSeconds <= 0 {
		return fmt.Errorf("config: market timeouts must be positive")
	}
	if c.Market.CoinRefreshSeconds <= 0 || c.Market.GlobalRefreshSeconds <= 0 {
		return fmt.Errorf("config: market refresh periods must be positive")
	}

	if c.History.Enabled {
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
			return fmt.Errorf("config: history.enabled requires postgres connection parameters")
		}
	}

	if c.Archive.Enabled {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("config: archive.enabled requires s3.bucket and s3.region")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	return nil
}
