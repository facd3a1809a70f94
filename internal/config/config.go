// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns an
// error and the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres     = "postgres"      // pgx pool
	DriverSQLite       = "sqlite"        // GORM on SQLite
	DriverGormPostgres = "gorm-postgres" // GORM on PostgreSQL
)

// Config holds all runtime configuration for the sync service.
type Config struct {
	Port string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string // optional; enables cross-process broadcast

	JSearchBaseURL string
	JSearchAPIKey  string
	JSearchAPIHost string

	SyncQuery         string
	SyncIntervalHours int
	SyncCron          string // overrides SyncIntervalHours when set
	SyncWorkers       int

	ServiceAccountProviderID string
	ServiceAccountEmail      string

	AdminToken string // POST /sync is disabled when empty

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                     envOr("PORT", "8080"),
		StoreDriver:              strings.ToLower(envOr("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		SQLitePath:               envOr("SQLITE_PATH", "jobsync.db"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		JSearchBaseURL:           envOr("JSEARCH_BASE_URL", "https://jsearch.p.rapidapi.com/search"),
		JSearchAPIKey:            os.Getenv("JSEARCH_API_KEY"),
		JSearchAPIHost:           envOr("JSEARCH_API_HOST", "jsearch.p.rapidapi.com"),
		SyncQuery:                envOr("SYNC_QUERY", "Software Engineer"),
		SyncCron:                 strings.TrimSpace(os.Getenv("SYNC_CRON")),
		ServiceAccountProviderID: os.Getenv("SERVICE_ACCOUNT_PROVIDER_ID"),
		ServiceAccountEmail:      os.Getenv("SERVICE_ACCOUNT_EMAIL"),
		AdminToken:               os.Getenv("ADMIN_TOKEN"),
		LogLevel:                 strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(envOr("LOG_FORMAT", "text")),
		LogFile:                  os.Getenv("LOG_FILE"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverGormPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be one of %s, %s, %s; got %q",
			DriverPostgres, DriverSQLite, DriverGormPostgres, cfg.StoreDriver)
	}

	var err error
	if cfg.SyncIntervalHours, err = positiveInt("SYNC_INTERVAL_HOURS", 6); err != nil {
		return nil, err
	}
	if cfg.SyncWorkers, err = positiveInt("SYNC_WORKERS", 1); err != nil {
		return nil, err
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// RequireServiceAccount checks the identity that owns ingested jobs. Only
// commands that ingest need it, so Load leaves it unchecked.
func (c *Config) RequireServiceAccount() error {
	if c.ServiceAccountProviderID == "" {
		return fmt.Errorf("SERVICE_ACCOUNT_PROVIDER_ID is required")
	}
	if c.ServiceAccountEmail == "" {
		return fmt.Errorf("SERVICE_ACCOUNT_EMAIL is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
