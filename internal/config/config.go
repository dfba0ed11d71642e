package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	JWTSecret   string
	JWTExpiry   time.Duration

	// Identifying headers required by the plex.tv protocol.
	PlexClientID string
	PlexProduct  string
	PlexVersion  string

	RequestTimeout time.Duration

	// Sync coordination tunables. The TTLs bound the blast radius of a
	// crashed worker that never releases its lock.
	LibraryLockTTL    time.Duration
	AccountLockTTL    time.Duration
	SchedulerCadence  time.Duration
	RetryBase         time.Duration
	MaxSyncAttempts   int
	DiscoveryCacheTTL time.Duration

	WorkerConcurrency int
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://plexify:plexify@db:5432/plexify?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "redis:6379"),
		JWTSecret:   env("JWT_SECRET", "change-me-in-production"),
		JWTExpiry:   envDuration("JWT_EXPIRY", 24*time.Hour),

		PlexClientID: env("PLEX_CLIENT_IDENTIFIER", "plexify-server"),
		PlexProduct:  env("PLEX_PRODUCT", "Plexify"),
		PlexVersion:  env("PLEX_VERSION", "1.0"),

		RequestTimeout: envDuration("PLEX_REQUEST_TIMEOUT", 10*time.Second),

		LibraryLockTTL:    envDuration("LIBRARY_LOCK_TTL", 2*time.Hour),
		AccountLockTTL:    envDuration("ACCOUNT_LOCK_TTL", 30*time.Minute),
		SchedulerCadence:  envDuration("SCHEDULER_CADENCE", 15*time.Minute),
		RetryBase:         envDuration("SYNC_RETRY_BASE", time.Minute),
		MaxSyncAttempts:   envInt("SYNC_MAX_ATTEMPTS", 3),
		DiscoveryCacheTTL: envDuration("DISCOVERY_CACHE_TTL", 10*time.Minute),

		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 4),
	}
}

// MergeFromDB overrides select keys from the system_settings table so sync
// tunables can be changed without a restart of the environment.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM system_settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "plex_client_identifier":
			c.PlexClientID = value
		case "scheduler_cadence":
			if d, err := time.ParseDuration(value); err == nil {
				c.SchedulerCadence = d
			}
		case "library_lock_ttl":
			if d, err := time.ParseDuration(value); err == nil {
				c.LibraryLockTTL = d
			}
		case "account_lock_ttl":
			if d, err := time.ParseDuration(value); err == nil {
				c.AccountLockTTL = d
			}
		case "sync_max_attempts":
			if v, err := strconv.Atoi(value); err == nil {
				c.MaxSyncAttempts = v
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
