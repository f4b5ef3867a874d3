// Package config loads process configuration from ANCHORCORE_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Storage StorageConfig
	Lock    LockConfig
	Events  EventsConfig
	Logging LoggingConfig
	// AssetsFile is the YAML asset list. Empty means no asset is supported.
	AssetsFile string
}

// HTTPConfig governs the RPC server.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
}

// StorageConfig selects the transaction store backend.
type StorageConfig struct {
	Driver      string // memory|sqlite|postgres
	SQLitePath  string
	PostgresDSN string
}

// LockConfig selects the per-transaction lock.
type LockConfig struct {
	Driver    string // local|redis
	RedisAddr string
	Prefix    string
	Expiry    time.Duration
}

// EventsConfig controls where status change events are archived.
type EventsConfig struct {
	Driver      string // none|memory|fs|s3
	Prefix      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // json|console
}

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultStorageDriver   = "sqlite"
	defaultSQLitePath      = "anchorcore.db"
	defaultLockDriver      = "local"
	defaultRedisAddr       = "localhost:6379"
	defaultLockPrefix      = "anchorcore:txn:"
	defaultLockExpiry      = 10 * time.Second
	defaultEventsDriver    = "none"
	defaultEventsPrefix    = "events"
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "json"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:           valueOrDefault("ANCHORCORE_HTTP_ADDR", defaultAddr),
			MetricsEnabled: parseBoolWithDefault("ANCHORCORE_METRICS_ENABLED", false),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(valueOrDefault("ANCHORCORE_STORAGE_DRIVER", defaultStorageDriver)),
			SQLitePath:  valueOrDefault("ANCHORCORE_SQLITE_PATH", defaultSQLitePath),
			PostgresDSN: os.Getenv("ANCHORCORE_POSTGRES_DSN"),
		},
		Lock: LockConfig{
			Driver:    strings.ToLower(valueOrDefault("ANCHORCORE_LOCK_DRIVER", defaultLockDriver)),
			RedisAddr: valueOrDefault("ANCHORCORE_REDIS_ADDR", defaultRedisAddr),
			Prefix:    valueOrDefault("ANCHORCORE_LOCK_PREFIX", defaultLockPrefix),
		},
		Events: EventsConfig{
			Driver:      strings.ToLower(valueOrDefault("ANCHORCORE_EVENTS_DRIVER", defaultEventsDriver)),
			Prefix:      valueOrDefault("ANCHORCORE_EVENTS_PREFIX", defaultEventsPrefix),
			FSRoot:      os.Getenv("ANCHORCORE_EVENTS_FS_ROOT"),
			S3Bucket:    os.Getenv("ANCHORCORE_EVENTS_S3_BUCKET"),
			S3Region:    os.Getenv("ANCHORCORE_EVENTS_S3_REGION"),
			S3Endpoint:  os.Getenv("ANCHORCORE_EVENTS_S3_ENDPOINT"),
			S3PathStyle: parseBoolWithDefault("ANCHORCORE_EVENTS_S3_PATH_STYLE", false),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("ANCHORCORE_LOG_LEVEL", defaultLoggingLevel),
			Format: strings.ToLower(valueOrDefault("ANCHORCORE_LOG_FORMAT", defaultLoggingFormat)),
		},
		AssetsFile: os.Getenv("ANCHORCORE_ASSETS_FILE"),
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"ANCHORCORE_HTTP_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"ANCHORCORE_HTTP_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"ANCHORCORE_HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"ANCHORCORE_LOCK_EXPIRY", defaultLockExpiry, &cfg.Lock.Expiry},
	}
	for _, d := range durations {
		v, err := parseDurationWithDefault(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"ANCHORCORE_STORAGE_DRIVER", c.Storage.Driver, []string{"memory", "sqlite", "postgres"}},
		{"ANCHORCORE_LOCK_DRIVER", c.Lock.Driver, []string{"local", "redis"}},
		{"ANCHORCORE_EVENTS_DRIVER", c.Events.Driver, []string{"none", "memory", "fs", "s3"}},
		{"ANCHORCORE_LOG_FORMAT", c.Logging.Format, []string{"json", "console"}},
	}
	for _, chk := range checks {
		if !contains(chk.allowed, chk.value) {
			return fmt.Errorf("invalid %s %q (want one of %s)", chk.key, chk.value, strings.Join(chk.allowed, "|"))
		}
	}
	if c.Events.Driver == "fs" && c.Events.FSRoot == "" {
		return fmt.Errorf("ANCHORCORE_EVENTS_FS_ROOT required when ANCHORCORE_EVENTS_DRIVER=fs")
	}
	if c.Events.Driver == "s3" && c.Events.S3Bucket == "" {
		return fmt.Errorf("ANCHORCORE_EVENTS_S3_BUCKET required when ANCHORCORE_EVENTS_DRIVER=s3")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func valueOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
