// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig           `envPrefix:"APP_"`
	Engine        EngineConfig        `envPrefix:"ENGINE_"`
	Storage       StorageConfig       `envPrefix:"STORAGE_"`
	Redis         RedisConfig         `envPrefix:"REDIS_"`
	Persistence   PersistenceConfig   `envPrefix:"PERSIST_"`
	Observability ObservabilityConfig

	location *time.Location
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `env:"NAME" envDefault:"offline-quest"`
	Environment Environment `env:"ENV" envDefault:"development"`

	// Timezone defines calendar days for streaks and daily stats.
	// Empty means the system local zone.
	Timezone string `env:"TIMEZONE"`
}

// EngineConfig holds session engine settings.
type EngineConfig struct {
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	ProfileKey   string        `env:"PROFILE_KEY" envDefault:"offline-quest:profile"`
}

// StorageConfig selects and configures the profile store.
type StorageConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`

	// Path is the SQLite file or Badger directory. Defaults under the user's
	// config directory.
	Path string `env:"PATH"`

	// DatabaseURL is used by the postgres driver. When empty, the
	// connection is built from Postgres.
	DatabaseURL string `env:"DATABASE_URL"`

	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
}

// PostgresConfig describes the postgres server when no DATABASE_URL is set.
type PostgresConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	Database string `env:"DB" envDefault:"offline_quest"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// RedisConfig is used by the redis driver and by event forwarding.
type RedisConfig struct {
	Host      string `env:"HOST" envDefault:"localhost"`
	Port      int    `env:"PORT" envDefault:"6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"offline-quest:"`

	// ForwardEvents mirrors bus events to EventsChannel.
	ForwardEvents bool   `env:"FORWARD_EVENTS" envDefault:"false"`
	EventsChannel string `env:"EVENTS_CHANNEL" envDefault:"offline-quest:events"`
}

// PersistenceConfig bounds save retries.
type PersistenceConfig struct {
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL" envDefault:"100ms"`
	MaxInterval     time.Duration `env:"MAX_INTERVAL" envDefault:"2s"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// MetricsAddr enables the Prometheus endpoint, e.g. ":9090".
	MetricsAddr string `env:"METRICS_ADDR"`
}

// Load reads .env (if present) and parses the process environment.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return finish(cfg)
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.location = time.Local
	if cfg.App.Timezone != "" {
		loc, err := time.LoadLocation(cfg.App.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.App.Timezone, err)
		}
		cfg.location = loc
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath(cfg.Storage.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverBadger, DriverRedis:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			pg := c.Storage.Postgres
			if pg.Host == "" || pg.Database == "" {
				errs = append(errs, "STORAGE_POSTGRES_HOST and STORAGE_POSTGRES_DB are required without STORAGE_DATABASE_URL")
			}
			if pg.Port < 1 || pg.Port > 65535 {
				errs = append(errs, fmt.Sprintf("invalid STORAGE_POSTGRES_PORT: %d", pg.Port))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Engine.TickInterval <= 0 {
		errs = append(errs, "ENGINE_TICK_INTERVAL must be positive")
	}
	if c.Engine.ProfileKey == "" {
		errs = append(errs, "ENGINE_PROFILE_KEY is required")
	}
	if c.Persistence.MaxAttempts < 1 {
		errs = append(errs, "PERSIST_MAX_ATTEMPTS must be at least 1")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid REDIS_PORT: %d", c.Redis.Port))
	}

	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, "LOG_FORMAT must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location returns the zone that defines calendar days.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// UsesRedis reports whether a Redis client is needed.
func (c *Config) UsesRedis() bool {
	return c.Storage.Driver == DriverRedis || c.Redis.ForwardEvents
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

func defaultStoragePath(driver string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, "offline-quest")

	switch driver {
	case DriverSQLite:
		return filepath.Join(dir, "profile.db")
	case DriverBadger:
		return filepath.Join(dir, "badger")
	default:
		return ""
	}
}
