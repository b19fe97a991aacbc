package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Auth modes.
const (
	AuthHeader = "header"
	AuthBasic  = "basic"
)

// Config holds all application configuration.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":5000"`
	MetricsAddr     string        `env:"METRICS_ADDR" envDefault:":9091"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	StorageDriver string        `env:"STORAGE_DRIVER" envDefault:"memory"`
	PostgresURL   string        `env:"POSTGRES_URL"`
	RedisURL      string        `env:"REDIS_URL"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"10s"`

	DefaultRangeDays int           `env:"DEFAULT_RANGE_DAYS" envDefault:"365"`
	MaxOccurrences   int           `env:"MAX_OCCURRENCES" envDefault:"5000"`
	RuleCacheTTL     time.Duration `env:"RULE_CACHE_TTL" envDefault:"15m"`

	AuthMode        string `env:"AUTH_MODE" envDefault:"header"`
	AuthDefaultUser string `env:"AUTH_DEFAULT_USER"`
	AuthUsers       string `env:"AUTH_USERS"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := Validate(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, err
	}
	if err := Validate(*cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultRange is the span used by range queries without explicit bounds.
func (c Config) DefaultRange() time.Duration {
	return time.Duration(c.DefaultRangeDays) * 24 * time.Hour
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the text logger used by the binaries.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
