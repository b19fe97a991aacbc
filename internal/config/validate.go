package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			add("POSTGRES_URL", "required when STORAGE_DRIVER=postgres")
		}
	default:
		add("STORAGE_DRIVER", "must be 'memory' or 'postgres', got %q", cfg.StorageDriver)
	}

	switch cfg.AuthMode {
	case AuthHeader:
	case AuthBasic:
		if strings.TrimSpace(cfg.AuthUsers) == "" {
			add("AUTH_USERS", "required when AUTH_MODE=basic")
		}
	default:
		add("AUTH_MODE", "must be 'header' or 'basic', got %q", cfg.AuthMode)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("LOG_LEVEL", "must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	if cfg.HTTPAddr == "" {
		add("HTTP_ADDR", "required")
	}
	if cfg.DefaultRangeDays <= 0 {
		add("DEFAULT_RANGE_DAYS", "must be positive")
	}
	if cfg.MaxOccurrences < 0 {
		add("MAX_OCCURRENCES", "must not be negative")
	}
	if cfg.LockTTL <= 0 {
		add("LOCK_TTL", "must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		add("SHUTDOWN_TIMEOUT", "must be positive")
	}
	if cfg.RuleCacheTTL < 0 {
		add("RULE_CACHE_TTL", "must not be negative")
	}
	if cfg.RateLimitRPS < 0 {
		add("RATE_LIMIT_RPS", "must not be negative")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		add("RATE_LIMIT_BURST", "must be positive when rate limiting is enabled")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
