package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SaShakib/CalendarAPIRrule/internal/config"
	"github.com/SaShakib/CalendarAPIRrule/internal/lock"
	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	authmemory "github.com/SaShakib/CalendarAPIRrule/server/auth/memory"
	"github.com/SaShakib/CalendarAPIRrule/server/recurrence"
	"github.com/SaShakib/CalendarAPIRrule/server/storage"
	"github.com/SaShakib/CalendarAPIRrule/server/storage/memory"
	"github.com/SaShakib/CalendarAPIRrule/server/storage/postgres"
)

const connectTimeout = 10 * time.Second

// openStore returns the configured repository and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		store, err := postgres.Open(ctx, cfg.PostgresURL, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres storage", "schema_version", postgres.SchemaVersion())
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close postgres", "error", err)
			}
		}, nil
	case config.DriverMemory:
		logger.Warn("using in-memory storage, events are lost on restart")
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newLocker uses redis when REDIS_URL is set so several replicas can share
// the per-event mutation lock; otherwise locks are process-local.
func newLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewLocal(), func() {}, nil
	}

	locker, err := lock.NewRedisFromURL(cfg.RedisURL, lock.WithTTL(cfg.LockTTL), lock.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := locker.Ping(ctx); err != nil {
		_ = locker.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("using redis event locks", "ttl", cfg.LockTTL)
	return locker, func() {
		if err := locker.Close(); err != nil {
			logger.Error("failed to close redis", "error", err)
		}
	}, nil
}

func newAuthenticator(cfg *config.Config, logger *slog.Logger) (auth.Authenticator, error) {
	switch cfg.AuthMode {
	case config.AuthBasic:
		users := authmemory.New(authmemory.WithLogger(logger))
		if err := users.LoadSpec(cfg.AuthUsers); err != nil {
			return nil, fmt.Errorf("load AUTH_USERS: %w", err)
		}
		return auth.BasicAuthenticator{Store: users}, nil
	case config.AuthHeader:
		return auth.HeaderAuthenticator{DefaultUser: cfg.AuthDefaultUser}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

func newExpander(cfg *config.Config) *recurrence.Engine {
	ec := recurrence.DefaultEngineConfig
	ec.CacheEnabled = cfg.RuleCacheTTL > 0
	ec.CacheConfig.TTL = cfg.RuleCacheTTL
	ec.MaxOccurrences = cfg.MaxOccurrences
	return recurrence.NewEngineWithConfig(ec)
}
