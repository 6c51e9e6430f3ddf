// Package app wires configuration into the repository, cache and service
// shared by the API server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fptmart/backend/internal/cache"
	"fptmart/backend/internal/config"
	"fptmart/backend/internal/service"
	"fptmart/backend/internal/store"
	"fptmart/backend/internal/store/memory"
	pgstore "fptmart/backend/internal/store/postgres"
)

// Runtime holds the opened dependencies. Close releases them in reverse
// order of acquisition.
type Runtime struct {
	Repo    store.Repository
	Cache   cache.DashboardCache
	Service *service.Service

	closers []func() error
}

// Open connects the store and cache described by cfg. A configured but
// unreachable database is fatal; an unreachable Redis degrades to no cache.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{}

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		rt.closers = append(rt.closers, pg.Close)
		if cfg.MigrateOnStart {
			if err := pg.Migrate(ctx); err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		rt.Repo = pg
		logger.Info("repository ready", slog.String("driver", "postgres"))
	} else {
		rt.Repo = memory.NewSeeded()
		logger.Info("repository ready", slog.String("driver", "memory"))
	}

	rt.Cache = cache.NoopDashboardCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
			_ = redisCache.Close()
		} else {
			rt.Cache = redisCache
			rt.closers = append(rt.closers, redisCache.Close)
			logger.Info("dashboard cache ready", slog.String("driver", "redis"))
		}
	}

	rt.Service = service.New(rt.Repo, service.Options{
		DashboardCache:    rt.Cache,
		DashboardCacheTTL: cfg.DashboardCacheTTL,
		Location:          loc,
		Logger:            logger,
	})
	return rt, nil
}

func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
