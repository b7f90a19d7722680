// Package bootstrap wires storage, cache and image store clients from config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bolify/internal/cache"
	"bolify/internal/config"
	"bolify/internal/database"
	"bolify/internal/imagestore"
	"bolify/internal/middleware"
	"bolify/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the initialized dependencies of the API.
type Runtime struct {
	Users  repository.UserRepository
	Blogs  repository.BlogRepository
	Images imagestore.Store
	// Redis is nil when the server could not be reached.
	Redis *redis.Client
	// Checks are run by the readiness check, keyed by component name.
	Checks map[string]func(context.Context) error

	closers []func(context.Context) error
}

// InitRuntime connects to the configured store and Redis, and builds the
// image store.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Checks: map[string]func(context.Context) error{}}

	switch cfg.DBDriver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		store, err := database.ConnectMongo(connectCtx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := store.EnsureIndexes(connectCtx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		rt.Users = repository.NewMongoUserRepository(store)
		rt.Blogs = repository.NewMongoBlogRepository(store)
		rt.Checks["database"] = store.Ping
		rt.closers = append(rt.closers, store.Close)
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.useGorm(db)
	}

	// Redis is optional: without it the API runs with no revocation list and
	// fail-open rate limits.
	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Redis unavailable, continuing without rate limiting or token revocation",
			slog.String("error", err.Error()))
	} else {
		rt.Redis = rdb
		rt.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
	}

	images, err := imagestore.New(cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("image store: %w", err)
	}
	rt.Images = images

	return rt, nil
}

// NewGormRuntime builds a runtime over an open GORM connection. Tests use it
// with in-memory SQLite.
func NewGormRuntime(db *gorm.DB, rdb *redis.Client, images imagestore.Store) *Runtime {
	rt := &Runtime{Checks: map[string]func(context.Context) error{}, Redis: rdb, Images: images}
	rt.useGorm(db)
	if rdb != nil {
		rt.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return rt
}

func (rt *Runtime) useGorm(db *gorm.DB) {
	rt.Users = repository.NewUserRepository(db)
	rt.Blogs = repository.NewBlogRepository(db)
	rt.Checks["database"] = func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return database.Close(db) })
}

// Close releases every connection the runtime opened, in reverse order.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			middleware.Logger.ErrorContext(ctx, "error closing runtime dependency", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
