// Package bootstrap assembles the storage, cache and seed wiring shared by the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"rau/internal/cache"
	"rau/internal/config"
	"rau/internal/database"
	"rau/internal/repository"
	"rau/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the demo fixture after the schema is ready.
	SeedDemo bool
	// SkipRedis leaves Redis unconfigured even when REDIS_URL is set.
	SkipRedis bool
}

// Runtime is the set of backing services a process runs on.
type Runtime struct {
	Stores *repository.Stores
	DB     *gorm.DB
	Redis  *redis.Client
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() error {
	var firstErr error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if r.DB != nil {
		if err := database.Close(r.DB); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenDatabase connects to the configured SQL backend and applies the schema.
// The memory backend has no database and returns nil.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return nil, nil
	case config.BackendPostgres:
		db, err = database.Connect(cfg)
	case config.BackendSQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}
	return db, nil
}

// InitRuntime builds the stores for the configured backend, connects Redis
// when available and optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{DB: db}
	if db == nil {
		rt.Stores = repository.NewMemoryStores()
	} else {
		rt.Stores = repository.NewGormStores(db)
	}

	if !opts.SkipRedis {
		// A nil client means Redis is unreachable; the process runs without it.
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}

	if opts.SeedDemo {
		res, err := seed.New(rt.Stores).Demo(ctx)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		log.Printf("demo seed: %s", res)
	}

	log.Printf("runtime ready (backend=%s, redis=%t)", cfg.StorageBackend, rt.Redis != nil)
	return rt, nil
}
