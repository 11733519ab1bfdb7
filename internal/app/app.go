// Package app wires configuration, storage, cache and engine together for
// the CLI and the server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recount/internal/cache"
	"recount/internal/config"
	"recount/internal/db"
	"recount/internal/engine"
	"recount/internal/migrate"
)

type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Engine engine.Engine
	Logger *zap.Logger
}

// Open connects to the configured database, applies migrations, folds the
// search text of rows that predate it and attaches the catalog cache when
// redis is configured.
func Open(ctx context.Context, workspace string, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := db.Open(db.Config{Workspace: workspace, Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a := &App{Config: cfg, DB: conn, Logger: logger}
	a.Engine = engine.New(conn, cfg)
	if n, err := a.Engine.Repo.BackfillSearchText(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("backfill search text: %w", err)
	} else if n > 0 {
		logger.Info("search text backfilled", zap.Int("rows", n))
	}
	a.Engine.Logger = logger
	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := a.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable; catalog lookups go to the database until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.Engine.Catalog = cache.NewRedisCatalog(a.Redis, cfg.Redis.TTL)
	}
	logger.Debug("app opened", zap.String("driver", cfg.Database.Driver), zap.Bool("cache", a.Redis != nil))
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// Overrides maps viper keys onto config fields. Keys come from flags or
// RECOUNT_* environment variables.
var Overrides = map[string]func(*config.Config, *viper.Viper, string){
	"addr":           func(c *config.Config, v *viper.Viper, k string) { c.Server.Addr = v.GetString(k) },
	"base-path":      func(c *config.Config, v *viper.Viper, k string) { c.Server.BasePath = v.GetString(k) },
	"grpc-addr":      func(c *config.Config, v *viper.Viper, k string) { c.Server.GRPCAddr = v.GetString(k) },
	"db-driver":      func(c *config.Config, v *viper.Viper, k string) { c.Database.Driver = v.GetString(k) },
	"db-dsn":         func(c *config.Config, v *viper.Viper, k string) { c.Database.DSN = v.GetString(k) },
	"redis-addr":     func(c *config.Config, v *viper.Viper, k string) { c.Redis.Addr = v.GetString(k) },
	"redis-password": func(c *config.Config, v *viper.Viper, k string) { c.Redis.Password = v.GetString(k) },
	"log-level":      func(c *config.Config, v *viper.Viper, k string) { c.Log.Level = v.GetString(k) },
	"log-format":     func(c *config.Config, v *viper.Viper, k string) { c.Log.Format = v.GetString(k) },
}

// ResolveConfig loads recount.yml from workspace and applies any override
// explicitly set in v.
func ResolveConfig(workspace string, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return cfg, nil
	}
	for key, apply := range Overrides {
		if v.IsSet(key) {
			apply(cfg, v, key)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
