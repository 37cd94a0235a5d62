package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"cstats-bot/internal/config"
	"cstats-bot/internal/constants"
	"cstats-bot/internal/database"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New opens the binding store selected by STORE_DRIVER and registers its
// shutdown with the app lifecycle.
func New(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (BindingRepository, error) {
	logger = logger.With().Str("store_driver", cfg.StoreDriver).Logger()

	switch cfg.StoreDriver {
	case "json":
		return NewJSONFileRepository(filepath.Join(cfg.DataDir, constants.UserDataFile), logger)

	case "sqlite":
		db, err := database.New(cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := db.Close(); err != nil {
					logger.Warn().Err(err).Msg("error closing database connection")
				}
				return nil
			},
		})
		return NewSQLiteRepository(db, logger), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return NewRedisRepository(client, cfg.RedisPrefix, logger), nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
