package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	journaladapters "market_journal/internal/feature/journal/adapters"
	"market_journal/internal/feature/marketdata/adapters"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/cache"
	"market_journal/internal/platform/config"
	"market_journal/internal/platform/db"
	infraredis "market_journal/internal/platform/redis"
)

// NewRedis connects to Redis when configured. A nil client means the
// application runs without a cache.
func NewRedis(ctx context.Context, cfg config.RedisConfig) *redisv9.Client {
	if !cfg.Enabled() {
		return nil
	}
	rdb, err := infraredis.NewRedisClient(ctx, cfg)
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		return nil
	}
	return rdb
}

// NewBarRepository returns the bar store (MongoDB when configured, gorm
// otherwise), wrapped with the Redis cache when rdb is non-nil.
func NewBarRepository(conn db.Connector, rdb *redisv9.Client, cfg *config.Config) usecase.BarRepository {
	var store usecase.BarRepository = adapters.NewBarRepository(conn)
	if cfg.Mongo.Enabled() {
		store = adapters.NewBarMongoRepository(cfg.Mongo)
	}
	if rdb == nil {
		return store
	}
	loc, err := time.LoadLocation(cfg.Provider.ExchangeTimezone)
	if err != nil {
		loc = time.UTC
	}
	return cache.NewCachingBarRepository(rdb, cfg.Redis.TTL, store, "marketdata", loc)
}

// MigrateSchema creates market_data and trades if they do not exist, and the
// MongoDB indexes when bars live there.
func MigrateSchema(ctx context.Context, conn db.Connector, cfg *config.Config) error {
	if err := db.Migrate(ctx, conn, &adapters.BarModel{}, &journaladapters.TradeModel{}); err != nil {
		return err
	}
	if !cfg.Mongo.Enabled() {
		return nil
	}
	if err := adapters.NewBarMongoRepository(cfg.Mongo).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create mongo indexes: %w", err)
	}
	return nil
}
