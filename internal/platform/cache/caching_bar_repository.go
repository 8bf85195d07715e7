// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"market_journal/internal/feature/marketdata/domain/entity"
	"market_journal/internal/feature/marketdata/usecase"
)

// CachingBarRepository decorates a BarRepository with Redis caching of
// per-day bar queries. Writes invalidate every cached day of the symbol.
type CachingBarRepository struct {
	inner     usecase.BarRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	loc       *time.Location
	now       func() time.Time
}

var _ usecase.BarRepository = (*CachingBarRepository)(nil)

// NewCachingBarRepository decorates a BarRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "marketdata".
// loc is the exchange timezone used to decide whether a day is closed.
func NewCachingBarRepository(rdb *redis.Client, ttl time.Duration, inner usecase.BarRepository, namespace string, loc *time.Location) *CachingBarRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "marketdata"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CachingBarRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		loc:       loc,
		now:       time.Now,
	}
}

// UpsertBars writes through to the inner repository and drops cached days
// for the symbol when at least one row was written.
func (c *CachingBarRepository) UpsertBars(ctx context.Context, symbol string, bars []entity.Bar) (int64, error) {
	n, err := c.inner.UpsertBars(ctx, symbol, bars)
	if err != nil {
		return n, err
	}
	if c.rdb == nil || n == 0 {
		return n, nil
	}
	// Best effort: don't fail the write if cache deletion fails
	if err := c.deleteByPattern(ctx, c.cacheKeyPrefix(symbol)+"*"); err != nil {
		slog.Warn("failed to invalidate bar cache", "symbol", symbol, "error", err)
	}
	return n, nil
}

// QueryBars retrieves bars, checking cache first then falling back to the database.
func (c *CachingBarRepository) QueryBars(ctx context.Context, symbol, day string) ([]entity.Bar, error) {
	if c.rdb == nil {
		return c.inner.QueryBars(ctx, symbol, day)
	}

	key := c.cacheKey(symbol, day)

	// 1) キャッシュを確認
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Bar
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// 破損したエントリは削除
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) DBにフォールバック
	out, err := c.inner.QueryBars(ctx, symbol, day)
	if err != nil {
		return nil, err
	}

	// 3) キャッシュに保存（ベストエフォート）
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, TTLForDay(day, c.now(), c.loc, c.ttl)).Err()
	}

	return out, nil
}

// ListSymbols is not cached; the distinct scan is cheap and changes on every new symbol.
func (c *CachingBarRepository) ListSymbols(ctx context.Context) ([]string, error) {
	return c.inner.ListSymbols(ctx)
}

func (c *CachingBarRepository) cacheKey(symbol, day string) string {
	return fmt.Sprintf("%s:%s:%s", c.namespace, safe(symbol), safe(day))
}

func (c *CachingBarRepository) cacheKeyPrefix(symbol string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(symbol))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingBarRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// keyReplacer は区切り文字と SCAN MATCH のグロブ文字を潰します。
var keyReplacer = strings.NewReplacer(
	" ", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"[", "_",
	"]", "_",
	"\\", "_",
)

// safe escapes characters that are problematic for Redis keys and SCAN patterns.
func safe(s string) string {
	return keyReplacer.Replace(s)
}
