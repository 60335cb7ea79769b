package fiscalyears

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes fiscal year lookups. It replaces the process-wide static
// caches of the legacy model layer with an explicit object scoped by TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a redis client with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(code string) string {
	return "ledger:fiscal_year:" + code
}

// Get returns the cached year for code, or false on miss or error.
func (c *Cache) Get(ctx context.Context, code string) (FiscalYear, bool) {
	if c == nil || c.client == nil {
		return FiscalYear{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(code)).Bytes()
	if err != nil {
		return FiscalYear{}, false
	}
	var year FiscalYear
	if err := json.Unmarshal(raw, &year); err != nil {
		return FiscalYear{}, false
	}
	return year, true
}

// Set stores a year under its code. Errors are swallowed: the cache is an
// optimization, never the source of truth.
func (c *Cache) Set(ctx context.Context, year FiscalYear) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(year)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(year.Code), raw, c.ttl).Err()
}

// Invalidate drops the cached year for code.
func (c *Cache) Invalidate(ctx context.Context, code string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKey(code)).Err()
}
