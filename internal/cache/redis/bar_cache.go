package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BarCache implements domain.BarCache, holding each fetched bar series as a
// JSON string with a TTL.
//
// Key schema:
//
//	bars:{symbol}:{interval}:{range} - JSON array of bars
type BarCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBarCache creates a BarCache whose entries expire after ttl.
func NewBarCache(c *Client, ttl time.Duration) *BarCache {
	return &BarCache{rdb: c.Underlying(), ttl: ttl}
}

func barsKey(q domain.BarQuery) string {
	return fmt.Sprintf("bars:%s:%s:%s", q.Symbol, q.Interval, q.Range)
}

// GetBars returns the cached series for q, or domain.ErrNotFound.
func (bc *BarCache) GetBars(ctx context.Context, q domain.BarQuery) ([]domain.Bar, error) {
	data, err := bc.rdb.Get(ctx, barsKey(q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get bars %s: %w", barsKey(q), err)
	}

	var bars []domain.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("redis: unmarshal bars %s: %w", barsKey(q), err)
	}
	return bars, nil
}

// SetBars caches bars for q.
func (bc *BarCache) SetBars(ctx context.Context, q domain.BarQuery, bars []domain.Bar) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("redis: marshal bars: %w", err)
	}
	if err := bc.rdb.Set(ctx, barsKey(q), data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set bars %s: %w", barsKey(q), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BarCache = (*BarCache)(nil)
