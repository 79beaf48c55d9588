package domain

import (
	"context"
	"time"
)

// BarCache keeps recently fetched bar series.
type BarCache interface {
	GetBars(ctx context.Context, q BarQuery) ([]Bar, error)
	SetBars(ctx context.Context, q BarQuery, bars []Bar) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
