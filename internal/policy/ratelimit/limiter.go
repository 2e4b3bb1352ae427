// Package ratelimit spaces out requests to the same domain.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/dvsvc-crawler/internal/metrics"
)

const (
	// DefaultDelay is the gap between two requests to one domain.
	DefaultDelay = 5 * time.Second
	// DefaultMaxKeys bounds the number of tracked domains.
	DefaultMaxKeys = 100_000
	// DefaultIdleTTL forgets domains that have not been requested for a while.
	DefaultIdleTTL = time.Hour
)

// Config holds rate limiter configuration.
type Config struct {
	// Delay between requests sharing a key. Zero or less disables limiting.
	Delay   time.Duration
	Burst   int
	MaxKeys int
	IdleTTL time.Duration
}

// Limiter manages per-domain token buckets.
type Limiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = DefaultMaxKeys
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.IdleTTL < cfg.Delay {
		cfg.IdleTTL = cfg.Delay
	}
	return &Limiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](cfg.MaxKeys, nil, cfg.IdleTTL),
		limit:    limit,
		burst:    cfg.Burst,
	}
}

// Wait blocks until a token is available for key, respecting the context.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if key == "" {
		key = "unknown"
	}
	limiter := l.limiterFor(key)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(d)
	}
	return nil
}

// Tracked reports how many keys currently hold a bucket.
func (l *Limiter) Tracked() int {
	return l.limiters.Len()
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding refreshes the idle TTL.
	l.limiters.Add(key, limiter)
	return limiter
}
