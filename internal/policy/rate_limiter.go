// Package policy provides admission control for the chat pipeline.
package policy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the result of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimiter enforces a fixed-window request limit per client key.
// Counters live in Redis when a client is configured (shared across
// instances) and fall back to an in-process expirable LRU otherwise.
// Backend errors fail open: admission control protects downstream
// resources, it must never become an outage of its own.
type RateLimiter struct {
	store  counterStore
	logger *zap.Logger
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window for
// each client key. redisClient may be nil; counters then reset on process
// restart, which is acceptable staleness for a rate limiter.
func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	var store counterStore
	if redisClient != nil {
		store = &redisCounters{client: redisClient}
	} else {
		store = newMemoryCounters(window)
	}
	return &RateLimiter{
		store:  store,
		logger: logger.Named("ratelimit"),
		limit:  limit,
		window: window,
	}
}

// Admit records one request for key and decides whether it may proceed.
// The counter is incremented before the comparison, so two concurrent
// calls can never both claim the last remaining slot.
func (rl *RateLimiter) Admit(ctx context.Context, key string) Decision {
	now := time.Now()
	windowStart := now.Truncate(rl.window)
	resetAt := windowStart.Add(rl.window)

	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())
	count, err := rl.store.incr(ctx, bucket, rl.window)
	if err != nil {
		rl.logger.Warn("rate limit backend unavailable, failing open",
			zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true, Limit: rl.limit, Remaining: -1, ResetAt: resetAt}
	}

	if count > int64(rl.limit) {
		return Decision{
			Allowed:    false,
			Limit:      rl.limit,
			Remaining:  0,
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     rl.limit,
		Remaining: rl.limit - int(count),
		ResetAt:   resetAt,
	}
}

// counterStore is the window counter backend. incr atomically adds one to
// the bucket, arming its expiry, and returns the new count.
type counterStore interface {
	incr(ctx context.Context, bucket string, window time.Duration) (int64, error)
}

type redisCounters struct {
	client *redis.Client
}

func (rc *redisCounters) incr(ctx context.Context, bucket string, window time.Duration) (int64, error) {
	pipe := rc.client.Pipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// memoryCounters keeps window buckets in an expirable LRU so stale
// buckets age out on their own. The mutex only guards bucket creation;
// increments are atomic.
type memoryCounters struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *atomic.Int64]
}

func newMemoryCounters(window time.Duration) *memoryCounters {
	return &memoryCounters{
		buckets: expirable.NewLRU[string, *atomic.Int64](8192, nil, window),
	}
}

func (mc *memoryCounters) incr(_ context.Context, bucket string, _ time.Duration) (int64, error) {
	mc.mu.Lock()
	counter, ok := mc.buckets.Get(bucket)
	if !ok {
		counter = new(atomic.Int64)
		mc.buckets.Add(bucket, counter)
	}
	mc.mu.Unlock()
	return counter.Add(1), nil
}
