package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/swap-gateway/internal/cache"
)

const keyPrefix = "rate_limit:"

const (
	DefaultCapacity   = 10
	DefaultRefillRate = 1 // tokens per second
	DefaultIdleTTL    = time.Hour
)

// DistributedRateLimiter shares token-bucket state between server instances
// through the cache store, keyed by an arbitrary string (upstream name,
// API key, ...). An absent key is equivalent to a full bucket.
//
// Concurrency contract: the read-modify-write spans two cache calls and is
// not atomic. Two concurrent TryAcquire calls on the same key can both read
// the pre-consumption token count and both succeed, over-granting tokens
// under high concurrency. Exact accounting would need a server-side atomic
// script; the separate get+set is the accepted approximation here.
type DistributedRateLimiter struct {
	store      cache.Store
	log        *zap.Logger
	capacity   int
	refillRate int
	idleTTL    time.Duration
}

func NewDistributedRateLimiter(store cache.Store, log *zap.Logger, capacity, refillRate int, idleTTL time.Duration) *DistributedRateLimiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if refillRate <= 0 {
		refillRate = DefaultRefillRate
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &DistributedRateLimiter{
		store:      store,
		log:        log,
		capacity:   capacity,
		refillRate: refillRate,
		idleTTL:    idleTTL,
	}
}

// TryAcquire consumes tokens from the bucket for key and writes the state
// back with a refreshed idle TTL. Cache-store failures fail open: throttling
// is an optimization layer and must never block the call path.
func (l *DistributedRateLimiter) TryAcquire(ctx context.Context, key string, tokens int) bool {
	bucketKey := keyPrefix + key

	bucket := NewTokenBucket(l.capacity, l.refillRate)
	if _, err := l.store.GetJSON(ctx, bucketKey, &bucket); err != nil {
		l.log.Warn("rate limiter: bucket read failed, allowing", zap.String("key", key), zap.Error(err))
		return true
	}

	allowed := bucket.TryConsume(tokens)

	if err := l.store.SetJSON(ctx, bucketKey, bucket, l.idleTTL); err != nil {
		l.log.Warn("rate limiter: bucket write failed", zap.String("key", key), zap.Error(err))
	}

	return allowed
}

// WaitTime refills the bucket virtually (without persisting) and reports how
// long until the next single token accrues; zero when tokens are available.
func (l *DistributedRateLimiter) WaitTime(ctx context.Context, key string) time.Duration {
	bucketKey := keyPrefix + key

	var bucket TokenBucket
	found, err := l.store.GetJSON(ctx, bucketKey, &bucket)
	if err != nil || !found {
		return 0
	}

	bucket.refill(time.Now().Unix())
	if bucket.Tokens > 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(bucket.RefillRate))
}
