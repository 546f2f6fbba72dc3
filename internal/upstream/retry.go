package upstream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const limiterTokens = 1

// Limiter gates outbound calls; the distributed token bucket satisfies it.
type Limiter interface {
	TryAcquire(ctx context.Context, key string, tokens int) bool
	WaitTime(ctx context.Context, key string) time.Duration
}

// Retryer wraps upstream calls with bounded retry under rate limiting.
// Rate-limited failures back off 1s, 2s, 4s; anything else is terminal.
type Retryer struct {
	limiter    Limiter
	limiterKey string
	log        *zap.Logger
	maxRetries int

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryer(limiter Limiter, limiterKey string, log *zap.Logger, maxRetries int) *Retryer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Retryer{
		limiter:    limiter,
		limiterKey: limiterKey,
		log:        log,
		maxRetries: maxRetries,
		sleep:      sleepCtx,
	}
}

// Do runs op until it succeeds, fails terminally, or exhausts retries.
// Before each attempt the shared limiter is consulted; refusal counts as a
// rate-limited attempt without spending a network round trip. The backoff
// sleep aborts early when ctx is cancelled.
func Do[T any](ctx context.Context, r *Retryer, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	retries := 0

	for {
		var err error
		if r.limiter != nil && !r.limiter.TryAcquire(ctx, r.limiterKey, limiterTokens) {
			err = &Error{Kind: KindRateLimited, Message: "local rate limiter refused"}
		} else {
			var result T
			result, err = op(ctx)
			if err == nil {
				return result, nil
			}
		}

		if !IsRateLimited(err) {
			return zero, fmt.Errorf("upstream call: %w", err)
		}
		if retries >= r.maxRetries {
			return zero, fmt.Errorf("upstream call after %d retries: %w", retries, err)
		}

		retries++
		delay := time.Duration(1<<(retries-1)) * time.Second // 1s, 2s, 4s

		r.log.Warn("rate limit hit, retrying",
			zap.Duration("delay", delay),
			zap.Int("attempt", retries),
			zap.Int("max_retries", r.maxRetries),
		)

		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
