package ratelimit

import "time"

// TokenBucket is the pure token-bucket state persisted per rate-limit key.
// The JSON shape is the wire format stored in the shared cache, so field
// names are part of the cross-instance contract.
type TokenBucket struct {
	Tokens     int   `json:"tokens"`
	LastRefill int64 `json:"last_refill"` // unix seconds
	Capacity   int   `json:"capacity"`
	RefillRate int   `json:"refill_rate"` // tokens per second
}

// NewTokenBucket returns a full bucket stamped at now.
func NewTokenBucket(capacity, refillRate int) TokenBucket {
	return TokenBucket{
		Tokens:     capacity,
		LastRefill: time.Now().Unix(),
		Capacity:   capacity,
		RefillRate: refillRate,
	}
}

// TryConsume refills the bucket and consumes n tokens if available.
func (b *TokenBucket) TryConsume(n int) bool {
	return b.TryConsumeAt(n, time.Now().Unix())
}

// TryConsumeAt is TryConsume with an explicit clock, for deterministic tests.
func (b *TokenBucket) TryConsumeAt(n int, now int64) bool {
	b.refill(now)

	if b.Tokens >= n {
		b.Tokens -= n
		return true
	}
	return false
}

// refill adds whole tokens accrued since LastRefill, clamped to capacity.
// LastRefill only advances when at least one whole token was added, so
// sub-second fractions are deferred rather than lost across frequent calls.
// Negative elapsed time (clock skew) yields zero refill.
func (b *TokenBucket) refill(now int64) {
	elapsed := now - b.LastRefill
	if elapsed <= 0 {
		return
	}

	add := int(elapsed) * b.RefillRate
	if add <= 0 {
		return
	}

	b.Tokens += add
	if b.Tokens > b.Capacity {
		b.Tokens = b.Capacity
	}
	b.LastRefill = now
}
