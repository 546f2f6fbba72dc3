package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordRetryer swaps the real sleep for a recorder so backoff timing is
// observable without waiting.
func recordRetryer(limiter Limiter, maxRetries int) (*Retryer, *[]time.Duration) {
	r := NewRetryer(limiter, "upstream:test", zap.NewNop(), maxRetries)
	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return r, &sleeps
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstAttemptSucceeds", func(t *testing.T) {
		r, sleeps := recordRetryer(nil, 3)
		calls := 0

		got, err := Do(ctx, r, func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 1, calls)
		assert.Empty(t, *sleeps)
	})

	t.Run("RecoversAfterRateLimits", func(t *testing.T) {
		r, sleeps := recordRetryer(nil, 3)
		calls := 0

		got, err := Do(ctx, r, func(ctx context.Context) (string, error) {
			calls++
			if calls <= 2 {
				return "", &Error{Kind: KindRateLimited, Status: 429}
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
	})

	t.Run("ExhaustsRetries", func(t *testing.T) {
		r, sleeps := recordRetryer(nil, 3)
		calls := 0

		_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
			calls++
			return 0, &Error{Kind: KindRateLimited, Status: 429}
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 3 retries")
		assert.True(t, IsRateLimited(err))
		assert.Equal(t, 4, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *sleeps)
	})

	t.Run("NonRetryableFailsImmediately", func(t *testing.T) {
		r, sleeps := recordRetryer(nil, 3)
		calls := 0

		_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
			calls++
			return 0, &Error{Kind: KindInvalid, Status: 400, Message: "unsupported pair"}
		})

		require.Error(t, err)
		assert.True(t, IsInvalid(err))
		assert.Equal(t, 1, calls)
		assert.Empty(t, *sleeps)
	})

	t.Run("UnavailableFailsImmediately", func(t *testing.T) {
		r, sleeps := recordRetryer(nil, 3)

		_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
			return 0, &Error{Kind: KindUnavailable, Message: "dial tcp: timeout"}
		})

		require.Error(t, err)
		assert.False(t, IsRateLimited(err))
		assert.Empty(t, *sleeps)
	})

	t.Run("LimiterRefusalCountsAsRateLimited", func(t *testing.T) {
		lim := &fakeLimiter{allowances: []bool{false, false, true}}
		r, sleeps := recordRetryer(lim, 3)
		calls := 0

		got, err := Do(ctx, r, func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		// Refused attempts never reach the network.
		assert.Equal(t, 1, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
	})

	t.Run("LimiterRefusalCanExhaust", func(t *testing.T) {
		lim := &fakeLimiter{}
		r, _ := recordRetryer(lim, 3)
		calls := 0

		_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
			calls++
			return 0, nil
		})

		require.Error(t, err)
		assert.True(t, IsRateLimited(err))
		assert.Zero(t, calls)
	})

	t.Run("SleepErrorAborts", func(t *testing.T) {
		r := NewRetryer(nil, "upstream:test", zap.NewNop(), 3)
		r.sleep = func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}

		_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
			return 0, &Error{Kind: KindRateLimited}
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSleepCtx(t *testing.T) {
	t.Run("CancelledContextAborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := sleepCtx(ctx, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ShortSleepCompletes", func(t *testing.T) {
		err := sleepCtx(context.Background(), time.Millisecond)
		assert.NoError(t, err)
	})
}

func TestNewRetryerDefaults(t *testing.T) {
	r := NewRetryer(nil, "k", zap.NewNop(), 0)
	assert.Equal(t, 3, r.maxRetries)
	assert.NotNil(t, r.sleep)
}

// fakeLimiter answers TryAcquire from a scripted sequence, denying forever
// once the script runs out.
type fakeLimiter struct {
	allowances []bool
	calls      int
}

func (f *fakeLimiter) TryAcquire(ctx context.Context, key string, tokens int) bool {
	defer func() { f.calls++ }()
	if f.calls < len(f.allowances) {
		return f.allowances[f.calls]
	}
	return false
}

func (f *fakeLimiter) WaitTime(ctx context.Context, key string) time.Duration {
	return time.Second
}

var _ Limiter = (*fakeLimiter)(nil)

// Guard against accidental error-type changes breaking classification.
func TestDoWrapsOriginalError(t *testing.T) {
	r, _ := recordRetryer(nil, 1)
	orig := &Error{Kind: KindInvalid, Status: 400}

	_, err := Do(context.Background(), r, func(ctx context.Context) (int, error) {
		return 0, orig
	})

	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, orig, ue)
}
