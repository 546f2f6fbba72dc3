package rates

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmehdipour/swap-gateway/internal/cache"
	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
)

func strPtr(s string) *string { return &s }
func f64Ptr(f float64) *float64 { return &f }

var testParams = model.TradeParams{
	From:        "btc",
	To:          "eth",
	NetworkFrom: "btc",
	NetworkTo:   "eth",
	Amount:      0.5,
}

func testQuoteSet() *upstream.QuoteSet {
	return &upstream.QuoteSet{
		TradeID: "t-123",
		Quotes: []upstream.Quote{
			{
				Provider:  "fastswap",
				AmountTo:  "7.5",
				Waste:     strPtr("0.02"),
				KYCRating: strPtr("A"),
				ETA:       f64Ptr(10),
				MinAmount: f64Ptr(0.01),
				MaxAmount: f64Ptr(100),
			},
			{
				Provider: "coinshuttle",
				AmountTo: "8.1",
				// no waste, no rating, no eta: all defaults apply
			},
			{
				Provider:  "privexchange",
				AmountTo:  "7.9",
				KYCRating: strPtr("C"),
			},
		},
	}
}

func newTestService(store cache.Store, ex upstream.Exchange, ttl time.Duration) *Service {
	retry := upstream.NewRetryer(nil, "upstream:test", zap.NewNop(), 1)
	return NewService(store, ex, retry, zap.NewNop(), ttl)
}

func TestGetRates(t *testing.T) {
	ctx := context.Background()

	t.Run("NormalizesAndSortsBestFirst", func(t *testing.T) {
		ex := &fakeExchange{rates: testQuoteSet()}
		svc := newTestService(newMemStore(), ex, time.Minute)

		got, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)

		assert.Equal(t, "t-123", got.TradeID)
		require.Len(t, got.Rates, 3)

		// Descending by estimated receive amount.
		assert.Equal(t, "coinshuttle", got.Rates[0].Provider)
		assert.Equal(t, "privexchange", got.Rates[1].Provider)
		assert.Equal(t, "fastswap", got.Rates[2].Provider)

		best := got.Rates[0]
		assert.Equal(t, 8.1, best.EstimatedAmount)
		assert.InDelta(t, 16.2, best.Rate, 1e-9) // 8.1 / 0.5
		assert.Zero(t, best.TotalFee)
		assert.Equal(t, 15, best.ETAMinutes)
		assert.True(t, best.KYCRequired) // missing rating is never the best grade

		fast := got.Rates[2]
		assert.Equal(t, 0.02, fast.TotalFee)
		assert.Equal(t, 10, fast.ETAMinutes)
		assert.False(t, fast.KYCRequired)
		assert.Equal(t, 0.01, fast.MinAmount)
		assert.Equal(t, 100.0, fast.MaxAmount)

		assert.True(t, got.Rates[1].KYCRequired)
	})

	t.Run("SecondCallServedFromCache", func(t *testing.T) {
		ex := &fakeExchange{rates: testQuoteSet()}
		store := newMemStore()
		svc := newTestService(store, ex, time.Minute)

		first, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)
		second, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)

		assert.Equal(t, 1, ex.ratesCalls)
		assert.Equal(t, first.TradeID, second.TradeID)
		assert.Equal(t, first.Rates, second.Rates)
	})

	t.Run("DistinctParamsMissTheCache", func(t *testing.T) {
		ex := &fakeExchange{rates: testQuoteSet()}
		svc := newTestService(newMemStore(), ex, time.Minute)

		_, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)

		other := testParams
		other.Amount = 1.5
		_, err = svc.GetRates(ctx, other)
		require.NoError(t, err)

		assert.Equal(t, 2, ex.ratesCalls)
	})

	t.Run("CacheWrittenWithConfiguredTTL", func(t *testing.T) {
		ex := &fakeExchange{rates: testQuoteSet()}
		store := newMemStore()
		svc := newTestService(store, ex, 30*time.Second)

		_, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)

		key := cacheKey(testParams)
		assert.Contains(t, store.ttls, key)
		assert.Equal(t, 30*time.Second, store.ttls[key])
	})

	t.Run("BrokenStoreStillServes", func(t *testing.T) {
		ex := &fakeExchange{rates: testQuoteSet()}
		svc := newTestService(brokenStore{}, ex, time.Minute)

		got, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)
		assert.Len(t, got.Rates, 3)

		// Every call refetches because nothing could be cached.
		_, err = svc.GetRates(ctx, testParams)
		require.NoError(t, err)
		assert.Equal(t, 2, ex.ratesCalls)
	})

	t.Run("UpstreamFailureSurfaces", func(t *testing.T) {
		ex := &fakeExchange{ratesErr: &upstream.Error{Kind: upstream.KindInvalid, Status: 400, Message: "unsupported pair"}}
		svc := newTestService(newMemStore(), ex, time.Minute)

		_, err := svc.GetRates(ctx, testParams)
		require.Error(t, err)
		assert.True(t, upstream.IsInvalid(err))
	})

	t.Run("EmptyQuoteSet", func(t *testing.T) {
		ex := &fakeExchange{rates: &upstream.QuoteSet{TradeID: "t-0"}}
		svc := newTestService(newMemStore(), ex, time.Minute)

		got, err := svc.GetRates(ctx, testParams)
		require.NoError(t, err)
		assert.Empty(t, got.Rates)
		assert.Equal(t, "t-0", got.TradeID)
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "rates:btc:eth:btc:eth:0.5", cacheKey(testParams))

	whole := testParams
	whole.Amount = 2
	assert.Equal(t, "rates:btc:eth:btc:eth:2", cacheKey(whole))
}

// memStore is an in-memory Store recording TTLs per key.
type memStore struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

type brokenStore struct{}

func (brokenStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	return false, cache.ErrUnavailable
}

func (brokenStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return cache.ErrUnavailable
}

// fakeExchange serves canned responses and counts calls.
type fakeExchange struct {
	rates      *upstream.QuoteSet
	ratesErr   error
	ratesCalls int
}

var _ upstream.Exchange = (*fakeExchange)(nil)

func (f *fakeExchange) Currencies(ctx context.Context) ([]upstream.CurrencyDescriptor, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeExchange) Providers(ctx context.Context) ([]upstream.ProviderDescriptor, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeExchange) Rates(ctx context.Context, from, networkFrom, to, networkTo string, amount float64) (*upstream.QuoteSet, error) {
	f.ratesCalls++
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

func (f *fakeExchange) CreateTrade(ctx context.Context, req upstream.TradeRequest) (*upstream.TradeResult, error) {
	return nil, errors.New("not implemented")
}
