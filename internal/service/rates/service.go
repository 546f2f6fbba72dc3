package rates

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/swap-gateway/internal/cache"
	"github.com/jmehdipour/swap-gateway/internal/metrics"
	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
)

const (
	// DefaultCacheTTL bounds how long a volatile quote set may be served.
	DefaultCacheTTL = 30 * time.Second

	// defaultETAMinutes is used when a provider reports no ETA.
	defaultETAMinutes = 15

	// bestKYCRating is the rating grade that does not require KYC.
	bestKYCRating = "A"
)

// Service serves live rate quotes through a cache-aside layer keyed by the
// exact trade parameters. Cache failures are never fatal: a broken store
// behaves like a permanent miss and the fetch path proceeds without it.
type Service struct {
	store    cache.Store
	exchange upstream.Exchange
	retry    *upstream.Retryer
	log      *zap.Logger
	ttl      time.Duration
}

func NewService(store cache.Store, exchange upstream.Exchange, retry *upstream.Retryer, log *zap.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		store:    store,
		exchange: exchange,
		retry:    retry,
		log:      log,
		ttl:      ttl,
	}
}

// GetRates returns the quote set for p, from cache when fresh, otherwise
// fetched upstream (retry-wrapped), normalized, sorted best-first, and cached.
func (s *Service) GetRates(ctx context.Context, p model.TradeParams) (*model.RatesResult, error) {
	key := cacheKey(p)

	if s.store != nil {
		var cached model.RatesResult
		hit, err := s.store.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.Warn("quote cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			metrics.QuoteCacheTotal.WithLabelValues("hit").Inc()
			s.log.Debug("quote cache hit", zap.String("key", key))
			return &cached, nil
		}
		metrics.QuoteCacheTotal.WithLabelValues("miss").Inc()
	}

	quotes, err := upstream.Do(ctx, s.retry, func(ctx context.Context) (*upstream.QuoteSet, error) {
		return s.exchange.Rates(ctx, p.From, p.NetworkFrom, p.To, p.NetworkTo, p.Amount)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}

	result := normalize(p, quotes)

	if s.store != nil {
		if err := s.store.SetJSON(ctx, key, result, s.ttl); err != nil {
			s.log.Warn("quote cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return result, nil
}

func cacheKey(p model.TradeParams) string {
	return "rates:" + p.From + ":" + p.To + ":" + p.NetworkFrom + ":" + p.NetworkTo + ":" +
		strconv.FormatFloat(p.Amount, 'f', -1, 64)
}

// normalize transforms provider-specific quote fields into the local response
// shape and sorts by descending estimated receive amount (stable, so ties
// keep upstream order). Defaults: total fee 0 when waste is absent, ETA 15
// minutes, KYC required unless the rating is the best grade.
func normalize(p model.TradeParams, qs *upstream.QuoteSet) *model.RatesResult {
	rates := make([]model.Rate, 0, len(qs.Quotes))

	for _, q := range qs.Quotes {
		amountTo, _ := strconv.ParseFloat(q.AmountTo, 64)

		var totalFee float64
		if q.Waste != nil {
			totalFee, _ = strconv.ParseFloat(*q.Waste, 64)
		}

		kycRating := ""
		if q.KYCRating != nil {
			kycRating = *q.KYCRating
		}

		eta := defaultETAMinutes
		if q.ETA != nil {
			eta = int(*q.ETA)
		}

		var rate float64
		if p.Amount > 0 {
			rate = amountTo / p.Amount
		}

		r := model.Rate{
			Provider:        q.Provider,
			ProviderName:    q.Provider,
			Rate:            rate,
			EstimatedAmount: amountTo,
			ProviderFee:     totalFee,
			TotalFee:        totalFee,
			RateType:        model.RateTypeFloating,
			KYCRequired:     kycRating != bestKYCRating,
			KYCRating:       kycRating,
			ETAMinutes:      eta,
		}
		if q.MinAmount != nil {
			r.MinAmount = *q.MinAmount
		}
		if q.MaxAmount != nil {
			r.MaxAmount = *q.MaxAmount
		}
		rates = append(rates, r)
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].EstimatedAmount > rates[j].EstimatedAmount
	})

	return &model.RatesResult{
		TradeID:     qs.TradeID,
		From:        p.From,
		NetworkFrom: p.NetworkFrom,
		To:          p.To,
		NetworkTo:   p.NetworkTo,
		Amount:      p.Amount,
		Rates:       rates,
	}
}
