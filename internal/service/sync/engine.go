package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/swap-gateway/internal/metrics"
	"github.com/jmehdipour/swap-gateway/internal/repository"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
)

// DefaultMaxAge is the staleness window shared by both reference collections.
const DefaultMaxAge = 5 * time.Minute

// lockTTL caps how long a crashed sync holder can block other instances.
const lockTTL = 30 * time.Second

const (
	currenciesLockKey = "sync:lock:currencies"
	providersLockKey  = "sync:lock:providers"
)

// Locker is a short-lived advisory lock so only one instance syncs a
// collection at a time; the cache service satisfies it. Lock failures fail
// open: a broken lock backend never blocks a refresh.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Engine reconciles the local reference-data cache (currencies, providers)
// with upstream truth. Syncs are triggered opportunistically on read paths;
// the advisory lock keeps concurrent stale readers from all fetching upstream,
// and losing the lock race means serving the current (stale) rows. Races that
// slip past the lock are still safe because upserts are idempotent.
type Engine struct {
	currencies repository.CurrenciesRepository
	providers  repository.ProvidersRepository
	exchange   upstream.Exchange
	retry      *upstream.Retryer
	locks      Locker
	log        *zap.Logger
	maxAge     time.Duration

	now func() time.Time
}

func NewEngine(
	currencies repository.CurrenciesRepository,
	providers repository.ProvidersRepository,
	exchange upstream.Exchange,
	retry *upstream.Retryer,
	locks Locker,
	log *zap.Logger,
	maxAge time.Duration,
) *Engine {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Engine{
		currencies: currencies,
		providers:  providers,
		exchange:   exchange,
		retry:      retry,
		locks:      locks,
		log:        log,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// NeedsRefreshCurrencies reports whether the currencies cache is stale.
// A never-synced table always needs a refresh.
func (e *Engine) NeedsRefreshCurrencies(ctx context.Context) (bool, error) {
	return e.needsRefresh(e.currencies.MaxSyncedAt(ctx))
}

// NeedsRefreshProviders reports whether the providers cache is stale.
func (e *Engine) NeedsRefreshProviders(ctx context.Context) (bool, error) {
	return e.needsRefresh(e.providers.MaxSyncedAt(ctx))
}

func (e *Engine) needsRefresh(last *time.Time, err error) (bool, error) {
	if err != nil {
		return true, fmt.Errorf("read sync cursor: %w", err)
	}
	if last == nil {
		return true, nil
	}
	return e.now().Sub(*last) > e.maxAge, nil
}

// SyncCurrencies fetches the full upstream currency catalog and upserts each
// entry by its (symbol, network) natural key. The first upsert failure aborts
// the batch; the next read retriggers the sync and the upserts re-apply
// cleanly. Returns the number of reconciled entries.
func (e *Engine) SyncCurrencies(ctx context.Context) (int, error) {
	list, err := upstream.Do(ctx, e.retry, e.exchange.Currencies)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("currencies", "error").Inc()
		return 0, fmt.Errorf("fetch currencies: %w", err)
	}

	for i, c := range list {
		up := repository.CurrencyUpsert{
			Symbol:          c.Ticker,
			Name:            c.Name,
			Network:         c.Network,
			LogoURL:         c.Image,
			RequiresExtraID: c.Memo,
			MinAmount:       c.Minimum,
			MaxAmount:       c.Maximum,
		}
		if err := e.currencies.Upsert(ctx, up); err != nil {
			metrics.SyncsTotal.WithLabelValues("currencies", "error").Inc()
			return i, fmt.Errorf("upsert currency %s/%s: %w", c.Ticker, c.Network, err)
		}
	}

	metrics.SyncsTotal.WithLabelValues("currencies", "ok").Inc()
	e.log.Info("currencies synced", zap.Int("count", len(list)))
	return len(list), nil
}

// SyncProviders fetches the upstream provider catalog and upserts each entry,
// matching case-insensitively on name. Returns the number reconciled.
func (e *Engine) SyncProviders(ctx context.Context) (int, error) {
	list, err := upstream.Do(ctx, e.retry, e.exchange.Providers)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("providers", "error").Inc()
		return 0, fmt.Errorf("fetch providers: %w", err)
	}

	for i, p := range list {
		up := repository.ProviderUpsert{
			Name:                p.Name,
			KYCRating:           p.Rating,
			InsurancePercentage: p.Insurance,
			ETAMinutes:          int(p.ETA),
			MarkupEnabled:       p.EnabledMarkup,
		}
		if err := e.providers.Upsert(ctx, up); err != nil {
			metrics.SyncsTotal.WithLabelValues("providers", "error").Inc()
			return i, fmt.Errorf("upsert provider %s: %w", p.Name, err)
		}
	}

	metrics.SyncsTotal.WithLabelValues("providers", "ok").Inc()
	e.log.Info("providers synced", zap.Int("count", len(list)))
	return len(list), nil
}

// RefreshCurrenciesIfStale runs the staleness gate and, when needed, a sync.
// Failures are absorbed and logged: the read path serves whatever is cached
// (stale-but-available beats a failed read). A gate error counts as stale.
func (e *Engine) RefreshCurrenciesIfStale(ctx context.Context) {
	stale, err := e.NeedsRefreshCurrencies(ctx)
	if err != nil {
		e.log.Warn("currencies staleness check failed, assuming stale", zap.Error(err))
	}
	if !stale {
		return
	}
	unlock, acquired := e.tryLock(ctx, currenciesLockKey)
	if !acquired {
		return
	}
	defer unlock()

	if _, err := e.SyncCurrencies(ctx); err != nil {
		e.log.Warn("currencies sync failed, serving cached data", zap.Error(err))
	}
}

// RefreshProvidersIfStale is the providers counterpart of RefreshCurrenciesIfStale.
func (e *Engine) RefreshProvidersIfStale(ctx context.Context) {
	stale, err := e.NeedsRefreshProviders(ctx)
	if err != nil {
		e.log.Warn("providers staleness check failed, assuming stale", zap.Error(err))
	}
	if !stale {
		return
	}
	unlock, acquired := e.tryLock(ctx, providersLockKey)
	if !acquired {
		return
	}
	defer unlock()

	if _, err := e.SyncProviders(ctx); err != nil {
		e.log.Warn("providers sync failed, serving cached data", zap.Error(err))
	}
}

// tryLock takes the per-collection advisory lock. Holding it is not required
// for correctness, only to avoid duplicate upstream fetches, so a lock-backend
// failure proceeds without the lock.
func (e *Engine) tryLock(ctx context.Context, key string) (unlock func(), acquired bool) {
	if e.locks == nil {
		return func() {}, true
	}
	ok, err := e.locks.Acquire(ctx, key, lockTTL)
	if err != nil {
		e.log.Warn("sync lock unavailable, proceeding without it", zap.String("key", key), zap.Error(err))
		return func() {}, true
	}
	if !ok {
		e.log.Debug("sync already running on another instance, serving cached data", zap.String("key", key))
		return nil, false
	}
	return func() { _ = e.locks.Release(ctx, key) }, true
}
