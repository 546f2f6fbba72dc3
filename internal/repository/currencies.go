package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/swap-gateway/internal/model"
)

// CurrencyUpsert is the reconciliation payload for one upstream currency.
type CurrencyUpsert struct {
	Symbol          string
	Name            string
	Network         string
	LogoURL         string
	RequiresExtraID bool
	MinAmount       float64
	MaxAmount       float64
}

// CurrenciesRepository defines persistence for the currencies table.
type CurrenciesRepository interface {
	// MaxSyncedAt returns the most recent successful sync timestamp, or nil
	// when the table has never been synced.
	MaxSyncedAt(ctx context.Context) (*time.Time, error)
	// Upsert reconciles one currency by its (symbol, network) natural key.
	// Re-running with identical data refreshes last_synced_at without
	// creating duplicates; the key fields are never overwritten.
	Upsert(ctx context.Context, c CurrencyUpsert) error
	List(ctx context.Context, f model.CurrencyFilter) ([]model.Currency, error)
	// GetBySymbolNetwork fetches one active currency, nil when absent.
	GetBySymbolNetwork(ctx context.Context, symbol, network string) (*model.Currency, error)
}

type CurrenciesRepositoryImpl struct {
	db *sqlx.DB
}

func NewCurrenciesRepository(db *sqlx.DB) *CurrenciesRepositoryImpl {
	return &CurrenciesRepositoryImpl{db: db}
}

var _ CurrenciesRepository = (*CurrenciesRepositoryImpl)(nil)

func (r *CurrenciesRepositoryImpl) MaxSyncedAt(ctx context.Context) (*time.Time, error) {
	var ts sql.NullTime
	if err := r.db.GetContext(ctx, &ts, `SELECT MAX(last_synced_at) FROM currencies`); err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}

func (r *CurrenciesRepositoryImpl) Upsert(ctx context.Context, c CurrencyUpsert) error {
	const q = `
		INSERT INTO currencies
		    (symbol, name, network, is_active, logo_url, requires_extra_id, min_amount, max_amount, last_synced_at)
		VALUES
		    (?, ?, ?, TRUE, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
		    name           = VALUES(name),
		    logo_url       = VALUES(logo_url),
		    min_amount     = VALUES(min_amount),
		    max_amount     = VALUES(max_amount),
		    last_synced_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, q,
		c.Symbol, c.Name, c.Network, c.LogoURL, c.RequiresExtraID, c.MinAmount, c.MaxAmount,
	)
	return err
}

func (r *CurrenciesRepositoryImpl) List(ctx context.Context, f model.CurrencyFilter) ([]model.Currency, error) {
	q := `
		SELECT id, symbol, name, network, is_active, logo_url, contract_address,
		       decimals, requires_extra_id, extra_id_name, min_amount, max_amount,
		       last_synced_at, created_at, updated_at
		  FROM currencies
		 WHERE is_active = TRUE
	`
	var args []any

	if f.Ticker != "" {
		q += " AND LOWER(symbol) = LOWER(?)"
		args = append(args, f.Ticker)
	}
	if f.Network != "" {
		q += " AND network = ?"
		args = append(args, f.Network)
	}
	if f.Memo != nil {
		q += " AND requires_extra_id = ?"
		args = append(args, *f.Memo)
	}

	q += " ORDER BY symbol, network"

	var rows []model.Currency
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetBySymbolNetwork fetches one active currency by its natural key.
func (r *CurrenciesRepositoryImpl) GetBySymbolNetwork(ctx context.Context, symbol, network string) (*model.Currency, error) {
	var c model.Currency
	err := r.db.GetContext(ctx, &c, `
		SELECT id, symbol, name, network, is_active, logo_url, contract_address,
		       decimals, requires_extra_id, extra_id_name, min_amount, max_amount,
		       last_synced_at, created_at, updated_at
		  FROM currencies
		 WHERE LOWER(symbol) = LOWER(?) AND network = ? AND is_active = TRUE
		 LIMIT 1
	`, symbol, network)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
