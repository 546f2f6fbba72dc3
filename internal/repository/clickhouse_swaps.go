package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/swap-gateway/internal/model"
)

// CHSwapsRepository records and lists swap events in ClickHouse (reporting view).
type CHSwapsRepository interface {
	InsertEvents(ctx context.Context, events []model.SwapEvent) error
	List(ctx context.Context, status, fromCurrency, toCurrency string, limit, offset int) ([]model.SwapEventRow, error)
}

type chSwapsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHSwapsRepository(ch *sqlx.DB) CHSwapsRepository {
	return &chSwapsRepository{ch: ch}
}

func (r *chSwapsRepository) InsertEvents(ctx context.Context, events []model.SwapEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO swapgw.swap_events
		    (id, provider, from_currency, from_network, to_currency, to_network,
		     amount, estimated_receive, rate, status, rate_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Provider, e.FromCurrency, e.FromNetwork, e.ToCurrency, e.ToNetwork,
			e.Amount, e.EstimatedReceive, e.Rate, e.Status, e.RateType,
			time.Unix(e.CreatedAtUnix, 0).UTC(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *chSwapsRepository) List(ctx context.Context, status, fromCurrency, toCurrency string, limit, offset int) ([]model.SwapEventRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, provider, from_currency, from_network, to_currency, to_network,
		       amount, estimated_receive, rate, status, rate_type, created_at
		FROM swapgw.swap_events
		WHERE 1 = 1
	`
	var args []any

	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	if fromCurrency != "" {
		q += " AND from_currency = ?"
		args = append(args, fromCurrency)
	}
	if toCurrency != "" {
		q += " AND to_currency = ?"
		args = append(args, toCurrency)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.SwapEventRow
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
