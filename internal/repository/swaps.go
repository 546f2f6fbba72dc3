package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/swap-gateway/internal/model"
)

// SwapsRepository defines persistence for the swaps table.
type SwapsRepository interface {
	// Insert writes a new swap row. If tx is nil it opens/commits an
	// internal transaction; otherwise it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, s model.Swap) error
}

type SwapsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSwapsRepository(db *sqlx.DB) *SwapsRepositoryImpl {
	return &SwapsRepositoryImpl{db: db}
}

var _ SwapsRepository = (*SwapsRepositoryImpl)(nil)

func (r *SwapsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *SwapsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, s model.Swap) error {
	const q = `
		INSERT INTO swaps
		    (id, provider_id, provider_swap_id,
		     from_currency, from_network, to_currency, to_network,
		     amount, estimated_receive, rate,
		     deposit_address, deposit_extra_id,
		     recipient_address, recipient_extra_id,
		     refund_address, refund_extra_id,
		     status, rate_type, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			s.ID, s.ProviderID, s.ProviderSwapID,
			s.FromCurrency, s.FromNetwork, s.ToCurrency, s.ToNetwork,
			s.Amount, s.EstimatedReceive, s.Rate,
			s.DepositAddress, s.DepositExtraID,
			s.RecipientAddress, s.RecipientExtraID,
			s.RefundAddress, s.RefundExtraID,
			s.Status.String(), s.RateType.String(),
		)
		return err
	})
}
