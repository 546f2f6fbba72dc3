package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/util"
)

// ProviderUpsert is the reconciliation payload for one upstream provider.
type ProviderUpsert struct {
	Name                string
	KYCRating           string
	InsurancePercentage float64
	ETAMinutes          int
	MarkupEnabled       bool
}

// ProvidersRepository defines persistence for the providers table.
type ProvidersRepository interface {
	MaxSyncedAt(ctx context.Context) (*time.Time, error)
	// Upsert matches case-insensitively on name; on a miss a new row is
	// inserted with a slugified name as id. Two names slugifying identically
	// collide on insert; that limitation is accepted.
	Upsert(ctx context.Context, p ProviderUpsert) error
	List(ctx context.Context, f model.ProviderFilter) ([]model.Provider, error)
}

type ProvidersRepositoryImpl struct {
	db *sqlx.DB
}

func NewProvidersRepository(db *sqlx.DB) *ProvidersRepositoryImpl {
	return &ProvidersRepositoryImpl{db: db}
}

var _ ProvidersRepository = (*ProvidersRepositoryImpl)(nil)

func (r *ProvidersRepositoryImpl) MaxSyncedAt(ctx context.Context) (*time.Time, error) {
	var ts sql.NullTime
	if err := r.db.GetContext(ctx, &ts, `SELECT MAX(last_synced_at) FROM providers`); err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}

func (r *ProvidersRepositoryImpl) Upsert(ctx context.Context, p ProviderUpsert) error {
	slug := util.Slugify(p.Name)

	var existingID string
	err := r.db.GetContext(ctx, &existingID,
		`SELECT id FROM providers WHERE LOWER(name) = LOWER(?) LIMIT 1`, p.Name)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if err == nil {
		const q = `
			UPDATE providers SET
			    name                 = ?,
			    slug                 = ?,
			    kyc_rating           = ?,
			    insurance_percentage = ?,
			    eta_minutes          = ?,
			    markup_enabled       = ?,
			    last_synced_at       = NOW()
			WHERE id = ?
		`
		_, err = r.db.ExecContext(ctx, q,
			p.Name, slug, p.KYCRating, p.InsurancePercentage, p.ETAMinutes, p.MarkupEnabled, existingID,
		)
		return err
	}

	const q = `
		INSERT INTO providers
		    (id, name, slug, is_active, kyc_rating, insurance_percentage, eta_minutes, markup_enabled, last_synced_at)
		VALUES
		    (?, ?, ?, TRUE, ?, ?, ?, ?, NOW())
	`
	_, err = r.db.ExecContext(ctx, q,
		slug, p.Name, slug, p.KYCRating, p.InsurancePercentage, p.ETAMinutes, p.MarkupEnabled,
	)
	return err
}

func (r *ProvidersRepositoryImpl) List(ctx context.Context, f model.ProviderFilter) ([]model.Provider, error) {
	q := `
		SELECT id, name, slug, is_active, kyc_rating, insurance_percentage,
		       eta_minutes, markup_enabled, api_url, logo_url, website_url,
		       last_synced_at, created_at, updated_at
		  FROM providers
		 WHERE is_active = TRUE
	`
	var args []any

	if f.Rating != "" {
		q += " AND kyc_rating = ?"
		args = append(args, f.Rating)
	}
	if f.MarkupEnabled != nil {
		q += " AND markup_enabled = ?"
		args = append(args, *f.MarkupEnabled)
	}

	switch f.Sort {
	case "rating":
		q += " ORDER BY kyc_rating ASC, name ASC"
	case "eta":
		q += " ORDER BY eta_minutes ASC"
	default:
		q += " ORDER BY name ASC"
	}

	var rows []model.Provider
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
