package model

import (
	"database/sql"
	"time"
)

// Provider is an exchange provider row cached from the upstream aggregator.
// Upstream exposes no stable identifier for providers besides the name, so
// rows are matched case-insensitively on name and the id is a slug of it.
type Provider struct {
	ID                  string          `db:"id"`
	Name                string          `db:"name"`
	Slug                string          `db:"slug"`
	IsActive            bool            `db:"is_active"`
	KYCRating           sql.NullString  `db:"kyc_rating"`
	InsurancePercentage sql.NullFloat64 `db:"insurance_percentage"`
	ETAMinutes          sql.NullInt32   `db:"eta_minutes"`
	MarkupEnabled       bool            `db:"markup_enabled"`
	APIURL              sql.NullString  `db:"api_url"`
	LogoURL             sql.NullString  `db:"logo_url"`
	WebsiteURL          sql.NullString  `db:"website_url"`
	LastSyncedAt        sql.NullTime    `db:"last_synced_at"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

// ProviderFilter narrows provider listings.
type ProviderFilter struct {
	Rating        string
	MarkupEnabled *bool
	Sort          string // name|rating|eta
}
