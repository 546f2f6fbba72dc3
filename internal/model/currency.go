package model

import (
	"database/sql"
	"time"
)

// Currency is a reference-data row cached from the upstream exchange.
// Natural key is (symbol, network); both are immutable once inserted.
type Currency struct {
	ID              int64           `db:"id"`
	Symbol          string          `db:"symbol"`
	Name            string          `db:"name"`
	Network         string          `db:"network"`
	IsActive        bool            `db:"is_active"`
	LogoURL         sql.NullString  `db:"logo_url"`
	ContractAddress sql.NullString  `db:"contract_address"`
	Decimals        sql.NullInt32   `db:"decimals"`
	RequiresExtraID bool            `db:"requires_extra_id"`
	ExtraIDName     sql.NullString  `db:"extra_id_name"`
	MinAmount       sql.NullFloat64 `db:"min_amount"`
	MaxAmount       sql.NullFloat64 `db:"max_amount"`
	LastSyncedAt    sql.NullTime    `db:"last_synced_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// CurrencyFilter narrows currency listings.
type CurrencyFilter struct {
	Ticker  string
	Network string
	Memo    *bool
}
