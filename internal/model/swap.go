package model

import (
	"database/sql"
	"strings"
	"time"
)

type SwapStatus string

const (
	SwapStatusWaiting    SwapStatus = "waiting"
	SwapStatusConfirming SwapStatus = "confirming"
	SwapStatusSending    SwapStatus = "sending"
	SwapStatusCompleted  SwapStatus = "completed"
	SwapStatusFailed     SwapStatus = "failed"
	SwapStatusRefunded   SwapStatus = "refunded"
	SwapStatusExpired    SwapStatus = "expired"
)

func (s SwapStatus) String() string { return string(s) }

func (s SwapStatus) Valid() bool {
	switch s {
	case SwapStatusWaiting, SwapStatusConfirming, SwapStatusSending,
		SwapStatusCompleted, SwapStatusFailed, SwapStatusRefunded, SwapStatusExpired:
		return true
	}
	return false
}

// ParseSwapStatus maps an upstream trade status onto the local enum.
// Unknown statuses fall back to waiting.
func ParseSwapStatus(s string) SwapStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new", "waiting":
		return SwapStatusWaiting
	case "confirming":
		return SwapStatusConfirming
	case "sending":
		return SwapStatusSending
	case "finished":
		return SwapStatusCompleted
	case "failed", "halted":
		return SwapStatusFailed
	case "refunded":
		return SwapStatusRefunded
	case "expired":
		return SwapStatusExpired
	default:
		return SwapStatusWaiting
	}
}

type RateType string

const (
	RateTypeFloating RateType = "floating"
	RateTypeFixed    RateType = "fixed"
)

func (t RateType) String() string { return string(t) }

// ParseRateType normalizes input; empty => floating.
// Returns (value, true) if valid; otherwise (floating, false).
func ParseRateType(s string) (RateType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "floating":
		return RateTypeFloating, true
	case "fixed":
		return RateTypeFixed, true
	default:
		return RateTypeFloating, false
	}
}

// Swap is the DB entity persisted in the swaps table.
type Swap struct {
	ID               string         `db:"id"`
	ProviderID       string         `db:"provider_id"`
	ProviderSwapID   string         `db:"provider_swap_id"`
	FromCurrency     string         `db:"from_currency"`
	FromNetwork      string         `db:"from_network"`
	ToCurrency       string         `db:"to_currency"`
	ToNetwork        string         `db:"to_network"`
	Amount           float64        `db:"amount"`
	EstimatedReceive float64        `db:"estimated_receive"`
	Rate             float64        `db:"rate"`
	DepositAddress   string         `db:"deposit_address"`
	DepositExtraID   sql.NullString `db:"deposit_extra_id"`
	RecipientAddress string         `db:"recipient_address"`
	RecipientExtraID sql.NullString `db:"recipient_extra_id"`
	RefundAddress    sql.NullString `db:"refund_address"`
	RefundExtraID    sql.NullString `db:"refund_extra_id"`
	Status           SwapStatus     `db:"status"`
	RateType         RateType       `db:"rate_type"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}
