package model

import "time"

// SwapEvent is the payload published to Kafka (via Debezium outbox SMT)
// whenever a swap is created. The recorder worker mirrors it to ClickHouse.
type SwapEvent struct {
	ID               string  `json:"id"` // swap ULID
	Provider         string  `json:"provider"`
	FromCurrency     string  `json:"from_currency"`
	FromNetwork      string  `json:"from_network"`
	ToCurrency       string  `json:"to_currency"`
	ToNetwork        string  `json:"to_network"`
	Amount           float64 `json:"amount"`
	EstimatedReceive float64 `json:"estimated_receive"`
	Rate             float64 `json:"rate"`
	Status           string  `json:"status"`
	RateType         string  `json:"rate_type"`
	CreatedAtUnix    int64   `json:"created_at"`
}

// SwapEventRow is the ClickHouse view of a recorded swap event.
type SwapEventRow struct {
	ID               string    `db:"id" json:"id"`
	Provider         string    `db:"provider" json:"provider"`
	FromCurrency     string    `db:"from_currency" json:"from_currency"`
	FromNetwork      string    `db:"from_network" json:"from_network"`
	ToCurrency       string    `db:"to_currency" json:"to_currency"`
	ToNetwork        string    `db:"to_network" json:"to_network"`
	Amount           float64   `db:"amount" json:"amount"`
	EstimatedReceive float64   `db:"estimated_receive" json:"estimated_receive"`
	Rate             float64   `db:"rate" json:"rate"`
	Status           string    `db:"status" json:"status"`
	RateType         string    `db:"rate_type" json:"rate_type"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
