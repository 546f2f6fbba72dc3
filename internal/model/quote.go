package model

// TradeParams identifies a quote request exactly; it is the cache key tuple.
type TradeParams struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	NetworkFrom string  `json:"network_from"`
	NetworkTo   string  `json:"network_to"`
	Amount      float64 `json:"amount"`
}

// Rate is one provider's normalized quote.
type Rate struct {
	Provider        string   `json:"provider"`
	ProviderName    string   `json:"provider_name"`
	Rate            float64  `json:"rate"`
	EstimatedAmount float64  `json:"estimated_amount"`
	MinAmount       float64  `json:"min_amount"`
	MaxAmount       float64  `json:"max_amount"`
	NetworkFee      float64  `json:"network_fee"`
	ProviderFee     float64  `json:"provider_fee"`
	PlatformFee     float64  `json:"platform_fee"`
	TotalFee        float64  `json:"total_fee"`
	RateType        RateType `json:"rate_type"`
	KYCRequired     bool     `json:"kyc_required"`
	KYCRating       string   `json:"kyc_rating,omitempty"`
	ETAMinutes      int      `json:"eta_minutes"`
}

// RatesResult is the full quote-set response, cached as one unit.
type RatesResult struct {
	TradeID     string  `json:"trade_id"`
	From        string  `json:"from"`
	NetworkFrom string  `json:"network_from"`
	To          string  `json:"to"`
	NetworkTo   string  `json:"network_to"`
	Amount      float64 `json:"amount"`
	Rates       []Rate  `json:"rates"`
}
