package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmehdipour/swap-gateway/internal/metrics"
)

// CurrencyDescriptor is one coin entry from the upstream catalog.
type CurrencyDescriptor struct {
	Ticker  string  `json:"ticker"`
	Name    string  `json:"name"`
	Network string  `json:"network"`
	Memo    bool    `json:"memo"`
	Image   string  `json:"image"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
}

// ProviderDescriptor is one exchange entry from the upstream catalog.
type ProviderDescriptor struct {
	Name          string  `json:"name"`
	Rating        string  `json:"rating"`
	Insurance     float64 `json:"insurance"`
	ETA           float64 `json:"eta"`
	EnabledMarkup bool    `json:"enabled_markup"`
}

// Quote is one provider's offer inside a rate response. Numeric fields arrive
// as strings or may be absent; normalization happens in the rates service.
type Quote struct {
	Provider  string   `json:"provider"`
	AmountTo  string   `json:"amount_to"`
	Waste     *string  `json:"waste"`
	MinAmount *float64 `json:"min_amount"`
	MaxAmount *float64 `json:"max_amount"`
	KYCRating *string  `json:"kycrating"`
	ETA       *float64 `json:"eta"`
}

// QuoteSet is the full set of quotes for one rate request.
type QuoteSet struct {
	TradeID string
	Quotes  []Quote
}

// TradeRequest carries everything needed to open a trade upstream.
type TradeRequest struct {
	TradeID          string
	From             string
	NetworkFrom      string
	To               string
	NetworkTo        string
	Amount           float64
	RecipientAddress string
	RefundAddress    string
	Provider         string
	Fixed            bool
}

// TradeResult is the upstream's view of a freshly created trade.
type TradeResult struct {
	TradeID             string  `json:"trade_id"`
	Provider            string  `json:"provider"`
	Status              string  `json:"status"`
	AmountTo            float64 `json:"amount_to"`
	AddressProvider     string  `json:"address_provider"`
	AddressProviderMemo string  `json:"address_provider_memo"`
}

// Exchange is the upstream contract the core depends on. Every call fails
// with a classified *Error.
type Exchange interface {
	Currencies(ctx context.Context) ([]CurrencyDescriptor, error)
	Providers(ctx context.Context) ([]ProviderDescriptor, error)
	Rates(ctx context.Context, from, networkFrom, to, networkTo string, amount float64) (*QuoteSet, error)
	CreateTrade(ctx context.Context, req TradeRequest) (*TradeResult, error)
}

// Client talks to the exchange-rate aggregator HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Exchange = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Currencies(ctx context.Context) ([]CurrencyDescriptor, error) {
	var out []CurrencyDescriptor
	if err := c.get(ctx, "/coins", nil, &out); err != nil {
		record("currencies", err)
		return nil, err
	}
	record("currencies", nil)
	return out, nil
}

func (c *Client) Providers(ctx context.Context) ([]ProviderDescriptor, error) {
	var out []ProviderDescriptor
	if err := c.get(ctx, "/exchanges", nil, &out); err != nil {
		record("providers", err)
		return nil, err
	}
	record("providers", nil)
	return out, nil
}

func (c *Client) Rates(ctx context.Context, from, networkFrom, to, networkTo string, amount float64) (*QuoteSet, error) {
	q := url.Values{}
	q.Set("ticker_from", from)
	q.Set("network_from", networkFrom)
	q.Set("ticker_to", to)
	q.Set("network_to", networkTo)
	q.Set("amount_from", strconv.FormatFloat(amount, 'f', -1, 64))

	var raw struct {
		TradeID string `json:"trade_id"`
		Quotes  struct {
			Quotes []Quote `json:"quotes"`
		} `json:"quotes"`
	}
	if err := c.get(ctx, "/new_rate", q, &raw); err != nil {
		record("rates", err)
		return nil, err
	}
	record("rates", nil)
	return &QuoteSet{TradeID: raw.TradeID, Quotes: raw.Quotes.Quotes}, nil
}

func (c *Client) CreateTrade(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	q := url.Values{}
	if req.TradeID != "" {
		q.Set("id", req.TradeID)
	}
	q.Set("ticker_from", req.From)
	q.Set("network_from", req.NetworkFrom)
	q.Set("ticker_to", req.To)
	q.Set("network_to", req.NetworkTo)
	q.Set("amount_from", strconv.FormatFloat(req.Amount, 'f', -1, 64))
	q.Set("address", req.RecipientAddress)
	if req.RefundAddress != "" {
		q.Set("refund", req.RefundAddress)
	}
	q.Set("provider", req.Provider)
	q.Set("fixed", strconv.FormatBool(req.Fixed))

	var out TradeResult
	if err := c.get(ctx, "/new_trade", q, &out); err != nil {
		record("trade", err)
		return nil, err
	}
	record("trade", nil)
	return &out, nil
}

func record(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsRateLimited(err):
		outcome = "rate_limited"
	default:
		outcome = "error"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
}

// get performs one API call and decodes the JSON body into dest.
// Non-2xx responses become classified errors: 429 => rate limited,
// other 4xx => invalid request, everything else => unavailable.
func (c *Client) get(ctx context.Context, path string, q url.Values, dest any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return classifyStatus(res.StatusCode, string(body))
	}

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return &Error{Kind: KindUnavailable, Message: fmt.Sprintf("decode %s: %v", path, err)}
	}
	return nil
}

func classifyStatus(status int, body string) *Error {
	kind := KindUnavailable
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 400 && status < 500:
		kind = KindInvalid
	}
	return &Error{Kind: kind, Status: status, Message: body}
}
