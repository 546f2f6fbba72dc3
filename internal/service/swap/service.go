package swap

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jmehdipour/swap-gateway/internal/metrics"
	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/repository"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
	"github.com/jmehdipour/swap-gateway/internal/util"
)

// SwapCreatedTopic is where the outbox relay publishes creation events.
const SwapCreatedTopic = "swap.created"

// defaultExpiry is applied when upstream reports no deposit deadline.
const defaultExpiry = 60 * time.Minute

// AmountRangeError rejects an amount outside the currency's declared bounds.
// It is a validation failure and is never retried.
type AmountRangeError struct {
	Min float64
	Max float64
}

func (e *AmountRangeError) Error() string {
	return fmt.Sprintf("amount out of range: min=%g, max=%g", e.Min, e.Max)
}

// CreateRequest carries the caller's parameters for a new swap.
type CreateRequest struct {
	TradeID          string
	From             string
	NetworkFrom      string
	To               string
	NetworkTo        string
	Amount           float64
	RecipientAddress string
	RecipientExtraID string
	RefundAddress    string
	RefundExtraID    string
	Provider         string
	RateType         model.RateType
}

// CreateResult is returned to the transport layer after a successful create.
type CreateResult struct {
	SwapID           string           `json:"swap_id"`
	Provider         string           `json:"provider"`
	From             string           `json:"from"`
	To               string           `json:"to"`
	DepositAddress   string           `json:"deposit_address"`
	DepositExtraID   string           `json:"deposit_extra_id,omitempty"`
	DepositAmount    float64          `json:"deposit_amount"`
	RecipientAddress string           `json:"recipient_address"`
	EstimatedReceive float64          `json:"estimated_receive"`
	Rate             float64          `json:"rate"`
	Status           model.SwapStatus `json:"status"`
	RateType         model.RateType   `json:"rate_type"`
	ExpiresAt        time.Time        `json:"expires_at"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Service creates swaps: validates the amount against cached currency bounds,
// opens the trade upstream (retry-wrapped), and persists the swap row plus
// its outbox event in a single transaction.
type Service struct {
	db         *sqlx.DB
	swaps      repository.SwapsRepository
	outbox     repository.OutboxRepository
	currencies repository.CurrenciesRepository
	exchange   upstream.Exchange
	retry      *upstream.Retryer
	log        *zap.Logger
}

func NewService(
	db *sqlx.DB,
	swaps repository.SwapsRepository,
	outbox repository.OutboxRepository,
	currencies repository.CurrenciesRepository,
	exchange upstream.Exchange,
	retry *upstream.Retryer,
	log *zap.Logger,
) *Service {
	return &Service{
		db:         db,
		swaps:      swaps,
		outbox:     outbox,
		currencies: currencies,
		exchange:   exchange,
		retry:      retry,
		log:        log,
	}
}

// Create opens a trade upstream and records it locally. Unlike reference-data
// reads there is no stale fallback here: an upstream failure after retries is
// surfaced to the caller.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := s.validateAmount(ctx, req); err != nil {
		return nil, err
	}

	trade, err := upstream.Do(ctx, s.retry, func(ctx context.Context) (*upstream.TradeResult, error) {
		return s.exchange.CreateTrade(ctx, upstream.TradeRequest{
			TradeID:          req.TradeID,
			From:             req.From,
			NetworkFrom:      req.NetworkFrom,
			To:               req.To,
			NetworkTo:        req.NetworkTo,
			Amount:           req.Amount,
			RecipientAddress: req.RecipientAddress,
			RefundAddress:    req.RefundAddress,
			Provider:         req.Provider,
			Fixed:            req.RateType == model.RateTypeFixed,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create trade: %w", err)
	}

	now := time.Now().UTC()
	status := model.ParseSwapStatus(trade.Status)

	var rate float64
	if req.Amount > 0 {
		rate = trade.AmountTo / req.Amount
	}

	row := model.Swap{
		ID:               util.NewID(),
		ProviderID:       req.Provider,
		ProviderSwapID:   trade.TradeID,
		FromCurrency:     req.From,
		FromNetwork:      req.NetworkFrom,
		ToCurrency:       req.To,
		ToNetwork:        req.NetworkTo,
		Amount:           req.Amount,
		EstimatedReceive: trade.AmountTo,
		Rate:             rate,
		DepositAddress:   trade.AddressProvider,
		DepositExtraID:   nullString(trade.AddressProviderMemo),
		RecipientAddress: req.RecipientAddress,
		RecipientExtraID: nullString(req.RecipientExtraID),
		RefundAddress:    nullString(req.RefundAddress),
		RefundExtraID:    nullString(req.RefundExtraID),
		Status:           status,
		RateType:         req.RateType,
	}

	event := model.SwapEvent{
		ID:               row.ID,
		Provider:         trade.Provider,
		FromCurrency:     req.From,
		FromNetwork:      req.NetworkFrom,
		ToCurrency:       req.To,
		ToNetwork:        req.NetworkTo,
		Amount:           req.Amount,
		EstimatedReceive: trade.AmountTo,
		Rate:             rate,
		Status:           status.String(),
		RateType:         req.RateType.String(),
		CreatedAtUnix:    now.Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal swap event: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.swaps.Insert(ctx, tx, row); err != nil {
		return nil, fmt.Errorf("insert swap: %w", err)
	}
	if err := s.outbox.Insert(ctx, tx, "swap", row.ID, SwapCreatedTopic, payload); err != nil {
		return nil, fmt.Errorf("insert outbox: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.SwapsCreatedTotal.Inc()
	s.log.Info("swap created",
		zap.String("swap_id", row.ID),
		zap.String("provider", req.Provider),
		zap.String("pair", req.From+"/"+req.To),
	)

	return &CreateResult{
		SwapID:           row.ID,
		Provider:         trade.Provider,
		From:             req.From,
		To:               req.To,
		DepositAddress:   trade.AddressProvider,
		DepositExtraID:   trade.AddressProviderMemo,
		DepositAmount:    req.Amount,
		RecipientAddress: req.RecipientAddress,
		EstimatedReceive: trade.AmountTo,
		Rate:             rate,
		Status:           status,
		RateType:         req.RateType,
		ExpiresAt:        now.Add(defaultExpiry),
		CreatedAt:        now,
	}, nil
}

// validateAmount checks req.Amount against the cached currency's declared
// bounds. Unknown currencies pass: the upstream rejects unsupported pairs
// itself and reference data may simply not be synced yet.
func (s *Service) validateAmount(ctx context.Context, req CreateRequest) error {
	cur, err := s.currencies.GetBySymbolNetwork(ctx, req.From, req.NetworkFrom)
	if err != nil {
		return fmt.Errorf("lookup currency: %w", err)
	}
	if cur == nil {
		return nil
	}

	min, max := 0.0, 0.0
	if cur.MinAmount.Valid {
		min = cur.MinAmount.Float64
	}
	if cur.MaxAmount.Valid {
		max = cur.MaxAmount.Float64
	}
	if (min > 0 && req.Amount < min) || (max > 0 && req.Amount > max) {
		return &AmountRangeError{Min: min, Max: max}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
