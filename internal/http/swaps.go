package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/swap-gateway/internal/model"
	swapsvc "github.com/jmehdipour/swap-gateway/internal/service/swap"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
)

type createSwapReq struct {
	TradeID          string  `json:"trade_id"`
	From             string  `json:"from"`
	NetworkFrom      string  `json:"network_from"`
	To               string  `json:"to"`
	NetworkTo        string  `json:"network_to"`
	Amount           float64 `json:"amount"`
	RecipientAddress string  `json:"recipient_address"`
	RecipientExtraID string  `json:"recipient_extra_id"`
	RefundAddress    string  `json:"refund_address"`
	RefundExtraID    string  `json:"refund_extra_id"`
	Provider         string  `json:"provider"`
	RateType         string  `json:"rate_type"`
}

func createSwapHandler(svc *swapsvc.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createSwapReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.From = strings.TrimSpace(req.From)
		req.To = strings.TrimSpace(req.To)
		req.RecipientAddress = strings.TrimSpace(req.RecipientAddress)
		req.Provider = strings.TrimSpace(req.Provider)

		if req.From == "" || req.To == "" || req.NetworkFrom == "" || req.NetworkTo == "" ||
			req.RecipientAddress == "" || req.Provider == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.Amount <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "amount must be a positive number"})
		}

		rateType, ok := model.ParseRateType(req.RateType)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid rate_type"})
		}

		result, err := svc.Create(c.Request().Context(), swapsvc.CreateRequest{
			TradeID:          req.TradeID,
			From:             req.From,
			NetworkFrom:      req.NetworkFrom,
			To:               req.To,
			NetworkTo:        req.NetworkTo,
			Amount:           req.Amount,
			RecipientAddress: req.RecipientAddress,
			RecipientExtraID: req.RecipientExtraID,
			RefundAddress:    req.RefundAddress,
			RefundExtraID:    req.RefundExtraID,
			Provider:         req.Provider,
			RateType:         rateType,
		})
		if err != nil {
			var rangeErr *swapsvc.AmountRangeError
			switch {
			case errors.As(err, &rangeErr):
				return c.JSON(http.StatusBadRequest, map[string]any{
					"error": "amount_out_of_range",
					"min":   rangeErr.Min,
					"max":   rangeErr.Max,
				})
			case upstream.IsInvalid(err):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			case upstream.IsRateLimited(err):
				log.Warnf("create swap upstream rate limited: %v", err)

				return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream rate limited"})
			default:
				log.Errorf("create swap failed: %v", err)

				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "create failed"})
			}
		}

		return c.JSON(http.StatusCreated, result)
	}
}
