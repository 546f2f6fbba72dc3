package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/repository"
	syncsvc "github.com/jmehdipour/swap-gateway/internal/service/sync"
)

type currencyResponse struct {
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name"`
	Network         string   `json:"network"`
	LogoURL         string   `json:"logo_url,omitempty"`
	RequiresExtraID bool     `json:"requires_extra_id"`
	ExtraIDName     string   `json:"extra_id_name,omitempty"`
	MinAmount       *float64 `json:"min_amount,omitempty"`
	MaxAmount       *float64 `json:"max_amount,omitempty"`
}

func listCurrenciesHandler(engine *syncsvc.Engine, repo repository.CurrenciesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Opportunistic refresh; stale data is served if the sync fails.
		engine.RefreshCurrenciesIfStale(c.Request().Context())

		f := model.CurrencyFilter{
			Ticker:  strings.TrimSpace(c.QueryParam("ticker")),
			Network: strings.TrimSpace(c.QueryParam("network")),
		}
		if raw := c.QueryParam("memo"); raw != "" {
			if v, err := strconv.ParseBool(raw); err == nil {
				f.Memo = &v
			}
		}

		rows, err := repo.List(c.Request().Context(), f)
		if err != nil {
			log.Errorf("list currencies failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make([]currencyResponse, 0, len(rows))
		for _, cur := range rows {
			r := currencyResponse{
				Symbol:          cur.Symbol,
				Name:            cur.Name,
				Network:         cur.Network,
				RequiresExtraID: cur.RequiresExtraID,
			}
			if cur.LogoURL.Valid {
				r.LogoURL = cur.LogoURL.String
			}
			if cur.ExtraIDName.Valid {
				r.ExtraIDName = cur.ExtraIDName.String
			}
			if cur.MinAmount.Valid {
				v := cur.MinAmount.Float64
				r.MinAmount = &v
			}
			if cur.MaxAmount.Valid {
				v := cur.MaxAmount.Float64
				r.MaxAmount = &v
			}
			out = append(out, r)
		}

		return c.JSON(http.StatusOK, out)
	}
}
