package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/service/rates"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
)

func getRatesHandler(svc *rates.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := model.TradeParams{
			From:        strings.TrimSpace(c.QueryParam("from")),
			To:          strings.TrimSpace(c.QueryParam("to")),
			NetworkFrom: strings.TrimSpace(c.QueryParam("network_from")),
			NetworkTo:   strings.TrimSpace(c.QueryParam("network_to")),
		}
		if p.From == "" || p.To == "" || p.NetworkFrom == "" || p.NetworkTo == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "from, to, network_from and network_to are required"})
		}

		amount, err := strconv.ParseFloat(c.QueryParam("amount"), 64)
		if err != nil || amount <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "amount must be a positive number"})
		}
		p.Amount = amount

		result, err := svc.GetRates(c.Request().Context(), p)
		if err != nil {
			switch {
			case upstream.IsInvalid(err):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			case upstream.IsRateLimited(err):
				log.Warnf("rates upstream rate limited: %v", err)

				return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream rate limited"})
			default:
				log.Errorf("rates fetch failed: %v", err)

				return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
			}
		}

		return c.JSON(http.StatusOK, result)
	}
}
