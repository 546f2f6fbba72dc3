package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/repository"
)

func listSwapReportsHandler(chRepo repository.CHSwapsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		status := strings.TrimSpace(c.QueryParam("status"))
		if status != "" && !model.SwapStatus(status).Valid() {
			status = ""
		}

		rows, err := chRepo.List(
			c.Request().Context(),
			status,
			strings.TrimSpace(c.QueryParam("from")),
			strings.TrimSpace(c.QueryParam("to")),
			limit,
			offset,
		)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
