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

type providerResponse struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Slug                string   `json:"slug"`
	KYCRating           string   `json:"kyc_rating,omitempty"`
	InsurancePercentage *float64 `json:"insurance_percentage,omitempty"`
	ETAMinutes          *int     `json:"eta_minutes,omitempty"`
	MarkupEnabled       bool     `json:"markup_enabled"`
	LogoURL             string   `json:"logo_url,omitempty"`
	WebsiteURL          string   `json:"website_url,omitempty"`
}

func listProvidersHandler(engine *syncsvc.Engine, repo repository.ProvidersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		engine.RefreshProvidersIfStale(c.Request().Context())

		f := model.ProviderFilter{
			Rating: strings.TrimSpace(c.QueryParam("rating")),
			Sort:   strings.TrimSpace(c.QueryParam("sort")),
		}
		if raw := c.QueryParam("markup_enabled"); raw != "" {
			if v, err := strconv.ParseBool(raw); err == nil {
				f.MarkupEnabled = &v
			}
		}

		rows, err := repo.List(c.Request().Context(), f)
		if err != nil {
			log.Errorf("list providers failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make([]providerResponse, 0, len(rows))
		for _, p := range rows {
			r := providerResponse{
				ID:            p.ID,
				Name:          p.Name,
				Slug:          p.Slug,
				MarkupEnabled: p.MarkupEnabled,
			}
			if p.KYCRating.Valid {
				r.KYCRating = p.KYCRating.String
			}
			if p.InsurancePercentage.Valid {
				v := p.InsurancePercentage.Float64
				r.InsurancePercentage = &v
			}
			if p.ETAMinutes.Valid {
				v := int(p.ETAMinutes.Int32)
				r.ETAMinutes = &v
			}
			if p.LogoURL.Valid {
				r.LogoURL = p.LogoURL.String
			}
			if p.WebsiteURL.Valid {
				r.WebsiteURL = p.WebsiteURL.String
			}
			out = append(out, r)
		}

		return c.JSON(http.StatusOK, out)
	}
}
