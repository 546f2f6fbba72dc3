package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jmehdipour/swap-gateway/internal/cache"
	"github.com/jmehdipour/swap-gateway/internal/config"
	"github.com/jmehdipour/swap-gateway/internal/http/middleware"
	"github.com/jmehdipour/swap-gateway/internal/logger"
	"github.com/jmehdipour/swap-gateway/internal/metrics"
	"github.com/jmehdipour/swap-gateway/internal/ratelimit"
	"github.com/jmehdipour/swap-gateway/internal/repository"
	ratesvc "github.com/jmehdipour/swap-gateway/internal/service/rates"
	swapsvc "github.com/jmehdipour/swap-gateway/internal/service/swap"
	syncsvc "github.com/jmehdipour/swap-gateway/internal/service/sync"
	"github.com/jmehdipour/swap-gateway/internal/upstream"
)

// upstreamLimiterKey buckets all outbound exchange calls together; every
// server instance draws from the same bucket through Redis.
const upstreamLimiterKey = "upstream:exchange"

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	zlog := logger.L()

	// repos (MySQL)
	currenciesRepo := repository.NewCurrenciesRepository(mysqlDB)
	providersRepo := repository.NewProvidersRepository(mysqlDB)
	swapsRepo := repository.NewSwapsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	chSwapsRepo := repository.NewCHSwapsRepository(clickhouseDB)

	// shared cache + outbound throttle
	store := cache.NewService(rds)
	limiter := ratelimit.NewDistributedRateLimiter(
		store, zlog,
		cfg.RateLimit.BucketCapacity, cfg.RateLimit.RefillRate, cfg.RateLimit.IdleTTL,
	)

	// upstream client + retry policy
	exchange := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout)
	retryer := upstream.NewRetryer(limiter, upstreamLimiterKey, zlog, cfg.Upstream.MaxRetries)

	// services
	syncEngine := syncsvc.NewEngine(currenciesRepo, providersRepo, exchange, retryer, store, zlog, cfg.Sync.MaxAge)
	ratesSvc := ratesvc.NewService(store, exchange, retryer, zlog, cfg.Quotes.CacheTTL)
	swapSvc := swapsvc.NewService(mysqlDB, swapsRepo, outboxRepo, currenciesRepo, exchange, retryer, zlog)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", rlMW)
	v1.GET("/swap/currencies", listCurrenciesHandler(syncEngine, currenciesRepo))
	v1.GET("/swap/providers", listProvidersHandler(syncEngine, providersRepo))
	v1.GET("/swap/rates", getRatesHandler(ratesSvc))
	v1.POST("/swap/create", createSwapHandler(swapSvc))
	v1.GET("/reports/swaps", listSwapReportsHandler(chSwapsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
