package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/labdata/labdata/internal/config"
	"github.com/labdata/labdata/internal/domain/account"
	"github.com/labdata/labdata/internal/domain/catalog"
	"github.com/labdata/labdata/internal/domain/laboratory"
	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/auth"
	"github.com/labdata/labdata/internal/platform/db"
	"github.com/labdata/labdata/internal/platform/middleware"
	"github.com/labdata/labdata/internal/platform/openapi"
)

const (
	apiPrefix       = "/api/v1"
	version         = "0.1.0"
	maxBodySize     = "1M"
	shutdownTimeout = 10 * time.Second

	// Revocations made by another instance are honored within this interval.
	revocationSyncInterval = 30 * time.Second
)

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if cfg.UsesDevTokenSecret() {
		logger.Warn().Msg("signing tokens with the development secret")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revoked, err := auth.NewPersistentRevocationStore(ctx, account.NewRevocationRepoPG(pool), revocationSyncInterval, func(err error) {
		logger.Warn().Err(err).Msg("failed to refresh token revocations")
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to load token revocations")
		return err
	}
	defer revoked.Close()
	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL, revoked)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		db.NewPoolCollector(pool),
	)

	e := newServer(cfg, logger, pool, tokens, reg)
	e.GET("/health/db", db.HealthHandler(pool, pool))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires the router, middleware and domain handlers. pool may be
// nil in tests as long as no request reaches a repository.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, tokens *auth.TokenManager, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierr.HTTPErrorHandler(logger)

	e.Pre(echomw.RemoveTrailingSlash())

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger, "/health", "/health/db", "/metrics"))
	e.Use(middleware.NewHTTPMetrics(reg).Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(echomw.Gzip())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Domain services
	accountSvc := account.NewService(account.NewUserRepoPG(pool), tokens)

	catalogSvc := catalog.NewService(
		catalog.NewIndicatorRepoPG(pool),
		catalog.NewMetricRepoPG(pool),
		catalog.NewIndicatorMetricRepoPG(pool),
		catalog.NewReferenceRepoPG(pool),
	)
	catalogSvc.SetTransactor(db.Transactor(pool))

	labSvc := laboratory.NewService(
		laboratory.NewLabRepoPG(pool),
		laboratory.NewTestRepoPG(pool),
		laboratory.NewScoreRepoPG(pool),
		catalogSvc,
	)
	labSvc.SetTransactor(db.Transactor(pool))

	rateLimit := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimit.RequestsPerSecond <= 0 {
		rateLimit = middleware.DefaultRateLimitConfig()
	}

	// API middleware runs at the top level and skips other paths. Group
	// middleware would register a catch-all route that answers 404 where
	// the router should report 405.
	for _, mw := range []echo.MiddlewareFunc{
		auth.Authenticate(tokens, accountSvc),
		middleware.RateLimit(rateLimit),
		middleware.RequestTimeout(cfg.RequestTimeout),
		middleware.Audit(logger),
	} {
		e.Use(apiOnly(mw))
	}
	apiV1 := e.Group(apiPrefix)

	policy := auth.ObjectPolicy{AllowNonStaffDelete: cfg.AllowNonStaffDelete}
	catalogHandler := catalog.NewHandler(catalogSvc, policy)
	labHandler := laboratory.NewHandler(labSvc, policy)

	account.NewHandler(accountSvc).RegisterRoutes(apiV1)
	catalogHandler.RegisterRoutes(apiV1)
	labHandler.RegisterRoutes(apiV1)

	schema := openapi.NewGenerator("Lab Data API", version, fmt.Sprintf("http://localhost:%s%s", cfg.Port, apiPrefix))
	schema.AddResource(labHandler.APIResources()...)
	schema.AddResource(catalogHandler.APIResources()...)
	schema.RegisterRoutes(apiV1)

	return e
}

// apiOnly applies mw to requests under the API prefix only.
func apiOnly(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := mw(next)
		return func(c echo.Context) error {
			p := c.Request().URL.Path
			if p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/") {
				return wrapped(c)
			}
			return next(c)
		}
	}
}
