package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/tripweaver/tripweaver/config"
	"github.com/tripweaver/tripweaver/internal/scrapehub"
	"github.com/tripweaver/tripweaver/internal/search"
	"github.com/tripweaver/tripweaver/internal/store"
	"github.com/tripweaver/tripweaver/internal/telemetry"
	"github.com/tripweaver/tripweaver/provider"
	"github.com/tripweaver/tripweaver/session"
	"github.com/tripweaver/tripweaver/session/inmemory"
	redis_session "github.com/tripweaver/tripweaver/session/redis"
)

// Run wires the full service and blocks serving HTTP.
func Run(cfgPath string) error {
	cfg := appconfig.LoadConfig(cfgPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	metricsPath := cfg.Telemetry.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	sessions, err := buildSessions(ctx, cfg)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry, log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags), prometheus.DefaultRegisterer)
	hub := scrapehub.NewClient(cfg.Scraper.BaseURL, cfg.Scraper.HTTPTimeout, cfg.Scraper.HTTPRetries, cfg.Scraper.HTTPBackoff)
	registry := search.NewRegistry(hub, log.New(log.Writer(), "[REGISTRY] ", log.LstdFlags))
	runner := search.NewRunner(hub, cfg.Search, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags), tele)
	orch := search.NewOrchestrator(cfg.Search, registry, runner, log.New(log.Writer(), "[ORCH] ", log.LstdFlags), tele)

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	secret := cfg.Server.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
	}

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: []byte(secret)}
	auth.Register(api.Group("/auth"))

	ah := &AssistantHandler{
		Sessions: sessions,
		Bundles:  st,
		Gatherer: orch,
		LLM:      llm,
		TTL:      cfg.Session.TTL,
		Logger:   log.New(log.Writer(), "[ASSISTANT] ", log.LstdFlags),
	}
	ah.Register(api.Group("/trips"), auth.Secret)

	ops := api.Group("/ops")
	ops.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, auth.Secret) })
	ops.GET("/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, tele.Snapshot())
	})

	return e.Start(cfg.Server.Address)
}

func buildSessions(ctx context.Context, cfg *appconfig.Config) (session.Store, error) {
	if cfg.Session.Backend != "redis" {
		return inmemory.NewStore(), nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return redis_session.NewStore(rc), nil
}
