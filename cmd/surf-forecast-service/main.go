package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/surflog/surf-forecast-service/internal/api/http"
	"github.com/surflog/surf-forecast-service/internal/cache"
	"github.com/surflog/surf-forecast-service/internal/config"
	"github.com/surflog/surf-forecast-service/internal/observability"
	"github.com/surflog/surf-forecast-service/internal/report"
	"github.com/surflog/surf-forecast-service/internal/scheduler"
	"github.com/surflog/surf-forecast-service/internal/store"
	"github.com/surflog/surf-forecast-service/internal/surfline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Spot cache backend.
	var spotCache surfline.SpotCache
	if cfg.SpotCacheBackend == "redis" {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SpotCacheTTL, log)
		defer redisCache.Close() //nolint:errcheck
		spotCache = redisCache
		log.Info("using redis spot cache", "addr", cfg.RedisAddr)
	} else {
		spotCache = cache.NewMemory(cfg.SpotCacheTTL)
	}

	// Surfline client, resolver, and report service.
	client := surfline.NewClient(cfg.ScrapeToken, cfg.HTTPTimeout, metrics, log)
	resolver := surfline.NewResolver(client, spotCache, metrics, log)
	service := report.NewService(resolver, client, metrics, log)

	// Session store: Postgres when configured, in-memory otherwise.
	var sessions store.SessionStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close() //nolint:errcheck
		if err := pg.RunMigrations(cfg.MigrationsDir); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		sessions = pg
		log.Info("using postgres session store")
	} else {
		sessions = store.NewMemorySessions()
		log.Warn("no DATABASE_URL set; sessions are kept in memory")
	}

	// Prefetched report store and scheduler.
	reports := store.NewMemoryReports(cfg.ReportMaxHistory, cfg.ReportMaxAge)
	sched := scheduler.New(cfg.HomeSpots, cfg.PrefetchInterval, service, reports, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "surf-forecast-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          45 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "surf-forecast-service",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, sessions, reports)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()
	log.Info("server listening", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
