package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps/confessions"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps/privatechat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps/subscription"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps/truthordare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/sweeper"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records are also batched into system_logs
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	logging.WithDB(dbLogHandler)

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Session snapshots
	rdb, err := storage.NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	var (
		backing storage.Repository
		pebble  *storage.PebbleRepository
	)
	switch cfg.SnapshotStore {
	case "pebble":
		pebble, err = storage.OpenPebble(cfg.PebblePath, nil)
		if err != nil {
			slog.Error("snapshot store failed", "error", err)
			os.Exit(1)
		}
		backing = pebble
	case "gorm":
		backing = storage.NewGormRepository(database.DB)
	default:
		slog.Error("unknown SNAPSHOT_STORE", "store", cfg.SnapshotStore)
		os.Exit(1)
	}
	slog.Info("snapshot store ready", "store", cfg.SnapshotStore, "cache", rdb != nil)
	sessions := session.NewManager(storage.NewCachedRepository(backing, rdb, cfg.CacheTTL), cfg.SessionOptions())

	// Services
	authService := services.NewAuthService(database.DB, cfg, sessions)
	subscriptionService := services.NewSubscriptionService(database.DB, sessions)
	moderationService := services.NewModerationService(database.DB, sessions)

	deps := &apps.Deps{
		DB:            database.DB,
		Config:        cfg,
		Sessions:      sessions,
		Moderation:    moderationService,
		Subscriptions: subscriptionService,
		Limiter:       ratelimit.New(rdb),
	}

	plugins := []apps.Plugin{
		confessions.New(),
		privatechat.New(),
		truthordare.New(),
		subscription.New(),
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(sessions)
	webhookHandler := handlers.NewWebhookHandler(subscriptionService, cfg.RevenueCatWebhookAuth)
	moderationHandler := handlers.NewModerationHandler(moderationService)
	adminHandler := handlers.NewAdminHandler(sessions)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Pruner
	sweep, err := sweeper.New(sessions, cfg.SweepCron)
	if err != nil {
		slog.Error("sweeper setup failed", "error", err)
		os.Exit(1)
	}
	sweep.Start()

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecureHeaders())

	routes.Setup(app, deps, authHandler, healthHandler, webhookHandler, moderationHandler, adminHandler, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "plugins", len(plugins))
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	sweep.Stop()

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if pebble != nil {
		if err := pebble.Close(); err != nil {
			slog.Error("snapshot store close error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		logging.CaptureError(err, "unhandled server error", "method", c.Method(), "path", c.Path())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
