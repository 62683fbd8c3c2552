package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	deps *apps.Deps,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	moderationHandler *handlers.ModerationHandler,
	adminHandler *handlers.AdminHandler,
	plugins []apps.Plugin,
) {
	cfg := deps.Config
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes are wired one by one so the JWT check never touches
	// the public ones above.
	protect := []fiber.Handler{middleware.JWTProtected(cfg), middleware.Identity()}
	api.Post("/auth/logout", append(protect, authHandler.Logout)...)
	api.Delete("/auth/account", append(protect, authHandler.DeleteAccount)...)

	api.Post("/reports", append(protect, moderationHandler.CreateReport)...)
	api.Get("/blocks", append(protect, moderationHandler.ListBlocks)...)
	api.Post("/blocks", append(protect, moderationHandler.BlockUser)...)
	api.Delete("/blocks/:id", append(protect, moderationHandler.UnblockUser)...)

	admin := api.Group("/admin", middleware.AdminJWT(cfg), middleware.AdminRequired(deps.DB, cfg))
	admin.Get("/moderation/reports", moderationHandler.ListReports)
	admin.Put("/moderation/reports/:id", moderationHandler.ActionReport)
	admin.Post("/sweep", adminHandler.Sweep)

	webhooks := api.Group("/webhooks")
	webhooks.Post("/revenuecat", webhookHandler.HandleRevenueCat)

	p := api.Group("/p", protect...)
	for _, plugin := range plugins {
		plugin.RegisterRoutes(p, deps)
		if ap, ok := plugin.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, deps)
		}
	}
}
