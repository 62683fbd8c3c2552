package confessions

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
)

// ComposeAction is the rate-limit key for posting confessions.
const ComposeAction = "confession_compose"

type ConfessionsPlugin struct{}

func New() *ConfessionsPlugin {
	return &ConfessionsPlugin{}
}

func (p *ConfessionsPlugin) ID() string { return "confessions" }

func (p *ConfessionsPlugin) RegisterRoutes(router fiber.Router, deps *apps.Deps) {
	h := NewConfessionHandler(deps)

	router.Post("/confessions", middleware.Cooldown(deps.Limiter, ComposeAction, deps.Config.ComposeCooldown), h.Create)
	router.Get("/confessions/feed", h.GetFeed)
	router.Get("/confessions/tagged/unseen", h.UnseenTagged)
	router.Post("/confessions/tagged/seen", h.MarkTaggedSeen)
	router.Get("/confessions/:id", h.GetByID)
	router.Post("/confessions/:id/react", h.React)
	router.Post("/confessions/:id/report", h.Report)
	router.Post("/confessions/:id/reply", h.Reply)
	router.Put("/confessions/:id/timed-reveal", h.ScheduleReveal)
	router.Delete("/confessions/:id/timed-reveal", h.CancelReveal)
	router.Get("/crushes", h.Crushes)
}
