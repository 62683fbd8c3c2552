package subscription

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
)

type SubscriptionPlugin struct{}

func New() *SubscriptionPlugin {
	return &SubscriptionPlugin{}
}

func (p *SubscriptionPlugin) ID() string { return "subscription" }

func (p *SubscriptionPlugin) RegisterRoutes(router fiber.Router, deps *apps.Deps) {
	h := NewLimitsHandler(deps)

	router.Get("/subscription/limits", h.Limits)
	router.Get("/subscription/access", h.Access)
	router.Post("/subscription/decrement/:feature", h.Decrement)
	router.Post("/subscription/reset", h.Reset)
	router.Post("/subscription/trial", h.StartTrial)
	router.Put("/subscription/gender", h.SetGender)
}

func (p *SubscriptionPlugin) RegisterAdminRoutes(router fiber.Router, deps *apps.Deps) {
	h := NewLimitsHandler(deps)

	router.Put("/subscription/users/:id/tier", h.SetTier)
}
