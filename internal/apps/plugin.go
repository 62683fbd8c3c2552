package apps

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

// Deps is what every plugin may build its handlers from.
type Deps struct {
	DB            *gorm.DB
	Config        *config.Config
	Sessions      *session.Manager
	Moderation    *services.ModerationService
	Subscriptions *services.SubscriptionService
	Limiter       *ratelimit.Limiter
}

// Plugin defines the interface every feature area implements.
type Plugin interface {
	// ID returns the unique plugin identifier.
	ID() string

	// RegisterRoutes mounts the plugin's routes on the given Fiber group.
	// The group is prefixed with /api/p and has JWT and identity middleware applied.
	RegisterRoutes(router fiber.Router, deps *Deps)
}

// AdminPlugin extends Plugin with admin-specific route registration.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has the admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, deps *Deps)
}
