package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

// AdminHandler serves operator actions on session state.
type AdminHandler struct {
	sessions *session.Manager
}

func NewAdminHandler(sessions *session.Manager) *AdminHandler {
	return &AdminHandler{sessions: sessions}
}

// Sweep runs the pruner over every stored session now instead of waiting for
// the next scheduled tick.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.sessions.SweepAll(c.UserContext())
	if err != nil {
		logging.CaptureError(err, "manual sweep failed", "component", "sweeper")
		return errorJSON(c, fiber.StatusInternalServerError, "Sweep failed")
	}
	return c.JSON(fiber.Map{"data": report})
}
