package truthordare

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
)

type TruthOrDarePlugin struct{}

func New() *TruthOrDarePlugin {
	return &TruthOrDarePlugin{}
}

func (p *TruthOrDarePlugin) ID() string { return "truthordare" }

func (p *TruthOrDarePlugin) RegisterRoutes(router fiber.Router, deps *apps.Deps) {
	h := NewDareHandler(deps)

	router.Get("/dares/pending", h.Pending)
	router.Get("/dares/sent", h.Sent)
	router.Post("/dares", h.Send)
	router.Post("/dares/:id/accept", h.Accept)
	router.Post("/dares/:id/decline", h.Decline)
}
