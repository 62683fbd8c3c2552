package truthordare

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

type DareHandler struct {
	sessions   *session.Manager
	moderation *services.ModerationService
}

func NewDareHandler(deps *apps.Deps) *DareHandler {
	return &DareHandler{sessions: deps.Sessions, moderation: deps.Moderation}
}

// Pending lists dares waiting for the caller. Senders stay hidden until the
// dare is accepted.
func (h *DareHandler) Pending(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out []dare.Dare
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		out = s.PendingDaresView()
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

func (h *DareHandler) Sent(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out dare.List
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		out = append(out, s.SentDares...)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *DareHandler) Send(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.SendDareRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	content, err := h.moderation.Screen(req.Content)
	if err != nil {
		return apps.Fail(c, err)
	}
	fromName := req.FromName
	if fromName == "" {
		fromName = middleware.UserName(c)
	}

	sent, err := h.sessions.SendDare(c.UserContext(), userID, dare.Dare{
		FromName:  fromName,
		FromPhoto: req.FromPhoto,
		ToUserID:  req.ToUserID,
		ToName:    req.ToName,
		Type:      dare.Type(req.Type),
		Content:   content,
	})
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusCreated, sent)
}

func (h *DareHandler) Accept(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	acc, err := h.sessions.AcceptDare(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, acc)
}

func (h *DareHandler) Decline(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	d, err := h.sessions.DeclineDare(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return apps.Fail(c, err)
	}
	// Declining never reveals the sender.
	d.FromUserID, d.FromName, d.FromPhoto = "", "", ""
	return apps.Data(c, fiber.StatusOK, d)
}
