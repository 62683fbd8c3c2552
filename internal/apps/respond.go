package apps

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/validation"
)

var statusByError = []struct {
	err    error
	status int
}{
	{confession.ErrNotFound, fiber.StatusNotFound},
	{chat.ErrConversationNotFound, fiber.StatusNotFound},
	{chat.ErrMessageNotFound, fiber.StatusNotFound},
	{reveal.ErrChatNotFound, fiber.StatusNotFound},
	{dare.ErrNotFound, fiber.StatusNotFound},

	{reveal.ErrNotParticipant, fiber.StatusForbidden},
	{confession.ErrNotAuthor, fiber.StatusForbidden},

	{reveal.ErrDeclined, fiber.StatusConflict},
	{reveal.ErrAlreadyAgreed, fiber.StatusConflict},

	{confession.ErrInvalidEmoji, fiber.StatusBadRequest},
	{confession.ErrSelfTag, fiber.StatusBadRequest},
	{confession.ErrTooShort, fiber.StatusBadRequest},
	{confession.ErrTooLong, fiber.StatusBadRequest},
	{confession.ErrRevealForbidden, fiber.StatusBadRequest},
	{chat.ErrNotSecurePhoto, fiber.StatusBadRequest},
	{dare.ErrInvalidType, fiber.StatusBadRequest},
	{dare.ErrEmpty, fiber.StatusBadRequest},
	{session.ErrOwnConfession, fiber.StatusBadRequest},
	{session.ErrEmptyMessage, fiber.StatusBadRequest},
	{session.ErrSelfDare, fiber.StatusBadRequest},
	{session.ErrMissingTarget, fiber.StatusBadRequest},
	{services.ErrContentRejected, fiber.StatusBadRequest},
	{services.ErrInvalidReportArg, fiber.StatusBadRequest},
}

// StatusFor maps a domain error onto an HTTP status.
func StatusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return fiber.StatusInternalServerError
}

// Fail writes err as an ErrorResponse. Unknown errors are logged and answered
// with a generic 500.
func Fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
		msg = "Internal server error"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

// BadRequest answers 400 with msg.
func BadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

// Caller returns the authenticated user id. ok is false once the 401 has been
// written.
func Caller(c *fiber.Ctx) (string, bool, error) {
	id, err := middleware.UserID(c)
	if err != nil {
		return "", false, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	return id, true, nil
}

// CallerUUID is Caller for handlers that need the id as a uuid.
func CallerUUID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, ok, err := Caller(c)
	if !ok {
		return uuid.Nil, false, err
	}
	parsed, perr := uuid.Parse(id)
	if perr != nil {
		return uuid.Nil, false, c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	return parsed, true, nil
}

// Bind parses and validates the request body into req. ok is false once the
// 400 has been written.
func Bind(c *fiber.Ctx, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, BadRequest(c, "Invalid request")
	}
	if err := validation.Struct(req); err != nil {
		return false, BadRequest(c, err.Error())
	}
	return true, nil
}

// Data wraps v the way every plugin response is shaped.
func Data(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(fiber.Map{"data": v})
}
