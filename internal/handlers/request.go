package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/validation"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

// bind parses the body into req and runs its validate tags. When it reports
// false the 400 response is already written and the error should be returned
// as is.
func bind(c *fiber.Ctx, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return false, errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return true, nil
}

func callerID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := middleware.UserID(c)
	if err != nil {
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}
