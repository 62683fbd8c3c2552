package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
)

const (
	localUserID   = "user_id"
	localUserName = "user_name"
)

var ErrNoIdentity = errors.New("missing user identity")

// Identity copies the caller's id and display name from the verified JWT into
// fiber locals. It must run after JWTProtected.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return unauthorized(c, "Unauthorized")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid claims")
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return unauthorized(c, "Missing subject")
		}
		name, _ := claims["name"].(string)

		c.Locals(localUserID, sub)
		c.Locals(localUserName, name)
		return c.Next()
	}
}

// UserID returns the id stored by Identity.
func UserID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals(localUserID).(string)
	if !ok || id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

// UserName returns the caller's display name, empty when the token has none.
func UserName(c *fiber.Ctx) string {
	name, _ := c.Locals(localUserName).(string)
	return name
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
