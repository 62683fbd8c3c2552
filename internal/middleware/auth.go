package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
)

// JWTProtected verifies the bearer token and stores it under locals "user".
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		},
	})
}

// AdminJWT is JWTProtected for the admin group. Requests presenting
// X-Admin-Token skip the token check and are judged by AdminRequired alone.
func AdminJWT(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter:     func(c *fiber.Ctx) bool { return c.Get("X-Admin-Token") != "" },
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		},
	})
}
