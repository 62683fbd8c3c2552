package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/ratelimit"
)

// Cooldown lets a user perform action at most once per window. Redis errors
// let the request through.
func Cooldown(limiter *ratelimit.Limiter, action string, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return unauthorized(c, "Unauthorized")
		}
		ok, err := limiter.Allow(c.UserContext(), userID, action, window)
		if err != nil {
			slog.Warn("rate limit check failed", "action", action, "user_id", userID, "error", err)
			return c.Next()
		}
		if !ok {
			if wait, err := limiter.RetryAfter(c.UserContext(), userID, action); err == nil && wait > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(wait.Seconds()+0.5)))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Slow down and try again shortly",
			})
		}
		return c.Next()
	}
}
