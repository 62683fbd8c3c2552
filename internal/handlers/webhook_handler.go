package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	auth                string
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, auth string) *WebhookHandler {
	return &WebhookHandler{subscriptionService: subscriptionService, auth: auth}
}

// HandleRevenueCat checks the shared Authorization secret and applies the
// event to the subscriber's tier.
func (h *WebhookHandler) HandleRevenueCat(c *fiber.Ctx) error {
	if h.auth == "" {
		return errorJSON(c, fiber.StatusNotFound, "Webhooks not configured")
	}
	if subtle.ConstantTimeCompare([]byte(c.Get("Authorization")), []byte(h.auth)) != 1 {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var webhook dto.RevenueCatWebhook
	if err := c.BodyParser(&webhook); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid webhook payload")
	}

	if err := h.subscriptionService.HandleWebhookEvent(c.UserContext(), &webhook.Event); err != nil {
		if errors.Is(err, services.ErrUnknownSubscriber) {
			slog.Warn("webhook for unknown subscriber", "event_type", webhook.Event.Type, "app_user_id", webhook.Event.AppUserID)
			return c.JSON(fiber.Map{"received": true})
		}
		logging.CaptureError(err, "webhook processing failed", "event_type", webhook.Event.Type)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to process webhook event")
	}

	slog.Info("webhook processed", "event_type", webhook.Event.Type)
	return c.JSON(fiber.Map{"received": true})
}
