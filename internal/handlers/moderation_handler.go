package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateReportRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	report, err := h.moderationService.CreateReport(c.UserContext(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidReportArg) {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) BlockUser(c *fiber.Ctx) error {
	blockerID, ok := callerID(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.BlockUserRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.moderationService.BlockUser(c.UserContext(), blockerID, req.BlockedID); err != nil {
		if errors.Is(err, services.ErrSelfBlock) || errors.Is(err, services.ErrAlreadyBlocked) {
			return errorJSON(c, fiber.StatusConflict, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to block user")
	}
	return c.JSON(fiber.Map{"message": "User blocked successfully"})
}

func (h *ModerationHandler) UnblockUser(c *fiber.Ctx) error {
	blockerID, ok := callerID(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	blockedID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	if err := h.moderationService.UnblockUser(c.UserContext(), blockerID, blockedID); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to unblock user")
	}
	return c.JSON(fiber.Map{"message": "User unblocked successfully"})
}

func (h *ModerationHandler) ListBlocks(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	ids, err := h.moderationService.GetBlockedIDs(c.UserContext(), userID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to fetch blocks")
	}
	return c.JSON(fiber.Map{"data": ids})
}

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	status := c.Query("status", "")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	reports, total, err := h.moderationService.ListReports(c.UserContext(), status, limit, offset)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to fetch reports")
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *ModerationHandler) ActionReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	var req dto.ActionReportRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.moderationService.ActionReport(c.UserContext(), reportID, &req); err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"message": "Report updated successfully"})
}
