package subscription

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

var (
	errLimitReached   = errors.New("limit reached for this period")
	errAlreadyPremium = errors.New("already on premium")
)

type LimitsHandler struct {
	sessions      *session.Manager
	subscriptions *services.SubscriptionService
}

func NewLimitsHandler(deps *apps.Deps) *LimitsHandler {
	return &LimitsHandler{sessions: deps.Sessions, subscriptions: deps.Subscriptions}
}

type limitsView struct {
	Gender quota.Gender        `json:"gender"`
	Limits quota.Limits        `json:"limits"`
	Access quota.FeatureAccess `json:"access"`
}

func view(s *session.State) limitsView {
	return limitsView{Gender: s.Gender, Limits: s.Limits, Access: s.Access()}
}

// Limits returns the caller's counters after rolling over any elapsed
// window or trial.
func (h *LimitsHandler) Limits(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out limitsView
	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		s.Limits.Refresh(h.sessions.Now())
		out = view(s)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

// Access returns the allowance table for the caller's tier. ?gender= looks
// up another gender on the same tier.
func (h *LimitsHandler) Access(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var (
		gender quota.Gender
		tier   quota.Tier
	)
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		gender, tier = s.Gender, s.Limits.Tier
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	if q := c.Query("gender"); q != "" {
		g, ok := quota.ParseGender(q)
		if !ok {
			return apps.BadRequest(c, "gender must be male, female or nonbinary")
		}
		gender = g
	}
	return apps.Data(c, fiber.StatusOK, quota.GetFeatureAccess(gender, tier))
}

func (h *LimitsHandler) Decrement(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	feature, ok := quota.ParseFeature(c.Params("feature"))
	if !ok {
		return apps.BadRequest(c, "unknown feature")
	}

	var out limitsView
	err = h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		s.Limits.Refresh(h.sessions.Now())
		if !s.Limits.CanUse(feature) {
			return errLimitReached
		}
		s.Limits.Decrement(feature)
		out = view(s)
		return nil
	})
	switch {
	case errors.Is(err, errLimitReached):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	case err != nil:
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *LimitsHandler) Reset(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out limitsView
	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		s.Limits.Reset(h.sessions.Now())
		out = view(s)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *LimitsHandler) StartTrial(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out limitsView
	err = h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		if s.Limits.Tier == quota.TierPremium {
			return errAlreadyPremium
		}
		s.StartTrial(h.sessions.Now())
		out = view(s)
		return nil
	})
	if errors.Is(err, errAlreadyPremium) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	}
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *LimitsHandler) SetGender(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.SetGenderRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	gender, _ := quota.ParseGender(req.Gender)

	var out limitsView
	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		s.SetGender(gender)
		out = view(s)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

// SetTier overrides a user's tier for support cases the store cannot fix.
func (h *LimitsHandler) SetTier(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apps.BadRequest(c, "Invalid user ID")
	}

	var req dto.SetTierRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	tier, _ := quota.ParseTier(req.Tier)

	if err := h.subscriptions.SetTier(c.UserContext(), userID, tier); err != nil {
		return apps.Fail(c, err)
	}
	var out limitsView
	if err := h.sessions.View(c.UserContext(), userID.String(), func(s *session.State) error {
		out = view(s)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}
