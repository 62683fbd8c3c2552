package confessions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

type ConfessionHandler struct {
	sessions   *session.Manager
	moderation *services.ModerationService
	limiter    *ratelimit.Limiter
}

func NewConfessionHandler(deps *apps.Deps) *ConfessionHandler {
	return &ConfessionHandler{
		sessions:   deps.Sessions,
		moderation: deps.Moderation,
		limiter:    deps.Limiter,
	}
}

func (h *ConfessionHandler) Create(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.CreateConfessionRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}

	text, err := h.moderation.Screen(req.Text)
	if err != nil {
		// A rejected draft does not use up the cooldown.
		_ = h.limiter.Clear(c.UserContext(), userID, ComposeAction)
		return apps.Fail(c, err)
	}
	authorName := req.AuthorName
	if authorName == "" {
		authorName = middleware.UserName(c)
	}

	created, err := h.sessions.CreateConfession(c.UserContext(), session.ComposeInput{
		AuthorID:     userID,
		AuthorName:   authorName,
		Text:         text,
		IsAnonymous:  req.IsAnonymous,
		Mood:         req.Mood,
		TargetUserID: req.TargetUserID,
		TargetName:   req.TargetName,
		Visibility:   confession.Visibility(req.Visibility),
		RevealPolicy: confession.RevealPolicy(req.RevealPolicy),
		TimedReveal:  confession.TimedReveal(req.TimedReveal),
	})
	if err != nil {
		_ = h.limiter.Clear(c.UserContext(), userID, ComposeAction)
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusCreated, present(created, userID))
}

func (h *ConfessionHandler) GetFeed(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	feed, err := h.sessions.Feed(c.UserContext(), userID)
	if err != nil {
		return apps.Fail(c, err)
	}

	total := len(feed)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	out := make([]confession.Confession, 0, end-start)
	for _, item := range feed[start:end] {
		out = append(out, present(item, userID))
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"confessions": out,
			"pagination": fiber.Map{
				"page":        page,
				"limit":       limit,
				"total":       total,
				"total_pages": (total + limit - 1) / limit,
			},
		},
	})
}

func (h *ConfessionHandler) GetByID(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	id, ok := confessionID(c)
	if !ok {
		return apps.BadRequest(c, "Invalid confession ID")
	}

	found, err := h.sessions.Confession(c.UserContext(), userID, id)
	if err != nil {
		return apps.Fail(c, err)
	}

	var reaction string
	_ = h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		reaction = s.UserReaction(id, userID)
		return nil
	})
	return c.JSON(fiber.Map{"data": fiber.Map{"confession": present(found, userID), "my_reaction": reaction}})
}

func (h *ConfessionHandler) React(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	id, ok := confessionID(c)
	if !ok {
		return apps.BadRequest(c, "Invalid confession ID")
	}

	var req dto.ReactRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}

	res, err := h.sessions.ToggleReaction(c.UserContext(), userID, id, req.Emoji)
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, res)
}

func (h *ConfessionHandler) Report(c *fiber.Ctx) error {
	userID, ok, err := apps.CallerUUID(c)
	if !ok {
		return err
	}
	id, ok := confessionID(c)
	if !ok {
		return apps.BadRequest(c, "Invalid confession ID")
	}

	var req dto.ReportConfessionRequest
	if len(c.Body()) > 0 {
		if ok, err := apps.Bind(c, &req); !ok {
			return err
		}
	}

	report, err := h.moderation.ReportConfession(c.UserContext(), userID, id, req.Reason)
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusCreated, report)
}

func (h *ConfessionHandler) Reply(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	id, ok := confessionID(c)
	if !ok {
		return apps.BadRequest(c, "Invalid confession ID")
	}

	var req dto.ReplyRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	text := req.Text
	if text != "" {
		if text, err = h.moderation.Screen(text); err != nil {
			return apps.Fail(c, err)
		}
	}

	ch, err := h.sessions.ReplyAnonymously(c.UserContext(), userID, id, text)
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusCreated, ch)
}

func (h *ConfessionHandler) ScheduleReveal(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	id, ok := confessionID(c)
	if !ok {
		return apps.BadRequest(c, "Invalid confession ID")
	}

	var req dto.TimedRevealRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}

	updated, err := h.sessions.ScheduleTimedReveal(c.UserContext(), userID, id, confession.TimedReveal(req.Option))
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, updated)
}

func (h *ConfessionHandler) CancelReveal(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}
	id, ok := confessionID(c)
	if !ok {
		return apps.BadRequest(c, "Invalid confession ID")
	}

	updated, err := h.sessions.CancelTimedReveal(c.UserContext(), userID, id)
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, updated)
}

func (h *ConfessionHandler) UnseenTagged(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out []confession.Confession
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		for _, item := range s.UnseenTagged() {
			out = append(out, present(item, userID))
		}
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

func (h *ConfessionHandler) MarkTaggedSeen(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.MarkSeenRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}

	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		s.MarkTaggedSeen(req.IDs...)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *ConfessionHandler) Crushes(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out []confession.SecretCrush
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		out = s.CrushesFor(userID)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	for i := range out {
		if out[i].ToUserID == userID {
			out[i].FromUserID = ""
		}
	}
	return apps.Data(c, fiber.StatusOK, out)
}

// present hides the author of an anonymous confession from everyone but the
// author.
func present(c confession.Confession, viewerID string) confession.Confession {
	if c.IsAnonymous && c.AuthorID != viewerID {
		c.AuthorID = ""
		c.AuthorName = session.AnonymousName
	}
	return c
}

func confessionID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
