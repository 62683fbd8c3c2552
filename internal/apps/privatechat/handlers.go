package privatechat

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

type ChatHandler struct {
	sessions   *session.Manager
	moderation *services.ModerationService
}

func NewChatHandler(deps *apps.Deps) *ChatHandler {
	return &ChatHandler{sessions: deps.Sessions, moderation: deps.Moderation}
}

type conversationView struct {
	chat.Conversation
	Unread int `json:"unread"`
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var (
		out   []conversationView
		total int
	)
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		for _, conv := range s.Inbox.Conversations {
			out = append(out, conversationView{Conversation: conv, Unread: s.Inbox.Unread[conv.ID]})
		}
		total = s.Inbox.UnreadTotal()
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": out, "unread_total": total})
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var msgs []chat.Message
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		list, err := s.Messages(c.Params("id"))
		msgs = append(msgs, list...)
		return err
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, msgs)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.SendMessageRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	text := req.Text
	if text != "" {
		if text, err = h.moderation.Screen(text); err != nil {
			return apps.Fail(c, err)
		}
	}

	msg, err := h.sessions.SendMessage(c.UserContext(), session.OutgoingMessage{
		ConversationID: c.Params("id"),
		SenderID:       userID,
		Kind:           chat.Kind(req.Kind),
		Text:           text,
		MediaURL:       req.MediaURL,
	})
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		return s.MarkRead(c.Params("id"))
	}); err != nil {
		return apps.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ViewPhoto starts the view timer of a protected photo. Repeated calls
// return the first timer.
func (h *ChatHandler) ViewPhoto(c *fiber.Ctx) error {
	return h.photoStep(c, (*session.State).ViewSecurePhoto)
}

func (h *ChatHandler) ExpirePhoto(c *fiber.Ctx) error {
	return h.photoStep(c, (*session.State).ExpireSecurePhoto)
}

func (h *ChatHandler) photoStep(c *fiber.Ctx, step func(*session.State, string, string, time.Time) (chat.Message, error)) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var msg chat.Message
	now := h.sessions.Now()
	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		var err error
		msg, err = step(s, c.Params("id"), c.Params("msg"), now)
		return err
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, msg)
}

func (h *ChatHandler) ListMatches(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out []session.Match
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		out = append(out, s.Matches...)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out []reveal.Chat
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		out = s.ChatsFor(userID)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	for i := range out {
		out[i] = mask(out[i], userID)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var ch reveal.Chat
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		found, ok := s.Chat(c.Params("id"))
		if !ok {
			return reveal.ErrChatNotFound
		}
		if !found.IsParticipant(userID) {
			return reveal.ErrNotParticipant
		}
		ch = found
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, mask(ch, userID))
}

func (h *ChatHandler) SendChatMessage(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.ChatMessageRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	text, err := h.moderation.Screen(req.Text)
	if err != nil {
		return apps.Fail(c, err)
	}

	msg, err := h.sessions.SendChatMessage(c.UserContext(), userID, c.Params("id"), text)
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusCreated, msg)
}

func (h *ChatHandler) AgreeReveal(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	ch, err := h.sessions.AgreeMutualReveal(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, mask(ch, userID))
}

func (h *ChatHandler) DeclineReveal(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	ch, err := h.sessions.DeclineMutualReveal(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, mask(ch, userID))
}

func (h *ChatHandler) ListUnlocks(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var out dare.Unlocks
	if err := h.sessions.View(c.UserContext(), userID, func(s *session.State) error {
		out = append(out, s.Unlocked...)
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}
	return apps.Data(c, fiber.StatusOK, out)
}

func (h *ChatHandler) Unlock(c *fiber.Ctx) error {
	userID, ok, err := apps.Caller(c)
	if !ok {
		return err
	}

	var req dto.UnlockRequest
	if ok, err := apps.Bind(c, &req); !ok {
		return err
	}
	if req.UserID == userID {
		return apps.BadRequest(c, "cannot unlock yourself")
	}

	var added bool
	if err := h.sessions.Update(c.UserContext(), userID, func(s *session.State) error {
		added = s.UnlockUser(dare.UnlockedUser{
			ID:       req.UserID,
			Name:     req.Name,
			PhotoURL: req.PhotoURL,
			Source:   dare.UnlockSource(req.Source),
		}, h.sessions.Now())
		return nil
	}); err != nil {
		return apps.Fail(c, err)
	}

	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": fiber.Map{"user_id": req.UserID, "unlocked": added}})
}

// mask hides the other participant of an anonymous chat until both sides
// agreed to reveal.
func mask(ch reveal.Chat, viewerID string) reveal.Chat {
	if ch.IsRevealed {
		return ch
	}
	if ch.InitiatorID != viewerID {
		ch.InitiatorID = ""
	}
	if ch.ResponderID != viewerID {
		ch.ResponderID = ""
	}
	if ch.DeclinedBy != viewerID {
		ch.DeclinedBy = ""
	}
	msgs := make([]reveal.Message, len(ch.Messages))
	for i, m := range ch.Messages {
		if m.SenderID != viewerID {
			m.SenderID = ""
		}
		msgs[i] = m
	}
	ch.Messages = msgs
	return ch
}
