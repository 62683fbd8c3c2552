package privatechat

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/apps"
)

type PrivateChatPlugin struct{}

func New() *PrivateChatPlugin {
	return &PrivateChatPlugin{}
}

func (p *PrivateChatPlugin) ID() string { return "privatechat" }

func (p *PrivateChatPlugin) RegisterRoutes(router fiber.Router, deps *apps.Deps) {
	h := NewChatHandler(deps)

	router.Get("/conversations", h.ListConversations)
	router.Get("/conversations/:id/messages", h.ListMessages)
	router.Post("/conversations/:id/messages", h.SendMessage)
	router.Post("/conversations/:id/read", h.MarkRead)
	router.Post("/conversations/:id/messages/:msg/view", h.ViewPhoto)
	router.Post("/conversations/:id/messages/:msg/expire", h.ExpirePhoto)
	router.Get("/matches", h.ListMatches)

	router.Get("/chats", h.ListChats)
	router.Get("/chats/:id", h.GetChat)
	router.Post("/chats/:id/messages", h.SendChatMessage)
	router.Post("/chats/:id/reveal/agree", h.AgreeReveal)
	router.Post("/chats/:id/reveal/decline", h.DeclineReveal)

	router.Get("/unlocks", h.ListUnlocks)
	router.Post("/unlocks", h.Unlock)
}
