package chat

import (
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotSecurePhoto       = errors.New("message is not a protected photo")
)

const (
	// DareBotTTL is how long dare-bot prompts survive once the conversation
	// receives an ordinary message.
	DareBotTTL = time.Hour
	// ExpiredPhotoTTL is the grace between a protected photo expiring and its removal.
	ExpiredPhotoTTL = 60 * time.Second
)

type Kind string

const (
	KindText        Kind = "text"
	KindSystem      Kind = "system"
	KindDareBot     Kind = "dare_bot"
	KindSecurePhoto Kind = "secure_photo"
)

// Ordinary reports whether a message is user content.
func (k Kind) Ordinary() bool {
	return k != KindSystem && k != KindDareBot
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Kind           Kind       `json:"kind"`
	Text           string     `json:"text"`
	MediaURL       string     `json:"media_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeleteAt       *time.Time `json:"delete_at,omitempty"`

	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	TimerEndsAt *time.Time `json:"timer_ends_at,omitempty"`
	IsExpired   bool       `json:"is_expired,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
}

// Due reports whether the message should be removed at now.
func (m *Message) Due(now time.Time) bool {
	return m.DeleteAt != nil && !m.DeleteAt.After(now)
}
