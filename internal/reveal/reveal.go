// Package reveal implements the two-party identity reveal of anonymous
// confession chats.
package reveal

import (
	"errors"
	"time"
)

var (
	ErrNotParticipant = errors.New("user is not part of this chat")
	ErrDeclined       = errors.New("reveal was declined")
	ErrAlreadyAgreed  = errors.New("user already agreed to reveal")
	ErrChatNotFound   = errors.New("chat not found")
)

type Status string

const (
	StatusNone            Status = "none"
	StatusInitiatorAgreed Status = "initiator_agreed"
	StatusResponderAgreed Status = "responder_agreed"
	StatusBothAgreed      Status = "both_agreed"
	StatusDeclined        Status = "declined"
)

// Message is one line of an anonymous confession chat.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat is the anonymous reply chat opened from a confession.
type Chat struct {
	ID                 string     `json:"id"`
	ConfessionID       string     `json:"confession_id"`
	InitiatorID        string     `json:"initiator_id"`
	ResponderID        string     `json:"responder_id"`
	Messages           []Message  `json:"messages"`
	IsRevealed         bool       `json:"is_revealed"`
	MutualRevealStatus Status     `json:"mutual_reveal_status"`
	DeclinedBy         string     `json:"declined_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// Clone returns a copy with its own message list, so both participants can
// hold the chat without sharing memory.
func (c Chat) Clone() Chat {
	out := c
	if c.Messages != nil {
		out.Messages = append(make([]Message, 0, len(c.Messages)), c.Messages...)
	}
	if c.ExpiresAt != nil {
		at := *c.ExpiresAt
		out.ExpiresAt = &at
	}
	return out
}

func (c *Chat) status() Status {
	if c.MutualRevealStatus == "" {
		return StatusNone
	}
	return c.MutualRevealStatus
}

// IsParticipant reports whether userID is the initiator or the responder.
func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.InitiatorID || userID == c.ResponderID)
}

func (c *Chat) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Agree records userID's consent. Errors never change state.
func Agree(c *Chat, userID string) error {
	if !c.IsParticipant(userID) {
		return ErrNotParticipant
	}
	initiator := userID == c.InitiatorID

	switch c.status() {
	case StatusDeclined:
		return ErrDeclined
	case StatusNone:
		if initiator {
			c.MutualRevealStatus = StatusInitiatorAgreed
		} else {
			c.MutualRevealStatus = StatusResponderAgreed
		}
	case StatusResponderAgreed:
		if !initiator {
			return ErrAlreadyAgreed
		}
		c.MutualRevealStatus = StatusBothAgreed
	case StatusInitiatorAgreed:
		if initiator {
			return ErrAlreadyAgreed
		}
		c.MutualRevealStatus = StatusBothAgreed
	case StatusBothAgreed:
		return ErrAlreadyAgreed
	}

	c.IsRevealed = c.MutualRevealStatus == StatusBothAgreed
	return nil
}

// Decline moves the chat to the absorbing declined state from any state.
func Decline(c *Chat, userID string) error {
	if !c.IsParticipant(userID) {
		return ErrNotParticipant
	}
	c.MutualRevealStatus = StatusDeclined
	c.DeclinedBy = userID
	c.IsRevealed = false
	return nil
}
