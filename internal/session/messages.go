package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
)

// OutgoingMessage is what a sender supplies for a conversation message.
type OutgoingMessage struct {
	ConversationID string
	SenderID       string
	Kind           chat.Kind
	Text           string
	MediaURL       string
}

// SendMessage appends a message to one of the owner's conversations.
func (s *State) SendMessage(out OutgoingMessage, now time.Time) (chat.Message, error) {
	if _, ok := s.Inbox.Find(out.ConversationID); !ok {
		return chat.Message{}, chat.ErrConversationNotFound
	}
	kind := out.Kind
	if kind == "" {
		kind = chat.KindText
	}
	text := strings.TrimSpace(out.Text)
	if text == "" && out.MediaURL == "" {
		return chat.Message{}, ErrEmptyMessage
	}
	msg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: out.ConversationID,
		SenderID:       out.SenderID,
		Kind:           kind,
		Text:           text,
		MediaURL:       out.MediaURL,
		CreatedAt:      now,
	}
	if err := s.Inbox.Append(msg); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// DeliverMessage stores a message written on the other side of a shared
// conversation. Known message ids are ignored.
func (s *State) DeliverMessage(msg chat.Message) error {
	for _, m := range s.Inbox.Messages[msg.ConversationID] {
		if m.ID == msg.ID {
			return nil
		}
	}
	return s.Inbox.Append(msg)
}

// Messages returns the messages of a conversation in creation order.
func (s *State) Messages(convID string) ([]chat.Message, error) {
	if _, ok := s.Inbox.Find(convID); !ok {
		return nil, chat.ErrConversationNotFound
	}
	return s.Inbox.Messages[convID], nil
}

func (s *State) ViewSecurePhoto(convID, msgID string, now time.Time) (chat.Message, error) {
	m, err := s.Inbox.ViewSecurePhoto(convID, msgID, now, s.options().PhotoViewTimer)
	if err != nil {
		return chat.Message{}, err
	}
	return *m, nil
}

func (s *State) ExpireSecurePhoto(convID, msgID string, now time.Time) (chat.Message, error) {
	m, err := s.Inbox.ExpireSecurePhoto(convID, msgID, now)
	if err != nil {
		return chat.Message{}, err
	}
	return *m, nil
}

func (s *State) MarkRead(convID string) error {
	if _, ok := s.Inbox.Find(convID); !ok {
		return chat.ErrConversationNotFound
	}
	s.Inbox.MarkRead(convID)
	return nil
}

// removeConversation drops a conversation together with its messages, its
// match projection and every provisioning key pointing at it.
func (s *State) removeConversation(convID string) bool {
	removed := s.Inbox.Remove(convID)
	kept := s.Matches[:0]
	for _, m := range s.Matches {
		if m.ConversationID == convID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	s.Matches = kept
	s.ConfessionThreads.ForgetResource(convID)
	s.ConversationKeys.ForgetResource(convID)
	return removed
}

// Access returns the feature allowances of the owner.
func (s *State) Access() quota.FeatureAccess {
	return quota.GetFeatureAccess(s.Gender, s.Limits.Tier)
}

// SetGender changes the gender used for feature access.
func (s *State) SetGender(g quota.Gender) {
	s.Gender = g
}

// StartTrial starts a premium trial of the configured length.
func (s *State) StartTrial(now time.Time) {
	s.Limits.StartTrial(now, s.options().TrialLength)
}
