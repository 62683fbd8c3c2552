package chat

import (
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceConfessionThread Source = "confession_thread"
	SourceTruthOrDare      Source = "tod"
	SourceRoom             Source = "room"
	SourceMatch            Source = "match"
)

// Conversation is one private thread between the owner and ParticipantID.
type Conversation struct {
	ID              string     `json:"id"`
	ParticipantID   string     `json:"participant_id"`
	ParticipantName string     `json:"participant_name"`
	ParticipantIcon string     `json:"participant_icon,omitempty"`
	Source          Source     `json:"source"`
	IsPreMatch      bool       `json:"is_pre_match"`
	ConfessionID    string     `json:"confession_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	LastMessageAt   time.Time  `json:"last_message_at"`
	LastMessage     string     `json:"last_message,omitempty"`
}

func (c *Conversation) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Inbox holds the conversations, messages and unread counters of one user.
type Inbox struct {
	Conversations []Conversation       `json:"conversations"`
	Messages      map[string][]Message `json:"messages"`
	Unread        map[string]int       `json:"unread"`
}

func (in *Inbox) init() {
	if in.Messages == nil {
		in.Messages = make(map[string][]Message)
	}
	if in.Unread == nil {
		in.Unread = make(map[string]int)
	}
}

// Find returns a pointer into the conversation list.
func (in *Inbox) Find(id string) (*Conversation, bool) {
	for i := range in.Conversations {
		if in.Conversations[i].ID == id {
			return &in.Conversations[i], true
		}
	}
	return nil, false
}

// FindByParticipant returns the first conversation with participantID.
func (in *Inbox) FindByParticipant(participantID string) (*Conversation, bool) {
	for i := range in.Conversations {
		if in.Conversations[i].ParticipantID == participantID {
			return &in.Conversations[i], true
		}
	}
	return nil, false
}

// Create puts conv at the top of the list. An existing id is left alone and
// reported as false.
func (in *Inbox) Create(conv Conversation) bool {
	in.init()
	if _, ok := in.Find(conv.ID); ok {
		return false
	}
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = conv.CreatedAt
	}
	in.Conversations = append([]Conversation{conv}, in.Conversations...)
	return true
}

// NewSystemMessage builds a system message for conversationID.
func NewSystemMessage(conversationID, text string, now time.Time) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       "system",
		Kind:           KindSystem,
		Text:           text,
		CreatedAt:      now,
	}
}

// Append adds msg to its conversation. An ordinary message schedules every
// earlier dare-bot message without a DeleteAt for removal DareBotTTL later.
func (in *Inbox) Append(msg Message) error {
	conv, ok := in.Find(msg.ConversationID)
	if !ok {
		return ErrConversationNotFound
	}
	in.init()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	msgs := in.Messages[msg.ConversationID]
	if msg.Kind.Ordinary() {
		deleteAt := msg.CreatedAt.Add(DareBotTTL)
		for i := range msgs {
			if msgs[i].Kind == KindDareBot && msgs[i].DeleteAt == nil {
				at := deleteAt
				msgs[i].DeleteAt = &at
			}
		}
	}
	in.Messages[msg.ConversationID] = append(msgs, msg)

	conv.LastMessageAt = msg.CreatedAt
	conv.LastMessage = msg.Text
	if msg.SenderID == conv.ParticipantID {
		in.Unread[conv.ID]++
	}
	return nil
}

func (in *Inbox) find(convID, msgID string) (*Message, error) {
	msgs, ok := in.Messages[convID]
	if !ok {
		if _, exists := in.Find(convID); !exists {
			return nil, ErrConversationNotFound
		}
	}
	for i := range msgs {
		if msgs[i].ID == msgID {
			return &msgs[i], nil
		}
	}
	return nil, ErrMessageNotFound
}

// ViewSecurePhoto starts the view timer of a protected photo. The first view
// wins; later calls return the message unchanged.
func (in *Inbox) ViewSecurePhoto(convID, msgID string, now time.Time, timer time.Duration) (*Message, error) {
	m, err := in.find(convID, msgID)
	if err != nil {
		return nil, err
	}
	if m.Kind != KindSecurePhoto {
		return nil, ErrNotSecurePhoto
	}
	if m.ViewedAt == nil {
		viewed := now
		ends := now.Add(timer)
		m.ViewedAt = &viewed
		m.TimerEndsAt = &ends
	}
	return m, nil
}

// ExpireSecurePhoto marks a protected photo expired and schedules it for
// removal ExpiredPhotoTTL later. Only the first call has an effect.
func (in *Inbox) ExpireSecurePhoto(convID, msgID string, now time.Time) (*Message, error) {
	m, err := in.find(convID, msgID)
	if err != nil {
		return nil, err
	}
	if m.Kind != KindSecurePhoto {
		return nil, ErrNotSecurePhoto
	}
	if !m.IsExpired {
		expired := now
		deleteAt := now.Add(ExpiredPhotoTTL)
		m.IsExpired = true
		m.ExpiredAt = &expired
		m.DeleteAt = &deleteAt
	}
	return m, nil
}

// MarkRead clears the unread counter of convID.
func (in *Inbox) MarkRead(convID string) {
	delete(in.Unread, convID)
}

// UnreadTotal sums all unread counters.
func (in *Inbox) UnreadTotal() int {
	n := 0
	for _, c := range in.Unread {
		n += c
	}
	return n
}

// Remove drops a conversation together with its messages and unread counter.
func (in *Inbox) Remove(convID string) bool {
	for i := range in.Conversations {
		if in.Conversations[i].ID == convID {
			in.Conversations = append(in.Conversations[:i], in.Conversations[i+1:]...)
			delete(in.Messages, convID)
			delete(in.Unread, convID)
			return true
		}
	}
	return false
}

// PruneMessages removes every message whose DeleteAt is at or before now and
// returns how many were removed.
func (in *Inbox) PruneMessages(now time.Time) int {
	removed := 0
	for convID, msgs := range in.Messages {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.Due(now) {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		in.Messages[convID] = kept
	}
	return removed
}

// ExpiredConversations lists conversations whose own expiry has passed.
func (in *Inbox) ExpiredConversations(now time.Time) []string {
	var ids []string
	for i := range in.Conversations {
		if in.Conversations[i].Expired(now) {
			ids = append(ids, in.Conversations[i].ID)
		}
	}
	return ids
}
