package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
)

var (
	ErrSelfDare      = errors.New("cannot send a dare to yourself")
	ErrMissingTarget = errors.New("dare recipient is required")
)

// Acceptance describes what accepting a dare produced.
type Acceptance struct {
	Dare                dare.Dare `json:"dare"`
	ConversationID      string    `json:"conversation_id"`
	ConversationCreated bool      `json:"conversation_created"`
	Unlocked            bool      `json:"unlocked"`
}

// DareConversationID is the conversation opened between the sender and the
// recipient of an accepted dare. It is the same on both sides and for either
// direction.
func DareConversationID(senderID, recipientID string) string {
	if recipientID < senderID {
		senderID, recipientID = recipientID, senderID
	}
	return "tod_" + senderID + "_" + recipientID
}

// SendDare records d as sent by the owner with status pending.
func (s *State) SendDare(d dare.Dare, now time.Time) (dare.Dare, error) {
	if err := d.Validate(); err != nil {
		return dare.Dare{}, err
	}
	if d.FromUserID == "" {
		d.FromUserID = s.OwnerID
	}
	switch {
	case d.ToUserID == "":
		return dare.Dare{}, ErrMissingTarget
	case d.ToUserID == d.FromUserID:
		return dare.Dare{}, ErrSelfDare
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Status = dare.StatusPending
	d.CreatedAt = now
	d.DecidedAt = nil
	s.SentDares.Prepend(d)
	return d, nil
}

// ReceiveDare puts a dare addressed to the owner into the pending list.
func (s *State) ReceiveDare(d dare.Dare) bool {
	if s.PendingDares.Index(d.ID) >= 0 {
		return false
	}
	d.Status = dare.StatusPending
	s.PendingDares.Prepend(d)
	return true
}

// PendingDaresView lists pending dares with their senders hidden.
func (s *State) PendingDaresView() []dare.Dare {
	out := make([]dare.Dare, 0, len(s.PendingDares))
	for _, d := range s.PendingDares {
		out = append(out, d.Obscured())
	}
	return out
}

// AcceptDare takes the dare out of the pending list, unlocks its sender and
// opens the tod conversation with them. The conversation and its seed message
// are only created once per pair.
func (s *State) AcceptDare(id string, now time.Time) (Acceptance, error) {
	d, err := s.PendingDares.Take(id)
	if err != nil {
		return Acceptance{}, err
	}
	d.Status = dare.StatusAccepted
	d.DecidedAt = &now

	unlocked := s.Unlocked.Add(dare.UnlockedUser{
		ID:         d.FromUserID,
		Name:       d.FromName,
		PhotoURL:   d.FromPhoto,
		Source:     dare.UnlockTruthOrDare,
		UnlockedAt: now,
	})
	convID, created := s.openDareConversation(DareConversationID(d.FromUserID, d.ToUserID), d.FromUserID, d.FromName, d.FromPhoto,
		"You accepted a "+string(d.Type)+". Say hi!", now)

	return Acceptance{Dare: d, ConversationID: convID, ConversationCreated: created, Unlocked: unlocked}, nil
}

// DeclineDare drops the dare from the pending list.
func (s *State) DeclineDare(id string, now time.Time) (dare.Dare, error) {
	d, err := s.PendingDares.Take(id)
	if err != nil {
		return dare.Dare{}, err
	}
	d.Status = dare.StatusDeclined
	d.DecidedAt = &now
	return d, nil
}

// MarkSentDare mirrors the recipient's decision into the sent list. An
// accepted dare also unlocks the recipient and opens the same conversation on
// the sender's side.
func (s *State) MarkSentDare(id string, status dare.Status, now time.Time) (bool, error) {
	changed, err := s.SentDares.SetStatus(id, status, now)
	if err != nil || !changed || status != dare.StatusAccepted {
		return changed, err
	}
	d := s.SentDares[s.SentDares.Index(id)]
	s.Unlocked.Add(dare.UnlockedUser{
		ID:         d.ToUserID,
		Name:       d.ToName,
		Source:     dare.UnlockTruthOrDare,
		UnlockedAt: now,
	})
	s.openDareConversation(DareConversationID(d.FromUserID, d.ToUserID), d.ToUserID, d.ToName, "",
		"Your "+string(d.Type)+" was accepted. Say hi!", now)
	return true, nil
}

func (s *State) openDareConversation(convID, peerID, peerName, peerPhoto, seed string, now time.Time) (string, bool) {
	s.ensureMaps()
	convID, _ = s.ConversationKeys.Provision("tod:"+peerID, func() string { return convID })
	if !s.Inbox.Create(chat.Conversation{
		ID:              convID,
		ParticipantID:   peerID,
		ParticipantName: peerName,
		ParticipantIcon: peerPhoto,
		Source:          chat.SourceTruthOrDare,
		CreatedAt:       now,
	}) {
		return convID, false
	}
	_ = s.Inbox.Append(chat.NewSystemMessage(convID, seed, now))
	s.Matches = append([]Match{{
		ConversationID: convID,
		UserID:         peerID,
		Name:           peerName,
		CreatedAt:      now,
	}}, s.Matches...)
	return convID, true
}

// UnlockUser records that u became addressable, for example from a chat room.
func (s *State) UnlockUser(u dare.UnlockedUser, now time.Time) bool {
	if u.Source == "" {
		u.Source = dare.UnlockRoom
	}
	if u.UnlockedAt.IsZero() {
		u.UnlockedAt = now
	}
	return s.Unlocked.Add(u)
}
