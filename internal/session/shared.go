package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
)

// The operations below touch two users. The caller's state is updated first
// and decides the outcome; the copy held by the other party is brought in line
// afterwards. A failed mirror is logged and does not undo the caller's change.

// PublicBoard owns the shared copy of every confession not limited to its tag.
// User ids are uuids, so it never collides with a real owner.
const PublicBoard = "_public"

func onBoard(c confession.Confession) bool {
	return c.Visibility != confession.VisibilityTagged
}

func (m *Manager) mirror(ctx context.Context, op, ownerID string, fn func(*State) error) {
	if ownerID == "" {
		return
	}
	if err := m.Update(ctx, ownerID, fn); err != nil {
		slog.Warn("session mirror failed", "op", op, "owner_id", ownerID, "error", err)
	}
}

// CreateConfession posts a confession for in.AuthorID and delivers it to the
// tagged user, together with the secret crush.
func (m *Manager) CreateConfession(ctx context.Context, in ComposeInput) (confession.Confession, error) {
	var (
		c       confession.Confession
		crush   confession.SecretCrush
		crushed bool
	)
	err := m.Update(ctx, in.AuthorID, func(s *State) error {
		var err error
		c, err = s.CreateConfession(in, m.now())
		if err != nil {
			return err
		}
		crush, crushed = s.CrushForConfession(c.ID)
		return nil
	})
	if err != nil {
		return c, err
	}
	if c.IsTagged() {
		m.mirror(ctx, "confession.deliver", c.TargetUserID, func(s *State) error {
			s.ReceiveConfession(c)
			if crushed {
				s.ReceiveCrush(crush)
			}
			return nil
		})
	}
	if onBoard(c) {
		m.mirror(ctx, "confession.publish", PublicBoard, func(s *State) error {
			s.ReceiveConfession(c)
			return nil
		})
	}
	return c, nil
}

// Feed merges the caller's own feed with the public board.
func (m *Manager) Feed(ctx context.Context, callerID string) ([]confession.Confession, error) {
	now := m.now()
	var board []confession.Confession
	if err := m.View(ctx, PublicBoard, func(s *State) error {
		board = s.Feed(now)
		return nil
	}); err != nil {
		return nil, err
	}
	var feed []confession.Confession
	err := m.View(ctx, callerID, func(s *State) error {
		feed = s.MergeFeed(board, now)
		return nil
	})
	return feed, err
}

// Confession returns callerID's view of a confession, falling back to the
// public board.
func (m *Manager) Confession(ctx context.Context, callerID, confessionID string) (confession.Confession, error) {
	var board *confession.Confession
	if err := m.View(ctx, PublicBoard, func(s *State) error {
		if c, ok := s.Confession(confessionID); ok {
			board = &c
		}
		return nil
	}); err != nil {
		return confession.Confession{}, err
	}
	var (
		c  confession.Confession
		ok bool
	)
	if err := m.View(ctx, callerID, func(s *State) error {
		c, ok = s.Visible(confessionID, board)
		return nil
	}); err != nil {
		return confession.Confession{}, err
	}
	if !ok {
		return confession.Confession{}, confession.ErrNotFound
	}
	return c, nil
}

// withConfession runs fn on the caller's state. When the confession is only on
// the public board it is copied into the caller's state first and fn retried.
// The copy is taken back out if fn fails, since a failed update is not saved.
func (m *Manager) withConfession(ctx context.Context, callerID, confessionID string, fn func(*State) error) error {
	err := m.Update(ctx, callerID, fn)
	if !errors.Is(err, confession.ErrNotFound) || callerID == PublicBoard {
		return err
	}

	var (
		c     confession.Confession
		found bool
	)
	if verr := m.View(ctx, PublicBoard, func(s *State) error {
		c, found = s.Confession(confessionID)
		return nil
	}); verr != nil {
		return verr
	}
	if !found {
		return err
	}
	return m.Update(ctx, callerID, func(s *State) error {
		received := s.ReceiveConfession(c)
		if err := fn(s); err != nil {
			if received {
				s.dropConfession(c.ID)
			}
			return err
		}
		return nil
	})
}

// mirrorConfession applies fn to the author's, target's and board's copies of
// c, skipping the caller and copies that no longer hold it.
func (m *Manager) mirrorConfession(ctx context.Context, op, callerID string, c confession.Confession, fn func(*State) error) {
	owners := []string{c.AuthorID, c.TargetUserID}
	if onBoard(c) {
		owners = append(owners, PublicBoard)
	}
	for _, owner := range owners {
		if owner == "" || owner == callerID {
			continue
		}
		m.mirror(ctx, op, owner, func(s *State) error {
			err := fn(s)
			if errors.Is(err, confession.ErrNotFound) {
				return nil
			}
			return err
		})
	}
}

// ToggleReaction applies callerID's reaction and mirrors it into the other
// copies of the confession. The author's copy opens the author's side of the
// thread on the target's first reaction.
func (m *Manager) ToggleReaction(ctx context.Context, callerID, confessionID, emoji string) (ReactionResult, error) {
	var (
		res ReactionResult
		c   confession.Confession
	)
	now := m.now()
	err := m.withConfession(ctx, callerID, confessionID, func(s *State) error {
		var err error
		res, err = s.ToggleReaction(confessionID, emoji, callerID, now)
		if err != nil {
			return err
		}
		c, _ = s.Confession(confessionID)
		return nil
	})
	if err != nil {
		return res, err
	}
	m.mirrorConfession(ctx, "reaction.toggle", callerID, c, func(s *State) error {
		_, err := s.ToggleReaction(confessionID, emoji, callerID, now)
		return err
	})
	return res, nil
}

// ReportConfession hides a confession from callerID for good, including one
// the caller has only seen on the public board.
func (m *Manager) ReportConfession(ctx context.Context, callerID, confessionID string) error {
	return m.withConfession(ctx, callerID, confessionID, func(s *State) error {
		return s.ReportConfession(confessionID)
	})
}

// ScheduleTimedReveal sets the reveal deadline on every copy of the author's
// confession.
func (m *Manager) ScheduleTimedReveal(ctx context.Context, callerID, confessionID string, option confession.TimedReveal) (confession.Confession, error) {
	var c confession.Confession
	now := m.now()
	err := m.Update(ctx, callerID, func(s *State) error {
		var err error
		c, err = s.ScheduleTimedReveal(confessionID, callerID, option, now)
		return err
	})
	if err != nil {
		return c, err
	}
	m.mirrorConfession(ctx, "reveal.schedule", callerID, c, func(s *State) error {
		_, err := s.ScheduleTimedReveal(confessionID, callerID, option, now)
		return err
	})
	return c, nil
}

func (m *Manager) CancelTimedReveal(ctx context.Context, callerID, confessionID string) (confession.Confession, error) {
	var c confession.Confession
	err := m.Update(ctx, callerID, func(s *State) error {
		var err error
		c, err = s.CancelTimedReveal(confessionID, callerID)
		return err
	})
	if err != nil {
		return c, err
	}
	m.mirrorConfession(ctx, "reveal.cancel", callerID, c, func(s *State) error {
		_, err := s.CancelTimedReveal(confessionID, callerID)
		return err
	})
	return c, nil
}

// ReplyAnonymously opens an anonymous chat with the author of a confession.
func (m *Manager) ReplyAnonymously(ctx context.Context, callerID, confessionID, text string) (reveal.Chat, error) {
	var ch reveal.Chat
	err := m.withConfession(ctx, callerID, confessionID, func(s *State) error {
		var err error
		ch, err = s.ReplyAnonymously(confessionID, callerID, text, m.now())
		return err
	})
	if err != nil {
		return ch, err
	}
	m.mirror(ctx, "chat.open", ch.ResponderID, func(s *State) error {
		s.AddChat(ch)
		return nil
	})
	return ch, nil
}

func counterpart(ch reveal.Chat, userID string) string {
	if ch.InitiatorID == userID {
		return ch.ResponderID
	}
	return ch.InitiatorID
}

// SendChatMessage writes to an anonymous chat on both sides.
func (m *Manager) SendChatMessage(ctx context.Context, callerID, chatID, text string) (reveal.Message, error) {
	var (
		msg  reveal.Message
		peer string
	)
	err := m.Update(ctx, callerID, func(s *State) error {
		var err error
		msg, err = s.SendChatMessage(chatID, callerID, text, m.now())
		if err != nil {
			return err
		}
		ch, _ := s.Chat(chatID)
		peer = counterpart(ch, callerID)
		return nil
	})
	if err != nil {
		return msg, err
	}
	m.mirror(ctx, "chat.message", peer, func(s *State) error {
		return ignoreMissingChat(s.AppendChatMessage(chatID, msg))
	})
	return msg, nil
}

// AgreeMutualReveal records callerID's consent on both copies of the chat.
func (m *Manager) AgreeMutualReveal(ctx context.Context, callerID, chatID string) (reveal.Chat, error) {
	return m.revealStep(ctx, "chat.agree", callerID, chatID, (*State).AgreeMutualReveal)
}

// DeclineMutualReveal declines the reveal on both copies of the chat.
func (m *Manager) DeclineMutualReveal(ctx context.Context, callerID, chatID string) (reveal.Chat, error) {
	return m.revealStep(ctx, "chat.decline", callerID, chatID, (*State).DeclineMutualReveal)
}

func (m *Manager) revealStep(ctx context.Context, op, callerID, chatID string, step func(*State, string, string) (reveal.Chat, error)) (reveal.Chat, error) {
	var ch reveal.Chat
	err := m.Update(ctx, callerID, func(s *State) error {
		var err error
		ch, err = step(s, chatID, callerID)
		return err
	})
	if err != nil {
		return ch, err
	}
	m.mirror(ctx, op, counterpart(ch, callerID), func(s *State) error {
		_, err := step(s, chatID, callerID)
		if errors.Is(err, reveal.ErrAlreadyAgreed) || errors.Is(err, reveal.ErrDeclined) {
			return nil
		}
		return ignoreMissingChat(err)
	})
	return ch, nil
}

func ignoreMissingChat(err error) error {
	if errors.Is(err, reveal.ErrChatNotFound) {
		return nil
	}
	return err
}

// SendMessage writes to a conversation and delivers the message to the
// participant when they hold a conversation with the same id.
func (m *Manager) SendMessage(ctx context.Context, out OutgoingMessage) (chat.Message, error) {
	var (
		msg  chat.Message
		peer string
	)
	err := m.Update(ctx, out.SenderID, func(s *State) error {
		var err error
		msg, err = s.SendMessage(out, m.now())
		if err != nil {
			return err
		}
		conv, _ := s.Inbox.Find(out.ConversationID)
		peer = conv.ParticipantID
		return nil
	})
	if err != nil {
		return msg, err
	}
	m.mirror(ctx, "conversation.message", peer, func(s *State) error {
		err := s.DeliverMessage(msg)
		if errors.Is(err, chat.ErrConversationNotFound) {
			return nil
		}
		return err
	})
	return msg, nil
}

// SendDare records the dare as sent and delivers it to the recipient.
func (m *Manager) SendDare(ctx context.Context, senderID string, d dare.Dare) (dare.Dare, error) {
	d.FromUserID = senderID
	var sent dare.Dare
	err := m.Update(ctx, senderID, func(s *State) error {
		var err error
		sent, err = s.SendDare(d, m.now())
		return err
	})
	if err != nil {
		return sent, err
	}
	m.mirror(ctx, "dare.deliver", sent.ToUserID, func(s *State) error {
		s.ReceiveDare(sent)
		return nil
	})
	return sent, nil
}

// AcceptDare accepts a pending dare and reflects the decision in the sender's
// sent list.
func (m *Manager) AcceptDare(ctx context.Context, callerID, dareID string) (Acceptance, error) {
	var acc Acceptance
	now := m.now()
	err := m.Update(ctx, callerID, func(s *State) error {
		var err error
		acc, err = s.AcceptDare(dareID, now)
		return err
	})
	if err != nil {
		return acc, err
	}
	m.mirror(ctx, "dare.accept", acc.Dare.FromUserID, func(s *State) error {
		_, err := s.MarkSentDare(dareID, dare.StatusAccepted, now)
		return ignoreMissingDare(err)
	})
	return acc, nil
}

func (m *Manager) DeclineDare(ctx context.Context, callerID, dareID string) (dare.Dare, error) {
	var d dare.Dare
	now := m.now()
	err := m.Update(ctx, callerID, func(s *State) error {
		var err error
		d, err = s.DeclineDare(dareID, now)
		return err
	})
	if err != nil {
		return d, err
	}
	m.mirror(ctx, "dare.decline", d.FromUserID, func(s *State) error {
		_, err := s.MarkSentDare(dareID, dare.StatusDeclined, now)
		return ignoreMissingDare(err)
	})
	return d, nil
}

func ignoreMissingDare(err error) error {
	if errors.Is(err, dare.ErrNotFound) {
		return nil
	}
	return err
}
