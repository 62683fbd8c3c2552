package session

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
)

var (
	ErrOwnConfession = errors.New("cannot reply to your own confession")
	ErrEmptyMessage  = errors.New("message text is required")
)

// AnonymousName is shown in place of the author of an anonymous confession.
const AnonymousName = "Anonymous"

// ComposeInput is what the author controls when posting a confession.
type ComposeInput struct {
	AuthorID     string
	AuthorName   string
	Text         string
	IsAnonymous  bool
	Mood         string
	TargetUserID string
	TargetName   string
	Visibility   confession.Visibility
	RevealPolicy confession.RevealPolicy
	TimedReveal  confession.TimedReveal
}

// ReactionResult is returned by ToggleReaction.
type ReactionResult struct {
	Change       confession.ReactionChange `json:"-"`
	Reaction     string                    `json:"reaction"`
	ChatUnlocked bool                      `json:"chat_unlocked"`
	ThreadID     string                    `json:"thread_id,omitempty"`
}

// CreateConfession validates in, stores the confession at the top of the list
// and records a secret crush when a target is set.
func (s *State) CreateConfession(in ComposeInput, now time.Time) (confession.Confession, error) {
	text := strings.TrimSpace(in.Text)
	switch n := utf8.RuneCountInString(text); {
	case n < confession.MinLength:
		return confession.Confession{}, confession.ErrTooShort
	case n > confession.MaxLength:
		return confession.Confession{}, confession.ErrTooLong
	}
	if in.TargetUserID != "" && in.TargetUserID == in.AuthorID {
		return confession.Confession{}, confession.ErrSelfTag
	}

	opts := s.options()
	expires := now.Add(opts.ConfessionTTL)
	c := confession.Confession{
		ID:           uuid.NewString(),
		AuthorID:     in.AuthorID,
		AuthorName:   in.AuthorName,
		Text:         text,
		IsAnonymous:  in.IsAnonymous,
		Mood:         in.Mood,
		TargetUserID: in.TargetUserID,
		TargetName:   in.TargetName,
		Visibility:   in.Visibility,
		Reactions:    map[string]int{},
		TopEmojis:    []string{},
		CreatedAt:    now,
		ExpiresAt:    &expires,
		RevealPolicy: in.RevealPolicy,
		TimedReveal:  confession.TimedRevealNever,
	}
	if c.Visibility == "" {
		c.Visibility = confession.VisibilityGlobal
	}
	if c.RevealPolicy == "" {
		c.RevealPolicy = confession.RevealNever
	}
	if in.TimedReveal != "" && in.TimedReveal != confession.TimedRevealNever {
		if err := c.ScheduleReveal(in.TimedReveal, now); err != nil {
			return confession.Confession{}, err
		}
	}

	s.ReceiveConfession(c)
	if c.IsTagged() {
		s.ReceiveCrush(confession.SecretCrush{
			ID:           uuid.NewString(),
			ConfessionID: c.ID,
			FromUserID:   c.AuthorID,
			ToUserID:     c.TargetUserID,
			Text:         c.Text,
			CreatedAt:    now,
			ExpiresAt:    now.Add(opts.CrushTTL),
		})
	}
	return c, nil
}

// ReceiveCrush stores a secret crush unless its id is known.
func (s *State) ReceiveCrush(sc confession.SecretCrush) bool {
	for _, existing := range s.SecretCrushes {
		if existing.ID == sc.ID {
			return false
		}
	}
	s.SecretCrushes = append(s.SecretCrushes, sc)
	return true
}

// CrushForConfession returns the secret crush recorded with confessionID.
func (s *State) CrushForConfession(confessionID string) (confession.SecretCrush, bool) {
	for _, sc := range s.SecretCrushes {
		if sc.ConfessionID == confessionID {
			return sc, true
		}
	}
	return confession.SecretCrush{}, false
}

// ReceiveConfession stores a confession created elsewhere, such as one tagging
// the owner. Known ids are ignored.
func (s *State) ReceiveConfession(c confession.Confession) bool {
	if _, ok := s.confession(c.ID); ok {
		return false
	}
	if contains(s.ReportedConfessionIDs, c.ID) {
		return false
	}
	s.Confessions = append([]confession.Confession{c.Clone()}, s.Confessions...)
	return true
}

// UserReaction returns the emoji userID set on confessionID, or "".
func (s *State) UserReaction(confessionID, userID string) string {
	return s.UserReactions[confessionID][userID]
}

// ToggleReaction sets, replaces or removes callerID's reaction. The first
// reaction by the tagged target provisions one pre-match thread for the
// confession.
func (s *State) ToggleReaction(confessionID, emoji, callerID string, now time.Time) (ReactionResult, error) {
	if !confession.IsEmoji(emoji) {
		return ReactionResult{}, confession.ErrInvalidEmoji
	}
	c, ok := s.confession(confessionID)
	if !ok {
		return ReactionResult{}, confession.ErrNotFound
	}
	s.ensureMaps()

	prev := s.UserReactions[confessionID][callerID]
	change, current := confession.ApplyToggle(c, prev, emoji)

	byUser := s.UserReactions[confessionID]
	if current == "" {
		delete(byUser, callerID)
		if len(byUser) == 0 {
			delete(s.UserReactions, confessionID)
		}
	} else {
		if byUser == nil {
			byUser = make(map[string]string)
			s.UserReactions[confessionID] = byUser
		}
		byUser[callerID] = current
	}

	res := ReactionResult{Change: change, Reaction: current}
	if change != confession.ReactionAdded || !c.IsTagged() || callerID != c.TargetUserID || !s.isParty(c) {
		return res, nil
	}
	id, created := s.ConfessionThreads.Provision(confessionID, func() string {
		return s.openThread(c, now)
	})
	res.ChatUnlocked = created
	if created {
		res.ThreadID = id
	}
	return res, nil
}

// isParty reports whether the owner is the author or target of c. Only their
// copies carry threads; the public board never does.
func (s *State) isParty(c *confession.Confession) bool {
	return s.OwnerID == "" || s.OwnerID == c.AuthorID || s.OwnerID == c.TargetUserID
}

// ThreadID returns the conversation id for a thread opened from confessionID.
func ThreadID(confessionID string) string {
	return "thread_" + confessionID
}

func (s *State) openThread(c *confession.Confession, now time.Time) string {
	id := ThreadID(c.ID)
	peerID, peerName := c.AuthorID, c.AuthorName
	if c.IsAnonymous || peerName == "" {
		peerName = AnonymousName
	}
	if s.OwnerID != "" && s.OwnerID == c.AuthorID {
		peerID, peerName = c.TargetUserID, c.TargetName
	}
	expires := now.Add(ThreadTTL)

	if !s.Inbox.Create(chat.Conversation{
		ID:              id,
		ParticipantID:   peerID,
		ParticipantName: peerName,
		Source:          chat.SourceConfessionThread,
		IsPreMatch:      true,
		ConfessionID:    c.ID,
		CreatedAt:       now,
		ExpiresAt:       &expires,
	}) {
		return id
	}
	_ = s.Inbox.Append(chat.NewSystemMessage(id, "Reacted to: \""+c.Snippet()+"\"", now))
	s.Matches = append([]Match{{
		ConversationID: id,
		UserID:         peerID,
		Name:           peerName,
		IsPreMatch:     true,
		CreatedAt:      now,
		ExpiresAt:      &expires,
	}}, s.Matches...)
	return id
}

// Feed lists the confessions visible to the owner: blocked authors are hidden,
// tagged-only confessions are shown to their author and target, and expired
// confessions the sweeper has not reached yet are skipped.
func (s *State) Feed(now time.Time) []confession.Confession {
	out := make([]confession.Confession, 0, len(s.Confessions))
	for _, c := range s.Confessions {
		if c.Expired(now) || contains(s.BlockedUserIDs, c.AuthorID) {
			continue
		}
		if c.Visibility == confession.VisibilityTagged && s.OwnerID != "" &&
			s.OwnerID != c.AuthorID && s.OwnerID != c.TargetUserID {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// MergeFeed adds confessions from the public board to the owner's feed.
// Blocked authors, reported confessions and expired ones are left out. The
// result is newest first.
func (s *State) MergeFeed(board []confession.Confession, now time.Time) []confession.Confession {
	onBoardByID := make(map[string]*confession.Confession, len(board))
	for i := range board {
		onBoardByID[board[i].ID] = &board[i]
	}
	out := s.Feed(now)
	seen := make(map[string]bool, len(out))
	for i, c := range out {
		seen[c.ID] = true
		if b, ok := onBoardByID[c.ID]; ok {
			out[i], _ = s.Visible(c.ID, b)
		}
	}
	for _, c := range board {
		if seen[c.ID] || c.Expired(now) || contains(s.BlockedUserIDs, c.AuthorID) ||
			contains(s.ReportedConfessionIDs, c.ID) || c.Visibility == confession.VisibilityTagged {
			continue
		}
		seen[c.ID] = true
		out = append(out, c.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Visible resolves the owner's view of a confession given the board's copy,
// or nil when the board does not hold it. A copy the owner only reacted to
// or replied to is not kept in line with other users' reactions, so its
// counts and reveal state come from the board.
func (s *State) Visible(id string, board *confession.Confession) (confession.Confession, bool) {
	if contains(s.ReportedConfessionIDs, id) {
		return confession.Confession{}, false
	}
	own, ok := s.confession(id)
	switch {
	case !ok && board == nil:
		return confession.Confession{}, false
	case !ok:
		return board.Clone(), true
	case board == nil || s.isParty(own) || !onBoard(*own):
		return own.Clone(), true
	}
	c := board.Clone()
	if own.ReplyCount > c.ReplyCount {
		c.ReplyCount = own.ReplyCount
	}
	return c, true
}

// ReportConfession removes a confession with everything derived from it and
// remembers the id so it is never received again.
func (s *State) ReportConfession(id string) error {
	if _, ok := s.confession(id); !ok {
		return confession.ErrNotFound
	}
	s.removeConfession(id)
	s.ReportedConfessionIDs = appendUnique(s.ReportedConfessionIDs, id)
	return nil
}

func (s *State) BlockUser(userID string) {
	s.BlockedUserIDs = appendUnique(s.BlockedUserIDs, userID)
}

func (s *State) UnblockUser(userID string) {
	s.BlockedUserIDs = removeString(s.BlockedUserIDs, userID)
}

func (s *State) IsBlocked(userID string) bool {
	return contains(s.BlockedUserIDs, userID)
}

// UnseenTagged lists confessions tagging the owner that were not marked seen.
func (s *State) UnseenTagged() []confession.Confession {
	var out []confession.Confession
	for _, c := range s.Confessions {
		if c.TargetUserID == s.OwnerID && !contains(s.SeenTaggedConfessionIDs, c.ID) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (s *State) MarkTaggedSeen(ids ...string) {
	for _, id := range ids {
		s.SeenTaggedConfessionIDs = appendUnique(s.SeenTaggedConfessionIDs, id)
	}
}

// ScheduleTimedReveal sets the reveal deadline of the caller's own confession.
func (s *State) ScheduleTimedReveal(confessionID, callerID string, option confession.TimedReveal, now time.Time) (confession.Confession, error) {
	c, ok := s.confession(confessionID)
	if !ok {
		return confession.Confession{}, confession.ErrNotFound
	}
	if c.AuthorID != callerID {
		return confession.Confession{}, confession.ErrNotAuthor
	}
	if err := c.ScheduleReveal(option, now); err != nil {
		return confession.Confession{}, err
	}
	return c.Clone(), nil
}

func (s *State) CancelTimedReveal(confessionID, callerID string) (confession.Confession, error) {
	c, ok := s.confession(confessionID)
	if !ok {
		return confession.Confession{}, confession.ErrNotFound
	}
	if c.AuthorID != callerID {
		return confession.Confession{}, confession.ErrNotAuthor
	}
	c.CancelReveal()
	return c.Clone(), nil
}

// ReplyAnonymously opens an anonymous chat between initiatorID and the author.
func (s *State) ReplyAnonymously(confessionID, initiatorID, text string, now time.Time) (reveal.Chat, error) {
	c, ok := s.confession(confessionID)
	if !ok {
		return reveal.Chat{}, confession.ErrNotFound
	}
	if c.AuthorID == initiatorID {
		return reveal.Chat{}, ErrOwnConfession
	}
	expires := now.Add(s.options().ChatTTL)
	ch := reveal.Chat{
		ID:                 uuid.NewString(),
		ConfessionID:       confessionID,
		InitiatorID:        initiatorID,
		ResponderID:        c.AuthorID,
		Messages:           []reveal.Message{},
		MutualRevealStatus: reveal.StatusNone,
		CreatedAt:          now,
		ExpiresAt:          &expires,
	}
	if text = strings.TrimSpace(text); text != "" {
		ch.Messages = append(ch.Messages, reveal.Message{
			ID:        uuid.NewString(),
			SenderID:  initiatorID,
			Text:      text,
			CreatedAt: now,
		})
	}
	s.AddChat(ch)
	return ch, nil
}

// AddChat stores ch unless its id is known and bumps the reply count of its
// confession.
func (s *State) AddChat(ch reveal.Chat) bool {
	if _, ok := s.chat(ch.ID); ok {
		return false
	}
	s.Chats = append([]reveal.Chat{ch.Clone()}, s.Chats...)
	if c, ok := s.confession(ch.ConfessionID); ok {
		c.ReplyCount++
	}
	return true
}

// SendChatMessage appends a message from a participant to an anonymous chat.
func (s *State) SendChatMessage(chatID, senderID, text string, now time.Time) (reveal.Message, error) {
	ch, ok := s.chat(chatID)
	if !ok {
		return reveal.Message{}, reveal.ErrChatNotFound
	}
	if !ch.IsParticipant(senderID) {
		return reveal.Message{}, reveal.ErrNotParticipant
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return reveal.Message{}, ErrEmptyMessage
	}
	msg := reveal.Message{ID: uuid.NewString(), SenderID: senderID, Text: text, CreatedAt: now}
	ch.Messages = append(ch.Messages, msg)
	return msg, nil
}

// AppendChatMessage stores a message written elsewhere. Known ids are ignored.
func (s *State) AppendChatMessage(chatID string, msg reveal.Message) error {
	ch, ok := s.chat(chatID)
	if !ok {
		return reveal.ErrChatNotFound
	}
	for _, m := range ch.Messages {
		if m.ID == msg.ID {
			return nil
		}
	}
	ch.Messages = append(ch.Messages, msg)
	return nil
}

func (s *State) AgreeMutualReveal(chatID, callerID string) (reveal.Chat, error) {
	ch, ok := s.chat(chatID)
	if !ok {
		return reveal.Chat{}, reveal.ErrChatNotFound
	}
	if err := reveal.Agree(ch, callerID); err != nil {
		return reveal.Chat{}, err
	}
	return ch.Clone(), nil
}

func (s *State) DeclineMutualReveal(chatID, callerID string) (reveal.Chat, error) {
	ch, ok := s.chat(chatID)
	if !ok {
		return reveal.Chat{}, reveal.ErrChatNotFound
	}
	if err := reveal.Decline(ch, callerID); err != nil {
		return reveal.Chat{}, err
	}
	return ch.Clone(), nil
}

// ChatsFor lists the anonymous chats userID takes part in.
func (s *State) ChatsFor(userID string) []reveal.Chat {
	var out []reveal.Chat
	for _, ch := range s.Chats {
		if ch.IsParticipant(userID) {
			out = append(out, ch.Clone())
		}
	}
	return out
}

// CrushesFor lists the secret crushes sent or received by userID.
func (s *State) CrushesFor(userID string) []confession.SecretCrush {
	var out []confession.SecretCrush
	for _, sc := range s.SecretCrushes {
		if sc.FromUserID == userID || sc.ToUserID == userID {
			out = append(out, sc)
		}
	}
	return out
}
