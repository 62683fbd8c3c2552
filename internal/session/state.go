// Package session owns the persisted per-user state: confessions and their
// reactions, anonymous chats, conversations, dares and quota counters. Every
// method is a synchronous reducer over the in-memory state; persistence and
// locking live in Manager.
package session

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/idempotency"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
)

// ThreadTTL is the fixed lifetime of an auto-provisioned confession thread.
const ThreadTTL = 24 * time.Hour

// Options tunes the lifetimes of ephemeral records.
type Options struct {
	ConfessionTTL  time.Duration
	ChatTTL        time.Duration
	CrushTTL       time.Duration
	PhotoViewTimer time.Duration
	TrialLength    time.Duration
}

func DefaultOptions() Options {
	return Options{
		ConfessionTTL:  24 * time.Hour,
		ChatTTL:        24 * time.Hour,
		CrushTTL:       48 * time.Hour,
		PhotoViewTimer: 10 * time.Second,
		TrialLength:    quota.DefaultTrialLength,
	}
}

// Match is the projection of a conversation into the matches list.
type Match struct {
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	IsPreMatch     bool       `json:"is_pre_match"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// State is everything that survives a restart for one user.
type State struct {
	Version int    `json:"version"`
	OwnerID string `json:"owner_id"`

	Confessions   []confession.Confession      `json:"confessions"`
	UserReactions map[string]map[string]string `json:"user_reactions"`
	SecretCrushes []confession.SecretCrush     `json:"secret_crushes"`
	Chats         []reveal.Chat                `json:"chats"`

	ReportedConfessionIDs   []string `json:"reported_confession_ids"`
	BlockedUserIDs          []string `json:"blocked_user_ids"`
	SeenTaggedConfessionIDs []string `json:"seen_tagged_confession_ids"`

	// ConfessionThreads maps confession id -> provisioned conversation id.
	ConfessionThreads idempotency.Index `json:"confession_threads"`
	// ConversationKeys maps other provisioning keys (tod:<user>) -> conversation id.
	ConversationKeys idempotency.Index `json:"conversation_keys"`

	Inbox    chat.Inbox   `json:"inbox"`
	Matches  []Match      `json:"matches"`
	Unlocked dare.Unlocks `json:"unlocked_users"`

	PendingDares dare.List `json:"pending_dares"`
	SentDares    dare.List `json:"sent_dares"`

	Gender quota.Gender `json:"gender"`
	Limits quota.Limits `json:"limits"`

	opts Options
}

// New returns an empty state for ownerID on the free tier.
func New(ownerID string, now time.Time) *State {
	return &State{
		Version:           CurrentVersion,
		OwnerID:           ownerID,
		UserReactions:     make(map[string]map[string]string),
		ConfessionThreads: make(idempotency.Index),
		ConversationKeys:  make(idempotency.Index),
		Gender:            quota.GenderMale,
		Limits:            quota.NewLimits(quota.TierFree, now),
	}
}

// SetOptions overrides the default lifetimes.
func (s *State) SetOptions(o Options) {
	s.opts = o
}

func (s *State) options() Options {
	if s.opts == (Options{}) {
		return DefaultOptions()
	}
	return s.opts
}

func (s *State) ensureMaps() {
	if s.UserReactions == nil {
		s.UserReactions = make(map[string]map[string]string)
	}
	if s.ConfessionThreads == nil {
		s.ConfessionThreads = make(idempotency.Index)
	}
	if s.ConversationKeys == nil {
		s.ConversationKeys = make(idempotency.Index)
	}
}

func (s *State) confession(id string) (*confession.Confession, bool) {
	for i := range s.Confessions {
		if s.Confessions[i].ID == id {
			return &s.Confessions[i], true
		}
	}
	return nil, false
}

// dropConfession removes a confession that nothing was derived from yet.
func (s *State) dropConfession(id string) {
	for i := range s.Confessions {
		if s.Confessions[i].ID == id {
			s.Confessions = append(s.Confessions[:i], s.Confessions[i+1:]...)
			return
		}
	}
}

// Confession returns a copy of the stored confession.
func (s *State) Confession(id string) (confession.Confession, bool) {
	c, ok := s.confession(id)
	if !ok {
		return confession.Confession{}, false
	}
	return c.Clone(), true
}

func (s *State) chat(id string) (*reveal.Chat, bool) {
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return &s.Chats[i], true
		}
	}
	return nil, false
}

// Chat returns a copy of the stored anonymous chat.
func (s *State) Chat(id string) (reveal.Chat, bool) {
	c, ok := s.chat(id)
	if !ok {
		return reveal.Chat{}, false
	}
	return c.Clone(), true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
