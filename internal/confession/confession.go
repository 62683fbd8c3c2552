package confession

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("confession not found")
	ErrInvalidEmoji    = errors.New("reaction must be a single emoji")
	ErrSelfTag         = errors.New("cannot tag yourself in a confession")
	ErrTooShort        = errors.New("confession must be at least 10 characters")
	ErrTooLong         = errors.New("confession must be under 1000 characters")
	ErrRevealForbidden = errors.New("confession does not allow a later reveal")
	ErrNotAuthor       = errors.New("only the author can schedule a reveal")
)

const (
	MinLength = 10
	MaxLength = 1000

	SnippetLength = 40
)

type RevealPolicy string

const (
	RevealNever      RevealPolicy = "never"
	RevealAllowLater RevealPolicy = "allow_later"
)

type TimedReveal string

const (
	TimedRevealNever TimedReveal = "never"
	TimedReveal24h   TimedReveal = "24h"
	TimedReveal48h   TimedReveal = "48h"
)

// Duration returns the delay of a timed reveal, or 0 for never/unknown.
func (t TimedReveal) Duration() time.Duration {
	switch t {
	case TimedReveal24h:
		return 24 * time.Hour
	case TimedReveal48h:
		return 48 * time.Hour
	}
	return 0
}

type Visibility string

const (
	VisibilityGlobal Visibility = "global"
	VisibilityCampus Visibility = "campus"
	VisibilityTagged Visibility = "tagged"
)

// Confession is an anonymous or attributed short post.
type Confession struct {
	ID           string         `json:"id"`
	AuthorID     string         `json:"author_id"`
	AuthorName   string         `json:"author_name,omitempty"`
	Text         string         `json:"text"`
	IsAnonymous  bool           `json:"is_anonymous"`
	Mood         string         `json:"mood"`
	TargetUserID string         `json:"target_user_id,omitempty"`
	TargetName   string         `json:"target_name,omitempty"`
	Visibility   Visibility     `json:"visibility"`
	Reactions    map[string]int `json:"reactions"`
	TopEmojis    []string       `json:"top_emojis"`
	ReplyCount   int            `json:"reply_count"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`

	RevealPolicy    RevealPolicy `json:"reveal_policy"`
	TimedReveal     TimedReveal  `json:"timed_reveal"`
	RevealAt        *time.Time   `json:"reveal_at,omitempty"`
	RevealCancelled bool         `json:"reveal_cancelled"`
}

// Clone returns a copy that shares no map, slice or pointer with c, so each
// user's state can own its copy of the same confession.
func (c Confession) Clone() Confession {
	out := c
	if c.Reactions != nil {
		out.Reactions = make(map[string]int, len(c.Reactions))
		for k, n := range c.Reactions {
			out.Reactions[k] = n
		}
	}
	if c.TopEmojis != nil {
		out.TopEmojis = append([]string{}, c.TopEmojis...)
	}
	out.ExpiresAt = cloneTime(c.ExpiresAt)
	out.RevealAt = cloneTime(c.RevealAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IsTagged reports whether the confession names a recipient.
func (c *Confession) IsTagged() bool {
	return c.TargetUserID != ""
}

// Snippet returns the first SnippetLength runes of the text.
func (c *Confession) Snippet() string {
	r := []rune(c.Text)
	if len(r) <= SnippetLength {
		return c.Text
	}
	return string(r[:SnippetLength]) + "…"
}

// ScheduleReveal sets the single active reveal deadline, replacing any earlier
// one. TimedRevealNever clears it.
func (c *Confession) ScheduleReveal(option TimedReveal, now time.Time) error {
	if c.RevealPolicy != RevealAllowLater {
		return ErrRevealForbidden
	}
	d := option.Duration()
	if d == 0 {
		c.TimedReveal = TimedRevealNever
		c.RevealAt = nil
		c.RevealCancelled = false
		return nil
	}
	at := now.Add(d)
	c.TimedReveal = option
	c.RevealAt = &at
	c.RevealCancelled = false
	return nil
}

// CancelReveal marks the active deadline cancelled.
func (c *Confession) CancelReveal() {
	if c.RevealAt != nil {
		c.RevealCancelled = true
	}
}

// RevealDue reports whether an active deadline has passed.
func (c *Confession) RevealDue(now time.Time) bool {
	return c.RevealAt != nil && !c.RevealCancelled && !now.Before(*c.RevealAt)
}

// ApplyReveal attributes the confession once its deadline passed.
func (c *Confession) ApplyReveal(now time.Time) bool {
	if !c.RevealDue(now) {
		return false
	}
	c.IsAnonymous = false
	c.RevealAt = nil
	c.TimedReveal = TimedRevealNever
	return true
}

// Expired reports whether the confession lifetime has passed.
func (c *Confession) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// SecretCrush is the record of a tagged confession sent to another user.
type SecretCrush struct {
	ID           string    `json:"id"`
	ConfessionID string    `json:"confession_id,omitempty"`
	FromUserID   string    `json:"from_user_id"`
	ToUserID     string    `json:"to_user_id"`
	Text         string    `json:"text"`
	IsRevealed   bool      `json:"is_revealed"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *SecretCrush) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Moods accepted by the compose screen.
var Moods = []string{
	"romantic", "funny", "spicy", "emotional", "secret", "random",
}
