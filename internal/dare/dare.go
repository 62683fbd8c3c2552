// Package dare holds the Truth-or-Dare records and their status transitions.
package dare

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("dare not found")
	ErrInvalidType = errors.New("dare type must be truth or dare")
	ErrEmpty       = errors.New("dare content is required")
)

type Type string

const (
	TypeTruth Type = "truth"
	TypeDare  Type = "dare"
)

func (t Type) Valid() bool {
	return t == TypeTruth || t == TypeDare
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Dare is one Truth-or-Dare offer. The recipient sees it in its pending list
// with the sender hidden until accepted; the sender sees it in its sent list.
type Dare struct {
	ID         string     `json:"id"`
	FromUserID string     `json:"from_user_id"`
	FromName   string     `json:"from_name,omitempty"`
	FromPhoto  string     `json:"from_photo,omitempty"`
	ToUserID   string     `json:"to_user_id"`
	ToName     string     `json:"to_name,omitempty"`
	Type       Type       `json:"type"`
	Content    string     `json:"content"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
}

// Validate checks the fields a sender controls.
func (d *Dare) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if d.Content == "" {
		return ErrEmpty
	}
	return nil
}

// Obscured is the recipient-side view of a pending dare: the sender stays
// hidden until the dare is accepted.
func (d Dare) Obscured() Dare {
	if d.Status == StatusPending {
		d.FromUserID = ""
		d.FromName = ""
		d.FromPhoto = ""
	}
	return d
}

// UnlockSource says how a user became addressable in private chat.
type UnlockSource string

const (
	UnlockTruthOrDare UnlockSource = "tod"
	UnlockRoom        UnlockSource = "room"
)

type UnlockedUser struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	PhotoURL   string       `json:"photo_url,omitempty"`
	Source     UnlockSource `json:"source"`
	UnlockedAt time.Time    `json:"unlocked_at"`
}

// Unlocks is an append-only list deduplicated by user id.
type Unlocks []UnlockedUser

// Add appends u unless its id is already present. It reports whether u was added.
func (us *Unlocks) Add(u UnlockedUser) bool {
	if us.Has(u.ID) {
		return false
	}
	*us = append(*us, u)
	return true
}

func (us Unlocks) Has(id string) bool {
	for _, u := range us {
		if u.ID == id {
			return true
		}
	}
	return false
}

// List is an ordered dare list, newest first.
type List []Dare

// Prepend puts d at the front.
func (l *List) Prepend(d Dare) {
	*l = append(List{d}, *l...)
}

func (l List) Index(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Take removes and returns the dare with id.
func (l *List) Take(id string) (Dare, error) {
	i := l.Index(id)
	if i < 0 {
		return Dare{}, ErrNotFound
	}
	d := (*l)[i]
	*l = append((*l)[:i], (*l)[i+1:]...)
	return d, nil
}

// SetStatus moves a pending dare to a terminal status. Terminal dares are left
// alone and reported as false.
func (l List) SetStatus(id string, status Status, now time.Time) (bool, error) {
	i := l.Index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	if l[i].Status != StatusPending {
		return false, nil
	}
	l[i].Status = status
	l[i].DecidedAt = &now
	return true, nil
}
