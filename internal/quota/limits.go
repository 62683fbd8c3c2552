package quota

import "time"

const (
	LikesWindow      = 24 * time.Hour
	SuperLikesWindow = 7 * 24 * time.Hour
	MessagesWindow   = 7 * 24 * time.Hour

	DefaultTrialLength = 3 * 24 * time.Hour
)

// Feature names a decrementable counter.
type Feature string

const (
	FeatureLike      Feature = "like"
	FeatureSuperLike Feature = "super_like"
	FeatureMessage   Feature = "message"
	FeatureRewind    Feature = "rewind"
	FeatureBoost     Feature = "boost"
)

type baseCounters struct {
	likes, superLikes, messages, rewinds, boosts int
}

var tierCounters = map[Tier]baseCounters{
	TierFree:    {likes: 25, superLikes: 1, messages: 5, rewinds: 0, boosts: 0},
	TierBasic:   {likes: 100, superLikes: 5, messages: 20, rewinds: 5, boosts: 1},
	TierPremium: {likes: Unlimited, superLikes: Unlimited, messages: Unlimited, rewinds: Unlimited, boosts: 5},
}

// Limits is the subscription and remaining-use state of one user.
type Limits struct {
	Tier        Tier       `json:"tier"`
	IsTrial     bool       `json:"is_trial"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	LikesRemaining      int `json:"likes_remaining"`
	SuperLikesRemaining int `json:"super_likes_remaining"`
	MessagesRemaining   int `json:"messages_remaining"`
	RewindsRemaining    int `json:"rewinds_remaining"`
	BoostsRemaining     int `json:"boosts_remaining"`

	LikesResetAt      time.Time `json:"likes_reset_at"`
	SuperLikesResetAt time.Time `json:"super_likes_reset_at"`
	MessagesResetAt   time.Time `json:"messages_reset_at"`
}

// NewLimits returns freshly reset limits for tier.
func NewLimits(tier Tier, now time.Time) Limits {
	l := Limits{Tier: tier}
	l.Reset(now)
	return l
}

func decrement(v *int) {
	if *v == Unlimited || *v <= 0 {
		return
	}
	*v--
}

func (l *Limits) DecrementLike()      { decrement(&l.LikesRemaining) }
func (l *Limits) DecrementSuperLike() { decrement(&l.SuperLikesRemaining) }
func (l *Limits) DecrementMessage()   { decrement(&l.MessagesRemaining) }
func (l *Limits) DecrementRewind()    { decrement(&l.RewindsRemaining) }
func (l *Limits) DecrementBoost()     { decrement(&l.BoostsRemaining) }

// Decrement dispatches by feature name. It reports false for unknown features.
func (l *Limits) Decrement(f Feature) bool {
	switch f {
	case FeatureLike:
		l.DecrementLike()
	case FeatureSuperLike:
		l.DecrementSuperLike()
	case FeatureMessage:
		l.DecrementMessage()
	case FeatureRewind:
		l.DecrementRewind()
	case FeatureBoost:
		l.DecrementBoost()
	default:
		return false
	}
	return true
}

func ParseFeature(s string) (Feature, bool) {
	switch f := Feature(s); f {
	case FeatureLike, FeatureSuperLike, FeatureMessage, FeatureRewind, FeatureBoost:
		return f, true
	}
	return "", false
}

// Remaining returns the counter for f, or 0 for unknown features.
func (l *Limits) Remaining(f Feature) int {
	switch f {
	case FeatureLike:
		return l.LikesRemaining
	case FeatureSuperLike:
		return l.SuperLikesRemaining
	case FeatureMessage:
		return l.MessagesRemaining
	case FeatureRewind:
		return l.RewindsRemaining
	case FeatureBoost:
		return l.BoostsRemaining
	}
	return 0
}

// CanUse reports whether at least one use of f is left.
func (l *Limits) CanUse(f Feature) bool {
	r := l.Remaining(f)
	return r == Unlimited || r > 0
}

func (l *Limits) base() baseCounters {
	if b, ok := tierCounters[l.Tier]; ok {
		return b
	}
	return tierCounters[TierFree]
}

// Reset overwrites every counter and reset timestamp from the tier table.
func (l *Limits) Reset(now time.Time) {
	b := l.base()
	l.LikesRemaining = b.likes
	l.SuperLikesRemaining = b.superLikes
	l.MessagesRemaining = b.messages
	l.RewindsRemaining = b.rewinds
	l.BoostsRemaining = b.boosts
	l.LikesResetAt = now.Add(LikesWindow)
	l.SuperLikesResetAt = now.Add(SuperLikesWindow)
	l.MessagesResetAt = now.Add(MessagesWindow)
}

// SetTier switches tier and resets all counters. Any running trial ends.
func (l *Limits) SetTier(tier Tier, now time.Time) {
	l.Tier = tier
	l.IsTrial = false
	l.TrialEndsAt = nil
	l.Reset(now)
}

// StartTrial upgrades to premium until now+length.
func (l *Limits) StartTrial(now time.Time, length time.Duration) {
	l.SetTier(TierPremium, now)
	ends := now.Add(length)
	l.IsTrial = true
	l.TrialEndsAt = &ends
}

// Refresh downgrades an elapsed trial and restores each window whose reset
// timestamp has passed. It returns true when anything changed.
func (l *Limits) Refresh(now time.Time) bool {
	if l.IsTrial && l.TrialEndsAt != nil && !now.Before(*l.TrialEndsAt) {
		l.SetTier(TierFree, now)
		return true
	}

	changed := false
	b := l.base()
	if !now.Before(l.LikesResetAt) {
		l.LikesRemaining = b.likes
		l.RewindsRemaining = b.rewinds
		l.LikesResetAt = now.Add(LikesWindow)
		changed = true
	}
	if !now.Before(l.SuperLikesResetAt) {
		l.SuperLikesRemaining = b.superLikes
		l.BoostsRemaining = b.boosts
		l.SuperLikesResetAt = now.Add(SuperLikesWindow)
		changed = true
	}
	if !now.Before(l.MessagesResetAt) {
		l.MessagesRemaining = b.messages
		l.MessagesResetAt = now.Add(MessagesWindow)
		changed = true
	}
	return changed
}
