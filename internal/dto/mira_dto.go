package dto

// Confessions

type CreateConfessionRequest struct {
	Text         string `json:"text" validate:"required,max=2000"`
	AuthorName   string `json:"author_name" validate:"max=100"`
	IsAnonymous  bool   `json:"is_anonymous"`
	Mood         string `json:"mood" validate:"max=30"`
	TargetUserID string `json:"target_user_id" validate:"omitempty,max=64"`
	TargetName   string `json:"target_name" validate:"max=100"`
	Visibility   string `json:"visibility" validate:"omitempty,oneof=global campus tagged"`
	RevealPolicy string `json:"reveal_policy" validate:"omitempty,oneof=never allow_later"`
	TimedReveal  string `json:"timed_reveal" validate:"omitempty,oneof=never 24h 48h"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}

type ReportConfessionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ReplyRequest struct {
	Text string `json:"text" validate:"max=1000"`
}

type TimedRevealRequest struct {
	Option string `json:"option" validate:"required,oneof=never 24h 48h"`
}

type MarkSeenRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// Messaging

type SendMessageRequest struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=text secure_photo dare_bot"`
	Text     string `json:"text" validate:"max=2000"`
	MediaURL string `json:"media_url" validate:"omitempty,url"`
}

type ChatMessageRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

type UnlockRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	Name     string `json:"name" validate:"max=100"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
	Source   string `json:"source" validate:"omitempty,oneof=tod room"`
}

// Truth or dare

type SendDareRequest struct {
	ToUserID  string `json:"to_user_id" validate:"required,max=64"`
	ToName    string `json:"to_name" validate:"max=100"`
	FromName  string `json:"from_name" validate:"max=100"`
	FromPhoto string `json:"from_photo" validate:"omitempty,url"`
	Type      string `json:"type" validate:"required,oneof=truth dare"`
	Content   string `json:"content" validate:"required,max=500"`
}

// Subscription

type SetTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free basic premium"`
}

type SetGenderRequest struct {
	Gender string `json:"gender" validate:"required,oneof=male female nonbinary"`
}
