package quota

// Unlimited marks a numeric allowance or counter that is never decremented.
const Unlimited = -1

type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "nonbinary"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// IncognitoLevel controls how much of the Private Mode a user may use.
type IncognitoLevel string

const (
	IncognitoNone    IncognitoLevel = "none"
	IncognitoPartial IncognitoLevel = "partial"
	IncognitoFull    IncognitoLevel = "full"
)

// FeatureAccess describes what a (gender, tier) pair is allowed to do.
type FeatureAccess struct {
	SwipesPerDay        int            `json:"swipes_per_day" yaml:"swipes_per_day"`
	SuperLikesPerWeek   int            `json:"super_likes_per_week" yaml:"super_likes_per_week"`
	MessagesPerWeek     int            `json:"messages_per_week" yaml:"messages_per_week"`
	BoostsPerMonth      int            `json:"boosts_per_month" yaml:"boosts_per_month"`
	CanRewind           bool           `json:"can_rewind" yaml:"can_rewind"`
	CanSeeLikers        bool           `json:"can_see_likers" yaml:"can_see_likers"`
	Incognito           IncognitoLevel `json:"incognito" yaml:"incognito"`
	CustomMessageLength int            `json:"custom_message_length" yaml:"custom_message_length"`
	TemplateCount       int            `json:"template_count" yaml:"template_count"`
}

var fullAccess = FeatureAccess{
	SwipesPerDay:        Unlimited,
	SuperLikesPerWeek:   Unlimited,
	MessagesPerWeek:     Unlimited,
	BoostsPerMonth:      Unlimited,
	CanRewind:           true,
	CanSeeLikers:        true,
	Incognito:           IncognitoFull,
	CustomMessageLength: 500,
	TemplateCount:       50,
}

var tierAccess = map[Tier]FeatureAccess{
	TierFree: {
		SwipesPerDay:        25,
		SuperLikesPerWeek:   1,
		MessagesPerWeek:     5,
		BoostsPerMonth:      0,
		Incognito:           IncognitoNone,
		CustomMessageLength: 0,
		TemplateCount:       3,
	},
	TierBasic: {
		SwipesPerDay:        100,
		SuperLikesPerWeek:   5,
		MessagesPerWeek:     20,
		BoostsPerMonth:      1,
		CanRewind:           true,
		Incognito:           IncognitoPartial,
		CustomMessageLength: 120,
		TemplateCount:       10,
	},
	TierPremium: {
		SwipesPerDay:        Unlimited,
		SuperLikesPerWeek:   Unlimited,
		MessagesPerWeek:     Unlimited,
		BoostsPerMonth:      5,
		CanRewind:           true,
		CanSeeLikers:        true,
		Incognito:           IncognitoFull,
		CustomMessageLength: 500,
		TemplateCount:       50,
	},
}

// GetFeatureAccess resolves the allowance table. Women always get full access;
// every other gender is gated by tier. Unknown tiers fall back to free.
func GetFeatureAccess(gender Gender, tier Tier) FeatureAccess {
	if gender == GenderFemale {
		return fullAccess
	}
	if access, ok := tierAccess[tier]; ok {
		return access
	}
	return tierAccess[TierFree]
}

// Tiers lists the tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierFree, TierBasic, TierPremium}
}

// Genders lists the supported genders.
func Genders() []Gender {
	return []Gender{GenderMale, GenderFemale, GenderNonBinary}
}

func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierFree, TierBasic, TierPremium:
		return Tier(s), true
	}
	return "", false
}

func ParseGender(s string) (Gender, bool) {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderNonBinary:
		return Gender(s), true
	}
	return "", false
}
