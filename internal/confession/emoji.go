package confession

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// IsEmoji reports whether key is exactly one emoji grapheme cluster. Plain
// words such as the legacy "like" or "love" keys are rejected.
func IsEmoji(key string) bool {
	if key == "" || uniseg.GraphemeClusterCount(key) != 1 {
		return false
	}
	if strings.ContainsRune(key, '⃣') {
		return true
	}
	for _, r := range key {
		switch {
		case unicode.Is(unicode.So, r):
			return true
		case r >= 0x1F1E6 && r <= 0x1F1FF:
			return true
		}
	}
	return false
}

// legacyReactionKeys maps the string enum used by older builds to emoji.
var legacyReactionKeys = map[string]string{
	"like":  "👍",
	"love":  "❤️",
	"haha":  "😂",
	"laugh": "😂",
	"wow":   "😮",
	"sad":   "😢",
	"fire":  "🔥",
	"angry": "😡",
}

// MigrateReactionKey converts a legacy key to its emoji. The second result is
// false when the key is neither an emoji nor a known legacy key.
func MigrateReactionKey(key string) (string, bool) {
	if IsEmoji(key) {
		return key, true
	}
	if e, ok := legacyReactionKeys[strings.ToLower(key)]; ok {
		return e, true
	}
	return "", false
}
