package confession

import "sort"

// TopCount is the number of emojis kept in Confession.TopEmojis.
const TopCount = 3

// ReactionChange is the kind of edit a toggle performed.
type ReactionChange int

const (
	ReactionAdded ReactionChange = iota + 1
	ReactionReplaced
	ReactionRemoved
)

func (c ReactionChange) String() string {
	switch c {
	case ReactionAdded:
		return "added"
	case ReactionReplaced:
		return "replaced"
	case ReactionRemoved:
		return "removed"
	}
	return "unknown"
}

// ApplyToggle edits c.Reactions for a user whose current reaction is prev
// ("" for none) tapping emoji. It returns the change and the user's new
// reaction ("" when removed). TopEmojis is re-derived.
func ApplyToggle(c *Confession, prev, emoji string) (ReactionChange, string) {
	if c.Reactions == nil {
		c.Reactions = make(map[string]int)
	}

	var change ReactionChange
	current := emoji
	switch {
	case prev == emoji:
		dec(c.Reactions, emoji)
		change = ReactionRemoved
		current = ""
	case prev != "":
		dec(c.Reactions, prev)
		c.Reactions[emoji]++
		change = ReactionReplaced
	default:
		c.Reactions[emoji]++
		change = ReactionAdded
	}

	c.TopEmojis = TopEmojis(c.Reactions)
	return change, current
}

func dec(m map[string]int, key string) {
	if m[key] <= 1 {
		delete(m, key)
		return
	}
	m[key]--
}

// TopEmojis returns up to TopCount valid emoji keys ordered by count
// descending, ties by key ascending. Non-emoji keys and non-positive counts
// are skipped.
func TopEmojis(reactions map[string]int) []string {
	keys := make([]string, 0, len(reactions))
	for k, n := range reactions {
		if n > 0 && IsEmoji(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := reactions[keys[i]], reactions[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > TopCount {
		keys = keys[:TopCount]
	}
	return keys
}

// MigrateReactions rewrites legacy keys to emoji, merging counts, and drops
// keys that cannot be mapped. It reports whether anything changed.
func MigrateReactions(c *Confession) bool {
	changed := false
	out := make(map[string]int, len(c.Reactions))
	for k, n := range c.Reactions {
		e, ok := MigrateReactionKey(k)
		if !ok || n <= 0 {
			changed = true
			continue
		}
		if e != k {
			changed = true
		}
		out[e] += n
	}
	c.Reactions = out
	top := TopEmojis(out)
	if !equalStrings(top, c.TopEmojis) {
		changed = true
	}
	c.TopEmojis = top
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
