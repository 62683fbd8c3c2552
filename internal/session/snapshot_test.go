package session

import (
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
)

func TestDecode_MigratesLegacyReactionKeys(t *testing.T) {
	legacy := []byte(`{
		"owner_id": "u1",
		"confessions": [{"id": "c1", "author_id": "u9", "text": "old one", "reactions": {"like": 2, "love": 1, "👍": 1, "???": 4}}],
		"user_reactions": {"c1": {"u2": "like", "u3": "bogus"}}
	}`)

	s, err := Decode(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if s.Version != CurrentVersion {
		t.Errorf("version = %d", s.Version)
	}
	c, _ := s.Confession("c1")
	if c.Reactions["👍"] != 3 || c.Reactions["❤️"] != 1 || len(c.Reactions) != 2 {
		t.Errorf("reactions = %v", c.Reactions)
	}
	if len(c.TopEmojis) != 2 || c.TopEmojis[0] != "👍" {
		t.Errorf("top = %v", c.TopEmojis)
	}
	if s.UserReaction("c1", "u2") != "👍" {
		t.Errorf("u2 reaction = %q", s.UserReaction("c1", "u2"))
	}
	if _, ok := s.UserReactions["c1"]["u3"]; ok {
		t.Error("unmappable reaction kept")
	}
	if s.ConfessionThreads == nil || s.ConversationKeys == nil {
		t.Error("indexes not initialised")
	}
}

func TestDecode_CurrentVersionUntouched(t *testing.T) {
	s := New("u1", t0)
	s.Confessions = append(s.Confessions, confession.Confession{ID: "c1", Reactions: map[string]int{"like": 1}})
	data, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := got.Confession("c1")
	if c.Reactions["like"] != 1 {
		t.Error("current snapshots must not be migrated again")
	}
}

func TestDecode_RejectsNewerVersion(t *testing.T) {
	if _, err := Decode([]byte(`{"version": 99}`)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("err = %v", err)
	}
}
