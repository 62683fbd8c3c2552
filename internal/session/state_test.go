package session

import (
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/chat"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTaggedState(t *testing.T, owner string) (*State, confession.Confession) {
	t.Helper()
	s := New(owner, t0)
	c, err := s.CreateConfession(ComposeInput{
		AuthorID:     "u1",
		AuthorName:   "Ada",
		Text:         "I always save you a seat in the library",
		IsAnonymous:  true,
		TargetUserID: "u2",
		TargetName:   "Ben",
	}, t0)
	if err != nil {
		t.Fatalf("CreateConfession: %v", err)
	}
	return s, c
}

func TestToggleReaction_ProvisionsThreadOnce(t *testing.T) {
	s, c := newTaggedState(t, "u2")

	res, err := s.ToggleReaction(c.ID, "❤️", "u2", t0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.ChatUnlocked {
		t.Fatal("first reaction by target should unlock a chat")
	}
	threadID, ok := s.ConfessionThreads.Lookup(c.ID)
	if !ok {
		t.Fatal("thread not recorded")
	}
	if msgs := s.Inbox.Messages[threadID]; len(msgs) != 1 || msgs[0].Kind != chat.KindSystem {
		t.Fatalf("thread messages = %+v", msgs)
	}

	res, err = s.ToggleReaction(c.ID, "❤️", "u2", t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.ChatUnlocked {
		t.Error("toggle off must not unlock again")
	}
	if len(s.Inbox.Conversations) != 1 || len(s.Inbox.Messages[threadID]) != 1 {
		t.Errorf("conversation changed: %d convs, %d msgs", len(s.Inbox.Conversations), len(s.Inbox.Messages[threadID]))
	}

	for i := 0; i < 5; i++ {
		res, _ = s.ToggleReaction(c.ID, "🔥", "u2", t0)
		if res.ChatUnlocked {
			t.Fatalf("iteration %d unlocked a second thread", i)
		}
	}
	if len(s.ConfessionThreads) != 1 || len(s.Inbox.Conversations) != 1 || len(s.Matches) != 1 {
		t.Errorf("threads=%d convs=%d matches=%d", len(s.ConfessionThreads), len(s.Inbox.Conversations), len(s.Matches))
	}
}

func TestToggleReaction_OnlyTargetProvisions(t *testing.T) {
	s, c := newTaggedState(t, "u3")
	res, err := s.ToggleReaction(c.ID, "😂", "u3", t0)
	if err != nil {
		t.Fatal(err)
	}
	if res.ChatUnlocked || len(s.ConfessionThreads) != 0 {
		t.Error("non-target reaction provisioned a thread")
	}
}

func TestToggleReaction_SingleReactionPerUser(t *testing.T) {
	s, c := newTaggedState(t, "u3")
	steps := []struct {
		emoji string
		want  string
		count map[string]int
	}{
		{"❤️", "❤️", map[string]int{"❤️": 1}},
		{"🔥", "🔥", map[string]int{"🔥": 1}},
		{"🔥", "", map[string]int{}},
	}
	for i, st := range steps {
		if _, err := s.ToggleReaction(c.ID, st.emoji, "u3", t0); err != nil {
			t.Fatal(err)
		}
		if got := s.UserReaction(c.ID, "u3"); got != st.want {
			t.Errorf("step %d: reaction = %q, want %q", i, got, st.want)
		}
		got, _ := s.Confession(c.ID)
		if len(got.Reactions) != len(st.count) {
			t.Errorf("step %d: reactions = %v, want %v", i, got.Reactions, st.count)
		}
		for k, n := range st.count {
			if got.Reactions[k] != n {
				t.Errorf("step %d: %s = %d, want %d", i, k, got.Reactions[k], n)
			}
		}
	}
	if _, ok := s.UserReactions[c.ID]; ok {
		t.Error("empty reaction record left behind")
	}
}

func TestToggleReaction_Errors(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	if _, err := s.ToggleReaction(c.ID, "love", "u2", t0); !errors.Is(err, confession.ErrInvalidEmoji) {
		t.Errorf("legacy key err = %v", err)
	}
	if _, err := s.ToggleReaction("missing", "❤️", "u2", t0); !errors.Is(err, confession.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if len(s.UserReactions) != 0 {
		t.Error("failed toggles changed state")
	}
}

func TestCreateConfession_Validation(t *testing.T) {
	s := New("u1", t0)
	tests := []struct {
		name string
		in   ComposeInput
		want error
	}{
		{"too short", ComposeInput{AuthorID: "u1", Text: "hi"}, confession.ErrTooShort},
		{"self tag", ComposeInput{AuthorID: "u1", Text: "a long enough text", TargetUserID: "u1"}, confession.ErrSelfTag},
		{"reveal not allowed", ComposeInput{AuthorID: "u1", Text: "a long enough text", TimedReveal: confession.TimedReveal24h}, confession.ErrRevealForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateConfession(tt.in, t0); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(s.Confessions) != 0 || len(s.SecretCrushes) != 0 {
		t.Error("rejected confessions were stored")
	}
}

func TestCreateConfession_TaggedRecordsCrush(t *testing.T) {
	s, c := newTaggedState(t, "u1")
	sc, ok := s.CrushForConfession(c.ID)
	if !ok {
		t.Fatal("no secret crush")
	}
	if sc.ToUserID != "u2" || !sc.ExpiresAt.Equal(t0.Add(48*time.Hour)) {
		t.Errorf("crush = %+v", sc)
	}
}

func TestPruneExpired_CascadesThread(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	if _, err := s.ToggleReaction(c.ID, "❤️", "u2", t0); err != nil {
		t.Fatal(err)
	}
	threadID, _ := s.ConfessionThreads.Lookup(c.ID)
	s.MarkTaggedSeen(c.ID)

	r := s.PruneExpired(t0, []string{c.ID}, nil, nil)
	if r.Confessions != 1 || r.Threads != 1 {
		t.Errorf("report = %+v", r)
	}
	if _, ok := s.Confession(c.ID); ok {
		t.Error("confession still present")
	}
	if _, ok := s.UserReactions[c.ID]; ok {
		t.Error("reactions still present")
	}
	if _, ok := s.ConfessionThreads.Lookup(c.ID); ok {
		t.Error("thread index entry still present")
	}
	if _, ok := s.Inbox.Find(threadID); ok {
		t.Error("thread conversation still present")
	}
	if _, ok := s.Inbox.Messages[threadID]; ok {
		t.Error("thread messages still present")
	}
	if len(s.Matches) != 0 || len(s.SeenTaggedConfessionIDs) != 0 {
		t.Errorf("matches=%v seen=%v", s.Matches, s.SeenTaggedConfessionIDs)
	}

	if again := s.PruneExpired(t0, []string{c.ID}, nil, nil); !again.Empty() {
		t.Errorf("second prune removed more: %+v", again)
	}
}

func TestPruneExpired_EmptyIsNoop(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	if r := s.PruneExpired(t0, nil, nil, nil); !r.Empty() {
		t.Errorf("report = %+v", r)
	}
	if _, ok := s.Confession(c.ID); !ok {
		t.Error("confession removed by empty prune")
	}
}

func TestPruneExpired_ChatsAndCrushes(t *testing.T) {
	s, c := newTaggedState(t, "u3")
	ch, err := s.ReplyAnonymously(c.ID, "u3", "who is this?", t0)
	if err != nil {
		t.Fatal(err)
	}
	sc, _ := s.CrushForConfession(c.ID)

	r := s.PruneExpired(t0, nil, []string{ch.ID}, []string{sc.ID})
	if r.Chats != 1 || r.Crushes != 1 {
		t.Errorf("report = %+v", r)
	}
	if _, ok := s.Chat(ch.ID); ok {
		t.Error("chat still present")
	}
	if _, ok := s.Confession(c.ID); !ok {
		t.Error("chat prune must not cascade to the confession")
	}
}

func TestSweep_ExpiresByTimestamp(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	if _, err := s.ToggleReaction(c.ID, "❤️", "u2", t0); err != nil {
		t.Fatal(err)
	}

	if r := s.Sweep(t0.Add(time.Hour)); r.Confessions != 0 || r.Threads != 0 {
		t.Fatalf("early sweep removed %+v", r)
	}
	r := s.Sweep(t0.Add(49 * time.Hour))
	if r.Confessions != 1 || r.Crushes != 1 || r.Threads != 1 {
		t.Errorf("report = %+v", r)
	}
	if len(s.Inbox.Conversations) != 0 {
		t.Error("expired thread survived the sweep")
	}
}

func TestSweep_ExpiredThreadWithoutConfessionExpiry(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	s.SetOptions(Options{ConfessionTTL: 72 * time.Hour, ChatTTL: time.Hour, CrushTTL: 72 * time.Hour, PhotoViewTimer: time.Second, TrialLength: time.Hour})
	s.Confessions[0].ExpiresAt = nil
	if _, err := s.ToggleReaction(c.ID, "❤️", "u2", t0); err != nil {
		t.Fatal(err)
	}
	r := s.Sweep(t0.Add(ThreadTTL))
	if r.Threads != 1 {
		t.Errorf("report = %+v", r)
	}
	if _, ok := s.ConfessionThreads.Lookup(c.ID); ok {
		t.Error("expired thread kept its index entry")
	}
	if _, ok := s.Confession(c.ID); !ok {
		t.Error("thread expiry removed the confession")
	}
}

func TestSweep_AppliesTimedReveal(t *testing.T) {
	s := New("u1", t0)
	c, err := s.CreateConfession(ComposeInput{
		AuthorID:     "u1",
		Text:         "I secretly love pineapple pizza",
		IsAnonymous:  true,
		RevealPolicy: confession.RevealAllowLater,
		TimedReveal:  confession.TimedReveal24h,
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	s.Confessions[0].ExpiresAt = nil

	if r := s.Sweep(t0.Add(23 * time.Hour)); r.Reveals != 0 {
		t.Fatal("revealed early")
	}
	if r := s.Sweep(t0.Add(24 * time.Hour)); r.Reveals != 1 {
		t.Fatalf("report = %+v", r)
	}
	got, _ := s.Confession(c.ID)
	if got.IsAnonymous {
		t.Error("confession still anonymous after reveal")
	}
}

func TestReportConfession(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	if _, err := s.ToggleReaction(c.ID, "❤️", "u2", t0); err != nil {
		t.Fatal(err)
	}
	if err := s.ReportConfession(c.ID); err != nil {
		t.Fatal(err)
	}
	if len(s.Inbox.Conversations) != 0 || len(s.ConfessionThreads) != 0 {
		t.Error("report did not cascade")
	}
	if s.ReceiveConfession(c) {
		t.Error("reported confession was received again")
	}
	if err := s.ReportConfession(c.ID); !errors.Is(err, confession.ErrNotFound) {
		t.Errorf("second report err = %v", err)
	}
}

func TestFeed_HidesBlockedAndTagged(t *testing.T) {
	s := New("u3", t0)
	s.ReceiveConfession(confession.Confession{ID: "a", AuthorID: "u1", Visibility: confession.VisibilityGlobal})
	s.ReceiveConfession(confession.Confession{ID: "b", AuthorID: "u4", Visibility: confession.VisibilityGlobal})
	s.ReceiveConfession(confession.Confession{ID: "c", AuthorID: "u1", TargetUserID: "u2", Visibility: confession.VisibilityTagged})
	s.BlockUser("u4")

	feed := s.Feed(t0)
	if len(feed) != 1 || feed[0].ID != "a" {
		t.Errorf("feed = %+v", feed)
	}
	s.UnblockUser("u4")
	if len(s.Feed(t0)) != 2 {
		t.Error("unblock did not restore the feed")
	}
}

func TestTaggedSeen(t *testing.T) {
	s, c := newTaggedState(t, "u2")
	if got := s.UnseenTagged(); len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("unseen = %+v", got)
	}
	s.MarkTaggedSeen(c.ID, c.ID)
	if got := s.UnseenTagged(); len(got) != 0 {
		t.Errorf("unseen after mark = %+v", got)
	}
	if len(s.SeenTaggedConfessionIDs) != 1 {
		t.Errorf("seen ids = %v", s.SeenTaggedConfessionIDs)
	}
}

func TestMutualReveal_Scenario(t *testing.T) {
	s, c := newTaggedState(t, "u3")
	ch, err := s.ReplyAnonymously(c.ID, "u3", "", t0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AgreeMutualReveal(ch.ID, "u3"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeclineMutualReveal(ch.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AgreeMutualReveal(ch.ID, "u3"); !errors.Is(err, reveal.ErrDeclined) {
		t.Errorf("agree after decline err = %v", err)
	}
	got, _ := s.Chat(ch.ID)
	if got.MutualRevealStatus != reveal.StatusDeclined || got.IsRevealed {
		t.Errorf("chat = %+v", got)
	}
	if _, err := s.AgreeMutualReveal("nope", "u3"); !errors.Is(err, reveal.ErrChatNotFound) {
		t.Errorf("missing chat err = %v", err)
	}
}

func TestReplyAnonymously(t *testing.T) {
	s, c := newTaggedState(t, "u3")
	if _, err := s.ReplyAnonymously(c.ID, "u1", "hi", t0); !errors.Is(err, ErrOwnConfession) {
		t.Errorf("own reply err = %v", err)
	}
	ch, err := s.ReplyAnonymously(c.ID, "u3", "hello there", t0)
	if err != nil {
		t.Fatal(err)
	}
	if ch.ResponderID != "u1" || len(ch.Messages) != 1 {
		t.Errorf("chat = %+v", ch)
	}
	got, _ := s.Confession(c.ID)
	if got.ReplyCount != 1 {
		t.Errorf("reply count = %d", got.ReplyCount)
	}
	if _, err := s.SendChatMessage(ch.ID, "u9", "hey", t0); !errors.Is(err, reveal.ErrNotParticipant) {
		t.Errorf("stranger message err = %v", err)
	}
	if _, err := s.SendChatMessage(ch.ID, "u1", "  ", t0); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message err = %v", err)
	}
}

func TestAcceptDare_Idempotent(t *testing.T) {
	s := New("u2", t0)
	s.ReceiveDare(dare.Dare{ID: "d1", FromUserID: "u1", FromName: "Ada", ToUserID: "u2", Type: dare.TypeTruth, Content: "Best date?"})

	acc, err := s.AcceptDare("d1", t0)
	if err != nil {
		t.Fatal(err)
	}
	if !acc.ConversationCreated || !acc.Unlocked || acc.ConversationID != "tod_u1_u2" {
		t.Errorf("acceptance = %+v", acc)
	}
	if len(s.PendingDares) != 0 {
		t.Error("dare still pending")
	}

	if _, err := s.AcceptDare("d1", t0); !errors.Is(err, dare.ErrNotFound) {
		t.Errorf("second accept err = %v", err)
	}
	if len(s.Unlocked) != 1 || len(s.Inbox.Conversations) != 1 || len(s.Inbox.Messages["tod_u1_u2"]) != 1 {
		t.Errorf("duplicates: unlocked=%d convs=%d msgs=%d", len(s.Unlocked), len(s.Inbox.Conversations), len(s.Inbox.Messages["tod_u1_u2"]))
	}

	s.ReceiveDare(dare.Dare{ID: "d2", FromUserID: "u1", ToUserID: "u2", Type: dare.TypeDare, Content: "Sing"})
	acc, err = s.AcceptDare("d2", t0)
	if err != nil {
		t.Fatal(err)
	}
	if acc.ConversationCreated || acc.Unlocked {
		t.Errorf("second dare from same sender = %+v", acc)
	}
	if len(s.Inbox.Messages["tod_u1_u2"]) != 1 {
		t.Error("existing conversation was seeded again")
	}
}

func TestDeclineDare(t *testing.T) {
	s := New("u2", t0)
	s.ReceiveDare(dare.Dare{ID: "d1", FromUserID: "u1", ToUserID: "u2", Type: dare.TypeTruth, Content: "?"})
	d, err := s.DeclineDare("d1", t0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != dare.StatusDeclined || len(s.PendingDares) != 0 || len(s.Unlocked) != 0 || len(s.Inbox.Conversations) != 0 {
		t.Errorf("decline side effects: %+v", s)
	}
}

func TestSendDare(t *testing.T) {
	s := New("u1", t0)
	if _, err := s.SendDare(dare.Dare{ToUserID: "u1", Type: dare.TypeDare, Content: "x"}, t0); !errors.Is(err, ErrSelfDare) {
		t.Errorf("self dare err = %v", err)
	}
	d, err := s.SendDare(dare.Dare{ToUserID: "u2", Type: dare.TypeDare, Content: "Dance"}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != dare.StatusPending || d.FromUserID != "u1" || s.SentDares[0].ID != d.ID {
		t.Errorf("sent = %+v", s.SentDares)
	}
	changed, err := s.MarkSentDare(d.ID, dare.StatusAccepted, t0)
	if err != nil || !changed {
		t.Fatalf("MarkSentDare = (%v, %v)", changed, err)
	}
	if s.SentDares[0].Status != dare.StatusAccepted || !s.Unlocked.Has("u2") {
		t.Errorf("sender side not reconciled: %+v", s.SentDares[0])
	}
	if _, ok := s.Inbox.Find(DareConversationID("u1", "u2")); !ok {
		t.Error("sender side conversation missing")
	}
}

func TestSendMessage_SchedulesDareBotCleanup(t *testing.T) {
	s := New("u2", t0)
	s.ReceiveDare(dare.Dare{ID: "d1", FromUserID: "u1", ToUserID: "u2", Type: dare.TypeTruth, Content: "?"})
	acc, _ := s.AcceptDare("d1", t0)
	if err := s.DeliverMessage(chat.Message{ID: "bot", ConversationID: acc.ConversationID, SenderID: "bot", Kind: chat.KindDareBot, Text: "Truth time", CreatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SendMessage(OutgoingMessage{ConversationID: acc.ConversationID, SenderID: "u2", Text: "hey"}, t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	r := s.PruneExpired(t0.Add(time.Minute+time.Hour), nil, nil, nil)
	if r.Messages != 1 {
		t.Errorf("pruned %d messages, want the dare-bot prompt", r.Messages)
	}
	msgs, _ := s.Messages(acc.ConversationID)
	for _, m := range msgs {
		if m.Kind == chat.KindDareBot {
			t.Error("dare-bot message survived")
		}
	}
	if _, err := s.SendMessage(OutgoingMessage{ConversationID: "nope", SenderID: "u2", Text: "x"}, t0); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Errorf("missing conversation err = %v", err)
	}
}

func TestQuota_SuperLikeScenario(t *testing.T) {
	s := New("u1", t0)
	s.Limits.DecrementSuperLike()
	s.Limits.DecrementSuperLike()
	if s.Limits.SuperLikesRemaining != 0 {
		t.Fatalf("super likes = %d", s.Limits.SuperLikesRemaining)
	}
	now := t0.Add(time.Hour)
	s.Limits.Reset(now)
	if s.Limits.SuperLikesRemaining != 1 || !s.Limits.SuperLikesResetAt.Equal(now.Add(7*24*time.Hour)) {
		t.Errorf("after reset: %+v", s.Limits)
	}
	if a := s.Access(); a.SuperLikesPerWeek != 1 {
		t.Errorf("access = %+v", a)
	}
}
