package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dare"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/reveal"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/storage"
)

type memRepo struct {
	mu    sync.Mutex
	data  map[string][]byte
	loads atomic.Int32
	fail  error
}

func newMemRepo() *memRepo {
	return &memRepo{data: make(map[string][]byte)}
}

func (r *memRepo) Load(_ context.Context, ownerID string) ([]byte, error) {
	r.loads.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.data[ownerID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (r *memRepo) Save(_ context.Context, ownerID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.data[ownerID] = append([]byte(nil), data...)
	return nil
}

func (r *memRepo) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, ownerID)
	return nil
}

func (r *memRepo) Owners(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func newTestManager(repo storage.Repository, now *time.Time) *Manager {
	m := NewManager(repo, DefaultOptions())
	m.SetClock(func() time.Time { return *now })
	return m
}

func TestManager_RehydrationPrunes(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	c, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "this one fades away soon"})
	if err != nil {
		t.Fatal(err)
	}

	now = t0.Add(25 * time.Hour)
	fresh := newTestManager(repo, &now)
	err = fresh.View(ctx, "u1", func(s *State) error {
		if _, ok := s.Confession(c.ID); ok {
			t.Error("expired confession survived rehydration")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	stored, err := Decode(repo.data["u1"])
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Confessions) != 0 {
		t.Error("pruned state was not saved back")
	}
}

func TestManager_SingleLoadPerOwner(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Update(ctx, "u1", func(s *State) error {
				s.Limits.DecrementLike()
				return nil
			})
		}()
	}
	wg.Wait()

	if n := repo.loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
	_ = m.View(ctx, "u1", func(s *State) error {
		if s.Limits.LikesRemaining != 5 {
			t.Errorf("likes = %d, want 5", s.Limits.LikesRemaining)
		}
		return nil
	})
}

func TestManager_UpdateErrorSkipsSave(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	boom := errors.New("boom")
	if err := m.Update(ctx, "u1", func(*State) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := repo.data["u1"]; ok {
		t.Error("failed update was saved")
	}
}

func TestManager_SaveFailureEvicts(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	repo.fail = errors.New("disk full")
	err := m.Update(ctx, "u1", func(s *State) error {
		s.BlockUser("u9")
		return nil
	})
	if err == nil {
		t.Fatal("expected save error")
	}
	if len(m.Loaded()) != 0 {
		t.Error("unsaved state kept in memory")
	}
}

func TestManager_DareRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	sent, err := m.SendDare(ctx, "u1", dare.Dare{ToUserID: "u2", FromName: "Ada", Type: dare.TypeDare, Content: "Send a selfie"})
	if err != nil {
		t.Fatal(err)
	}

	_ = m.View(ctx, "u2", func(s *State) error {
		pending := s.PendingDaresView()
		if len(pending) != 1 || pending[0].FromUserID != "" {
			t.Errorf("recipient pending = %+v", pending)
		}
		return nil
	})

	acc, err := m.AcceptDare(ctx, "u2", sent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AcceptDare(ctx, "u2", sent.ID); !errors.Is(err, dare.ErrNotFound) {
		t.Errorf("second accept err = %v", err)
	}

	_ = m.View(ctx, "u1", func(s *State) error {
		if s.SentDares[0].Status != dare.StatusAccepted {
			t.Errorf("sender status = %s", s.SentDares[0].Status)
		}
		if _, ok := s.Inbox.Find(acc.ConversationID); !ok {
			t.Error("sender has no conversation")
		}
		return nil
	})

	if _, err := m.SendMessage(ctx, OutgoingMessage{ConversationID: acc.ConversationID, SenderID: "u2", Text: "done!"}); err != nil {
		t.Fatal(err)
	}
	_ = m.View(ctx, "u1", func(s *State) error {
		msgs, _ := s.Messages(acc.ConversationID)
		if len(msgs) != 2 || msgs[1].Text != "done!" {
			t.Errorf("sender messages = %+v", msgs)
		}
		if s.Inbox.Unread[acc.ConversationID] != 1 {
			t.Errorf("unread = %d", s.Inbox.Unread[acc.ConversationID])
		}
		return nil
	})
}

func TestManager_DaresToTwoRecipientsKeepSeparateConversations(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	convs := map[string]string{}
	for _, to := range []string{"a", "b"} {
		sent, err := m.SendDare(ctx, "s", dare.Dare{ToUserID: to, Type: dare.TypeTruth, Content: "Worst pickup line?"})
		if err != nil {
			t.Fatal(err)
		}
		acc, err := m.AcceptDare(ctx, to, sent.ID)
		if err != nil {
			t.Fatal(err)
		}
		if acc.ConversationID != DareConversationID("s", to) {
			t.Errorf("%s conversation = %s", to, acc.ConversationID)
		}
		convs[to] = acc.ConversationID
	}
	if convs["a"] == convs["b"] {
		t.Fatalf("both recipients share %s", convs["a"])
	}

	if _, err := m.SendMessage(ctx, OutgoingMessage{ConversationID: convs["b"], SenderID: "b", Text: "from b"}); err != nil {
		t.Fatal(err)
	}
	_ = m.View(ctx, "s", func(s *State) error {
		if len(s.Inbox.Conversations) != 2 {
			t.Fatalf("sender conversations = %+v", s.Inbox.Conversations)
		}
		for to, id := range convs {
			conv, ok := s.Inbox.Find(id)
			if !ok || conv.ParticipantID != to {
				t.Errorf("conversation %s = %+v", id, conv)
			}
		}
		withA, _ := s.Messages(convs["a"])
		for _, msg := range withA {
			if msg.Text == "from b" {
				t.Error("b's message landed in the conversation with a")
			}
		}
		withB, _ := s.Messages(convs["b"])
		if last := withB[len(withB)-1]; last.Text != "from b" {
			t.Errorf("conversation with b ends with %+v", last)
		}
		return nil
	})
}

func TestManager_DeclineMirrorsStatus(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	sent, err := m.SendDare(ctx, "u1", dare.Dare{ToUserID: "u2", Type: dare.TypeTruth, Content: "First crush?"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.DeclineDare(ctx, "u2", sent.ID); err != nil {
		t.Fatal(err)
	}
	_ = m.View(ctx, "u1", func(s *State) error {
		if s.SentDares[0].Status != dare.StatusDeclined || len(s.Inbox.Conversations) != 0 {
			t.Errorf("sender = %+v", s.SentDares[0])
		}
		return nil
	})
}

func TestManager_TaggedReactionOpensBothSides(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	c, err := m.CreateConfession(ctx, ComposeInput{
		AuthorID:     "u1",
		Text:         "you laughed at my joke in class today",
		IsAnonymous:  true,
		TargetUserID: "u2",
		TargetName:   "Ben",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.ToggleReaction(ctx, "u2", c.ID, "😍")
	if err != nil {
		t.Fatal(err)
	}
	if !res.ChatUnlocked {
		t.Fatal("target reaction did not unlock")
	}

	_ = m.View(ctx, "u1", func(s *State) error {
		conv, ok := s.Inbox.Find(ThreadID(c.ID))
		if !ok {
			t.Fatal("author has no thread")
		}
		if conv.ParticipantID != "u2" || conv.ParticipantName != "Ben" {
			t.Errorf("author thread = %+v", conv)
		}
		got, _ := s.Confession(c.ID)
		if got.Reactions["😍"] != 1 {
			t.Errorf("author copy reactions = %v", got.Reactions)
		}
		return nil
	})
	_ = m.View(ctx, "u2", func(s *State) error {
		conv, ok := s.Inbox.Find(ThreadID(c.ID))
		if !ok || conv.ParticipantID != "u1" || conv.ParticipantName != AnonymousName {
			t.Errorf("target thread = %+v", conv)
		}
		if _, ok := s.CrushForConfession(c.ID); !ok {
			t.Error("target did not receive the crush")
		}
		return nil
	})
}

func TestManager_RevealAcrossCopies(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	c, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "someone here plays piano so well", TargetUserID: "u2"})
	if err != nil {
		t.Fatal(err)
	}
	ch, err := m.ReplyAnonymously(ctx, "u2", c.ID, "is it about me?")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AgreeMutualReveal(ctx, "u2", ch.ID); err != nil {
		t.Fatal(err)
	}
	got, err := m.AgreeMutualReveal(ctx, "u1", ch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MutualRevealStatus != reveal.StatusBothAgreed || !got.IsRevealed {
		t.Errorf("author copy = %+v", got)
	}
	_ = m.View(ctx, "u2", func(s *State) error {
		mine, _ := s.Chat(ch.ID)
		if !mine.IsRevealed {
			t.Errorf("initiator copy = %+v", mine)
		}
		return nil
	})
}

func TestManager_SweepAll(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	for _, id := range []string{"u1", "u3"} {
		if _, err := m.CreateConfession(ctx, ComposeInput{AuthorID: id, Text: "short lived confession text"}); err != nil {
			t.Fatal(err)
		}
	}
	now = t0.Add(30 * time.Hour)
	r, err := m.SweepAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// two authors' copies plus the two board copies
	if r.Confessions != 4 {
		t.Errorf("report = %+v", r)
	}
	if again, _ := m.SweepAll(ctx); again.Confessions != 0 {
		t.Errorf("second sweep = %+v", again)
	}
}

func TestManager_PublicBoardFeed(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	global, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", AuthorName: "Ada", Text: "the library is my second home"})
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)
	private, err := m.CreateConfession(ctx, ComposeInput{
		AuthorID:     "u2",
		Text:         "only you should read this one",
		TargetUserID: "u4",
		Visibility:   confession.VisibilityTagged,
	})
	if err != nil {
		t.Fatal(err)
	}

	feed, err := m.Feed(ctx, "u3")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 || feed[0].ID != global.ID {
		t.Fatalf("u3 feed = %+v", feed)
	}

	feed, _ = m.Feed(ctx, "u4")
	if len(feed) != 2 || feed[0].ID != private.ID {
		t.Errorf("u4 feed should hold the tagged confession first, got %d items", len(feed))
	}

	_ = m.Update(ctx, "u3", func(s *State) error {
		s.BlockUser("u1")
		return nil
	})
	if feed, _ = m.Feed(ctx, "u3"); len(feed) != 0 {
		t.Errorf("blocked author still in feed: %+v", feed)
	}
}

func TestManager_ReactToBoardConfession(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	c, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "pineapple belongs on pizza"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.ToggleReaction(ctx, "u3", c.ID, "🔥")
	if err != nil {
		t.Fatal(err)
	}
	if res.Reaction != "🔥" || res.ChatUnlocked {
		t.Errorf("result = %+v", res)
	}

	for _, owner := range []string{"u1", "u3", PublicBoard} {
		_ = m.View(ctx, owner, func(s *State) error {
			got, ok := s.Confession(c.ID)
			if !ok || got.Reactions["🔥"] != 1 {
				t.Errorf("%s copy = %v", owner, got.Reactions)
			}
			if len(s.Inbox.Conversations) != 0 {
				t.Errorf("%s got a conversation", owner)
			}
			return nil
		})
	}

	if _, err := m.ToggleReaction(ctx, "u3", "missing", "🔥"); !errors.Is(err, confession.ErrNotFound) {
		t.Errorf("missing confession: err = %v", err)
	}
}

func TestManager_TimedRevealMirrors(t *testing.T) {
	ctx := context.Background()
	now := t0
	opts := DefaultOptions()
	opts.ConfessionTTL = 72 * time.Hour
	m := NewManager(newMemRepo(), opts)
	m.SetClock(func() time.Time { return now })

	c, err := m.CreateConfession(ctx, ComposeInput{
		AuthorID:     "u1",
		AuthorName:   "Ada",
		Text:         "I might tell you who I am later",
		IsAnonymous:  true,
		TargetUserID: "u2",
		RevealPolicy: confession.RevealAllowLater,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ScheduleTimedReveal(ctx, "u2", c.ID, confession.TimedReveal24h); !errors.Is(err, confession.ErrNotAuthor) {
		t.Errorf("target scheduling: err = %v", err)
	}
	if _, err := m.ScheduleTimedReveal(ctx, "u1", c.ID, confession.TimedReveal24h); err != nil {
		t.Fatal(err)
	}

	now = now.Add(25 * time.Hour)
	if _, err := m.SweepAll(ctx); err != nil {
		t.Fatal(err)
	}
	_ = m.View(ctx, "u2", func(s *State) error {
		got, _ := s.Confession(c.ID)
		if got.IsAnonymous {
			t.Error("target copy was not revealed")
		}
		return nil
	})
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	_ = m.Update(ctx, "u1", func(s *State) error {
		s.BlockUser("u9")
		return nil
	})
	if err := m.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if len(m.Loaded()) != 0 {
		t.Errorf("loaded = %v", m.Loaded())
	}
	if _, ok := repo.data["u1"]; ok {
		t.Error("snapshot kept")
	}
}

func TestManager_ReportBoardConfession(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	c, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "someone keeps stealing my oat milk"})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ReportConfession(ctx, "u3", c.ID); err != nil {
		t.Fatalf("ReportConfession: %v", err)
	}
	if feed, _ := m.Feed(ctx, "u3"); len(feed) != 0 {
		t.Errorf("reported confession still in feed: %+v", feed)
	}
	if feed, _ := m.Feed(ctx, "u2"); len(feed) != 1 {
		t.Errorf("other readers lost the confession: %+v", feed)
	}
	if err := m.ReportConfession(ctx, "u3", "missing"); !errors.Is(err, confession.ErrNotFound) {
		t.Errorf("missing confession: err = %v", err)
	}
}

func TestManager_ReactionsCountOncePerCopy(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	board, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "i still sleep with a night light"})
	if err != nil {
		t.Fatal(err)
	}
	tagged, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "your playlist got me through finals", TargetUserID: "u2"})
	if err != nil {
		t.Fatal(err)
	}

	reactors := []string{"r1", "r2", "r3", "r4", "r5", "r6"}
	var wg sync.WaitGroup
	for _, id := range reactors {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.ToggleReaction(ctx, id, board.ID, "🔥"); err != nil {
				t.Error(err)
			}
		}(id)
	}
	wg.Wait()
	if _, err := m.ToggleReaction(ctx, "u2", tagged.ID, "😍"); err != nil {
		t.Fatal(err)
	}

	for _, owner := range []string{"u1", PublicBoard} {
		_ = m.View(ctx, owner, func(s *State) error {
			if got, _ := s.Confession(board.ID); got.Reactions["🔥"] != len(reactors) {
				t.Errorf("%s board confession reactions = %v", owner, got.Reactions)
			}
			return nil
		})
	}
	for _, owner := range []string{"u1", "u2"} {
		_ = m.View(ctx, owner, func(s *State) error {
			if got, _ := s.Confession(tagged.ID); got.Reactions["😍"] != 1 {
				t.Errorf("%s tagged confession reactions = %v", owner, got.Reactions)
			}
			return nil
		})
	}
}

func TestManager_ReactorsSeeLatestCounts(t *testing.T) {
	ctx := context.Background()
	now := t0
	m := newTestManager(newMemRepo(), &now)

	c, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "i cried at the end of a cooking show"})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := m.ToggleReaction(ctx, id, c.ID, "😂"); err != nil {
			t.Fatal(err)
		}
	}

	for _, viewer := range []string{"a", "b", "u1", "outsider"} {
		feed, err := m.Feed(ctx, viewer)
		if err != nil {
			t.Fatal(err)
		}
		if len(feed) != 1 || feed[0].Reactions["😂"] != 2 {
			t.Errorf("%s feed = %+v", viewer, feed)
		}
		got, err := m.Confession(ctx, viewer, c.ID)
		if err != nil || got.Reactions["😂"] != 2 {
			t.Errorf("%s detail = %v (%v)", viewer, got.Reactions, err)
		}
	}
}

func TestManager_FailedBoardRetryLeavesStateAsSaved(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	m := newTestManager(repo, &now)

	c, err := m.CreateConfession(ctx, ComposeInput{AuthorID: "u1", Text: "talking to myself in the lift again"})
	if err != nil {
		t.Fatal(err)
	}
	// Leave the confession only on the board so the author goes through the
	// board retry and is then refused.
	if err := m.Update(ctx, "u1", func(s *State) error {
		s.dropConfession(c.ID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.ReplyAnonymously(ctx, "u1", c.ID, "hello me"); !errors.Is(err, ErrOwnConfession) {
		t.Fatalf("err = %v", err)
	}
	_ = m.View(ctx, "u1", func(s *State) error {
		if _, ok := s.Confession(c.ID); ok {
			t.Error("board copy stayed in memory after the failed reply")
		}
		return nil
	})
}

func TestManager_SweepAllReleasesColdOwners(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	now := t0
	seed := newTestManager(repo, &now)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := seed.CreateConfession(ctx, ComposeInput{AuthorID: id, Text: "gone by tomorrow morning"}); err != nil {
			t.Fatal(err)
		}
	}

	now = t0.Add(30 * time.Hour)
	m := newTestManager(repo, &now)
	if err := m.View(ctx, "a", func(*State) error { return nil }); err != nil {
		t.Fatal(err)
	}
	r, err := m.SweepAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// a was pruned when it was loaded; b, c and the three board copies are
	// pruned by the sweep itself.
	if r.Confessions != 5 {
		t.Errorf("report = %+v", r)
	}
	if loaded := m.Loaded(); len(loaded) != 1 || loaded[0] != "a" {
		t.Errorf("loaded after sweep = %v", loaded)
	}

	stored, err := Decode(repo.data["b"])
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Confessions) != 0 {
		t.Error("sweep of an owner not in memory was not saved")
	}
}
