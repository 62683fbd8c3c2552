package quota

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGetFeatureAccess_FemaleAlwaysFull(t *testing.T) {
	for _, tier := range Tiers() {
		got := GetFeatureAccess(GenderFemale, tier)
		if got != fullAccess {
			t.Errorf("female/%s = %+v, want full access", tier, got)
		}
	}
}

func TestGetFeatureAccess_TotalTable(t *testing.T) {
	for _, g := range Genders() {
		for _, tier := range Tiers() {
			got := GetFeatureAccess(g, tier)
			if got.SwipesPerDay == 0 {
				t.Errorf("%s/%s resolved to an empty descriptor", g, tier)
			}
		}
	}
	if got := GetFeatureAccess(GenderMale, Tier("gold")); got != tierAccess[TierFree] {
		t.Errorf("unknown tier should fall back to free, got %+v", got)
	}
}

func TestDecrementSuperLike_Scenario(t *testing.T) {
	l := NewLimits(TierFree, epoch)
	if l.SuperLikesRemaining != 1 {
		t.Fatalf("free super likes = %d, want 1", l.SuperLikesRemaining)
	}

	l.DecrementSuperLike()
	if l.SuperLikesRemaining != 0 {
		t.Fatalf("after decrement = %d, want 0", l.SuperLikesRemaining)
	}
	l.DecrementSuperLike()
	if l.SuperLikesRemaining != 0 {
		t.Fatalf("decrement below zero: %d", l.SuperLikesRemaining)
	}

	now := epoch.Add(time.Hour)
	l.Reset(now)
	if l.SuperLikesRemaining != 1 {
		t.Errorf("after reset = %d, want 1", l.SuperLikesRemaining)
	}
	if want := now.Add(7 * 24 * time.Hour); !l.SuperLikesResetAt.Equal(want) {
		t.Errorf("SuperLikesResetAt = %v, want %v", l.SuperLikesResetAt, want)
	}
	if want := now.Add(24 * time.Hour); !l.LikesResetAt.Equal(want) {
		t.Errorf("LikesResetAt = %v, want %v", l.LikesResetAt, want)
	}
}

func TestDecrement_FloorAndUnlimited(t *testing.T) {
	l := Limits{LikesRemaining: 0, MessagesRemaining: Unlimited}
	for i := 0; i < 10; i++ {
		l.DecrementLike()
		l.DecrementMessage()
	}
	if l.LikesRemaining != 0 {
		t.Errorf("LikesRemaining = %d, want 0", l.LikesRemaining)
	}
	if l.MessagesRemaining != Unlimited {
		t.Errorf("MessagesRemaining = %d, want unlimited", l.MessagesRemaining)
	}
}

func TestDecrement_ByFeature(t *testing.T) {
	l := NewLimits(TierBasic, epoch)
	tests := []struct {
		feature Feature
		want    int
	}{
		{FeatureLike, 99},
		{FeatureSuperLike, 4},
		{FeatureMessage, 19},
		{FeatureRewind, 4},
		{FeatureBoost, 0},
	}
	for _, tt := range tests {
		if !l.Decrement(tt.feature) {
			t.Fatalf("Decrement(%s) reported unknown feature", tt.feature)
		}
		if got := l.Remaining(tt.feature); got != tt.want {
			t.Errorf("Remaining(%s) = %d, want %d", tt.feature, got, tt.want)
		}
	}
	if l.CanUse(FeatureBoost) {
		t.Error("boost should be exhausted")
	}
	if l.Decrement(Feature("hug")) {
		t.Error("unknown feature should report false")
	}
}

func TestReset_IsFullOverwrite(t *testing.T) {
	l := NewLimits(TierPremium, epoch)
	l.LikesRemaining = 3
	l.BoostsRemaining = 0
	l.Tier = TierFree
	l.Reset(epoch)
	if l.LikesRemaining != 25 || l.BoostsRemaining != 0 || l.MessagesRemaining != 5 {
		t.Errorf("reset did not rebuild from free table: %+v", l)
	}
}

func TestTrialExpiresOnRefresh(t *testing.T) {
	l := NewLimits(TierFree, epoch)
	l.StartTrial(epoch, DefaultTrialLength)
	if l.Tier != TierPremium || !l.IsTrial {
		t.Fatalf("trial not started: %+v", l)
	}
	if l.Refresh(epoch.Add(time.Hour)) {
		t.Error("nothing should refresh one hour into a trial")
	}
	if !l.Refresh(epoch.Add(DefaultTrialLength)) {
		t.Fatal("expected trial downgrade")
	}
	if l.Tier != TierFree || l.IsTrial || l.TrialEndsAt != nil {
		t.Errorf("trial not cleared: %+v", l)
	}
}

func TestRefresh_RestoresElapsedWindowsOnly(t *testing.T) {
	l := NewLimits(TierFree, epoch)
	l.DecrementLike()
	l.DecrementSuperLike()

	l.Refresh(epoch.Add(25 * time.Hour))
	if l.LikesRemaining != 25 {
		t.Errorf("likes window should be restored, got %d", l.LikesRemaining)
	}
	if l.SuperLikesRemaining != 0 {
		t.Errorf("super likes window not elapsed, got %d", l.SuperLikesRemaining)
	}
}

func TestParseFeature(t *testing.T) {
	for _, s := range []string{"like", "super_like", "message", "rewind", "boost"} {
		if f, ok := ParseFeature(s); !ok || string(f) != s {
			t.Errorf("ParseFeature(%q) = %q, %v", s, f, ok)
		}
	}
	if _, ok := ParseFeature("swipe"); ok {
		t.Error("unknown feature accepted")
	}
}

func TestRefresh_RewindsAndBoostsRideTheirWindows(t *testing.T) {
	l := NewLimits(TierBasic, epoch)
	l.DecrementRewind()
	l.DecrementBoost()

	l.Refresh(epoch.Add(25 * time.Hour))
	if l.RewindsRemaining != 5 {
		t.Errorf("rewinds should refill with the daily likes window, got %d", l.RewindsRemaining)
	}
	if l.BoostsRemaining != 0 {
		t.Errorf("boosts refilled before the weekly window, got %d", l.BoostsRemaining)
	}

	l.Refresh(epoch.Add(7*24*time.Hour + time.Minute))
	if l.BoostsRemaining != 1 {
		t.Errorf("boosts should refill with the super-likes window, got %d", l.BoostsRemaining)
	}
}
