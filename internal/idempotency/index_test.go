package idempotency

import "testing"

func TestProvision_BuildsOncePerKey(t *testing.T) {
	var ix Index
	calls := 0
	build := func() string {
		calls++
		return "conv-1"
	}

	id, created := ix.Provision("confession:c1", build)
	if !created || id != "conv-1" {
		t.Fatalf("first Provision = (%q, %v), want (conv-1, true)", id, created)
	}
	for i := 0; i < 3; i++ {
		id, created = ix.Provision("confession:c1", build)
		if created || id != "conv-1" {
			t.Fatalf("repeat Provision = (%q, %v), want (conv-1, false)", id, created)
		}
	}
	if calls != 1 {
		t.Errorf("build called %d times, want 1", calls)
	}
}

func TestForgetResource(t *testing.T) {
	ix := Index{"a": "x", "b": "x", "c": "y"}
	ix.ForgetResource("x")
	if len(ix) != 1 {
		t.Fatalf("len = %d, want 1", len(ix))
	}
	if _, ok := ix.Lookup("c"); !ok {
		t.Error("unrelated key removed")
	}
	if id, ok := ix.Forget("c"); !ok || id != "y" {
		t.Errorf("Forget = (%q, %v)", id, ok)
	}
}
