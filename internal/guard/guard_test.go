package guard

import "testing"

func TestAllowWithinBurst(t *testing.T) {
	g := New(60, 3)

	for i := 0; i < 3; i++ {
		if !g.Allow("u1") {
			t.Fatalf("Allow() = false on request %d, burst is 3", i+1)
		}
	}
	if g.Allow("u1") {
		t.Error("Allow() = true past the burst")
	}
}

func TestUsersIsolated(t *testing.T) {
	g := New(60, 1)

	if !g.Allow("u1") {
		t.Fatal("Allow(u1) = false on first request")
	}
	if g.Allow("u1") {
		t.Error("u1 should be limited after its burst")
	}
	if !g.Allow("u2") {
		t.Error("u2 should not be affected by u1's usage")
	}
}

func TestDefaultsWhenUnconfigured(t *testing.T) {
	g := New(0, 0)

	// Default burst of 5 should admit the first five immediately.
	for i := 0; i < 5; i++ {
		if !g.Allow("u1") {
			t.Fatalf("Allow() = false on request %d with defaults", i+1)
		}
	}
}
