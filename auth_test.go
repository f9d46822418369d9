package main

import (
	"testing"
	"time"
)

func TestLoginGuardLockout(t *testing.T) {
	clock := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	g := newLoginGuard()
	g.now = func() time.Time { return clock }

	for i := 1; i < maxLoginAttempts; i++ {
		remaining := g.Fail()
		if remaining != maxLoginAttempts-i {
			t.Fatalf("after %d failures remaining = %d, want %d", i, remaining, maxLoginAttempts-i)
		}
		if locked, _ := g.Locked(); locked {
			t.Fatalf("locked after only %d failures", i)
		}
	}

	if remaining := g.Fail(); remaining != 0 {
		t.Fatalf("5th failure remaining = %d, want 0", remaining)
	}
	locked, left := g.Locked()
	if !locked {
		t.Fatal("not locked after 5 failures")
	}
	if left != lockoutDuration {
		t.Fatalf("cooldown = %v, want %v", left, lockoutDuration)
	}
}

func TestLoginGuardCountdownAndExpiry(t *testing.T) {
	clock := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	g := newLoginGuard()
	g.now = func() time.Time { return clock }

	for i := 0; i < maxLoginAttempts; i++ {
		g.Fail()
	}

	clock = clock.Add(5 * time.Minute)
	if _, left := g.Locked(); left != 10*time.Minute {
		t.Fatalf("after 5 minutes left = %v, want 10m", left)
	}

	clock = clock.Add(10*time.Minute + time.Second)
	if locked, _ := g.Locked(); locked {
		t.Fatal("still locked after the cooldown lapsed")
	}
	// counter reset with the lapsed lockout: next failure starts over
	if remaining := g.Fail(); remaining != maxLoginAttempts-1 {
		t.Fatalf("remaining after expiry = %d, want %d", remaining, maxLoginAttempts-1)
	}
}

func TestLoginGuardResetOnSuccess(t *testing.T) {
	g := newLoginGuard()
	g.Fail()
	g.Fail()
	g.Reset()
	if remaining := g.Fail(); remaining != maxLoginAttempts-1 {
		t.Fatalf("remaining after reset = %d, want %d", remaining, maxLoginAttempts-1)
	}
}
