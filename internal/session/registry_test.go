package session

import (
	"context"
	"testing"
	"time"
)

func TestRegistry_GetCreatesAndReuses(t *testing.T) {
	r := NewRegistry(DefaultTTL, 0)
	ctx := context.Background()

	s1, err := r.Get(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	s2, err := r.Get(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s1 != s2 {
		t.Fatal("expected the same session pointer on repeat Get")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 tracked session, got %d", r.Len())
	}
}

func TestRegistry_EmptySessionIDResolvesToDefault(t *testing.T) {
	r := NewRegistry(DefaultTTL, 0)
	ctx := context.Background()

	s, err := r.Get(ctx, "u1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.ID != DefaultSessionID {
		t.Fatalf("expected default session id, got %q", s.ID)
	}
}

func TestRegistry_SweepEvictsIdleNonDefaultSessions(t *testing.T) {
	r := NewRegistry(10*time.Millisecond, 0)
	ctx := context.Background()

	if _, err := r.Get(ctx, "u1", "chat-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := r.Get(ctx, "u1", DefaultSessionID); err != nil {
		t.Fatalf("get: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	r.sweep()

	if r.Len() != 1 {
		t.Fatalf("expected only the default session to survive, got %d tracked", r.Len())
	}
	if _, ok := r.sessions[key{userID: "u1", sessionID: DefaultSessionID}]; !ok {
		t.Fatal("expected default session to survive the sweep")
	}
}

func TestRegistry_EvictRemovesSession(t *testing.T) {
	r := NewRegistry(DefaultTTL, 0)
	ctx := context.Background()

	if _, err := r.Get(ctx, "u1", "s1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := r.Evict(ctx, "u1", "s1"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected 0 tracked sessions after evict, got %d", r.Len())
	}
}

func TestRegistry_ReapIntervalZeroLeavesStopChOpenUntilStop(t *testing.T) {
	r := NewRegistry(DefaultTTL, 0)
	select {
	case <-r.stopCh:
		t.Fatal("stopCh should not be closed")
	default:
	}
	r.Stop()
}
