package session

import (
	"context"
	"testing"
	"time"
)

// TestRedisRegistry_Integration requires a running Redis; it skips
// when one isn't reachable, matching the skip-if-unreachable style of
// the Redis integration tests in pkg/kernel.
func TestRedisRegistry_Integration(t *testing.T) {
	reg := NewRedisRegistry("localhost:6379", "", 0, DefaultTTL)
	ctx := context.Background()
	if err := reg.Ping(ctx); err != nil {
		t.Skip("skipping redis integration test: redis not available")
	}
	defer reg.Close()

	s, err := reg.Get(ctx, "it-user", "it-session")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	s.History = append(s.History, Turn{User: Message{Role: "user", Content: "hi"}, Model: Message{Role: "model", Content: "hello"}})
	s.LastAccess = time.Now()

	if err := reg.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := reg.Get(ctx, "it-user", "it-session")
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if len(loaded.History) != 1 || loaded.History[0].Model.Content != "hello" {
		t.Fatalf("unexpected round-tripped session: %+v", loaded)
	}

	if err := reg.Evict(ctx, "it-user", "it-session"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	cleared, err := reg.Get(ctx, "it-user", "it-session")
	if err != nil {
		t.Fatalf("get after evict: %v", err)
	}
	if len(cleared.History) != 0 {
		t.Fatalf("expected a blank session after evict, got %+v", cleared)
	}
}
