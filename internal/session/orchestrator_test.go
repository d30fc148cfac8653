package session

import (
	"context"
	"strings"
	"testing"
)

type fakeBackend struct {
	replies []string
	calls   []string
}

func (f *fakeBackend) Send(ctx context.Context, messages []Message) (string, error) {
	f.calls = append(f.calls, messages[len(messages)-1].Content)
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func TestOrchestrator_HandleTurnWithoutRunner(t *testing.T) {
	store := NewRegistry(DefaultTTL, 0)
	backend := &fakeBackend{replies: []string{"ahoy"}}
	orch := NewOrchestrator(store, backend)

	reply, err := orch.HandleTurn(context.Background(), "u1", "s1", "hello", nil)
	if err != nil {
		t.Fatalf("handle turn: %v", err)
	}
	if reply != "ahoy" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	sess, _ := store.Get(context.Background(), "u1", "s1")
	if len(sess.History) != 1 {
		t.Fatalf("expected 1 turn recorded, got %d", len(sess.History))
	}
	if sess.History[0].User.Content != "hello" || sess.History[0].Model.Content != "ahoy" {
		t.Fatalf("unexpected turn contents: %+v", sess.History[0])
	}
}

type fakeRunner struct {
	needsRepair  bool
	repairPrompt string
	finalizeErr  error
	finalized    bool
}

func (f *fakeRunner) Prepare(ctx context.Context, message string) (PrepareResult, error) {
	return PrepareResult{AugmentedMessage: "context: " + message}, nil
}

func (f *fakeRunner) Validate(ctx context.Context, responseText string, contract ValidationContract, gatedContext GatedContext) (ValidateResult, error) {
	return ValidateResult{NeedsRepair: f.needsRepair, RepairPrompt: f.repairPrompt}, nil
}

func (f *fakeRunner) Finalize(ctx context.Context, receipt ValidationReceipt) error {
	f.finalized = true
	return f.finalizeErr
}

func TestOrchestrator_HandleTurnWithRunnerAugmentsPrompt(t *testing.T) {
	store := NewRegistry(DefaultTTL, 0)
	backend := &fakeBackend{replies: []string{"ok"}}
	orch := NewOrchestrator(store, backend)
	runner := &fakeRunner{}

	reply, err := orch.HandleTurn(context.Background(), "u1", "s1", "hello", runner)
	if err != nil {
		t.Fatalf("handle turn: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if backend.calls[0] != "context: hello" {
		t.Fatalf("expected the backend to see the augmented message, got %q", backend.calls[0])
	}
	if !runner.finalized {
		t.Fatal("expected Finalize to be called")
	}
}

func TestOrchestrator_RepairOnceThenDisclaimer(t *testing.T) {
	store := NewRegistry(DefaultTTL, 0)
	backend := &fakeBackend{replies: []string{"bad", "still bad"}}
	orch := NewOrchestrator(store, backend)
	runner := &fakeRunner{needsRepair: true, repairPrompt: "please fix"}

	reply, err := orch.HandleTurn(context.Background(), "u1", "s1", "hello", runner)
	if err != nil {
		t.Fatalf("handle turn: %v", err)
	}
	if !strings.HasPrefix(reply, ValidationDisclaimer) {
		t.Fatalf("expected the validation disclaimer prefix, got %q", reply)
	}
	if len(backend.calls) != 2 {
		t.Fatalf("expected exactly one repair round-trip (2 backend calls total), got %d", len(backend.calls))
	}
	if backend.calls[1] != "please fix" {
		t.Fatalf("expected the repair prompt to be sent, got %q", backend.calls[1])
	}
}

func TestOrchestrator_SameSessionTurnsAccumulateHistory(t *testing.T) {
	store := NewRegistry(DefaultTTL, 0)
	backend := &fakeBackend{replies: []string{"a", "b"}}
	orch := NewOrchestrator(store, backend)

	if _, err := orch.HandleTurn(context.Background(), "u1", "s1", "first", nil); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := orch.HandleTurn(context.Background(), "u1", "s1", "second", nil); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	sess, _ := store.Get(context.Background(), "u1", "s1")
	if len(sess.History) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(sess.History))
	}
}
