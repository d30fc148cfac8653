package session

import "testing"

func TestSession_AppendTurnCapsHistoryAt50(t *testing.T) {
	s := &Session{}
	for i := 0; i < MaxTurns+10; i++ {
		s.appendTurn(Turn{User: Message{Role: "user", Content: "hi"}})
	}
	if len(s.History) != MaxTurns {
		t.Fatalf("expected history capped at %d, got %d", MaxTurns, len(s.History))
	}
}

func TestSession_AppendTurnDropsOldestOnOverflow(t *testing.T) {
	s := &Session{}
	for i := 0; i < MaxTurns; i++ {
		s.appendTurn(Turn{User: Message{Content: "turn-0"}})
	}
	s.appendTurn(Turn{User: Message{Content: "newest"}})

	if s.History[len(s.History)-1].User.Content != "newest" {
		t.Fatal("expected the newest turn to be retained at the tail")
	}
	if len(s.History) != MaxTurns {
		t.Fatalf("expected history to stay capped at %d, got %d", MaxTurns, len(s.History))
	}
}
