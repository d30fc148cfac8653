package chatbackend

import (
	"context"
	"fmt"

	"github.com/fleetintel/core/internal/session"
)

// SessionAdapter narrows a Client down to session.ChatBackend's plain
// Send(ctx, messages) (string, error) contract, so internal/session
// doesn't need to know about tools/options at all.
type SessionAdapter struct {
	client Client
}

// NewSessionAdapter wraps client for use as a session.ChatBackend.
func NewSessionAdapter(client Client) *SessionAdapter {
	return &SessionAdapter{client: client}
}

// Send implements session.ChatBackend.
func (a *SessionAdapter) Send(ctx context.Context, messages []session.Message) (string, error) {
	wireMessages := make([]Message, len(messages))
	for i, m := range messages {
		wireMessages[i] = Message{Role: m.Role, Content: m.Content}
	}
	resp, err := a.client.Chat(ctx, wireMessages, nil, nil)
	if err != nil {
		return "", fmt.Errorf("chatbackend: %w", err)
	}
	return resp.Content, nil
}
