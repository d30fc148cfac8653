package chatbackend

import (
	"context"
	"testing"

	"github.com/fleetintel/core/internal/session"
)

type fakeClient struct {
	lastMessages []Message
	response     *Response
	err          error
}

func (f *fakeClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, options *SamplingOptions) (*Response, error) {
	f.lastMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestSessionAdapter_SendTranslatesMessagesAndReturnsContent(t *testing.T) {
	fc := &fakeClient{response: &Response{Content: "ahoy"}}
	adapter := NewSessionAdapter(fc)

	reply, err := adapter.Send(context.Background(), []session.Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "ahoy" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(fc.lastMessages) != 1 || fc.lastMessages[0].Content != "hello" {
		t.Fatalf("unexpected messages forwarded: %+v", fc.lastMessages)
	}
}
