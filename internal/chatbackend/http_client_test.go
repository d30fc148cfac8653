package chatbackend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_ChatParsesContentAndToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"content": "ahoy",
						"tool_calls": []map[string]any{
							{
								"id": "call-1",
								"function": map[string]any{
									"name":      "get_loadout",
									"arguments": `{"id":"l1"}`,
								},
							},
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "test-model")
	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "ahoy" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "get_loadout" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
}

func TestHTTPClient_ChatNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "test-model")
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestHTTPClient_ChatEmptyChoicesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "test-model")
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for empty choices")
	}
}
