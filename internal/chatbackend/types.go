// Package chatbackend defines the generative-backend capability the
// session orchestrator depends on (§4.5, §1 Non-goals: the
// vendor integration itself is out of scope, only the seam it plugs
// into). Grounded on pkg/llm/client.go's Client interface.
package chatbackend

import "context"

// Message is one chat turn entry, wire-compatible with session.Message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a callable tool for function-calling-capable
// backends.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SamplingOptions controls generation determinism/creativity.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Seed        int64   `json:"seed"`
}

// ToolCall is a backend-requested tool invocation.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Response is a backend's reply.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Client is the capability surface a generative backend must provide.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, options *SamplingOptions) (*Response, error)
}
