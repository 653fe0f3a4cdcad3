package llm

import (
	"context"
	"fmt"
	"sync"

	"parley/internal/agent/ports"
)

// ScriptedClient replays a fixed sequence of completions. It backs engine
// and handler tests without a live backend.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []*ports.CompletionResponse
	errs      []error
	calls     int
	requests  []ports.CompletionRequest
}

func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{}
}

// Reply queues a scripted completion.
func (c *ScriptedClient) Reply(resp *ports.CompletionResponse) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, resp)
	c.errs = append(c.errs, nil)
	return c
}

// ReplyText queues a plain text completion.
func (c *ScriptedClient) ReplyText(text string) *ScriptedClient {
	return c.Reply(&ports.CompletionResponse{Content: text, StopReason: "stop"})
}

// ReplyToolCalls queues a completion carrying tool calls.
func (c *ScriptedClient) ReplyToolCalls(content string, calls ...ports.ToolCall) *ScriptedClient {
	return c.Reply(&ports.CompletionResponse{
		Content:    content,
		ToolCalls:  calls,
		StopReason: "tool_calls",
	})
}

// Fail queues a completion error.
func (c *ScriptedClient) Fail(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, nil)
	c.errs = append(c.errs, err)
	return c
}

func (c *ScriptedClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if len(c.responses) == 0 {
		return nil, fmt.Errorf("scripted client has no replies")
	}

	idx := c.calls
	c.calls++
	if idx >= len(c.responses) {
		// Loop the last scripted reply so step-budget tests can model a
		// client that never terminates.
		idx = len(c.responses) - 1
	}
	if c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	return c.responses[idx], nil
}

func (c *ScriptedClient) Model() string {
	return "scripted"
}

// Calls reports how many completions were requested.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Requests returns a copy of every completion request seen.
func (c *ScriptedClient) Requests() []ports.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.CompletionRequest(nil), c.requests...)
}
