package ports

import "time"

// Message roles. A conversation is an ordered, append-only sequence of
// messages; tool messages always follow the assistant message that issued
// the matching tool call.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// EscalationTool is the pseudo-tool that suspends the engine and hands the
// question to a human. It is advertised in the tool catalog like any other
// tool but is never executed by the tool executor.
const EscalationTool = "human_assistance"

// Attachment is an opaque file passed alongside a user message. The
// orchestration core never interprets the payload; it travels as
// base64-tagged metadata.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Message represents one conversation message.
type Message struct {
	Role        string         `json:"role"`
	Content     string         `json:"content"`
	ToolCalls   []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID  string         `json:"tool_call_id,omitempty"`
	ToolName    string         `json:"tool_name,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp,omitempty"`
}

// HasToolCalls reports whether the message carries pending tool calls.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// FindToolCall returns the first tool call with the given name.
func (m Message) FindToolCall(name string) (ToolCall, bool) {
	for _, tc := range m.ToolCalls {
		if tc.Name == name {
			return tc, true
		}
	}
	return ToolCall{}, false
}

// EscalationCall returns the escalation tool call carried by the message,
// if any.
func (m Message) EscalationCall() (ToolCall, bool) {
	return m.FindToolCall(EscalationTool)
}
