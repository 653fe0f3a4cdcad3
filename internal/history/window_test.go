package history

import (
	"testing"

	"parley/internal/agent/ports"
)

func msg(role string) ports.Message {
	return ports.Message{Role: role, Content: role}
}

func TestWindowShortHistoryUnchanged(t *testing.T) {
	msgs := []ports.Message{msg(ports.RoleUser), msg(ports.RoleAssistant)}
	got := Window(msgs, 10)
	if len(got) != 2 {
		t.Fatalf("got %d messages", len(got))
	}
}

func TestWindowTakesTail(t *testing.T) {
	msgs := make([]ports.Message, 0, 15)
	for i := 0; i < 15; i++ {
		if i%2 == 0 {
			msgs = append(msgs, msg(ports.RoleUser))
		} else {
			msgs = append(msgs, msg(ports.RoleAssistant))
		}
	}

	got := Window(msgs, 10)
	if len(got) != 10 {
		t.Fatalf("got %d messages", len(got))
	}
	if &got[0] != &msgs[5] {
		t.Error("window should start at index 5")
	}
}

func TestWindowReanchorsOnOrphanedToolResult(t *testing.T) {
	// 15 messages where the plain last-10 slice would open at index 5 with
	// a tool result whose call lies outside the slice; the nearest
	// preceding user message is at index 3, so the window must re-anchor
	// there and run 10 messages forward.
	msgs := make([]ports.Message, 15)
	for i := range msgs {
		msgs[i] = msg(ports.RoleAssistant)
	}
	msgs[3] = msg(ports.RoleUser)
	msgs[4] = ports.Message{
		Role:      ports.RoleAssistant,
		ToolCalls: []ports.ToolCall{{ID: "call-x", Name: "tavily_search"}},
	}
	msgs[5] = ports.Message{Role: ports.RoleTool, ToolCallID: "call-x", ToolName: "tavily_search"}

	got := Window(msgs, 10)
	if len(got) != 10 {
		t.Fatalf("got %d messages", len(got))
	}
	if &got[0] != &msgs[3] {
		t.Error("window should re-anchor at the user message at index 3")
	}
	if &got[9] != &msgs[12] {
		t.Error("window should span indices 3 through 12")
	}
}

func TestWindowReanchorCapsAtHistoryEnd(t *testing.T) {
	// Re-anchoring near the tail must not run past the end of history.
	msgs := make([]ports.Message, 12)
	for i := range msgs {
		msgs[i] = msg(ports.RoleAssistant)
	}
	msgs[1] = msg(ports.RoleUser)
	msgs[2] = ports.Message{Role: ports.RoleTool, ToolCallID: "call-y"}

	got := Window(msgs, 10)
	if len(got) != 10 {
		t.Fatalf("got %d messages", len(got))
	}
	if &got[0] != &msgs[1] {
		t.Error("window should re-anchor at index 1")
	}
}

func TestWindowFallsBackWithoutPrecedingUser(t *testing.T) {
	// No user message before the orphan: the unanchored slice is kept,
	// orphan included.
	msgs := make([]ports.Message, 15)
	for i := range msgs {
		msgs[i] = msg(ports.RoleAssistant)
	}
	msgs[5] = ports.Message{Role: ports.RoleTool, ToolCallID: "call-z"}

	got := Window(msgs, 10)
	if len(got) != 10 {
		t.Fatalf("got %d messages", len(got))
	}
	if got[0].Role != ports.RoleTool {
		t.Error("fallback window should keep the orphaned tool result at its head")
	}
}
