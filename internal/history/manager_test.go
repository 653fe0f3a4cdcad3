package history

import (
	"context"
	"testing"

	"parley/internal/agent/ports"
	"parley/internal/session/memstore"
)

func TestManagerLoadCreatesOnEmptyID(t *testing.T) {
	m := NewManager(memstore.New())

	sess, err := m.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("new session has no id")
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("new session has %d messages", len(sess.Messages))
	}
}

func TestManagerLoadRejectsUnknownID(t *testing.T) {
	m := NewManager(memstore.New())
	if _, err := m.Load(context.Background(), "session-missing"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestManagerAppendStepIsIncremental(t *testing.T) {
	store := memstore.New()
	m := NewManager(store)
	ctx := context.Background()

	sess, err := m.Load(ctx, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := m.AppendStep(ctx, sess.ID, ports.Message{Role: ports.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := m.AppendStep(ctx, sess.ID, ports.Message{Role: ports.RoleAssistant, Content: "hello"}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := m.AppendStep(ctx, sess.ID); err != nil {
		t.Fatalf("AppendStep with no messages: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages", len(got.Messages))
	}
	if got.Messages[0].Content != "hi" || got.Messages[1].Content != "hello" {
		t.Error("messages out of order")
	}
}

func TestSuspensionMarkerRoundTrip(t *testing.T) {
	store := memstore.New()
	m := NewManager(store)
	ctx := context.Background()

	sess, err := m.Load(ctx, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	call := ports.ToolCall{ID: "call-1", Name: ports.EscalationTool, Arguments: map[string]any{"query": "help?"}}
	if err := m.AppendStep(ctx, sess.ID, ports.Message{
		Role:      ports.RoleAssistant,
		ToolCalls: []ports.ToolCall{call},
	}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := m.MarkSuspended(ctx, sess.ID, call.ID); err != nil {
		t.Fatalf("MarkSuspended: %v", err)
	}

	loaded, err := m.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pending, ok := PendingEscalation(loaded)
	if !ok {
		t.Fatal("expected pending escalation")
	}
	if pending.ID != "call-1" {
		t.Errorf("pending call id = %q", pending.ID)
	}

	if err := m.ClearSuspended(ctx, sess.ID); err != nil {
		t.Fatalf("ClearSuspended: %v", err)
	}
	loaded, err = m.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Suspended() {
		t.Error("session still marked suspended after clear")
	}
}

func TestPendingEscalationTailScanFallback(t *testing.T) {
	// A session without the metadata marker still resumes when the history
	// tail is an assistant message with an unanswered escalation call.
	sess := &ports.Session{
		Metadata: map[string]string{},
		Messages: []ports.Message{
			{Role: ports.RoleUser, Content: "question"},
			{
				Role: ports.RoleAssistant,
				ToolCalls: []ports.ToolCall{
					{ID: "call-7", Name: ports.EscalationTool, Arguments: map[string]any{"query": "which?"}},
				},
			},
		},
	}

	pending, ok := PendingEscalation(sess)
	if !ok {
		t.Fatal("expected pending escalation from tail scan")
	}
	if pending.ID != "call-7" {
		t.Errorf("pending call id = %q", pending.ID)
	}
}

func TestPendingEscalationAbsent(t *testing.T) {
	cases := map[string]*ports.Session{
		"nil session":   nil,
		"empty history": {Metadata: map[string]string{}},
		"tail is text": {
			Metadata: map[string]string{},
			Messages: []ports.Message{{Role: ports.RoleAssistant, Content: "done"}},
		},
		"tail has ordinary tool call": {
			Metadata: map[string]string{},
			Messages: []ports.Message{{
				Role:      ports.RoleAssistant,
				ToolCalls: []ports.ToolCall{{ID: "c", Name: "tavily_search"}},
			}},
		},
		"stale marker": {
			Metadata: map[string]string{ports.MetaPendingCallID: "call-gone"},
			Messages: []ports.Message{{Role: ports.RoleAssistant, Content: "done"}},
		},
	}

	for name, sess := range cases {
		if _, ok := PendingEscalation(sess); ok {
			t.Errorf("%s: unexpected pending escalation", name)
		}
	}
}
