package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"parley/internal/agent/ports"
	"parley/internal/history"
	"parley/internal/llm"
	"parley/internal/session/memstore"
	"parley/internal/tools/builtin"
)

func newTestCoordinator(t *testing.T, client ports.LLMClient, store *memstore.Store, toolSet ...ports.ToolExecutor) *Coordinator {
	t.Helper()
	engine := NewEngine(client, newTestExecutor(t, toolSet...), WithMaxSteps(5))
	return NewCoordinator(history.NewManager(store), engine, nil)
}

func TestProcessTurnDirectAnswer(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().ReplyText("Paris")
	c := newTestCoordinator(t, client, store)

	result, err := c.ProcessTurn(context.Background(), TurnRequest{
		Input: "What is the capital of France?",
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	if result.FinalText != "Paris" {
		t.Errorf("FinalText = %q", result.FinalText)
	}
	if len(result.ResourceURLs) != 0 || len(result.ImageURLs) != 0 {
		t.Errorf("unexpected URLs: %v %v", result.ResourceURLs, result.ImageURLs)
	}
	if result.StopReason != StopCompleted {
		t.Errorf("StopReason = %s", result.StopReason)
	}
	if result.SessionID == "" {
		t.Error("no session id assigned")
	}

	sess, err := store.Get(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("persisted %d messages", len(sess.Messages))
	}
	if sess.Messages[0].Role != ports.RoleUser || sess.Messages[1].Role != ports.RoleAssistant {
		t.Errorf("persisted roles: %s, %s", sess.Messages[0].Role, sess.Messages[1].Role)
	}
}

func TestProcessTurnSearchScenario(t *testing.T) {
	store := memstore.New()
	raw := &builtin.TavilyResponse{
		Query: "current weather Paris",
		Results: []builtin.TavilyResult{
			{Title: "Weather", URL: "https://x.test/w", Content: "Sunny", Score: 0.9},
		},
		Images: []string{"https://x.test/img.png"},
	}
	searchTool := stubTool{name: "tavily_search", content: builtin.FormatResult(raw)}
	client := llm.NewScriptedClient().
		ReplyToolCalls("", ports.ToolCall{
			ID:        "c1",
			Name:      "tavily_search",
			Arguments: map[string]any{"query": "current weather Paris"},
		}).
		ReplyText("It's sunny in Paris.")
	c := newTestCoordinator(t, client, store, searchTool)

	result, err := c.ProcessTurn(context.Background(), TurnRequest{Input: "weather in Paris?"})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	if result.FinalText != "It's sunny in Paris." {
		t.Errorf("FinalText = %q", result.FinalText)
	}
	if !reflect.DeepEqual(result.ResourceURLs, []string{"https://x.test/w"}) {
		t.Errorf("ResourceURLs = %v", result.ResourceURLs)
	}
	if !reflect.DeepEqual(result.ImageURLs, []string{"https://x.test/img.png"}) {
		t.Errorf("ImageURLs = %v", result.ImageURLs)
	}
}

func TestProcessTurnSuspendAndResume(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().
		ReplyToolCalls("", ports.ToolCall{
			ID:        "c-esc",
			Name:      ports.EscalationTool,
			Arguments: map[string]any{"query": "Which date works for you?"},
		}).
		ReplyText("Booked for Friday.")
	c := newTestCoordinator(t, client, store)
	ctx := context.Background()

	first, err := c.ProcessTurn(ctx, TurnRequest{Input: "book a meeting"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if !first.Suspended() {
		t.Fatalf("StopReason = %s", first.StopReason)
	}
	if first.PendingQuestion != "Which date works for you?" {
		t.Errorf("PendingQuestion = %q", first.PendingQuestion)
	}
	if first.PendingCallID != "c-esc" {
		t.Errorf("PendingCallID = %q", first.PendingCallID)
	}

	sess, err := store.Get(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !sess.Suspended() {
		t.Error("session not marked suspended")
	}
	countBefore := len(sess.Messages)
	for _, msg := range sess.Messages {
		if msg.Role == ports.RoleTool {
			t.Fatalf("suspension persisted a tool result: %+v", msg)
		}
	}

	second, err := c.ProcessTurn(ctx, TurnRequest{
		SessionID: first.SessionID,
		Input:     "Friday",
	})
	if err != nil {
		t.Fatalf("resume turn: %v", err)
	}
	if second.FinalText != "Booked for Friday." {
		t.Errorf("FinalText = %q", second.FinalText)
	}

	sess, err = store.Get(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Suspended() {
		t.Error("suspension marker not cleared after resume")
	}

	// Exactly one tool result bound to the pending call id.
	var resumes []ports.Message
	for _, msg := range sess.Messages {
		if msg.Role == ports.RoleTool {
			resumes = append(resumes, msg)
		}
	}
	if len(resumes) != 1 {
		t.Fatalf("got %d tool results", len(resumes))
	}
	if resumes[0].ToolCallID != "c-esc" || resumes[0].ToolName != ports.EscalationTool {
		t.Errorf("resume message = %+v", resumes[0])
	}
	if resumes[0].Content != "Friday" {
		t.Errorf("resume content = %q", resumes[0].Content)
	}
	if len(sess.Messages) != countBefore+2 {
		t.Errorf("history grew by %d, want 2", len(sess.Messages)-countBefore)
	}
}

func TestProcessTurnRejectsMismatchedResume(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().ReplyToolCalls("", ports.ToolCall{
		ID:        "c-esc",
		Name:      ports.EscalationTool,
		Arguments: map[string]any{"query": "which?"},
	})
	c := newTestCoordinator(t, client, store)
	ctx := context.Background()

	first, err := c.ProcessTurn(ctx, TurnRequest{Input: "go"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}

	before, err := store.Get(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	_, err = c.ProcessTurn(ctx, TurnRequest{
		SessionID:    first.SessionID,
		Input:        "answer",
		ResumeCallID: "c-wrong",
	})
	if !errors.Is(err, ErrInvalidResume) {
		t.Fatalf("err = %v", err)
	}

	// No state mutation on rejection.
	after, err := store.Get(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("history mutated: %d -> %d", len(before.Messages), len(after.Messages))
	}
	if !after.Suspended() {
		t.Error("suspension marker removed")
	}
}

func TestProcessTurnRejectsResumeWithoutPending(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().ReplyText("hi")
	c := newTestCoordinator(t, client, store)

	_, err := c.ProcessTurn(context.Background(), TurnRequest{
		Input:        "hello",
		ResumeCallID: "c-ghost",
	})
	if !errors.Is(err, ErrInvalidResume) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessTurnModelErrorDoesNotAdvanceHistory(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().Fail(errors.New("backend down"))
	c := newTestCoordinator(t, client, store)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := c.ProcessTurn(ctx, TurnRequest{SessionID: sess.ID, Input: "hello"}); err == nil {
		t.Fatal("expected model error")
	}

	after, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(after.Messages) != 0 {
		t.Fatalf("failed turn persisted %d messages", len(after.Messages))
	}
}

func TestProcessTurnStepBudgetFallback(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().ReplyToolCalls("", ports.ToolCall{
		ID:        "c",
		Name:      "search",
		Arguments: map[string]any{"query": "q"},
	})
	c := newTestCoordinator(t, client, store, stubTool{name: "search", content: "noise"})

	result, err := c.ProcessTurn(context.Background(), TurnRequest{Input: "never ends"})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if result.StopReason != StopMaxSteps {
		t.Errorf("StopReason = %s", result.StopReason)
	}
	if result.FinalText != FallbackAnswer {
		t.Errorf("FinalText = %q", result.FinalText)
	}
}

func TestProcessTurnRejectsEmptyInput(t *testing.T) {
	c := newTestCoordinator(t, llm.NewScriptedClient().ReplyText("x"), memstore.New())
	if _, err := c.ProcessTurn(context.Background(), TurnRequest{Input: "  "}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessTurnHistoryIsAppendOnly(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().ReplyText("one").ReplyText("two").ReplyText("three")
	c := newTestCoordinator(t, client, store)
	ctx := context.Background()

	var sessionID string
	var lastLen int
	var prefix []ports.Message
	for i := 0; i < 3; i++ {
		result, err := c.ProcessTurn(ctx, TurnRequest{SessionID: sessionID, Input: "again"})
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		sessionID = result.SessionID

		sess, err := store.Get(ctx, sessionID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(sess.Messages) <= lastLen {
			t.Fatalf("history shrank: %d -> %d", lastLen, len(sess.Messages))
		}
		for j, msg := range prefix {
			if sess.Messages[j].Content != msg.Content || sess.Messages[j].Role != msg.Role {
				t.Fatalf("history reordered at %d", j)
			}
		}
		prefix = sess.Messages
		lastLen = len(sess.Messages)
	}
}

func TestProcessTurnAttachmentsTravelOpaquely(t *testing.T) {
	store := memstore.New()
	client := llm.NewScriptedClient().ReplyText("got it")
	c := newTestCoordinator(t, client, store)

	att := ports.Attachment{Name: "notes.txt", MediaType: "text/plain", Data: "aGVsbG8="}
	result, err := c.ProcessTurn(context.Background(), TurnRequest{
		Input:       "see attachment",
		Attachments: []ports.Attachment{att},
	})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	sess, err := store.Get(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages[0].Attachments) != 1 || sess.Messages[0].Attachments[0].Data != "aGVsbG8=" {
		t.Errorf("attachment not preserved: %+v", sess.Messages[0].Attachments)
	}
}
