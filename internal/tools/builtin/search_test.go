package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parley/internal/agent/ports"
)

func TestTavilySearchExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["query"] != "capital of France" {
			t.Errorf("unexpected query: %v", body["query"])
		}
		if body["api_key"] != "tvly-test" {
			t.Errorf("api key not forwarded: %v", body["api_key"])
		}
		_ = json.NewEncoder(w).Encode(TavilyResponse{
			Query: "capital of France",
			Results: []TavilyResult{
				{Title: "Paris", URL: "https://fr.test/paris", Content: "Capital city", Score: 0.98},
			},
		})
	}))
	defer server.Close()

	tool := newTavilySearch("tvly-test", 5, server.Client())
	tool.endpoint = server.URL

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-1",
		Name:      "tavily_search",
		Arguments: map[string]any{"query": "capital of France"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.CallID != "call-1" {
		t.Errorf("call id = %q", result.CallID)
	}
	if !strings.Contains(result.Content, "URL: https://fr.test/paris") {
		t.Errorf("content missing result URL:\n%s", result.Content)
	}
	if _, ok := result.Raw.(*TavilyResponse); !ok {
		t.Errorf("raw payload type = %T", result.Raw)
	}
}

func TestTavilySearchMissingQuery(t *testing.T) {
	tool := newTavilySearch("tvly-test", 5, nil)
	if _, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c"}); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestTavilySearchMissingKey(t *testing.T) {
	tool := newTavilySearch("", 5, nil)
	_, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "c",
		Arguments: map[string]any{"query": "q"},
	})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGoogleSearchExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-KEY"); got != "serper-test" {
			t.Errorf("X-API-KEY = %q", got)
		}
		_ = json.NewEncoder(w).Encode(SerperResponse{
			SearchParameters: SerperParameters{Query: "golang"},
			Organic: []OrganicResult{
				{Title: "Go", Link: "https://go.dev", Snippet: "The Go site"},
			},
		})
	}))
	defer server.Close()

	tool := newGoogleSearch("serper-test", server.Client())
	tool.endpoint = server.URL

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-2",
		Name:      "google_search",
		Arguments: map[string]any{"query": "golang"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Content, "Organic Results:\n1. Title: Go\n   URL: https://go.dev") {
		t.Errorf("content missing organic result:\n%s", result.Content)
	}
}

func TestGoogleSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	tool := newGoogleSearch("serper-test", server.Client())
	tool.endpoint = server.URL

	_, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "c",
		Arguments: map[string]any{"query": "q"},
	})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHumanAssistanceNeverExecutes(t *testing.T) {
	tool := NewHumanAssistance()
	if !tool.Metadata().Virtual {
		t.Fatal("escalation tool must be marked virtual")
	}
	if _, err := tool.Execute(context.Background(), ports.ToolCall{ID: "c"}); err == nil {
		t.Fatal("expected error from direct execution")
	}
}

func TestEscalationQuery(t *testing.T) {
	call := ports.ToolCall{Arguments: map[string]any{"query": "Which option?"}}
	if got := EscalationQuery(call); got != "Which option?" {
		t.Fatalf("EscalationQuery = %q", got)
	}
	if got := EscalationQuery(ports.ToolCall{}); got != "" {
		t.Fatalf("empty call should yield empty query, got %q", got)
	}
}

func TestWebFetchExtractsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Test Page</title><script>evil()</script></head>
<body><h1>Heading</h1><p>This paragraph is long enough to be kept in the output.</p>
<ul><li>first</li><li>second</li></ul></body></html>`))
	}))
	defer server.Close()

	tool := newWebFetch(server.Client())
	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "c",
		Arguments: map[string]any{"url": server.URL},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, fragment := range []string{"# Test Page", "# Heading", "long enough", "- first"} {
		if !strings.Contains(result.Content, fragment) {
			t.Errorf("content missing %q:\n%s", fragment, result.Content)
		}
	}
	if strings.Contains(result.Content, "evil()") {
		t.Error("script content leaked into extracted text")
	}
}

func TestWebFetchRejectsBadURL(t *testing.T) {
	tool := newWebFetch(nil)
	if _, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "c",
		Arguments: map[string]any{"url": "ftp://nope"},
	}); err == nil {
		t.Fatal("expected error for non-http url")
	}
}
