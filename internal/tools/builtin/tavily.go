package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"parley/internal/agent/ports"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// tavilySearch queries the Tavily API for curated, AI-optimized results.
type tavilySearch struct {
	client     *http.Client
	apiKey     string
	endpoint   string
	maxResults int
}

func NewTavilySearch(apiKey string, maxResults int) ports.ToolExecutor {
	return newTavilySearch(apiKey, maxResults, nil)
}

func newTavilySearch(apiKey string, maxResults int, client *http.Client) *tavilySearch {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxResults < 1 {
		maxResults = 5
	}
	return &tavilySearch{
		client:     client,
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		maxResults: maxResults,
	}
}

func (t *tavilySearch) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "tavily_search",
		Category: "search",
	}
}

func (t *tavilySearch) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "tavily_search",
		Description: "Provides curated, concise web results optimized for AI, " +
			"ideal for quick, relevant answers or content generation.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"query": {
					Type:        "string",
					Description: "The search query to execute",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *tavilySearch) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tavily_search not configured: missing API key")
	}

	query, _ := call.Arguments["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("missing query")
	}

	reqBody := map[string]any{
		"api_key":        t.apiKey,
		"query":          query,
		"max_results":    t.maxResults,
		"topic":          "general",
		"include_images": true,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tavily returned %d: %s", resp.StatusCode, string(body))
	}

	var payload TavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	if payload.Query == "" {
		payload.Query = query
	}

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: FormatResult(&payload),
		Raw:     &payload,
	}, nil
}
