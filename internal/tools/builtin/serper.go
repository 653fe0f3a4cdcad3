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

const serperEndpoint = "https://google.serper.dev/search"

// googleSearch queries the Serper API for raw Google results.
type googleSearch struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

func NewGoogleSearch(apiKey string) ports.ToolExecutor {
	return newGoogleSearch(apiKey, nil)
}

func newGoogleSearch(apiKey string, client *http.Client) *googleSearch {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &googleSearch{client: client, apiKey: apiKey, endpoint: serperEndpoint}
}

func (t *googleSearch) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     "google_search",
		Category: "search",
	}
}

func (t *googleSearch) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name: "google_search",
		Description: "Fetches raw, detailed Google search results (URLs, titles, snippets) " +
			"for broad web data analysis or research.",
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

func (t *googleSearch) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("google_search not configured: missing API key")
	}

	query, _ := call.Arguments["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("missing query")
	}

	jsonData, err := json.Marshal(map[string]any{"q": query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("serper returned %d: %s", resp.StatusCode, string(body))
	}

	var payload SerperResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}
	if payload.SearchParameters.Query == "" {
		payload.SearchParameters.Query = query
	}

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: FormatResult(&payload),
		Raw:     &payload,
	}, nil
}
