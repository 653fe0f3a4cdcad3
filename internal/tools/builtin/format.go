package builtin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TavilyResponse is the provider payload for tavily_search.
type TavilyResponse struct {
	Query   string         `json:"query"`
	Results []TavilyResult `json:"results"`
	Images  []string       `json:"images"`
}

// TavilyResult is one search hit from Tavily.
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SerperResponse is the provider payload for google_search.
type SerperResponse struct {
	SearchParameters SerperParameters `json:"searchParameters"`
	KnowledgeGraph   *KnowledgeGraph  `json:"knowledgeGraph,omitempty"`
	Organic          []OrganicResult  `json:"organic"`
	PeopleAlsoAsk    []PeopleAlsoAsk  `json:"peopleAlsoAsk"`
}

type SerperParameters struct {
	Query string `json:"q"`
}

type KnowledgeGraph struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type PeopleAlsoAsk struct {
	Question string `json:"question"`
	Snippet  string `json:"snippet"`
}

// FormatResult renders a tool's raw result as the canonical text block that
// gets persisted in history. Each provider shape has its own formatter arm;
// anything unrecognized is stringified as-is. The rendered labels are what
// the response assembler later re-parses, so the format must stay stable.
func FormatResult(raw any) string {
	switch v := raw.(type) {
	case *TavilyResponse:
		return formatTavily(v)
	case TavilyResponse:
		return formatTavily(&v)
	case *SerperResponse:
		return formatSerper(v)
	case SerperResponse:
		return formatSerper(&v)
	case string:
		return v
	case nil:
		return ""
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}

func formatTavily(resp *TavilyResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %s\n\nSearch Results:\n", orNA(resp.Query))
	for i, result := range resp.Results {
		fmt.Fprintf(&b, "%d. Title: %s\n", i+1, orNA(result.Title))
		fmt.Fprintf(&b, "   URL: %s\n", orNA(result.URL))
		fmt.Fprintf(&b, "   Content: %s\n", orNA(result.Content))
		fmt.Fprintf(&b, "   Score: %s\n\n", formatScore(result.Score))
	}
	if len(resp.Images) > 0 {
		b.WriteString("Images:\n")
		for i, image := range resp.Images {
			fmt.Fprintf(&b, "%d. Image URL: %s\n", i+1, image)
		}
	}
	return b.String()
}

func formatSerper(resp *SerperResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %s\n\n", orNA(resp.SearchParameters.Query))

	if kg := resp.KnowledgeGraph; kg != nil {
		b.WriteString("Knowledge Graph:\n")
		fmt.Fprintf(&b, "  Title: %s\n", orNA(kg.Title))
		fmt.Fprintf(&b, "  Type: %s\n", orNA(kg.Type))
		fmt.Fprintf(&b, "  Description: %s\n", orNA(kg.Description))
		fmt.Fprintf(&b, "  Website: %s\n\n", orNA(kg.Website))
	}

	if len(resp.Organic) > 0 {
		b.WriteString("Organic Results:\n")
		for i, result := range resp.Organic {
			fmt.Fprintf(&b, "%d. Title: %s\n", i+1, orNA(result.Title))
			fmt.Fprintf(&b, "   URL: %s\n", orNA(result.Link))
			fmt.Fprintf(&b, "   Snippet: %s\n\n", orNA(result.Snippet))
		}
	}

	if len(resp.PeopleAlsoAsk) > 0 {
		b.WriteString("People Also Ask:\n")
		for i, item := range resp.PeopleAlsoAsk {
			fmt.Fprintf(&b, "%d. Question: %s\n", i+1, orNA(item.Question))
			fmt.Fprintf(&b, "   Answer: %s\n\n", orNA(item.Snippet))
		}
	}

	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func formatScore(score float64) string {
	if score == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(score, 'g', -1, 64)
}
