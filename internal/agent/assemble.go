package agent

import (
	"strings"

	"parley/internal/agent/ports"
)

// Assembly is the user-facing rendering of one turn's new messages.
type Assembly struct {
	FinalText       string
	ResourceURLs    []string
	ImageURLs       []string
	PendingQuestion string
}

// Assemble renders the messages produced by a turn into final text plus the
// resource and image URLs recovered from tool results. It is a pure
// function of its input: assembling the same list twice yields identical
// output.
//
// Tool results are never shown verbatim; they are re-parsed using the same
// section labels the formatter produced, and malformed blocks are skipped
// rather than failing the turn.
func Assemble(msgs []ports.Message) Assembly {
	var (
		parts        []string
		resourceURLs = []string{}
		imageURLs    = []string{}
		pending      string
	)

	for _, msg := range msgs {
		switch msg.Role {
		case ports.RoleAssistant:
			if !msg.HasToolCalls() {
				parts = append(parts, msg.Content+"\n")
				continue
			}
			// Tool-call intents produce no user-visible text except the
			// escalation question, surfaced as a pending-question block.
			if msg.Content != "" {
				parts = append(parts, msg.Content+"\n")
			}
			if call, ok := msg.EscalationCall(); ok {
				query, _ := call.Arguments["query"].(string)
				pending = query
				parts = append(parts, "### Human Assistance Query\n**Query:** "+query+"\n")
			}
		case ports.RoleTool:
			switch msg.ToolName {
			case "tavily_search":
				urls, images := parseTavilyContent(msg.Content)
				resourceURLs = append(resourceURLs, urls...)
				imageURLs = append(imageURLs, images...)
			case "google_search":
				resourceURLs = append(resourceURLs, parseSerperContent(msg.Content)...)
			}
		}
	}

	return Assembly{
		FinalText:       strings.TrimRight(strings.Join(parts, "\n"), "\n"),
		ResourceURLs:    resourceURLs,
		ImageURLs:       imageURLs,
		PendingQuestion: pending,
	}
}

// parseTavilyContent walks the canonical tavily_search text block by block:
// a well-formed result block carries Title/URL/Content/Score lines in that
// order; image lines live in their own trailing section.
func parseTavilyContent(content string) (urls, images []string) {
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		// The first result shares its block with the section header.
		if len(lines) > 0 && strings.TrimSpace(lines[0]) == "Search Results:" {
			lines = lines[1:]
		}
		if len(lines) >= 4 &&
			strings.Contains(lines[1], "URL:") &&
			strings.Contains(lines[2], "Content:") &&
			strings.Contains(lines[3], "Score:") {
			url := strings.TrimSpace(afterLabel(lines[1], "URL: "))
			if strings.HasPrefix(url, "http") {
				urls = append(urls, url)
			}
			continue
		}
		for _, line := range lines {
			if strings.Contains(line, "Image URL:") {
				image := strings.TrimSpace(afterLabel(line, "Image URL: "))
				if strings.HasPrefix(image, "http") {
					images = append(images, image)
				}
			}
		}
	}
	return urls, images
}

// parseSerperContent scans the canonical google_search text for URL lines
// within the Organic Results section.
func parseSerperContent(content string) []string {
	var (
		urls      []string
		inOrganic bool
	)
	for _, line := range strings.Split(content, "\n") {
		switch line {
		case "Organic Results:":
			inOrganic = true
			continue
		case "Knowledge Graph:", "People Also Ask:":
			inOrganic = false
			continue
		}
		if inOrganic && strings.HasPrefix(line, "   URL: ") {
			url := strings.TrimSpace(strings.TrimPrefix(line, "   URL: "))
			if strings.HasPrefix(url, "http") {
				urls = append(urls, url)
			}
		}
	}
	return urls
}

func afterLabel(line, label string) string {
	if _, rest, ok := strings.Cut(line, label); ok {
		return rest
	}
	return ""
}
