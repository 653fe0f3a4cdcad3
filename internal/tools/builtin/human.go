package builtin

import (
	"context"
	"fmt"

	"parley/internal/agent/ports"
)

// humanAssistance is the escalation pseudo-tool. It is advertised to the
// model like any other tool, but the engine intercepts calls to it and
// suspends the turn instead of executing; Execute only exists to satisfy
// the interface and reports misuse.
type humanAssistance struct{}

func NewHumanAssistance() ports.ToolExecutor {
	return humanAssistance{}
}

func (humanAssistance) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name:     ports.EscalationTool,
		Category: "escalation",
		Virtual:  true,
	}
}

func (humanAssistance) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        ports.EscalationTool,
		Description: "Request assistance from a human.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"query": {
					Type:        "string",
					Description: "The question to ask the human",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (humanAssistance) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	return nil, fmt.Errorf("%s requires a human response and cannot be executed directly", ports.EscalationTool)
}

// EscalationQuery extracts the query argument from an escalation tool call.
func EscalationQuery(call ports.ToolCall) string {
	query, _ := call.Arguments["query"].(string)
	return query
}
