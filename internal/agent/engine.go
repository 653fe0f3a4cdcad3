package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parley/internal/agent/ports"
	"parley/internal/logging"
	"parley/internal/tools"
)

// DefaultMaxSteps bounds reason/act alternations per turn.
const DefaultMaxSteps = 10

// StopReason explains why the engine loop ended.
type StopReason string

const (
	// StopCompleted means the model produced a final text-only answer.
	StopCompleted StopReason = "completed"
	// StopSuspended means the model escalated to a human and the turn is
	// waiting for an answer.
	StopSuspended StopReason = "suspended"
	// StopMaxSteps means the step budget ran out before completion.
	StopMaxSteps StopReason = "max_steps"
)

// Outcome is the result of one engine run.
type Outcome struct {
	// Produced holds every message created during the run, in order: the
	// seed message(s), then alternating assistant and tool messages.
	Produced []ports.Message
	// PendingCall is the escalation call when StopReason is StopSuspended.
	PendingCall ports.ToolCall
	StopReason  StopReason
	Steps       int
}

// PersistFunc persists the messages produced by one engine step. It is
// called once per step so a crash loses at most the in-flight step and a
// retry never duplicates already-persisted messages.
type PersistFunc func(ctx context.Context, msgs ...ports.Message) error

// Engine drives a single turn through the two-node reason/act loop: the
// reason step invokes the model with the current messages and the tool
// catalog; the act step executes every tool call from the latest assistant
// message. The loop is iterative and step-bounded, never recursive.
type Engine struct {
	llm      ports.LLMClient
	executor *tools.Executor
	maxSteps int
	logger   logging.Logger
	tracer   trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxSteps overrides the per-turn step budget.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(llm ports.LLMClient, executor *tools.Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		llm:      llm,
		executor: executor,
		maxSteps: DefaultMaxSteps,
		logger:   logging.Nop(),
		tracer:   otel.Tracer("parley/agent"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the loop until the model answers with plain text, escalates
// to a human, or the step budget runs out.
//
// window is the prompt context (system instruction plus the bounded
// history); seed holds the message(s) new to this turn that are not yet
// persisted — the inbound user message or the resume tool result. The seed
// must already be included at the tail of window. It is persisted together
// with the first reason step's output, so a model failure on the first
// step leaves history unadvanced and the turn can be retried cleanly.
//
// Tool failures never abort the loop; they are folded into tool result
// content by the executor so the next reason step can react to them.
func (e *Engine) Run(ctx context.Context, window, seed []ports.Message, persist PersistFunc) (*Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "agent.run")
	defer span.End()

	msgs := append([]ports.Message(nil), window...)
	outcome := &Outcome{
		Produced:   append([]ports.Message(nil), seed...),
		StopReason: StopMaxSteps,
	}
	unsaved := append([]ports.Message(nil), seed...)

	for step := 0; step < e.maxSteps; step++ {
		outcome.Steps = step + 1

		assistant, err := e.reason(ctx, msgs)
		if err != nil {
			// The failed step (and any unsaved seed) is deliberately not
			// persisted; history has not advanced and a retry is safe.
			return nil, err
		}

		if err := persist(ctx, append(unsaved, assistant)...); err != nil {
			return nil, fmt.Errorf("persist step: %w", err)
		}
		unsaved = nil
		msgs = append(msgs, assistant)
		outcome.Produced = append(outcome.Produced, assistant)

		// Escalation suspends before any of the batch executes and never
		// produces a tool result of its own.
		if call, ok := assistant.EscalationCall(); ok {
			e.logger.Info("turn suspended on escalation call %s", call.ID)
			span.SetAttributes(attribute.String("agent.stop_reason", string(StopSuspended)))
			outcome.StopReason = StopSuspended
			outcome.PendingCall = call
			return outcome, nil
		}

		if !assistant.HasToolCalls() {
			span.SetAttributes(attribute.String("agent.stop_reason", string(StopCompleted)))
			outcome.StopReason = StopCompleted
			return outcome, nil
		}

		toolMsgs, err := e.act(ctx, assistant.ToolCalls)
		if err != nil {
			return nil, err
		}
		if err := persist(ctx, toolMsgs...); err != nil {
			return nil, fmt.Errorf("persist step: %w", err)
		}
		msgs = append(msgs, toolMsgs...)
		outcome.Produced = append(outcome.Produced, toolMsgs...)
	}

	e.logger.Warn("step budget of %d exhausted before completion", e.maxSteps)
	span.SetAttributes(attribute.String("agent.stop_reason", string(StopMaxSteps)))
	return outcome, nil
}

func (e *Engine) reason(ctx context.Context, msgs []ports.Message) (ports.Message, error) {
	ctx, span := e.tracer.Start(ctx, "agent.reason")
	defer span.End()

	resp, err := e.llm.Complete(ctx, ports.CompletionRequest{
		Messages: msgs,
		Tools:    e.executor.Catalog(),
	})
	if err != nil {
		return ports.Message{}, fmt.Errorf("model invocation: %w", err)
	}

	span.SetAttributes(attribute.Int("agent.tool_calls", len(resp.ToolCalls)))
	return ports.Message{
		Role:      ports.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (e *Engine) act(ctx context.Context, calls []ports.ToolCall) ([]ports.Message, error) {
	ctx, span := e.tracer.Start(ctx, "agent.act",
		trace.WithAttributes(attribute.Int("agent.batch_size", len(calls))))
	defer span.End()

	results := e.executor.ExecuteBatch(ctx, calls)
	return tools.ResultMessages(calls, results), nil
}
