package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parley/internal/agent/ports"
	"parley/internal/history"
	"parley/internal/logging"
	"parley/internal/utils/id"
)

// TurnRequest is one inbound user message for a session.
type TurnRequest struct {
	// SessionID selects the conversation; empty starts a new session.
	SessionID string
	// Input is the user's text. When the session is suspended on an
	// escalation, it is reinterpreted as the human's answer.
	Input string
	// Attachments travel opaquely on the user message.
	Attachments []ports.Attachment
	// ResumeCallID optionally pins the escalation call this input answers.
	// When set it must match the session's pending call.
	ResumeCallID string
}

// TurnResult is the caller-facing outcome of one turn.
type TurnResult struct {
	SessionID       string        `json:"session_id"`
	FinalText       string        `json:"final_text"`
	ResourceURLs    []string      `json:"resource_urls"`
	ImageURLs       []string      `json:"image_urls"`
	PendingQuestion string        `json:"pending_question,omitempty"`
	PendingCallID   string        `json:"pending_call_id,omitempty"`
	StopReason      StopReason    `json:"stop_reason"`
	Steps           int           `json:"steps"`
	Duration        time.Duration `json:"duration"`
}

// Suspended reports whether the turn ended waiting on a human answer.
func (r *TurnResult) Suspended() bool {
	return r.StopReason == StopSuspended
}

// Coordinator wires the history manager, the engine, and the response
// assembler into the caller-facing turn API. Turns for different sessions
// are independent and may run concurrently; the session store is the only
// shared resource.
type Coordinator struct {
	history *history.Manager
	engine  *Engine
	logger  logging.Logger
	tracer  trace.Tracer
}

func NewCoordinator(historyManager *history.Manager, engine *Engine, logger logging.Logger) *Coordinator {
	return &Coordinator{
		history: historyManager,
		engine:  engine,
		logger:  logging.OrNop(logger),
		tracer:  otel.Tracer("parley/agent"),
	}
}

// ProcessTurn drives one inbound message to completion or suspension.
func (c *Coordinator) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()
	turnID := id.NewTurnID()
	ctx, span := c.tracer.Start(ctx, "agent.turn")
	defer span.End()
	span.SetAttributes(attribute.String("turn.id", turnID))

	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrEmptyInput
	}
	if req.ResumeCallID != "" && req.SessionID == "" {
		return nil, fmt.Errorf("%w: no session to resume", ErrInvalidResume)
	}

	sess, err := c.history.Load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	pending, resuming := history.PendingEscalation(sess)
	if req.ResumeCallID != "" && (!resuming || pending.ID != req.ResumeCallID) {
		return nil, fmt.Errorf("%w: call %s is not pending", ErrInvalidResume, req.ResumeCallID)
	}

	var seed ports.Message
	if resuming {
		// The inbound input answers the outstanding escalation; it becomes
		// the tool result for that call, not a fresh user message.
		seed = ports.Message{
			Role:       ports.RoleTool,
			Content:    req.Input,
			ToolCallID: pending.ID,
			ToolName:   ports.EscalationTool,
			Timestamp:  time.Now().UTC(),
		}
		c.logger.Info("session %s resuming escalation call %s", sess.ID, pending.ID)
	} else {
		seed = ports.Message{
			Role:        ports.RoleUser,
			Content:     req.Input,
			Attachments: req.Attachments,
			Timestamp:   time.Now().UTC(),
		}
	}

	window := c.history.Window(sess.Messages)
	prompt := make([]ports.Message, 0, len(window)+2)
	prompt = append(prompt, ports.Message{Role: ports.RoleSystem, Content: systemPrompt})
	prompt = append(prompt, window...)
	prompt = append(prompt, seed)

	persist := func(ctx context.Context, msgs ...ports.Message) error {
		return c.history.AppendStep(ctx, sess.ID, msgs...)
	}

	outcome, err := c.engine.Run(ctx, prompt, []ports.Message{seed}, persist)
	if err != nil {
		c.logger.Error("turn failed for session %s: %v", sess.ID, err)
		return nil, fmt.Errorf("process turn for session %s: %w", sess.ID, err)
	}

	switch {
	case outcome.StopReason == StopSuspended:
		if err := c.history.MarkSuspended(ctx, sess.ID, outcome.PendingCall.ID); err != nil {
			return nil, err
		}
	case resuming:
		if err := c.history.ClearSuspended(ctx, sess.ID); err != nil {
			return nil, err
		}
	}

	assembly := Assemble(outcome.Produced)
	result := &TurnResult{
		SessionID:       sess.ID,
		FinalText:       assembly.FinalText,
		ResourceURLs:    assembly.ResourceURLs,
		ImageURLs:       assembly.ImageURLs,
		PendingQuestion: assembly.PendingQuestion,
		StopReason:      outcome.StopReason,
		Steps:           outcome.Steps,
		Duration:        time.Since(start),
	}
	if outcome.StopReason == StopSuspended {
		result.PendingCallID = outcome.PendingCall.ID
	}
	if outcome.StopReason == StopMaxSteps && strings.TrimSpace(result.FinalText) == "" {
		result.FinalText = FallbackAnswer
	}

	turnsTotal.WithLabelValues(string(result.StopReason)).Inc()
	turnDuration.Observe(result.Duration.Seconds())
	turnSteps.Observe(float64(result.Steps))

	c.logger.Info("session %s %s done: %s in %d step(s), %s",
		sess.ID, turnID, result.StopReason, result.Steps, result.Duration.Round(time.Millisecond))
	return result, nil
}
