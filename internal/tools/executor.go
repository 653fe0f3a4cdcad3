package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parley/internal/agent/ports"
	"parley/internal/logging"
)

// Executor runs tool call batches against a registry. Tool failures are
// folded into result content instead of aborting the batch, so the model
// can see what went wrong and react.
type Executor struct {
	registry    ports.ToolRegistry
	logger      logging.Logger
	callTimeout time.Duration
	parallelism int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithCallTimeout bounds each individual tool invocation.
func WithCallTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.callTimeout = d }
}

// WithParallelism caps the number of tool calls running concurrently
// within one batch.
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) { e.parallelism = n }
}

// WithLogger sets the executor's logger.
func WithLogger(logger logging.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

func NewExecutor(registry ports.ToolRegistry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:    registry,
		logger:      logging.Nop(),
		callTimeout: 30 * time.Second,
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = 1
	}
	return e
}

// Catalog returns the tool definitions advertised to the model.
func (e *Executor) Catalog() []ports.ToolDefinition {
	return e.registry.List()
}

// ExecuteBatch runs every call in the batch and returns one result per
// call, reassembled in the original call order. Sibling calls within a
// batch have no ordering dependency and run concurrently up to the
// configured parallelism.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []ports.ToolCall) []ports.ToolResult {
	results := make([]ports.ToolResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	workers := e.parallelism
	if workers > len(calls) {
		workers = len(calls)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = e.executeOne(ctx, calls[idx])
			}
		}()
	}
	for i := range calls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (e *Executor) executeOne(ctx context.Context, call ports.ToolCall) ports.ToolResult {
	start := time.Now()

	tool, err := e.registry.Get(call.Name)
	if err != nil {
		e.logger.Warn("unknown tool requested: %s", call.Name)
		toolExecutions.WithLabelValues(call.Name, "unknown").Inc()
		return ports.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("unknown tool: %s", call.Name),
			Error:   err,
		}
	}

	callCtx := ctx
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	result, err := tool.Execute(callCtx, call)
	toolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("tool %s failed: %v", call.Name, err)
		toolExecutions.WithLabelValues(call.Name, "error").Inc()
		return ports.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("error invoking tool: %v", err),
			Error:   err,
		}
	}
	if result == nil {
		result = &ports.ToolResult{}
	}
	if result.CallID == "" {
		result.CallID = call.ID
	}
	if result.Error != nil {
		e.logger.Warn("tool %s reported error: %v", call.Name, result.Error)
		toolExecutions.WithLabelValues(call.Name, "error").Inc()
		if result.Content == "" {
			result.Content = fmt.Sprintf("error invoking tool: %v", result.Error)
		}
		return *result
	}

	toolExecutions.WithLabelValues(call.Name, "ok").Inc()
	e.logger.Debug("tool %s completed in %s", call.Name, time.Since(start))
	return *result
}

// ResultMessages converts a call batch and its results into the tool
// messages appended to conversation history, preserving call order.
func ResultMessages(calls []ports.ToolCall, results []ports.ToolResult) []ports.Message {
	msgs := make([]ports.Message, 0, len(results))
	for i, res := range results {
		var name string
		if i < len(calls) {
			name = calls[i].Name
		}
		msgs = append(msgs, ports.Message{
			Role:       ports.RoleTool,
			Content:    res.Content,
			ToolCallID: res.CallID,
			ToolName:   name,
			Timestamp:  time.Now().UTC(),
		})
	}
	return msgs
}
