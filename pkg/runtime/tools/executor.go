package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/burattino/pkg/events"
)

// Executor runs tool calls. Every failure mode — unknown tool, handler error,
// panic, timeout — becomes an error-bearing result; callers never see a
// raised error from Execute.
type Executor struct {
	timeout time.Duration
}

// NewExecutor returns an executor applying the given per-call timeout.
// A zero timeout disables the limit.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute runs one tool call against the registry and returns its result.
func (e *Executor) Execute(ctx context.Context, call events.ToolCall, registry *Registry) events.ToolResult {
	start := time.Now()
	log.Debug().Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("executing tool")

	handler := e.resolve(call.Name, registry)
	if handler == nil {
		return errorResult(call.ID, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	execCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	value, err := e.run(execCtx, handler, call.Input)
	if err != nil {
		log.Debug().Err(err).Str("tool", call.Name).Dur("duration", time.Since(start)).Msg("tool execution failed")
		return errorResult(call.ID, err.Error())
	}

	log.Debug().Str("tool", call.Name).Dur("duration", time.Since(start)).Msg("tool execution done")
	return events.ToolResult{ID: call.ID, Output: []events.OutputItem{outputItem(value)}}
}

func (e *Executor) resolve(name string, registry *Registry) Handler {
	if def, ok := registry.Get(name); ok {
		return def.Handler
	}
	if fallback, ok := registry.Fallback(); ok {
		return fallback
	}
	return nil
}

// run invokes the handler, turning panics into errors so a misbehaving tool
// cannot take down the run.
func (e *Executor) run(ctx context.Context, handler Handler, input map[string]string) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return handler(ctx, input)
}

func outputItem(value any) events.OutputItem {
	switch v := value.(type) {
	case nil:
		return events.NewTextOutput("")
	case string:
		return events.NewTextOutput(v)
	default:
		return events.NewJSONOutput(v)
	}
}

func errorResult(id, message string) events.ToolResult {
	return events.ToolResult{
		ID:     id,
		Output: []events.OutputItem{events.NewErrorOutput(message)},
		Error:  message,
	}
}

// ErrorResult exposes the error-shaped result for callers that synthesize
// failures outside the executor (e.g. the sequencer's alias rewrite).
func ErrorResult(id, message string) events.ToolResult {
	return errorResult(id, message)
}
