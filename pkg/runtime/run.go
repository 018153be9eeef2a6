// Package runtime drives one streamed agent turn: it scans the model stream
// for tool tags, executes them with the ordering guarantees of the
// sequencer, and assembles the resulting message history.
package runtime

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/burattino/pkg/engine"
	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/messages"
	"github.com/go-go-golems/burattino/pkg/runtime/tools"
	"github.com/go-go-golems/burattino/pkg/streamscan"
)

// RunConfig configures one run. The registry and sinks are injected; the
// runtime never reaches for globals.
type RunConfig struct {
	RunID string

	Registry *tools.Registry
	// Spawnable maps agent-as-tool alias names to the agent type they
	// spawn. Invocations of these names are rewritten to spawn_agents.
	Spawnable map[string]string
	Runner    SubagentRunner

	MaxParallelTools int
	ToolTimeout      time.Duration

	Sinks []events.EventSink

	// Prior is the history from earlier turns; step-scoped entries are
	// expired during assembly.
	Prior []messages.Message
}

// RunResult is the outcome of one streamed turn.
type RunResult struct {
	History     []messages.Message
	RootText    string
	Results     []events.ToolResult
	Interrupted bool
}

// Run owns the per-run state. Create one per turn and discard it when the
// turn ends; nothing here is reusable across runs.
type Run struct {
	cfg  RunConfig
	meta events.EventMetadata
}

func NewRun(cfg RunConfig) *Run {
	if cfg.Registry == nil {
		cfg.Registry = tools.NewRegistry()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Run{
		cfg: cfg,
		meta: events.EventMetadata{
			ID:     uuid.New(),
			RunID:  cfg.RunID,
			TurnID: uuid.NewString(),
		},
	}
}

// Execute consumes the stream to completion or abort. Abort is an expected
// outcome: the returned result carries whatever had completed plus the
// interrupted marker, and err stays nil.
func (r *Run) Execute(ctx context.Context, stream engine.Stream) (*RunResult, error) {
	ctx = events.WithEventSinks(ctx, r.cfg.Sinks...)

	scanner := streamscan.NewScanner(streamscan.WithTagPredicate(r.isTag))
	sequencer := newSequencer(ctx, r.meta, r.cfg, &spawner{meta: r.meta, runner: r.cfg.Runner})

	var rootText strings.Builder
	interrupted := false

	handleTokens := func(tokens []streamscan.Token) {
		for _, tok := range tokens {
			switch tok.Kind {
			case streamscan.TokenText:
				if ctx.Err() != nil {
					interrupted = true
					return
				}
				rootText.WriteString(tok.Text)
				events.PublishEventToContext(ctx, events.NewTextEvent(r.meta, tok.Text, ""))
			case streamscan.TokenTag:
				sequencer.Schedule(ctx, tok.Name, tok.Attrs)
			}
		}
	}

readLoop:
	for {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		chunk, err := stream.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			break readLoop
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			interrupted = true
			break readLoop
		case err != nil:
			events.PublishEventToContext(ctx, events.NewErrorEvent(r.meta, err))
			sequencer.Finish(ctx)
			return nil, errors.Wrap(err, "stream read")
		}

		switch chunk.Kind {
		case events.ChunkKindText:
			handleTokens(scanner.Feed(chunk.Text))
		case events.ChunkKindSubagent:
			events.PublishEventToContext(ctx, events.NewTextEvent(r.meta, chunk.Text, chunk.AgentID))
		case events.ChunkKindReasoning:
			events.PublishEventToContext(ctx, events.NewReasoningDeltaEvent(r.meta, chunk.Text, chunk.AgentID))
		default:
			// a chunk kind nobody handles is schema drift, not a runtime condition
			log.Panic().Str("kind", string(chunk.Kind)).Msg("unhandled stream chunk kind")
		}
	}

	if !interrupted {
		handleTokens(scanner.Finish())
	}
	if ctx.Err() != nil {
		interrupted = true
	}

	results := sequencer.Finish(ctx)
	calls := sequencer.CompletedCalls()

	out := messages.TurnOutput{
		Results:     results,
		Interrupted: interrupted,
	}
	callParts := make([]messages.ToolCallPart, 0, len(calls))
	for _, c := range calls {
		callParts = append(callParts, messages.ToolCallPart{ID: c.ID, Name: c.Name, Input: c.Input})
	}
	if rootText.Len() > 0 || len(callParts) > 0 {
		out.Assistant = []messages.Message{messages.NewAssistantMessage(rootText.String(), callParts...)}
	}
	for _, res := range results {
		if res.Error != "" {
			out.Errors = append(out.Errors, res.Error)
		}
	}

	history := messages.Assemble(r.cfg.Prior, out)

	if interrupted {
		log.Debug().Str("run_id", r.cfg.RunID).Int("completed_results", len(results)).Msg("run interrupted")
		events.PublishEventToContext(ctx, events.NewInterruptEvent(r.meta, rootText.String()))
	} else {
		events.PublishEventToContext(ctx, events.NewFinishEvent(r.meta, 0))
	}

	return &RunResult{
		History:     history,
		RootText:    rootText.String(),
		Results:     results,
		Interrupted: interrupted,
	}, nil
}

// isTag decides whether a well-formed tag name is treated as an invocation.
// Builtin and registered names always match; alias names match so they can
// be rewritten to spawn_agents; any other name matches only when a fallback
// handler exists to receive it.
func (r *Run) isTag(name string) bool {
	if r.cfg.Registry.Known(name) {
		return true
	}
	if _, ok := r.cfg.Spawnable[name]; ok {
		return true
	}
	_, hasFallback := r.cfg.Registry.Fallback()
	return hasFallback
}
