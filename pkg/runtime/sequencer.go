package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/runtime/tools"
)

// scheduledCall is one invocation moving through the sequencer. done is
// closed once result is populated.
type scheduledCall struct {
	call   events.ToolCall
	done   chan struct{}
	result events.ToolResult
}

// Sequencer executes tool calls without blocking the stream read loop while
// guaranteeing that results are spliced into history in invocation order.
//
// Schedule never waits: every call gets its own goroutine immediately and
// contends for an execution slot on a semaphore inside it, so a saturated
// worker pool delays execution but never the scanning of subsequent text.
// Ordering comes from the per-run call list that a single drain goroutine
// consumes front to back: call N's result is appended only after call N-1's
// has been, even when N finishes first.
type Sequencer struct {
	meta      events.EventMetadata
	executor  *tools.Executor
	registry  *tools.Registry
	spawnable map[string]string
	spawner   *spawner

	group *errgroup.Group
	// sem bounds how many calls execute concurrently
	sem chan struct{}

	drainDone chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	closed  bool
	calls   []*scheduledCall
	results []events.ToolResult
}

func newSequencer(ctx context.Context, meta events.EventMetadata, cfg RunConfig, spawner *spawner) *Sequencer {
	maxParallel := cfg.MaxParallelTools
	if maxParallel <= 0 {
		maxParallel = 3
	}

	s := &Sequencer{
		meta:      meta,
		executor:  tools.NewExecutor(cfg.ToolTimeout),
		registry:  cfg.Registry,
		spawnable: cfg.Spawnable,
		spawner:   spawner,
		group:     &errgroup.Group{},
		sem:       make(chan struct{}, maxParallel),
		drainDone: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.drain(ctx)
	return s
}

// Schedule enqueues one recognized invocation and returns immediately. If the
// abort signal is already set the call is skipped entirely: no result is
// synthesized and no event is published.
func (s *Sequencer) Schedule(ctx context.Context, name string, attrs map[string]string) {
	if ctx.Err() != nil {
		log.Debug().Str("tool", name).Msg("abort observed; skipping tool call")
		return
	}

	call := events.ToolCall{
		ID:    "toolu_" + uuid.NewString(),
		Name:  name,
		Input: attrs,
	}

	// An agent-as-tool alias becomes a canonical spawn_agents invocation
	// with a single-element agent list, not an arbitrary custom tool.
	if target, ok := s.spawnable[name]; ok {
		call = rewriteAliasCall(call, target)
	}

	events.PublishEventToContext(ctx, events.NewToolCallEvent(s.meta, call, s.meta.AgentID))

	sc := &scheduledCall{call: call, done: make(chan struct{})}
	s.mu.Lock()
	s.calls = append(s.calls, sc)
	s.mu.Unlock()
	s.cond.Signal()

	s.group.Go(func() error {
		defer close(sc.done)
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			sc.result = tools.ErrorResult(call.ID, ctx.Err().Error())
			return nil
		}
		defer func() { <-s.sem }()
		if call.Name == tools.ToolSpawnAgents {
			sc.result = s.spawner.run(ctx, call)
			return nil
		}
		sc.result = s.executor.Execute(ctx, call, s.registry)
		return nil
	})
}

// drain is the single consumer of the call list. It waits for each call's
// result in invocation order and splices it into the result list and event
// stream. On abort it keeps splicing results that had already completed and
// stops at the first call still in flight.
func (s *Sequencer) drain(ctx context.Context) {
	defer close(s.drainDone)
	for i := 0; ; i++ {
		sc, ok := s.nextCall(i)
		if !ok {
			return
		}
		select {
		case <-sc.done:
		case <-ctx.Done():
			select {
			case <-sc.done:
			default:
				log.Debug().Str("tool_call_id", sc.call.ID).Msg("abort observed; dropping in-flight tool call from history")
				return
			}
		}
		s.mu.Lock()
		s.results = append(s.results, sc.result)
		s.mu.Unlock()
		events.PublishEventToContext(ctx, events.NewToolResultEvent(s.meta, sc.result))
	}
}

// nextCall blocks until the i-th scheduled call exists or the sequencer is
// finished with fewer calls.
func (s *Sequencer) nextCall(i int) (*scheduledCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i >= len(s.calls) && !s.closed {
		s.cond.Wait()
	}
	if i < len(s.calls) {
		return s.calls[i], true
	}
	return nil, false
}

// Finish closes intake, waits for the drain to settle and returns the
// spliced results in invocation order. After an abort the returned slice is
// the completed prefix; remaining work is left to unwind on its own.
func (s *Sequencer) Finish(ctx context.Context) []events.ToolResult {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	<-s.drainDone
	if ctx.Err() == nil {
		// all calls have been drained; their goroutines are done
		_ = s.group.Wait()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.ToolResult, len(s.results))
	copy(out, s.results)
	return out
}

// CompletedCalls returns the scheduled calls whose results made it into
// history, in invocation order.
func (s *Sequencer) CompletedCalls() []events.ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.ToolCall, 0, len(s.results))
	for i := range s.calls {
		if i >= len(s.results) {
			break
		}
		out = append(out, s.calls[i].call)
	}
	return out
}
