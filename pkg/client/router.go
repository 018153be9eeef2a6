// Package client reconstructs the hierarchical block tree of a run from its
// flat lifecycle event stream. Events may arrive out of order, duplicated,
// or referencing blocks that do not exist yet; every handler degrades to a
// safe default instead of corrupting the tree.
package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/burattino/pkg/blocks"
	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/textmerge"
)

// hiddenTools are internal bookkeeping tools that never get a block.
var hiddenTools = map[string]struct{}{
	"set_messages": {},
	"add_message":  {},
	"set_output":   {},
	"end_turn":     {},
}

// Router consumes lifecycle events and mutates the block tree. It owns all
// per-run client state: the tree, the spawn placeholder map, the
// per-destination text accumulators and the active agent set. One goroutine
// consumes events; mutations are applied strictly in arrival order.
type Router struct {
	tree *blocks.Tree

	placeholders     map[string]spawnPlaceholder
	placeholderOrder []string
	// spawnCalls remembers which tool call ids were spawn_agents
	spawnCalls map[string][]string

	// accumulators hold the full text emitted so far per destination,
	// used solely to compute deltas for incoming fragments
	accumulators map[string]string
	// textBlocks maps a destination to the block currently receiving its text
	textBlocks map[string]string

	active map[string]struct{}

	finished  bool
	totalCost float64
}

func NewRouter() *Router {
	return &Router{
		tree:         blocks.NewTree(),
		placeholders: map[string]spawnPlaceholder{},
		spawnCalls:   map[string][]string{},
		accumulators: map[string]string{},
		textBlocks:   map[string]string{},
		active:       map[string]struct{}{},
	}
}

// Tree exposes the reconstructed block tree.
func (r *Router) Tree() *blocks.Tree { return r.tree }

// ActiveAgents returns the ids of sub-agents that have started but not yet
// finished.
func (r *Router) ActiveAgents() []string {
	out := make([]string, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	return out
}

// Finished reports whether a finish event has been observed.
func (r *Router) Finished() bool { return r.finished }

// TotalCost returns the cost reported by the finish event, if any.
func (r *Router) TotalCost() float64 { return r.totalCost }

// Handle dispatches one event to its tree mutation. The switch is
// exhaustive over the wire union; an event type it does not know indicates
// schema drift and fails loudly instead of being swallowed.
func (r *Router) Handle(ev events.Event) {
	switch e := ev.(type) {
	case *events.EventSubagentStart:
		r.handleSubagentStart(e)
	case *events.EventSubagentFinish:
		r.handleSubagentFinish(e)
	case *events.EventToolCall:
		r.handleToolCall(e)
	case *events.EventToolResult:
		r.handleToolResult(e)
	case *events.EventText:
		r.handleText(e.AgentID, e.Text, blocks.TextTypeOutput)
	case *events.EventReasoningDelta:
		r.handleText("reasoning\x00"+e.AgentID, e.Text, blocks.TextTypeReasoning)
	case *events.EventFinish:
		r.finished = true
		r.totalCost = e.TotalCost
	case *events.EventError:
		r.tree.AppendRoot(blocks.NewTextBlock(e.ErrorString, blocks.TextTypeError))
	case *events.EventInterrupt:
		r.handleInterrupt()
	default:
		panic(fmt.Sprintf("client: unhandled event type %q", ev.Type()))
	}
}

// handleSubagentStart promotes a matching placeholder to the real agent id,
// or creates a fresh agent block when no placeholder matches. A missing
// parent degrades to top-level placement; the agent is never dropped.
func (r *Router) handleSubagentStart(e *events.EventSubagentStart) {
	if _, exists := r.tree.Get(e.AgentID); exists {
		log.Debug().Str("agent_id", e.AgentID).Msg("duplicate subagent start ignored")
		r.active[e.AgentID] = struct{}{}
		return
	}

	if ph, ok := r.matchPlaceholder(e.AgentType); ok {
		r.removePlaceholder(ph.Key)
		if r.tree.Rename(ph.Key, e.AgentID) {
			if b, ok := r.tree.Get(e.AgentID); ok {
				b.AgentType = e.AgentType
				if e.Prompt != "" {
					b.InitialPrompt = e.Prompt
				}
			}
			// a placeholder already sitting under its spawn call's parent or
			// agent-list group stays where it is
			if _, nested := r.tree.Parent(e.AgentID); !nested && e.ParentAgentID != "" {
				if _, found := r.tree.Get(e.ParentAgentID); found {
					r.tree.Reparent(e.AgentID, e.ParentAgentID)
				}
			}
			r.active[e.AgentID] = struct{}{}
			return
		}
		// rename failed; fall through to fresh creation
	}

	b := blocks.NewAgentBlock(e.AgentID, e.AgentType, e.Prompt)
	r.tree.AppendChild(e.ParentAgentID, b)
	r.active[e.AgentID] = struct{}{}
}

func (r *Router) handleSubagentFinish(e *events.EventSubagentFinish) {
	status := blocks.StatusComplete
	if e.Failed {
		status = blocks.StatusFailed
	}
	r.tree.SetStatus(e.AgentID, status)
	delete(r.accumulators, e.AgentID)
	delete(r.textBlocks, e.AgentID)
	delete(r.accumulators, "reasoning\x00"+e.AgentID)
	delete(r.textBlocks, "reasoning\x00"+e.AgentID)
	delete(r.active, e.AgentID)
}

func (r *Router) handleToolCall(e *events.EventToolCall) {
	call := e.ToolCall

	if call.Name == "spawn_agents" {
		r.registerSpawnPlaceholders(e)
		return
	}
	if _, hidden := hiddenTools[call.Name]; hidden {
		log.Debug().Str("tool", call.Name).Msg("suppressing hidden tool block")
		return
	}
	if _, exists := r.tree.FindTool(call.ID); exists {
		log.Debug().Str("tool_call_id", call.ID).Msg("duplicate tool call ignored")
		return
	}
	b := blocks.NewToolBlock(call.ID, call.Name, call.Input, e.AgentID)
	r.tree.AppendChild(e.AgentID, b)
}

// registerSpawnPlaceholders creates one placeholder agent block per listed
// sub-agent so the tree shows pending agents before the runtime confirms
// their identities. A call spawning several agents gets an agent-list block
// grouping the placeholders; a single spawn nests directly.
func (r *Router) registerSpawnPlaceholders(e *events.EventToolCall) {
	if _, dup := r.spawnCalls[e.ToolCall.ID]; dup {
		log.Debug().Str("tool_call_id", e.ToolCall.ID).Msg("duplicate spawn call ignored")
		return
	}
	requests := parseSpawnList(e.ToolCall.Input["agents"])
	if len(requests) == 0 {
		log.Warn().Str("tool_call_id", e.ToolCall.ID).Msg("spawn_agents call without a parseable agent list")
		return
	}

	parentID := e.AgentID
	var list *blocks.Block
	if len(requests) > 1 {
		list = blocks.NewAgentListBlock(nil)
		r.tree.AppendChild(e.AgentID, list)
		parentID = list.ID
	}

	keys := make([]string, 0, len(requests))
	for i, req := range requests {
		key := e.ToolCall.ID + "-" + strconv.Itoa(i)
		r.placeholders[key] = spawnPlaceholder{Key: key, Index: i, AgentType: req.AgentType}
		r.placeholderOrder = append(r.placeholderOrder, key)

		b := blocks.NewAgentBlock(key, req.AgentType, req.Prompt)
		r.tree.AppendChild(parentID, b)
		keys = append(keys, key)
	}
	if list != nil {
		list.Agents = append([]string{}, keys...)
	}
	r.spawnCalls[e.ToolCall.ID] = keys
}

func (r *Router) handleToolResult(e *events.EventToolResult) {
	if keys, isSpawn := r.spawnCalls[e.ToolResult.ID]; isSpawn {
		r.attachSpawnResults(e.ToolResult, keys)
		return
	}

	b, ok := r.tree.FindTool(e.ToolResult.ID)
	if !ok {
		log.Warn().Str("tool_call_id", e.ToolResult.ID).Msg("tool result without a matching block")
		return
	}
	b.Output = formatOutput(e.ToolResult)
	b.HasOutput = true
}

// attachSpawnResults folds each sub-agent's final output back into its agent
// block: the block's children are replaced with a single text block and its
// status reflects the outcome.
func (r *Router) attachSpawnResults(result events.ToolResult, keys []string) {
	for i, item := range result.Output {
		var outcome struct {
			AgentID string `json:"agentId"`
			Output  string `json:"output"`
			Success bool   `json:"success"`
		}
		if item.Type != "json" || json.Unmarshal(item.Value, &outcome) != nil {
			log.Warn().Int("index", i).Msg("unparseable spawn outcome; skipping")
			continue
		}

		// the placeholder may already be promoted to the real agent id
		targetID := outcome.AgentID
		if _, ok := r.tree.Get(targetID); !ok && i < len(keys) {
			targetID = keys[i]
		}
		if _, ok := r.tree.Get(targetID); !ok {
			log.Warn().Str("agent_id", outcome.AgentID).Msg("spawn outcome without a matching agent block")
			continue
		}

		r.tree.ReplaceChildren(targetID, blocks.NewTextBlock(outcome.Output, blocks.TextTypeOutput))
		status := blocks.StatusComplete
		if !outcome.Success {
			status = blocks.StatusFailed
		}
		r.tree.SetStatus(targetID, status)
		if i < len(keys) {
			r.removePlaceholder(keys[i])
		}
	}
}

// handleText merges a fragment into the destination's accumulator and
// appends only the computed delta to the destination's current text block.
func (r *Router) handleText(dest, fragment, textType string) {
	merged := textmerge.Merge(r.accumulators[dest], fragment)
	r.accumulators[dest] = merged.Next
	if merged.Delta == "" {
		return
	}

	if id, ok := r.textBlocks[dest]; ok {
		if r.tree.AppendTextContent(id, merged.Delta) {
			return
		}
		// the block went away (e.g. spawn result replaced it); fall through
		delete(r.textBlocks, dest)
	}

	b := blocks.NewTextBlock(merged.Delta, textType)
	agentID := strings.TrimPrefix(dest, "reasoning\x00")
	r.tree.AppendChild(agentID, b)
	r.textBlocks[dest] = b.ID
}

// handleInterrupt appends the interrupted notice to the last visible root
// text segment, creating one if the run produced no text.
func (r *Router) handleInterrupt() {
	if b, ok := r.tree.LastTextChild(""); ok {
		b.Content += "\n\n[interrupted]"
		return
	}
	r.tree.AppendRoot(blocks.NewTextBlock("[interrupted]", blocks.TextTypeOutput))
}

// formatOutput renders a tool result for display: text items verbatim,
// json items compact, errors prefixed.
func formatOutput(result events.ToolResult) string {
	var parts []string
	for _, item := range result.Output {
		if msg, isErr := item.ErrorMessage(); isErr {
			parts = append(parts, "Error: "+msg)
			continue
		}
		switch item.Type {
		case "text":
			parts = append(parts, item.Text)
		case "json":
			parts = append(parts, string(item.Value))
		default:
			log.Warn().Str("type", item.Type).Msg("unknown tool output item type")
		}
	}
	if len(parts) == 0 && result.Error != "" {
		parts = append(parts, "Error: "+result.Error)
	}
	return strings.Join(parts, "\n")
}

// parseSpawnList decodes the agents attribute of a spawn_agents call. The
// wire format is YAML, matching the tag attribute encoding.
func parseSpawnList(agents string) []struct {
	AgentType string `yaml:"agent_type"`
	Prompt    string `yaml:"prompt"`
} {
	var requests []struct {
		AgentType string `yaml:"agent_type"`
		Prompt    string `yaml:"prompt"`
	}
	if err := yaml.Unmarshal([]byte(agents), &requests); err != nil {
		log.Warn().Err(err).Msg("failed to decode spawn agent list")
		return nil
	}
	return requests
}
