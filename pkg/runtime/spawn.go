package runtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/runtime/tools"
)

// SpawnRequest is one entry of a spawn_agents agent list.
type SpawnRequest struct {
	AgentType string         `yaml:"agent_type" json:"agentType"`
	Prompt    string         `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Params    map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// SpawnOutcome is the per-agent element of a spawn_agents tool result.
type SpawnOutcome struct {
	AgentID   string `json:"agentId"`
	AgentType string `json:"agentType"`
	Output    string `json:"output"`
	Success   bool   `json:"success"`
}

// SubagentRunner executes one spawned agent to completion and returns its
// final output. Implementations stream intermediate text themselves by
// publishing events for agentID through the context sinks.
type SubagentRunner interface {
	RunSubagent(ctx context.Context, req SpawnRequest, agentID string) (string, error)
}

// SubagentRunnerFunc adapts a function to the SubagentRunner interface.
type SubagentRunnerFunc func(ctx context.Context, req SpawnRequest, agentID string) (string, error)

func (f SubagentRunnerFunc) RunSubagent(ctx context.Context, req SpawnRequest, agentID string) (string, error) {
	return f(ctx, req, agentID)
}

// rewriteAliasCall turns an agent-as-tool invocation into the canonical
// spawn_agents form with a single-element agent list.
func rewriteAliasCall(call events.ToolCall, agentType string) events.ToolCall {
	req := SpawnRequest{
		AgentType: agentType,
		Prompt:    call.Input["prompt"],
	}
	if len(call.Input) > 0 {
		params := map[string]any{}
		for k, v := range call.Input {
			if k == "prompt" {
				continue
			}
			params[k] = v
		}
		if len(params) > 0 {
			req.Params = params
		}
	}
	agents, err := yaml.Marshal([]SpawnRequest{req})
	if err != nil {
		// leave the call unrewritten; the executor will report the failure
		log.Warn().Err(err).Str("alias", call.Name).Msg("failed to rewrite agent alias")
		return call
	}
	return events.ToolCall{
		ID:    call.ID,
		Name:  tools.ToolSpawnAgents,
		Input: map[string]string{"agents": string(agents)},
	}
}

// spawner executes spawn_agents calls by running each requested sub-agent
// through the configured runner, publishing start/finish events around it.
type spawner struct {
	meta   events.EventMetadata
	runner SubagentRunner
}

func (s *spawner) run(ctx context.Context, call events.ToolCall) events.ToolResult {
	requests, err := parseSpawnRequests(call.Input)
	if err != nil {
		return tools.ErrorResult(call.ID, "invalid spawn_agents input: "+err.Error())
	}
	if len(requests) == 0 {
		return tools.ErrorResult(call.ID, "spawn_agents: empty agent list")
	}
	if s.runner == nil {
		return tools.ErrorResult(call.ID, "spawn_agents: no subagent runner configured")
	}

	output := make([]events.OutputItem, 0, len(requests))
	for _, req := range requests {
		outcome := s.runOne(ctx, req)
		output = append(output, events.NewJSONOutput(outcome))
	}
	return events.ToolResult{ID: call.ID, Output: output}
}

func (s *spawner) runOne(ctx context.Context, req SpawnRequest) SpawnOutcome {
	agentID := "agent_" + uuid.NewString()
	log.Debug().Str("agent_id", agentID).Str("agent_type", req.AgentType).Msg("spawning sub-agent")

	meta := s.meta
	meta.AgentID = agentID
	events.PublishEventToContext(ctx, events.NewSubagentStartEvent(meta, agentID, req.AgentType, s.meta.AgentID, req.Prompt))

	text, err := s.runner.RunSubagent(ctx, req, agentID)
	outcome := SpawnOutcome{
		AgentID:   agentID,
		AgentType: req.AgentType,
		Output:    text,
		Success:   err == nil,
	}
	if err != nil {
		outcome.Output = err.Error()
		log.Debug().Err(err).Str("agent_id", agentID).Msg("sub-agent failed")
	}
	events.PublishEventToContext(ctx, events.NewSubagentFinishEvent(meta, agentID, req.AgentType, err != nil))
	return outcome
}

func parseSpawnRequests(input map[string]string) ([]SpawnRequest, error) {
	var requests []SpawnRequest
	if err := yaml.Unmarshal([]byte(input["agents"]), &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
