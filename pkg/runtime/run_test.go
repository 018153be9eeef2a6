package runtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/burattino/pkg/engine"
	"github.com/go-go-golems/burattino/pkg/events"
	"github.com/go-go-golems/burattino/pkg/messages"
	"github.com/go-go-golems/burattino/pkg/runtime/tools"
)

func TestRunExecuteTextAndToolCall(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&tools.Definition{
		Name: "echo",
		Handler: func(ctx context.Context, input map[string]string) (any, error) {
			return input["message"], nil
		},
	}))

	collector := &eventCollector{}
	run := NewRun(RunConfig{
		Registry: reg,
		Sinks:    []events.EventSink{collector},
		Prior:    []messages.Message{messages.NewUserMessage("say hi")},
	})

	stream := engine.ScriptedTextStream(
		"Hello ",
		"<ec", "ho>\nmessage: hi\n</echo>",
		" bye",
	)
	res, err := run.Execute(context.Background(), stream)
	require.NoError(t, err)

	assert.False(t, res.Interrupted)
	assert.Equal(t, "Hello  bye", res.RootText)
	require.Len(t, res.Results, 1)
	require.Len(t, res.Results[0].Output, 1)
	assert.Equal(t, "hi", res.Results[0].Output[0].Text)

	// user, assistant with the call part, tool result
	require.Len(t, res.History, 3)
	assert.Equal(t, messages.RoleUser, res.History[0].Role)
	assistant := res.History[1]
	assert.Equal(t, messages.RoleAssistant, assistant.Role)
	assert.Equal(t, "Hello  bye", assistant.Content)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "echo", assistant.ToolCalls[0].Name)
	assert.Equal(t, messages.RoleTool, res.History[2].Role)
	require.NoError(t, messages.ValidateOrdering(res.History))

	types := collector.types()
	require.NotEmpty(t, types)
	assert.Equal(t, events.EventTypeFinish, types[len(types)-1])
	assert.NotEmpty(t, collector.ofType(events.EventTypeText))
	assert.Len(t, collector.ofType(events.EventTypeToolCall), 1)
	assert.Len(t, collector.ofType(events.EventTypeToolResult), 1)
}

func TestRunExecuteUnknownTagStaysText(t *testing.T) {
	run := NewRun(RunConfig{Registry: tools.NewRegistry()})

	stream := engine.ScriptedTextStream("look: <something_else>\nx: 1\n</something_else> done")
	res, err := run.Execute(context.Background(), stream)
	require.NoError(t, err)

	assert.Empty(t, res.Results)
	assert.Equal(t, "look: <something_else>\nx: 1\n</something_else> done", res.RootText)
}

func TestRunExecuteFallbackCatchesUnknownTags(t *testing.T) {
	reg := tools.NewRegistry()
	reg.SetFallback(func(ctx context.Context, input map[string]string) (any, error) {
		return "handled", nil
	})
	run := NewRun(RunConfig{Registry: reg})

	stream := engine.ScriptedTextStream("<custom_thing>\nx: 1\n</custom_thing>")
	res, err := run.Execute(context.Background(), stream)
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.Equal(t, "handled", res.Results[0].Output[0].Text)
}

func TestRunExecuteSpawnAgents(t *testing.T) {
	runner := SubagentRunnerFunc(func(ctx context.Context, req SpawnRequest, agentID string) (string, error) {
		events.PublishEventToContext(ctx, events.NewTextEvent(events.EventMetadata{}, "digging...", agentID))
		return "findings for: " + req.Prompt, nil
	})
	collector := &eventCollector{}
	run := NewRun(RunConfig{
		Registry: tools.NewRegistry(),
		Runner:   runner,
		Sinks:    []events.EventSink{collector},
	})

	stream := engine.ScriptedTextStream(
		"Spawning.\n",
		"<spawn_agents>\nagents:\n  - agent_type: researcher\n    prompt: dig in\n</spawn_agents>",
	)
	res, err := run.Execute(context.Background(), stream)
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	require.Len(t, res.Results[0].Output, 1)
	item := res.Results[0].Output[0]
	require.Equal(t, "json", item.Type)
	var outcome SpawnOutcome
	require.NoError(t, json.Unmarshal(item.Value, &outcome))
	assert.Equal(t, "researcher", outcome.AgentType)
	assert.Equal(t, "findings for: dig in", outcome.Output)
	assert.True(t, outcome.Success)
	assert.NotEmpty(t, outcome.AgentID)

	starts := collector.ofType(events.EventTypeSubagentStart)
	require.Len(t, starts, 1)
	assert.Equal(t, outcome.AgentID, starts[0].(*events.EventSubagentStart).AgentID)
	require.Len(t, collector.ofType(events.EventTypeSubagentFinish), 1)

	// the sub-agent's streamed text carries its agent id
	var subText []*events.EventText
	for _, ev := range collector.ofType(events.EventTypeText) {
		te := ev.(*events.EventText)
		if te.AgentID != "" {
			subText = append(subText, te)
		}
	}
	require.Len(t, subText, 1)
	assert.Equal(t, outcome.AgentID, subText[0].AgentID)
}

func TestRunExecuteInterrupted(t *testing.T) {
	collector := &eventCollector{}
	run := NewRun(RunConfig{
		Registry: tools.NewRegistry(),
		Sinks:    []events.EventSink{collector},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream := engine.ScriptedTextStream("never read")
	res, err := run.Execute(ctx, stream)
	require.NoError(t, err)

	assert.True(t, res.Interrupted)
	assert.Empty(t, res.Results)
	require.NotEmpty(t, res.History)
	last := res.History[len(res.History)-1]
	assert.Equal(t, messages.RoleSystem, last.Role)
	assert.Equal(t, messages.InterruptedMarker, last.Content)

	require.Len(t, collector.ofType(events.EventTypeInterrupt), 1)
	assert.Empty(t, collector.ofType(events.EventTypeFinish))
}

func TestRunExecuteUnterminatedTagIsText(t *testing.T) {
	run := NewRun(RunConfig{Registry: tools.NewRegistry()})

	stream := engine.ScriptedTextStream("start <read_files>\npaths: a.go\n")
	res, err := run.Execute(context.Background(), stream)
	require.NoError(t, err)

	assert.Empty(t, res.Results)
	assert.Equal(t, "start <read_files>\npaths: a.go\n", res.RootText)
}
