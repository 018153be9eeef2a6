package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJSONRoundTrip(t *testing.T) {
	meta := EventMetadata{ID: uuid.New(), RunID: "run-1", TurnID: "turn-1"}

	tests := []struct {
		name  string
		event Event
	}{
		{"subagent start", NewSubagentStartEvent(meta, "agent_1", "reviewer", "", "check it")},
		{"subagent finish", NewSubagentFinishEvent(meta, "agent_1", "reviewer", true)},
		{"tool call", NewToolCallEvent(meta, ToolCall{ID: "call-1", Name: "read_files", Input: map[string]string{"paths": "a.go"}}, "")},
		{"tool result", NewToolResultEvent(meta, ToolResult{ID: "call-1", Output: []OutputItem{NewTextOutput("ok")}})},
		{"text", NewTextEvent(meta, "hello", "agent_1")},
		{"reasoning delta", NewReasoningDeltaEvent(meta, "hmm", "")},
		{"finish", NewFinishEvent(meta, 1.25)},
		{"interrupt", NewInterruptEvent(meta, "partial")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.event)
			require.NoError(t, err)

			decoded, err := NewEventFromJSON(b)
			require.NoError(t, err)

			assert.Equal(t, tt.event.Type(), decoded.Type())
			assert.Equal(t, meta.RunID, decoded.Metadata().RunID)
			assert.Equal(t, b, decoded.Payload())
			// the decoded value is the concrete type, not a bare impl
			assert.IsType(t, tt.event, decoded)
		})
	}
}

func TestNewEventFromJSONFieldFidelity(t *testing.T) {
	meta := EventMetadata{ID: uuid.New()}
	orig := NewToolCallEvent(meta, ToolCall{
		ID:    "call-9",
		Name:  "run_terminal_command",
		Input: map[string]string{"command": "go vet ./..."},
	}, "agent_7")

	b, err := json.Marshal(orig)
	require.NoError(t, err)
	decoded, err := NewEventFromJSON(b)
	require.NoError(t, err)

	tc, ok := decoded.(*EventToolCall)
	require.True(t, ok)
	assert.Equal(t, orig.ToolCall, tc.ToolCall)
	assert.Equal(t, "agent_7", tc.AgentID)
}

func TestNewEventFromJSONUnknownTypeIsAnError(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{"type":"made-up-type"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "made-up-type")
}

func TestNewEventFromJSONMalformedPayload(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestRegisterEventCodec(t *testing.T) {
	type customEvent struct {
		EventImpl
		Detail string `json:"detail"`
	}
	const customType EventType = "custom-detail"

	require.NoError(t, RegisterEventCodec(customType, func(b []byte) (Event, error) {
		ev := &customEvent{}
		if err := json.Unmarshal(b, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}))
	// double registration is rejected
	assert.Error(t, RegisterEventCodec(customType, func(b []byte) (Event, error) { return nil, nil }))

	decoded, err := NewEventFromJSON([]byte(`{"type":"custom-detail","detail":"hi"}`))
	require.NoError(t, err)
	ce, ok := decoded.(*customEvent)
	require.True(t, ok)
	assert.Equal(t, "hi", ce.Detail)
	assert.NotEmpty(t, ce.Payload())
}

func TestOutputItemErrorMessage(t *testing.T) {
	msg, ok := NewErrorOutput("boom").ErrorMessage()
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)

	_, ok = NewTextOutput("fine").ErrorMessage()
	assert.False(t, ok)

	_, ok = NewJSONOutput(map[string]string{"other": "field"}).ErrorMessage()
	assert.False(t, ok)
}
