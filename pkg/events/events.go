package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type EventType string

const (
	// Lifecycle of a sub-agent spawned during a run
	EventTypeSubagentStart  EventType = "subagent-start"
	EventTypeSubagentFinish EventType = "subagent-finish"

	// Tool invocation recognized in the stream, and its execution result
	EventTypeToolCall   EventType = "tool-call"
	EventTypeToolResult EventType = "tool-result"

	// Streamed text fragments; destination is carried explicitly on the event
	EventTypeText           EventType = "text"
	EventTypeReasoningDelta EventType = "reasoning-delta"

	EventTypeFinish    EventType = "finish"
	EventTypeError     EventType = "error"
	EventTypeInterrupt EventType = "interrupt"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON the event was decoded from, if any
	payload []byte
}

func (e *EventImpl) Type() EventType         { return e.Type_ }
func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }
func (e *EventImpl) Payload() []byte         { return e.payload }

// SetPayload stores the raw JSON payload on the event implementation.
// Used by NewEventFromJSON and external decoders.
func (e *EventImpl) SetPayload(b []byte) { e.payload = b }

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

// EventSubagentStart announces that a spawned sub-agent has started running.
// ParentAgentID is empty for agents spawned by the root stream.
type EventSubagentStart struct {
	EventImpl
	AgentID       string         `json:"agent_id"`
	AgentType     string         `json:"agent_type"`
	ParentAgentID string         `json:"parent_agent_id,omitempty"`
	Prompt        string         `json:"prompt,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
}

func NewSubagentStartEvent(metadata EventMetadata, agentID, agentType, parentAgentID, prompt string) *EventSubagentStart {
	return &EventSubagentStart{
		EventImpl:     EventImpl{Type_: EventTypeSubagentStart, Metadata_: metadata},
		AgentID:       agentID,
		AgentType:     agentType,
		ParentAgentID: parentAgentID,
		Prompt:        prompt,
	}
}

var _ Event = &EventSubagentStart{}

type EventSubagentFinish struct {
	EventImpl
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type"`
	Failed    bool   `json:"failed,omitempty"`
}

func NewSubagentFinishEvent(metadata EventMetadata, agentID, agentType string, failed bool) *EventSubagentFinish {
	return &EventSubagentFinish{
		EventImpl: EventImpl{Type_: EventTypeSubagentFinish, Metadata_: metadata},
		AgentID:   agentID,
		AgentType: agentType,
		Failed:    failed,
	}
}

var _ Event = &EventSubagentFinish{}

// ToolCall describes a single tool invocation recognized in the stream.
// Input holds the string-valued attributes of the tag body.
type ToolCall struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Input map[string]string `json:"input,omitempty"`
}

type EventToolCall struct {
	EventImpl
	ToolCall      ToolCall `json:"tool_call"`
	AgentID       string   `json:"agent_id,omitempty"`
	ParentAgentID string   `json:"parent_agent_id,omitempty"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall, agentID string) *EventToolCall {
	return &EventToolCall{
		EventImpl: EventImpl{Type_: EventTypeToolCall, Metadata_: metadata},
		ToolCall:  toolCall,
		AgentID:   agentID,
	}
}

var _ Event = &EventToolCall{}

// OutputItem is one element of a tool result. Type is either "json" or "text".
type OutputItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
	Text  string          `json:"text,omitempty"`
}

// NewTextOutput wraps plain text as a tool output element.
func NewTextOutput(text string) OutputItem {
	return OutputItem{Type: "text", Text: text}
}

// NewJSONOutput wraps a JSON-serializable value as a tool output element.
// Marshal failures degrade to a text element so a result is never lost.
func NewJSONOutput(value any) OutputItem {
	b, err := json.Marshal(value)
	if err != nil {
		return NewTextOutput("unserializable tool output")
	}
	return OutputItem{Type: "json", Value: b}
}

// NewErrorOutput encodes a tool failure as a result element. Errors cross the
// event boundary as data, never as a raised error.
func NewErrorOutput(message string) OutputItem {
	return NewJSONOutput(map[string]string{"errorMessage": message})
}

// ErrorMessage returns the errorMessage carried by a json output element, if any.
func (o OutputItem) ErrorMessage() (string, bool) {
	if o.Type != "json" || len(o.Value) == 0 {
		return "", false
	}
	var payload struct {
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(o.Value, &payload); err != nil {
		return "", false
	}
	if payload.ErrorMessage == "" {
		return "", false
	}
	return payload.ErrorMessage, true
}

// ToolResult carries the ordered output elements for one tool call.
type ToolResult struct {
	ID     string       `json:"id"`
	Output []OutputItem `json:"output,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type EventToolResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolResult {
	return &EventToolResult{
		EventImpl:  EventImpl{Type_: EventTypeToolResult, Metadata_: metadata},
		ToolResult: toolResult,
	}
}

var _ Event = &EventToolResult{}

// EventText carries a text fragment for a destination. AgentID empty means the
// root stream. The fragment may overlap text already delivered; receivers are
// expected to merge, not blindly append.
type EventText struct {
	EventImpl
	Text    string `json:"text"`
	AgentID string `json:"agent_id,omitempty"`
}

func NewTextEvent(metadata EventMetadata, text string, agentID string) *EventText {
	return &EventText{
		EventImpl: EventImpl{Type_: EventTypeText, Metadata_: metadata},
		Text:      text,
		AgentID:   agentID,
	}
}

var _ Event = &EventText{}

type EventReasoningDelta struct {
	EventImpl
	Text    string `json:"text"`
	AgentID string `json:"agent_id,omitempty"`
}

func NewReasoningDeltaEvent(metadata EventMetadata, text string, agentID string) *EventReasoningDelta {
	return &EventReasoningDelta{
		EventImpl: EventImpl{Type_: EventTypeReasoningDelta, Metadata_: metadata},
		Text:      text,
		AgentID:   agentID,
	}
}

var _ Event = &EventReasoningDelta{}

type EventFinish struct {
	EventImpl
	TotalCost float64 `json:"total_cost,omitempty"`
}

func NewFinishEvent(metadata EventMetadata, totalCost float64) *EventFinish {
	return &EventFinish{
		EventImpl: EventImpl{Type_: EventTypeFinish, Metadata_: metadata},
		TotalCost: totalCost,
	}
}

var _ Event = &EventFinish{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventError{}

// EventInterrupt marks an aborted run. Text holds whatever root text had been
// emitted when the abort was observed.
type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventInterrupt{}
