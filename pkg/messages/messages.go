// Package messages models the append-only history handed back to the model
// on each turn, and the assembler that enforces its ordering contract.
package messages

import (
	"github.com/google/uuid"

	"github.com/go-go-golems/burattino/pkg/events"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCallPart is one tool invocation attached to an assistant message.
type ToolCallPart struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Input map[string]string `json:"input,omitempty"`
}

// Message is one entry of the history. Assistant messages may carry tool-call
// parts; tool messages carry exactly one result. Ephemeral messages are
// step-scoped and expire when the next turn is assembled.
type Message struct {
	ID        string             `json:"id"`
	Role      Role               `json:"role"`
	Content   string             `json:"content,omitempty"`
	ToolCalls []ToolCallPart     `json:"tool_calls,omitempty"`
	Result    *events.ToolResult `json:"result,omitempty"`
	Ephemeral bool               `json:"ephemeral,omitempty"`
}

func NewUserMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Content: content}
}

func NewSystemMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleSystem, Content: content}
}

// NewEphemeralSystemMessage returns a step-scoped system message that the
// assembler drops on the next turn.
func NewEphemeralSystemMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleSystem, Content: content, Ephemeral: true}
}

func NewAssistantMessage(content string, calls ...ToolCallPart) Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func NewToolMessage(result events.ToolResult) Message {
	r := result
	return Message{ID: uuid.NewString(), Role: RoleTool, Result: &r}
}
