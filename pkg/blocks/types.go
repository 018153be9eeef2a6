// Package blocks holds the client-side block tree: the hierarchical
// text / tool-call / sub-agent structure reconstructed from a run's event
// stream.
package blocks

import "github.com/google/uuid"

// Kind discriminates the block union.
type Kind string

const (
	KindText      Kind = "text"
	KindTool      Kind = "tool"
	KindAgent     Kind = "agent"
	KindAgentList Kind = "agent-list"
)

// Status of an agent block.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// TextType distinguishes visible output from reasoning text.
const (
	TextTypeOutput    = "output"
	TextTypeReasoning = "reasoning"
	TextTypeError     = "error"
)

// Block is a node in the rendered output tree. Exactly one variant's fields
// are populated, per Kind. Identity: tool blocks are keyed by their tool call
// id, agent blocks by their agent id; both are unique within a run's tree.
type Block struct {
	ID   string `yaml:"id"`
	Kind Kind   `yaml:"kind"`

	// text
	Content  string `yaml:"content,omitempty"`
	TextType string `yaml:"text_type,omitempty"`

	// tool
	ToolCallID string            `yaml:"tool_call_id,omitempty"`
	ToolName   string            `yaml:"tool_name,omitempty"`
	Input      map[string]string `yaml:"input,omitempty"`
	Output     string            `yaml:"output,omitempty"`
	HasOutput  bool              `yaml:"has_output,omitempty"`

	// agent; also set on tool blocks to name the agent the call belongs to
	AgentID       string `yaml:"agent_id,omitempty"`
	AgentType     string `yaml:"agent_type,omitempty"`
	Status        Status `yaml:"status,omitempty"`
	InitialPrompt string `yaml:"initial_prompt,omitempty"`

	// agent-list
	Agents []string `yaml:"agents,omitempty"`
}

// NewTextBlock returns a text block of the given type.
func NewTextBlock(content, textType string) *Block {
	return &Block{
		ID:       uuid.NewString(),
		Kind:     KindText,
		Content:  content,
		TextType: textType,
	}
}

// NewToolBlock returns a tool block keyed by its call id. agentID may be
// empty when the call was issued by the root stream.
func NewToolBlock(toolCallID, toolName string, input map[string]string, agentID string) *Block {
	return &Block{
		ID:         toolCallID,
		Kind:       KindTool,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Input:      input,
		AgentID:    agentID,
	}
}

// NewAgentBlock returns a running agent block keyed by its agent id.
func NewAgentBlock(agentID, agentType, initialPrompt string) *Block {
	return &Block{
		ID:            agentID,
		Kind:          KindAgent,
		AgentID:       agentID,
		AgentType:     agentType,
		Status:        StatusRunning,
		InitialPrompt: initialPrompt,
	}
}

// NewAgentListBlock groups agent ids spawned by a single call.
func NewAgentListBlock(agents []string) *Block {
	return &Block{
		ID:     uuid.NewString(),
		Kind:   KindAgentList,
		Agents: agents,
	}
}
