package events

// ChunkKind discriminates the low-level stream chunk union carried between
// the model stream and the runtime.
type ChunkKind string

const (
	// ChunkKindText is raw root-stream text (the common case).
	ChunkKindText ChunkKind = "text"
	// ChunkKindSubagent is text produced by a running sub-agent.
	ChunkKindSubagent ChunkKind = "subagent_chunk"
	// ChunkKindReasoning is reasoning text, kept out of the visible stream.
	ChunkKindReasoning ChunkKind = "reasoning_chunk"
)

// Chunk is one delivery from the upstream model stream. Chunks are lower
// level than lifecycle events: they carry undifferentiated text that the
// scanner has not yet split into plain segments and tool tags.
type Chunk struct {
	Kind      ChunkKind `json:"type"`
	Text      string    `json:"chunk"`
	AgentID   string    `json:"agent_id,omitempty"`
	AgentType string    `json:"agent_type,omitempty"`
}

// TextChunk wraps root-stream text.
func TextChunk(text string) Chunk {
	return Chunk{Kind: ChunkKindText, Text: text}
}

// SubagentChunk wraps text produced by the given sub-agent.
func SubagentChunk(agentID, agentType, text string) Chunk {
	return Chunk{Kind: ChunkKindSubagent, AgentID: agentID, AgentType: agentType, Text: text}
}

// ReasoningChunk wraps reasoning text for the given agent (empty for root).
func ReasoningChunk(agentID, text string) Chunk {
	return Chunk{Kind: ChunkKindReasoning, AgentID: agentID, Text: text}
}
