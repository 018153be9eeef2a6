package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventMetadata is attached to every event published during a run.
// ID identifies the originating message stream; RunID and TurnID correlate
// events across the run, AgentID names the sub-agent the event belongs to
// (empty for the root stream).
type EventMetadata struct {
	ID      uuid.UUID `json:"message_id" yaml:"message_id"`
	RunID   string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	TurnID  string    `json:"turn_id,omitempty" yaml:"turn_id,omitempty"`
	AgentID string    `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	// Extra carries context values that do not warrant a typed field
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	if em.TurnID != "" {
		e.Str("turn_id", em.TurnID)
	}
	if em.AgentID != "" {
		e.Str("agent_id", em.AgentID)
	}
	if len(em.Extra) > 0 {
		e.Dict("extra", zerolog.Dict().Fields(em.Extra))
	}
}
