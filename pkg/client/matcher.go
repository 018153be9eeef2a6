package client

import "strings"

// spawnPlaceholder tracks one optimistically created agent block, keyed by
// the synthetic "<toolCallID>-<index>" identifier, until the runtime's start
// event names the real agent id.
type spawnPlaceholder struct {
	Key       string
	Index     int
	AgentType string
}

// bareAgentType strips the namespace and version from a runtime agent type:
// "codebuff/file-picker@0.1.0" becomes "file-picker". The spawn request and
// the start notification come from different subsystems that do not share a
// canonical identifier format, hence the two-tier match.
func bareAgentType(agentType string) string {
	s := agentType
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.Index(s, "@"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// matchPlaceholder finds the first placeholder (in registration order) whose
// stored type equals the incoming type, exactly or after stripping the
// incoming type to its bare name.
func (r *Router) matchPlaceholder(agentType string) (spawnPlaceholder, bool) {
	bare := bareAgentType(agentType)
	for _, key := range r.placeholderOrder {
		ph, ok := r.placeholders[key]
		if !ok {
			continue
		}
		if ph.AgentType == agentType || ph.AgentType == bare {
			return ph, true
		}
	}
	return spawnPlaceholder{}, false
}

func (r *Router) removePlaceholder(key string) {
	delete(r.placeholders, key)
	for i, k := range r.placeholderOrder {
		if k == key {
			r.placeholderOrder = append(r.placeholderOrder[:i], r.placeholderOrder[i+1:]...)
			return
		}
	}
}
