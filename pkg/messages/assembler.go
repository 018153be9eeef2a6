package messages

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/burattino/pkg/events"
)

// InterruptedMarker is appended to the history when a run is aborted
// mid-turn, so the turn closes instead of dangling.
const InterruptedMarker = "[interrupted]"

// TurnOutput is everything one streamed turn produced, before assembly.
type TurnOutput struct {
	// Assistant messages in stream order; the last one carries the turn's
	// tool-call parts.
	Assistant []Message
	// Results in invocation order. On abort this holds only the calls that
	// had completed when the abort was observed.
	Results []events.ToolResult
	// Synthesized user-facing failure notices, appended after all results.
	Errors []string
	// Interrupted marks an aborted turn.
	Interrupted bool
}

// Assemble builds the next history: prior history with step-scoped messages
// expired, then this turn's assistant messages, then all tool results in
// invocation order, then synthesized error messages.
//
// Several providers reject requests unless tool results immediately follow
// the assistant turn that issued the calls; that is why this ordering is
// fixed here and nowhere else.
func Assemble(prior []Message, out TurnOutput) []Message {
	history := make([]Message, 0, len(prior)+len(out.Assistant)+len(out.Results)+len(out.Errors)+1)
	expired := 0
	for _, m := range prior {
		if m.Ephemeral {
			expired++
			continue
		}
		history = append(history, m)
	}
	if expired > 0 {
		log.Debug().Int("expired", expired).Msg("expired step-scoped messages")
	}

	history = append(history, out.Assistant...)
	for _, r := range out.Results {
		history = append(history, NewToolMessage(r))
	}
	for _, e := range out.Errors {
		history = append(history, NewSystemMessage(fmt.Sprintf("tool call failed: %s", e)))
	}
	if out.Interrupted {
		history = append(history, NewSystemMessage(InterruptedMarker))
	}
	return history
}

// ValidateOrdering checks the hard ordering contract: for any assistant
// message with tool-call parts, the matching tool results follow immediately,
// in the order the calls appear, before any other message.
func ValidateOrdering(history []Message) error {
	for i, m := range history {
		if m.Role != RoleAssistant || len(m.ToolCalls) == 0 {
			continue
		}
		for j, call := range m.ToolCalls {
			idx := i + 1 + j
			if idx >= len(history) {
				return errors.Errorf("missing tool result for call %s", call.ID)
			}
			next := history[idx]
			if next.Role != RoleTool || next.Result == nil {
				return errors.Errorf("message after assistant turn is %s, want tool result for %s", next.Role, call.ID)
			}
			if next.Result.ID != call.ID {
				return errors.Errorf("tool result out of order: got %s, want %s", next.Result.ID, call.ID)
			}
		}
	}
	return nil
}
