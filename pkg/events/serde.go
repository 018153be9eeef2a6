package events

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// EventCodec decodes a JSON payload into a concrete Event instance.
type EventCodec func([]byte) (Event, error)

var (
	codecMu sync.RWMutex
	codecs  = map[EventType]EventCodec{}
)

// RegisterEventCodec registers a decoder for a custom event type name,
// allowing embedders to extend the wire union without touching this package.
func RegisterEventCodec(typeName EventType, dec EventCodec) error {
	codecMu.Lock()
	defer codecMu.Unlock()
	if _, exists := codecs[typeName]; exists {
		return errors.Errorf("decoder already registered for type %q", typeName)
	}
	codecs[typeName] = dec
	return nil
}

func lookupCodec(typeName EventType) EventCodec {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return codecs[typeName]
}

func decodeAs[T any, PT interface {
	*T
	Event
	SetPayload([]byte)
}](b []byte) (Event, error) {
	ev := PT(new(T))
	if err := json.Unmarshal(b, ev); err != nil {
		return nil, err
	}
	ev.SetPayload(b)
	return ev, nil
}

// NewEventFromJSON decodes a wire payload into the concrete typed event.
// Unknown types fall back to registered codecs; a type nobody can decode is a
// schema-drift bug and surfaces as an error, not a silent EventImpl.
func NewEventFromJSON(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "decode event header")
	}

	switch hdr.Type {
	case EventTypeSubagentStart:
		return decodeAs[EventSubagentStart](b)
	case EventTypeSubagentFinish:
		return decodeAs[EventSubagentFinish](b)
	case EventTypeToolCall:
		return decodeAs[EventToolCall](b)
	case EventTypeToolResult:
		return decodeAs[EventToolResult](b)
	case EventTypeText:
		return decodeAs[EventText](b)
	case EventTypeReasoningDelta:
		return decodeAs[EventReasoningDelta](b)
	case EventTypeFinish:
		return decodeAs[EventFinish](b)
	case EventTypeError:
		return decodeAs[EventError](b)
	case EventTypeInterrupt:
		return decodeAs[EventInterrupt](b)
	}

	if dec := lookupCodec(hdr.Type); dec != nil {
		ev, err := dec(b)
		if err != nil {
			return nil, err
		}
		if setter, ok := ev.(interface{ SetPayload([]byte) }); ok {
			setter.SetPayload(b)
		}
		return ev, nil
	}

	return nil, errors.Errorf("unknown event type %q", hdr.Type)
}
