package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType discriminates the events carried on an analysis stream.
type EventType string

const (
	// EventTypeProgress marks a checkpoint: the server moved to a new phase.
	EventTypeProgress EventType = "progress"

	// EventTypeError is the terminal event for a failed run.
	EventTypeError EventType = "error"

	completeSuffix = "_complete"
)

// CompleteEventType returns the terminal event type for a successful run of
// the given kind, e.g. "cps_complete".
func CompleteEventType(k Kind) EventType {
	return EventType(string(k) + completeSuffix)
}

// Event is one unit on the wire. Exactly one terminal event is observed per
// run that is not cancelled; heartbeat frames are filtered below this layer
// and never surface as events.
type Event interface {
	EventType() EventType

	// Terminal reports whether this event ends the stream meaningfully.
	Terminal() bool
}

// ProgressEvent reports that the server reached a named phase.
type ProgressEvent struct {
	Status string
}

func (ProgressEvent) EventType() EventType { return EventTypeProgress }
func (ProgressEvent) Terminal() bool       { return false }

// CompleteEvent carries the final result of a successful run.
type CompleteEvent struct {
	Kind   Kind
	Result json.RawMessage
}

func (e CompleteEvent) EventType() EventType { return CompleteEventType(e.Kind) }
func (CompleteEvent) Terminal() bool         { return true }

// ErrorEvent carries the failure message of an unsuccessful run. The message
// is surfaced to the user verbatim.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) EventType() EventType { return EventTypeError }
func (ErrorEvent) Terminal() bool       { return true }

// wireEvent is the JSON envelope for all event shapes.
type wireEvent struct {
	Type   EventType       `json:"type"`
	Status string          `json:"status,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// MarshalEvent encodes an event as its JSON wire shape.
func MarshalEvent(e Event) ([]byte, error) {
	switch evt := e.(type) {
	case ProgressEvent:
		return json.Marshal(wireEvent{Type: EventTypeProgress, Status: evt.Status})
	case CompleteEvent:
		return json.Marshal(wireEvent{Type: evt.EventType(), Result: evt.Result})
	case ErrorEvent:
		return json.Marshal(wireEvent{Type: EventTypeError, Error: evt.Message})
	default:
		return nil, fmt.Errorf("unknown event type %T", e)
	}
}

// UnmarshalEvent decodes a JSON wire shape back into its typed event.
func UnmarshalEvent(data []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	switch {
	case wire.Type == EventTypeProgress:
		return ProgressEvent{Status: wire.Status}, nil

	case wire.Type == EventTypeError:
		return ErrorEvent{Message: wire.Error}, nil

	case strings.HasSuffix(string(wire.Type), completeSuffix):
		kind, err := ParseKind(strings.TrimSuffix(string(wire.Type), completeSuffix))
		if err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		return CompleteEvent{Kind: kind, Result: wire.Result}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", wire.Type)
	}
}
