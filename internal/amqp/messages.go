package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgetly/internal/events"
)

// SessionEventMessage carries a session signal between client processes.
// Origin is the bus id of the process that raised it.
type SessionEventMessage struct {
	Kind      events.Kind `json:"kind"`
	Origin    string      `json:"origin"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewSessionEventMessage wraps a local bus event.
func NewSessionEventMessage(e events.Event) *SessionEventMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &SessionEventMessage{Kind: e.Kind, Origin: e.Origin, Timestamp: ts}
}

func (m *SessionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts the message back into a bus event.
func (m *SessionEventMessage) Event() events.Event {
	return events.Event{Kind: m.Kind, Origin: m.Origin, Timestamp: m.Timestamp}
}

// SessionEventMessageFromJSON decodes and validates a message.
func SessionEventMessageFromJSON(data []byte) (*SessionEventMessage, error) {
	var msg SessionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case events.Unauthorized, events.SessionStarted, events.SessionEnded:
	default:
		return nil, fmt.Errorf("unknown session event kind %q", msg.Kind)
	}
	if msg.Origin == "" {
		return nil, fmt.Errorf("session event without origin")
	}
	return &msg, nil
}
