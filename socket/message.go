package socket

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the kind of message pushed to subscribers.
type EventType string

const (
	EvtBuildStatus EventType = "build_status" // a build finished (success or failure)
	EvtError       EventType = "error"        // a build failed, Error holds the detail
)

// Message is the envelope sent over the WebSocket.
type Message struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewMessage creates a message with the payload marshalled as JSON.
func NewMessage(eventType EventType, payload interface{}) (*Message, error) {
	msg := &Message{Type: eventType}
	if payload == nil {
		return msg, nil
	}
	if err := msg.AddPayload(payload); err != nil {
		return nil, err
	}
	return msg, nil
}

// NewErrorMessage creates an error message.
func NewErrorMessage(errMsg string) *Message {
	return &Message{Type: EvtError, Error: errMsg}
}

// AddPayload attaches a structured payload to the message.
func (m *Message) AddPayload(payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for type %s: %w", m.Type, err)
	}
	m.Payload = payloadBytes
	return nil
}
