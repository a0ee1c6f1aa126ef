package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"journal-backend/internal/services"

	"github.com/google/uuid"
)

// EventType represents the type of a message on the copy stream
type EventType string

const (
	EventCopyResult EventType = services.EventTypeCopyResult
)

var errMalformedMessage = errors.New("malformed copy event message")

// CopyEventMessage is the envelope a connected app publishes. Payload is
// carried verbatim and Signature is the HMAC of exactly those bytes.
type CopyEventMessage struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	AppID     uuid.UUID       `json:"app_id"`
	Signature string          `json:"signature"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Validate checks the envelope fields, not the payload.
func (m *CopyEventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("%w: event_id is required", errMalformedMessage)
	}
	if m.EventType != "" && m.EventType != EventCopyResult {
		return fmt.Errorf("%w: unsupported event_type %q", errMalformedMessage, m.EventType)
	}
	if m.AppID == uuid.Nil {
		return fmt.Errorf("%w: app_id is required", errMalformedMessage)
	}
	if strings.TrimSpace(m.Signature) == "" {
		return fmt.Errorf("%w: signature is required", errMalformedMessage)
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", errMalformedMessage)
	}
	return nil
}

// ToCopyEvent converts the envelope for the ingestion service.
func (m *CopyEventMessage) ToCopyEvent() services.CopyEvent {
	return services.CopyEvent{
		EventID:   m.EventID,
		AppID:     m.AppID,
		Signature: m.Signature,
		Payload:   []byte(m.Payload),
	}
}

// UnmarshalCopyEvent decodes and validates an envelope.
func UnmarshalCopyEvent(data []byte) (*CopyEventMessage, error) {
	var msg CopyEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarshalCopyEvent encodes an envelope, stamping the type and time if unset.
// Payload must already be compact JSON or its signature will not survive.
func MarshalCopyEvent(msg *CopyEventMessage) ([]byte, error) {
	if msg.EventType == "" {
		msg.EventType = EventCopyResult
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}
