package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names an audited state change.
type Action string

const (
	ActionLinkConsumed            Action = "link.consumed"
	ActionAppRevoked              Action = "app.revoked"
	ActionReconciliationCompleted Action = "reconciliation.completed"
	ActionCopiedTradeRequeued     Action = "copied_trade.requeued"
	ActionConnectionSynced        Action = "connection.synced"
)

// Event is one audit record. OwnerID is the partitioning key downstream.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Action     Action                 `json:"action"`
	OwnerID    uuid.UUID              `json:"owner_id"`
	ActorID    *uuid.UUID             `json:"actor_id,omitempty"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resource_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent fills in the id and timestamp.
func NewEvent(action Action, ownerID uuid.UUID, resource, resourceID string, details map[string]interface{}) *Event {
	return &Event{
		ID:         uuid.New(),
		Action:     action,
		OwnerID:    ownerID,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers audit events. Callers treat delivery as best effort:
// a publish failure never undoes the state change it describes.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// RecordingPublisher keeps events in memory. Useful in tests and local runs.
type RecordingPublisher struct {
	events chan *Event
}

func NewRecordingPublisher(capacity int) *RecordingPublisher {
	return &RecordingPublisher{events: make(chan *Event, capacity)}
}

func (p *RecordingPublisher) Publish(_ context.Context, event *Event) error {
	select {
	case p.events <- event:
	default:
	}
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Events drains everything recorded so far.
func (p *RecordingPublisher) Events() []*Event {
	var out []*Event
	for {
		select {
		case e := <-p.events:
			out = append(out, e)
		default:
			return out
		}
	}
}
