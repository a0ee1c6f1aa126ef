package nats

import (
	"errors"

	"journal-backend/internal/services"

	"github.com/nats-io/nats.go"
)

// maxDeliveries bounds redelivery of a message that keeps failing
// transiently.
const maxDeliveries = 10

// ackDecision is what to tell JetStream about a handled message.
type ackDecision int

const (
	// ackDone acknowledges a processed or duplicate event.
	ackDone ackDecision = iota
	// ackRetry asks for redelivery after a transient failure.
	ackRetry
	// ackDrop terminates a message that can never succeed.
	ackDrop
)

func (d ackDecision) String() string {
	switch d {
	case ackDone:
		return "ack"
	case ackRetry:
		return "nak"
	default:
		return "term"
	}
}

// decide maps a handling error to an ack decision. Malformed, unsigned or
// unauthorized events are dropped; anything unclassified is retried.
func decide(err error) ackDecision {
	if err == nil {
		return ackDone
	}
	if errors.Is(err, errMalformedMessage) {
		return ackDrop
	}
	switch services.KindOf(err) {
	case services.KindValidation,
		services.KindUnauthenticated,
		services.KindForbidden,
		services.KindNotFound,
		services.KindInvalidState:
		return ackDrop
	default:
		return ackRetry
	}
}

// settle applies the decision to a JetStream message.
func settle(msg *nats.Msg, d ackDecision) error {
	switch d {
	case ackDone:
		return msg.Ack()
	case ackRetry:
		return msg.Nak()
	default:
		return msg.Term()
	}
}
