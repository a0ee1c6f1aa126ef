package nats

import (
	"context"
	"fmt"
	"time"

	"journal-backend/internal/services"

	"github.com/nats-io/nats.go"
	logger "github.com/sirupsen/logrus"
)

const (
	transportNATS   = "nats"
	copyEventsQueue = "copy-event-processors"
	handleTimeout   = 15 * time.Second
)

// subscriber is the part of Client the consumer needs.
type subscriber interface {
	QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// EventConsumer feeds copy events from the stream into ingestion
type EventConsumer struct {
	client    subscriber
	ingestion services.IngestionService
	subject   string
	sub       *nats.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logger.Entry
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(client subscriber, ingestion services.IngestionService, subject string) *EventConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventConsumer{
		client:    client,
		ingestion: ingestion,
		subject:   subject,
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.WithField("component", "nats_consumer"),
	}
}

// Start subscribes to the copy event subject
func (ec *EventConsumer) Start() error {
	sub, err := ec.client.QueueSubscribe(ec.subject, copyEventsQueue, func(msg *nats.Msg) {
		d := ec.handle(msg.Data)
		if err := settle(msg, d); err != nil {
			ec.log.WithError(err).WithField("decision", d.String()).Warn("Failed to settle message")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to copy events: %w", err)
	}
	ec.sub = sub
	ec.log.WithField("subject", ec.subject).Info("Subscribed to copy events")
	return nil
}

// Stop cancels in-flight handling and drains the subscription
func (ec *EventConsumer) Stop() {
	ec.cancel()
	if ec.sub != nil {
		if err := ec.sub.Drain(); err != nil {
			ec.log.WithError(err).Warn("Failed to drain subscription")
		}
	}
}

// handle decodes one message and hands it to ingestion.
func (ec *EventConsumer) handle(data []byte) ackDecision {
	msg, err := UnmarshalCopyEvent(data)
	if err != nil {
		ec.log.WithError(err).Warn("Dropping malformed copy event")
		return ackDrop
	}

	ctx, cancel := context.WithTimeout(ec.ctx, handleTimeout)
	defer cancel()

	result, err := ec.ingestion.IngestCopyEvent(ctx, transportNATS, msg.ToCopyEvent())
	d := decide(err)

	entry := ec.log.WithFields(logger.Fields{
		"event_id": msg.EventID,
		"app_id":   msg.AppID,
		"decision": d.String(),
	})
	switch {
	case err != nil && d == ackRetry:
		entry.WithError(err).Error("Copy event failed, will be redelivered")
	case err != nil:
		entry.WithError(err).Warn("Copy event rejected")
	case result.Duplicate:
		entry.Debug("Duplicate copy event ignored")
	default:
		entry.WithField("copied_trade_id", result.CopiedTradeID).Info("Copy event ingested")
	}
	return d
}
