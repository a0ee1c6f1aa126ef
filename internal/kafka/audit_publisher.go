package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"journal-backend/internal/audit"
	"journal-backend/internal/config"
	"journal-backend/internal/metrics"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	logger "github.com/sirupsen/logrus"
)

const (
	publishAttempts   = 3
	publishMaxElapsed = 5 * time.Second
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditPublisher writes audit events to Kafka, keyed by owner so one user's
// events stay ordered on a partition.
type AuditPublisher struct {
	writer  messageWriter
	topic   string
	metrics *metrics.Metrics
	backoff func() backoff.BackOff
	log     *logger.Entry
}

// NewAuditPublisher creates a publisher for the configured audit topic.
func NewAuditPublisher(cfg config.KafkaConfig, m *metrics.Metrics) *AuditPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.AuditTopic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
	}
	return newAuditPublisher(writer, cfg.AuditTopic, m)
}

func newAuditPublisher(w messageWriter, topic string, m *metrics.Metrics) *AuditPublisher {
	return &AuditPublisher{
		writer:  w,
		topic:   topic,
		metrics: m,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
		log: logger.WithField("component", "audit_kafka"),
	}
}

// Publish sends one event, retrying transient write failures.
func (p *AuditPublisher) Publish(ctx context.Context, event *audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordAuditPublish(string(event.Action), err)
		return fmt.Errorf("marshal audit event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OwnerID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	},
		backoff.WithBackOff(p.backoff()),
		backoff.WithMaxTries(publishAttempts),
		backoff.WithMaxElapsedTime(publishMaxElapsed),
	)
	p.metrics.RecordAuditPublish(string(event.Action), err)
	if err != nil {
		p.log.WithError(err).WithFields(logger.Fields{
			"action":   event.Action,
			"event_id": event.ID,
			"topic":    p.topic,
		}).Error("Failed to publish audit event")
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *AuditPublisher) Close() error {
	return p.writer.Close()
}

var _ audit.Publisher = (*AuditPublisher)(nil)
