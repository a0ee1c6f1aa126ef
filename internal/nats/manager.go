package nats

import (
	"context"
	"fmt"

	"journal-backend/internal/config"
	"journal-backend/internal/metrics"
	"journal-backend/internal/services"

	logger "github.com/sirupsen/logrus"
)

// Manager manages the NATS client and the copy event consumer
type Manager struct {
	client   *Client
	consumer *EventConsumer
	cfg      config.NATSConfig
}

// NewManager connects to NATS and prepares the consumer
func NewManager(cfg config.NATSConfig, ingestion services.IngestionService, m *metrics.Metrics) (*Manager, error) {
	client, err := NewClient(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	return &Manager{
		client:   client,
		consumer: NewEventConsumer(client, ingestion, cfg.Subject),
		cfg:      cfg,
	}, nil
}

// Start begins consuming events
func (m *Manager) Start() error {
	if err := m.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start event consumer: %w", err)
	}
	logger.WithField("component", "nats").Info("NATS manager started")
	return nil
}

// Stop stops the consumer and closes the connection
func (m *Manager) Stop() {
	if m.consumer != nil {
		m.consumer.Stop()
	}
	if m.client != nil {
		m.client.Close()
	}
}

// HealthCheck performs a health check on the NATS connection
func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("NATS client is not initialized")
	}
	return m.client.HealthCheck(ctx)
}
