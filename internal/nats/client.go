package nats

import (
	"context"
	"fmt"
	"time"

	"journal-backend/internal/config"
	"journal-backend/internal/metrics"

	"github.com/nats-io/nats.go"
	logger "github.com/sirupsen/logrus"
)

// Client represents a NATS JetStream client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	cfg  config.NATSConfig
	log  *logger.Entry
}

// NewClient creates a new NATS JetStream client
func NewClient(cfg config.NATSConfig, m *metrics.Metrics) (*Client, error) {
	log := logger.WithField("component", "nats")

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			m.SetNATSConnectionStatus(false)
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			m.SetNATSConnectionStatus(true)
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			m.SetNATSConnectionStatus(false)
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		conn: conn,
		js:   js,
		cfg:  cfg,
		log:  log,
	}

	if err := client.createOrUpdateStream(copyStreamConfig(cfg)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	m.SetNATSConnectionStatus(true)
	log.WithField("stream", cfg.Stream).Info("NATS JetStream client initialized")
	return client, nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// QueueSubscribe creates a durable queue subscription with manual acks.
func (c *Client) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.js.QueueSubscribe(subject, queue, handler,
		nats.Durable(c.cfg.DurableName),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(maxDeliveries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to queue subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// HealthCheck checks the health of the NATS connection
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("NATS connection is nil")
	}
	if !c.conn.IsConnected() {
		return fmt.Errorf("NATS connection is not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.js.AccountInfo(nats.Context(ctx)); err != nil {
		return fmt.Errorf("NATS JetStream health check failed: %w", err)
	}
	return nil
}

// StreamConfig represents a stream configuration
type StreamConfig struct {
	Name        string
	Description string
	Subjects    []string
	MaxAge      time.Duration
	Storage     nats.StorageType
	Replicas    int
}

func copyStreamConfig(cfg config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:        cfg.Stream,
		Description: "Copy results reported by connected apps",
		Subjects:    []string{cfg.Subject},
		MaxAge:      7 * 24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
	}
}

// createOrUpdateStream creates or updates a stream
func (c *Client) createOrUpdateStream(cfg StreamConfig) error {
	streamConfig := &nats.StreamConfig{
		Name:        cfg.Name,
		Description: cfg.Description,
		Subjects:    cfg.Subjects,
		MaxAge:      cfg.MaxAge,
		Storage:     cfg.Storage,
		Replicas:    cfg.Replicas,
	}

	if _, err := c.js.StreamInfo(cfg.Name); err != nil {
		if _, err = c.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
		c.log.WithField("stream", cfg.Name).Info("Created NATS stream")
		return nil
	}

	if _, err := c.js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", cfg.Name, err)
	}
	c.log.WithField("stream", cfg.Name).Info("Updated NATS stream")
	return nil
}
