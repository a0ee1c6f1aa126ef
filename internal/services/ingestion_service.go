package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"journal-backend/internal/metrics"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const EventTypeCopyResult = "copy.result"

// CopyEvent is a signed message from a connected app reporting the outcome
// of copying one trade. Signature is the hex HMAC-SHA256 of Payload.
type CopyEvent struct {
	EventID   string
	AppID     uuid.UUID
	Signature string
	Payload   []byte
}

// CopyEventPayload is the JSON body a connected app signs.
type CopyEventPayload struct {
	CopyParamsID  *uuid.UUID          `json:"copy_params_id,omitempty"`
	SourceTradeID string              `json:"source_trade_id"`
	TargetTradeID *string             `json:"target_trade_id,omitempty"`
	CopyStatus    string              `json:"copy_status"`
	TargetTrade   *TargetTradePayload `json:"target_trade,omitempty"`
}

// TargetTradePayload describes the trade opened on the target system. It is
// stored as a journal trade keyed by TargetTradeID.
type TargetTradePayload struct {
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`
	PnL       *decimal.Decimal `json:"pnl,omitempty"`
	ExitPrice *decimal.Decimal `json:"exit_price,omitempty"`
	ClosedAt  *time.Time       `json:"closed_at,omitempty"`
}

func (p *CopyEventPayload) Validate() error {
	if strings.TrimSpace(p.SourceTradeID) == "" {
		return fmt.Errorf("%w: source_trade_id is required", ErrInvalidEvent)
	}
	switch p.CopyStatus {
	case models.CopyStatusPending, models.CopyStatusExecuted, models.CopyStatusFailed:
	default:
		return fmt.Errorf("%w: unknown copy_status %q", ErrInvalidEvent, p.CopyStatus)
	}
	if p.TargetTrade != nil && (p.TargetTradeID == nil || *p.TargetTradeID == "") {
		return fmt.Errorf("%w: target_trade requires target_trade_id", ErrInvalidEvent)
	}
	return nil
}

type IngestResult struct {
	Duplicate     bool
	CopiedTradeID uuid.UUID
}

// IngestionService accepts copy events from connected apps.
type IngestionService interface {
	IngestCopyEvent(ctx context.Context, transport string, event CopyEvent) (*IngestResult, error)
}

type ingestionService struct {
	repos    *repositories.Repositories
	registry TrustRegistry
	metrics  *metrics.Metrics
	log      *logger.Entry
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repos *repositories.Repositories, registry TrustRegistry, m *metrics.Metrics) IngestionService {
	return &ingestionService{
		repos:    repos,
		registry: registry,
		metrics:  m,
		log:      logger.WithField("component", "ingestion"),
	}
}

func (s *ingestionService) IngestCopyEvent(ctx context.Context, transport string, event CopyEvent) (*IngestResult, error) {
	result, err := s.ingest(ctx, event)
	switch {
	case err != nil:
		s.metrics.RecordCopyEvent(transport, "rejected")
	case result.Duplicate:
		s.metrics.RecordCopyEvent(transport, "duplicate")
	default:
		s.metrics.RecordCopyEvent(transport, "accepted")
	}
	return result, err
}

func (s *ingestionService) ingest(ctx context.Context, event CopyEvent) (*IngestResult, error) {
	if strings.TrimSpace(event.EventID) == "" || event.AppID == uuid.Nil || len(event.Payload) == 0 {
		return nil, ErrInvalidEvent
	}

	app, err := s.registry.VerifySignature(ctx, event.AppID, event.Payload, event.Signature)
	if err != nil {
		return nil, err
	}

	existing, err := s.repos.EventProcessing.GetByEventID(ctx, event.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to check event processing: %w", err)
	}
	if existing != nil && existing.Status == models.EventStatusProcessed {
		return &IngestResult{Duplicate: true}, nil
	}

	var payload CopyEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	params, err := s.resolveCopyParams(ctx, app, payload.CopyParamsID)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logger.Fields{
		"event_id":        event.EventID,
		"app_id":          app.ID,
		"copy_params_id":  params.ID,
		"source_trade_id": payload.SourceTradeID,
	})

	var copiedID uuid.UUID
	err = s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		if existing == nil {
			appID := app.ID
			record := &models.EventProcessing{
				EventID:   event.EventID,
				EventType: EventTypeCopyResult,
				UserID:    &app.OwnerID,
				AppID:     &appID,
				Status:    models.EventStatusProcessed,
			}
			if err := tx.EventProcessing.Create(ctx, record); err != nil {
				return fmt.Errorf("failed to record event: %w", err)
			}
		}

		if payload.TargetTrade != nil {
			if err := s.recordTargetTrade(ctx, tx, app.OwnerID, *payload.TargetTradeID, payload.TargetTrade); err != nil {
				return err
			}
		}

		copied, err := tx.CopiedTrade.GetBySourceTrade(ctx, params.ID, payload.SourceTradeID)
		if err != nil {
			return fmt.Errorf("failed to load copied trade: %w", err)
		}
		if copied == nil {
			eventID := event.EventID
			copied = &models.CopiedTrade{
				CopyParamsID:         params.ID,
				OwnerID:              params.OwnerID,
				SourceTradeID:        payload.SourceTradeID,
				TargetTradeID:        payload.TargetTradeID,
				SourceEventID:        &eventID,
				CopyStatus:           payload.CopyStatus,
				ReconciliationStatus: models.ReconciliationPending,
			}
			if err := tx.CopiedTrade.Create(ctx, copied); err != nil {
				return fmt.Errorf("failed to create copied trade: %w", err)
			}
		} else if err := tx.CopiedTrade.UpdateCopyOutcome(ctx, copied.ID, payload.TargetTradeID, payload.CopyStatus, event.EventID); err != nil {
			return fmt.Errorf("failed to update copied trade: %w", err)
		}
		copiedID = copied.ID

		return tx.ConnectedApp.IncrementEvents(ctx, app.ID, time.Now().UTC())
	})
	if err != nil {
		// A concurrent delivery of the same event wins the unique event_id.
		if dup, lookupErr := s.repos.EventProcessing.GetByEventID(ctx, event.EventID); lookupErr == nil && dup != nil && existing == nil {
			return &IngestResult{Duplicate: true}, nil
		}
		log.WithError(err).Error("Failed to ingest copy event")
		return nil, err
	}

	log.WithField("copy_status", payload.CopyStatus).Debug("Copy event ingested")
	return &IngestResult{CopiedTradeID: copiedID}, nil
}

// resolveCopyParams finds the configuration an event belongs to. An explicit
// id must belong to the app's owner; otherwise the app's active configuration
// is used.
func (s *ingestionService) resolveCopyParams(ctx context.Context, app *models.ConnectedApp, id *uuid.UUID) (*models.CopyParams, error) {
	var (
		params *models.CopyParams
		err    error
	)
	if id != nil {
		params, err = s.repos.CopyParams.GetByID(ctx, *id)
	} else {
		params, err = s.repos.CopyParams.GetActiveByApp(ctx, app.OwnerID, app.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load copy params: %w", err)
	}
	if params == nil {
		return nil, ErrCopyParamsNotFound
	}
	if params.OwnerID != app.OwnerID {
		return nil, ErrForbidden
	}
	return params, nil
}

func (s *ingestionService) recordTargetTrade(ctx context.Context, tx *repositories.Repositories, ownerID uuid.UUID, provenance string, t *TargetTradePayload) error {
	existing, err := tx.Trade.GetByProvenance(ctx, ownerID, provenance)
	if err != nil {
		return fmt.Errorf("failed to look up target trade: %w", err)
	}
	if existing != nil {
		return nil
	}
	trade := &models.Trade{
		SourceTradeID: &provenance,
		OwnerID:       ownerID,
		Symbol:        t.Symbol,
		Side:          t.Side,
		PnL:           t.PnL,
		ExitPrice:     t.ExitPrice,
		ClosedAt:      t.ClosedAt,
	}
	if err := tx.Trade.Create(ctx, trade); err != nil {
		return fmt.Errorf("failed to record target trade: %w", err)
	}
	return nil
}
