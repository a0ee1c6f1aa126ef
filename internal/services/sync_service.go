package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"journal-backend/internal/audit"
	"journal-backend/internal/metrics"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const SyncOutcomeSuccess = "success"

// SyncService records user-initiated syncs of a connection.
type SyncService interface {
	Sync(ctx context.Context, connectionID uuid.UUID, ownerID uuid.UUID) (*SyncResult, error)
	ListConnections(ctx context.Context, caller Caller) ([]*models.Connection, error)
	// History returns the newest sync events of a connection first.
	History(ctx context.Context, connectionID uuid.UUID, caller Caller, limit int) ([]*models.SyncEvent, error)
}

// MaxSyncHistory caps one History page.
const MaxSyncHistory = 100

type SyncResult struct {
	Status       string
	ConnectionID uuid.UUID
	EventID      string
	SyncedAt     time.Time
}

type syncService struct {
	repos     *repositories.Repositories
	publisher audit.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *logger.Entry
}

// NewSyncService creates a new sync service
func NewSyncService(repos *repositories.Repositories, publisher audit.Publisher, m *metrics.Metrics) SyncService {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	return &syncService{
		repos:     repos,
		publisher: publisher,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		log:       logger.WithField("component", "sync"),
	}
}

// Sync stamps the connection as freshly synced and appends a sync event.
// The connection row, and the app it links to, are locked for the duration
// so a concurrent revoke either happens first and is seen, or waits.
func (s *syncService) Sync(ctx context.Context, connectionID uuid.UUID, ownerID uuid.UUID) (*SyncResult, error) {
	if ownerID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if connectionID == uuid.Nil {
		return nil, ErrMissingConnectionID
	}

	now := s.now()
	result := &SyncResult{
		Status:       SyncOutcomeSuccess,
		ConnectionID: connectionID,
		EventID:      uuid.NewString(),
		SyncedAt:     now,
	}

	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		conn, err := tx.Connection.GetByIDForUpdate(ctx, connectionID)
		if err != nil {
			return fmt.Errorf("failed to load connection: %w", err)
		}
		if conn == nil {
			return ErrConnectionNotFound
		}
		if conn.OwnerID != ownerID {
			return ErrForbidden
		}
		if conn.Status == models.ConnectionStatusRevoked {
			return ErrConnectionRevoked
		}

		if conn.ConnectedAppID != nil {
			app, err := tx.ConnectedApp.GetByIDForUpdate(ctx, *conn.ConnectedAppID)
			if err != nil {
				return fmt.Errorf("failed to load connected app: %w", err)
			}
			if app == nil || !app.IsActive() {
				return ErrConnectionRevoked
			}
		}

		if err := tx.Connection.MarkSynced(ctx, conn.ID, now); err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
		}

		details, err := json.Marshal(map[string]interface{}{
			"trigger":         "manual",
			"previous_status": conn.Status,
		})
		if err != nil {
			return fmt.Errorf("failed to encode sync details: %w", err)
		}

		event := &models.SyncEvent{
			EventID:      result.EventID,
			ConnectionID: conn.ID,
			OwnerID:      conn.OwnerID,
			Outcome:      SyncOutcomeSuccess,
			OccurredAt:   now,
			Details:      datatypes.JSON(details),
		}
		if err := tx.SyncEvent.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to record sync event: %w", err)
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if kind := KindOf(err); kind != KindInternal {
			outcome = string(kind)
		} else {
			s.log.WithError(err).WithField("connection_id", connectionID).Error("Sync failed")
		}
		s.metrics.RecordSync(outcome)
		return nil, err
	}

	s.metrics.RecordSync(SyncOutcomeSuccess)
	s.log.WithFields(logger.Fields{
		"connection_id": connectionID,
		"owner_id":      ownerID,
		"event_id":      result.EventID,
	}).Info("Connection synced")

	event := audit.NewEvent(audit.ActionConnectionSynced, ownerID, "connection", connectionID.String(), map[string]interface{}{
		"event_id": result.EventID,
	})
	event.ActorID = &ownerID
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish sync audit event")
	}

	return result, nil
}

func (s *syncService) ListConnections(ctx context.Context, caller Caller) ([]*models.Connection, error) {
	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	conns, err := s.repos.Connection.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

func (s *syncService) History(ctx context.Context, connectionID uuid.UUID, caller Caller, limit int) ([]*models.SyncEvent, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if connectionID == uuid.Nil {
		return nil, ErrMissingConnectionID
	}
	if limit <= 0 || limit > MaxSyncHistory {
		limit = MaxSyncHistory
	}

	conn, err := s.repos.Connection.GetByID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}
	if !caller.CanAct(conn.OwnerID) {
		return nil, ErrForbidden
	}

	events, err := s.repos.SyncEvent.ListByConnection(ctx, connectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync events: %w", err)
	}
	return events, nil
}
