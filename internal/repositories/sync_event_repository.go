package repositories

import (
	"context"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type syncEventRepository struct {
	db *gorm.DB
}

// NewSyncEventRepository creates a new sync event repository instance.
// The log is append-only: there is no update or delete.
func NewSyncEventRepository(db *gorm.DB) SyncEventRepository {
	return &syncEventRepository{db: db}
}

func (r *syncEventRepository) Create(ctx context.Context, event *models.SyncEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *syncEventRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*models.SyncEvent, error) {
	var events []*models.SyncEvent
	query := r.db.WithContext(ctx).Where("connection_id = ?", connectionID).Order("occurred_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
