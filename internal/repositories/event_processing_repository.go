package repositories

import (
	"context"
	"errors"
	"time"

	"journal-backend/internal/models"

	"gorm.io/gorm"
)

type eventProcessingRepository struct {
	db *gorm.DB
}

// NewEventProcessingRepository creates a new event processing repository instance
func NewEventProcessingRepository(db *gorm.DB) EventProcessingRepository {
	return &eventProcessingRepository{db: db}
}

func (r *eventProcessingRepository) Create(ctx context.Context, event *models.EventProcessing) error {
	if event.EventID == "" {
		return ErrInvalidEvent
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventProcessingRepository) GetByEventID(ctx context.Context, eventID string) (*models.EventProcessing, error) {
	var event models.EventProcessing
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventProcessingRepository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("processed_at < ? AND status = ?", olderThan, models.EventStatusProcessed).
		Delete(&models.EventProcessing{})
	return result.RowsAffected, result.Error
}
