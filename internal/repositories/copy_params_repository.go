package repositories

import (
	"context"
	"errors"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type copyParamsRepository struct {
	db *gorm.DB
}

// NewCopyParamsRepository creates a new copy params repository instance
func NewCopyParamsRepository(db *gorm.DB) CopyParamsRepository {
	return &copyParamsRepository{db: db}
}

func (r *copyParamsRepository) Create(ctx context.Context, params *models.CopyParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(params).Error
}

func (r *copyParamsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CopyParams, error) {
	var params models.CopyParams
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&params).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &params, nil
}

// GetActiveByApp returns the most recent active configuration bound to a
// connected app.
func (r *copyParamsRepository) GetActiveByApp(ctx context.Context, ownerID, appID uuid.UUID) (*models.CopyParams, error) {
	var params models.CopyParams
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND connected_app_id = ? AND status = ?", ownerID, appID, models.CopyParamsStatusActive).
		Order("created_at DESC").
		First(&params).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &params, nil
}
