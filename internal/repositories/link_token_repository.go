package repositories

import (
	"context"
	"errors"
	"time"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type linkTokenRepository struct {
	db *gorm.DB
}

// NewLinkTokenRepository creates a new link token repository instance
func NewLinkTokenRepository(db *gorm.DB) LinkTokenRepository {
	return &linkTokenRepository{db: db}
}

func (r *linkTokenRepository) Create(ctx context.Context, token *models.LinkToken) error {
	if token.Token == "" || token.OwnerID == uuid.Nil {
		return ErrInvalidLinkToken
	}
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *linkTokenRepository) GetByToken(ctx context.Context, token string) (*models.LinkToken, error) {
	var lt models.LinkToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&lt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lt, nil
}

func (r *linkTokenRepository) MarkUsed(ctx context.Context, token string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LinkToken{}).
		Where("token = ? AND used_at IS NULL AND expires_at >= ?", token, now).
		Update("used_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *linkTokenRepository) SetConsumedBy(ctx context.Context, id uuid.UUID, appID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LinkToken{}).
		Where("id = ?", id).
		Update("consumed_by_app_id", appID).Error
}

// DeleteDead purges tokens that were consumed or expired before the cutoff.
func (r *linkTokenRepository) DeleteDead(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("(used_at IS NOT NULL AND used_at < ?) OR expires_at < ?", before, before).
		Delete(&models.LinkToken{})
	return result.RowsAffected, result.Error
}
