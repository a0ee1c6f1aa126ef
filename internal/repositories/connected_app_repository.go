package repositories

import (
	"context"
	"errors"
	"time"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type connectedAppRepository struct {
	db *gorm.DB
}

// NewConnectedAppRepository creates a new connected app repository instance
func NewConnectedAppRepository(db *gorm.DB) ConnectedAppRepository {
	return &connectedAppRepository{db: db}
}

func (r *connectedAppRepository) Create(ctx context.Context, app *models.ConnectedApp) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *connectedAppRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConnectedApp, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *connectedAppRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ConnectedApp, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *connectedAppRepository) GetActiveByOwnerAndName(ctx context.Context, ownerID uuid.UUID, appName string) (*models.ConnectedApp, error) {
	return r.first(r.db.WithContext(ctx).
		Where("owner_id = ? AND app_name = ? AND status = ?", ownerID, appName, models.AppStatusActive))
}

func (r *connectedAppRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.ConnectedApp, error) {
	var apps []*models.ConnectedApp
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *connectedAppRepository) RevokeActiveByOwnerAndName(ctx context.Context, ownerID uuid.UUID, appName string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConnectedApp{}).
		Where("owner_id = ? AND app_name = ? AND status = ?", ownerID, appName, models.AppStatusActive).
		Updates(map[string]interface{}{
			"status":     models.AppStatusRevoked,
			"revoked_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *connectedAppRepository) Revoke(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConnectedApp{}).
		Where("id = ? AND status = ?", id, models.AppStatusActive).
		Updates(map[string]interface{}{
			"status":     models.AppStatusRevoked,
			"revoked_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementEvents bumps the received-event counter in SQL so concurrent
// deliveries never lose an update.
func (r *connectedAppRepository) IncrementEvents(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ConnectedApp{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_events_received": gorm.Expr("total_events_received + ?", 1),
			"last_event_at":         at,
		}).Error
}

func (r *connectedAppRepository) first(query *gorm.DB) (*models.ConnectedApp, error) {
	var app models.ConnectedApp
	err := query.First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}
