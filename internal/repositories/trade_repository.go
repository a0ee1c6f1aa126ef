package repositories

import (
	"context"
	"errors"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new trade repository instance
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *tradeRepository) GetByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

// GetByProvenance finds the owner's trade that was recorded with the given
// originating-system identifier.
func (r *tradeRepository) GetByProvenance(ctx context.Context, ownerID uuid.UUID, sourceTradeID string) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).
		Where("source_trade_id = ? AND owner_id = ?", sourceTradeID, ownerID).
		Order("created_at DESC").
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}
