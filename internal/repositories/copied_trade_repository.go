package repositories

import (
	"context"
	"errors"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type copiedTradeRepository struct {
	db *gorm.DB
}

// NewCopiedTradeRepository creates a new copied trade repository instance
func NewCopiedTradeRepository(db *gorm.DB) CopiedTradeRepository {
	return &copiedTradeRepository{db: db}
}

func (r *copiedTradeRepository) Create(ctx context.Context, trade *models.CopiedTrade) error {
	if trade.CopyParamsID == uuid.Nil || trade.OwnerID == uuid.Nil || trade.SourceTradeID == "" {
		return ErrInvalidCopiedTrade
	}
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *copiedTradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CopiedTrade, error) {
	var trade models.CopiedTrade
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

func (r *copiedTradeRepository) GetBySourceTrade(ctx context.Context, copyParamsID uuid.UUID, sourceTradeID string) (*models.CopiedTrade, error) {
	var trade models.CopiedTrade
	err := r.db.WithContext(ctx).
		Where("copy_params_id = ? AND source_trade_id = ?", copyParamsID, sourceTradeID).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

func (r *copiedTradeRepository) ListPendingExecuted(ctx context.Context, copyParamsID, ownerID uuid.UUID) ([]*models.CopiedTrade, error) {
	var trades []*models.CopiedTrade
	err := r.db.WithContext(ctx).
		Where("copy_params_id = ? AND owner_id = ? AND copy_status = ? AND reconciliation_status = ?",
			copyParamsID, ownerID, models.CopyStatusExecuted, models.ReconciliationPending).
		Order("created_at ASC").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *copiedTradeRepository) PendingCopyParamsIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CopiedTrade{}).
		Where("copy_status = ? AND reconciliation_status = ?", models.CopyStatusExecuted, models.ReconciliationPending).
		Distinct().
		Pluck("copy_params_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *copiedTradeRepository) ApplyVerdict(ctx context.Context, id uuid.UUID, update VerdictUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CopiedTrade{}).
		Where("id = ? AND reconciliation_status = ?", id, models.ReconciliationPending).
		Updates(map[string]interface{}{
			"reconciliation_status": update.Status,
			"reconciled_at":         update.ReconciledAt,
			"source_exit_price":     update.SourceExitPrice,
			"copied_exit_price":     update.CopiedExitPrice,
			"source_pnl":            update.SourcePnL,
			"copied_pnl":            update.CopiedPnL,
			"pnl_difference":        update.PnLDifference,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Requeue sends a mismatch or missing verdict back to pending and clears the
// previous verdict's figures.
func (r *copiedTradeRepository) Requeue(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CopiedTrade{}).
		Where("id = ? AND reconciliation_status IN ?", id,
			[]string{models.ReconciliationMismatch, models.ReconciliationMissing}).
		Updates(map[string]interface{}{
			"reconciliation_status": models.ReconciliationPending,
			"reconciled_at":         gorm.Expr("NULL"),
			"source_exit_price":     gorm.Expr("NULL"),
			"copied_exit_price":     gorm.Expr("NULL"),
			"source_pnl":            gorm.Expr("NULL"),
			"copied_pnl":            gorm.Expr("NULL"),
			"pnl_difference":        gorm.Expr("NULL"),
			"requeue_count":         gorm.Expr("requeue_count + ?", 1),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateCopyOutcome records what the target system reported for a copy
// attempt. Reconciled rows keep their verdict. A nil targetTradeID leaves the
// recorded target alone, and copy_status only leaves pending.
func (r *copiedTradeRepository) UpdateCopyOutcome(ctx context.Context, id uuid.UUID, targetTradeID *string, copyStatus string, sourceEventID string) error {
	updates := map[string]interface{}{
		"copy_status": gorm.Expr("CASE WHEN copy_status = ? THEN ? ELSE copy_status END",
			models.CopyStatusPending, copyStatus),
		"source_event_id": sourceEventID,
	}
	if targetTradeID != nil && *targetTradeID != "" {
		updates["target_trade_id"] = *targetTradeID
	}

	return r.db.WithContext(ctx).
		Model(&models.CopiedTrade{}).
		Where("id = ? AND reconciliation_status = ?", id, models.ReconciliationPending).
		Updates(updates).Error
}
