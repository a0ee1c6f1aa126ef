package repositories

import (
	"context"
	"time"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// LinkTokenRepository defines the interface for link token operations
type LinkTokenRepository interface {
	Create(ctx context.Context, token *models.LinkToken) error
	GetByToken(ctx context.Context, token string) (*models.LinkToken, error)
	// MarkUsed stamps used_at only if the token is unused and unexpired at
	// now. It reports whether this call won the token.
	MarkUsed(ctx context.Context, token string, now time.Time) (bool, error)
	SetConsumedBy(ctx context.Context, id uuid.UUID, appID uuid.UUID) error
	DeleteDead(ctx context.Context, before time.Time) (int64, error)
}

// ConnectedAppRepository defines the interface for trust registry storage
type ConnectedAppRepository interface {
	Create(ctx context.Context, app *models.ConnectedApp) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ConnectedApp, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ConnectedApp, error)
	GetActiveByOwnerAndName(ctx context.Context, ownerID uuid.UUID, appName string) (*models.ConnectedApp, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.ConnectedApp, error)
	RevokeActiveByOwnerAndName(ctx context.Context, ownerID uuid.UUID, appName string, now time.Time) (int64, error)
	Revoke(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	IncrementEvents(ctx context.Context, id uuid.UUID, at time.Time) error
}

// CopyParamsRepository defines the interface for copy configuration operations
type CopyParamsRepository interface {
	Create(ctx context.Context, params *models.CopyParams) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CopyParams, error)
	GetActiveByApp(ctx context.Context, ownerID, appID uuid.UUID) (*models.CopyParams, error)
}

// CopiedTradeRepository defines the interface for copied trade operations
type CopiedTradeRepository interface {
	Create(ctx context.Context, trade *models.CopiedTrade) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CopiedTrade, error)
	GetBySourceTrade(ctx context.Context, copyParamsID uuid.UUID, sourceTradeID string) (*models.CopiedTrade, error)
	ListPendingExecuted(ctx context.Context, copyParamsID, ownerID uuid.UUID) ([]*models.CopiedTrade, error)
	PendingCopyParamsIDs(ctx context.Context) ([]uuid.UUID, error)
	// ApplyVerdict persists a verdict only while the record is still
	// pending. It reports whether the row was updated.
	ApplyVerdict(ctx context.Context, id uuid.UUID, update VerdictUpdate) (bool, error)
	Requeue(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateCopyOutcome(ctx context.Context, id uuid.UUID, targetTradeID *string, copyStatus string, sourceEventID string) error
}

// TradeRepository defines read access to journal trades
type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade) error
	GetByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Trade, error)
	GetByProvenance(ctx context.Context, ownerID uuid.UUID, sourceTradeID string) (*models.Trade, error)
}

// ConnectionRepository defines the interface for connection operations
type ConnectionRepository interface {
	Create(ctx context.Context, conn *models.Connection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Connection, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Connection, error)
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SyncEventRepository defines the interface for the append-only sync log
type SyncEventRepository interface {
	Create(ctx context.Context, event *models.SyncEvent) error
	ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*models.SyncEvent, error)
}

// EventProcessingRepository defines the interface for event processing operations
type EventProcessingRepository interface {
	Create(ctx context.Context, event *models.EventProcessing) error
	GetByEventID(ctx context.Context, eventID string) (*models.EventProcessing, error)
	// DeleteOldEvents purges processed dedup records older than the cutoff.
	DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// VerdictUpdate carries the fields written when a copied trade is reconciled.
// Nil values are stored as NULL.
type VerdictUpdate struct {
	Status          string
	ReconciledAt    time.Time
	SourceExitPrice *decimal.Decimal
	CopiedExitPrice *decimal.Decimal
	SourcePnL       *decimal.Decimal
	CopiedPnL       *decimal.Decimal
	PnLDifference   *decimal.Decimal
}
