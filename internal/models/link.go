package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Connected app status
const (
	AppStatusActive  = "active"
	AppStatusRevoked = "revoked"
)

// Copy status of a copied trade on the target side
const (
	CopyStatusPending  = "pending"
	CopyStatusExecuted = "executed"
	CopyStatusFailed   = "failed"
)

// Reconciliation verdicts
const (
	ReconciliationPending  = "pending"
	ReconciliationMatched  = "matched"
	ReconciliationMismatch = "mismatch"
	ReconciliationMissing  = "missing"
)

// Connection status
const (
	ConnectionStatusActive  = "active"
	ConnectionStatusSyncing = "syncing"
	ConnectionStatusError   = "error"
	ConnectionStatusRevoked = "revoked"
)

// Copy configuration status
const (
	CopyParamsStatusActive = "active"
	CopyParamsStatusPaused = "paused"
)

// LinkToken is a one-time, short-lived credential a user hands to another
// trading system so it can establish a trust relationship.
type LinkToken struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Token           string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	OwnerID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	TargetApp       string     `gorm:"type:varchar(100);not null" json:"target_app"`
	IssuedAt        time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt       time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	ConsumedByAppID *uuid.UUID `gorm:"type:uuid" json:"consumed_by_app_id,omitempty"`
}

func (LinkToken) TableName() string {
	return "link_tokens"
}

func (t *LinkToken) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (t *LinkToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsExpired reports whether the token is past its expiry. A token is still
// valid at exactly ExpiresAt.
func (t *LinkToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ConnectedApp is a remote system that completed the link handshake.
type ConnectedApp struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID                uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_connected_apps_active_owner_app,where:status = 'active'" json:"owner_id"`
	OwnerIdentity          string     `gorm:"type:varchar(255)" json:"owner_identity"`
	AppName                string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_connected_apps_active_owner_app,where:status = 'active'" json:"app_name"`
	SigningSecretEncrypted string     `gorm:"type:text;not null" json:"-"`
	SigningSecretHash      string     `gorm:"type:varchar(64);not null;index" json:"-"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	TotalEventsReceived    int64      `gorm:"not null;default:0" json:"total_events_received"`
	LastEventAt            *time.Time `json:"last_event_at,omitempty"`
	SourceURL              *string    `gorm:"type:text" json:"source_url,omitempty"`
	RevokedAt              *time.Time `json:"revoked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ConnectedApp) TableName() string {
	return "connected_apps"
}

func (a *ConnectedApp) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (a *ConnectedApp) IsActive() bool {
	return a.Status == AppStatusActive
}

// ConnectedAppResponse is the API shape of a connected app. The signing
// secret is never part of it.
type ConnectedAppResponse struct {
	ID                  uuid.UUID  `json:"id"`
	AppName             string     `json:"app_name"`
	OwnerIdentity       string     `json:"owner_identity"`
	Status              string     `json:"status"`
	TotalEventsReceived int64      `json:"total_events_received"`
	LastEventAt         *time.Time `json:"last_event_at,omitempty"`
	SourceURL           *string    `json:"source_url,omitempty"`
	RevokedAt           *time.Time `json:"revoked_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func (a *ConnectedApp) ToResponse() *ConnectedAppResponse {
	return &ConnectedAppResponse{
		ID:                  a.ID,
		AppName:             a.AppName,
		OwnerIdentity:       a.OwnerIdentity,
		Status:              a.Status,
		TotalEventsReceived: a.TotalEventsReceived,
		LastEventAt:         a.LastEventAt,
		SourceURL:           a.SourceURL,
		RevokedAt:           a.RevokedAt,
		CreatedAt:           a.CreatedAt,
	}
}

// CopyParams is a copy configuration between a source account and a
// connected target app.
type CopyParams struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	ConnectedAppID *uuid.UUID `gorm:"type:uuid;index" json:"connected_app_id,omitempty"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name"`
	// Tolerance overrides the configured PnL tolerance when set.
	Tolerance *decimal.Decimal `gorm:"type:numeric(20,8)" json:"tolerance,omitempty"`
	Status    string           `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CopyParams) TableName() string {
	return "copy_params"
}

func (p *CopyParams) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *CopyParams) Validate() error {
	if p.OwnerID == uuid.Nil {
		return errors.New("owner_id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Tolerance != nil && p.Tolerance.IsNegative() {
		return errors.New("tolerance must not be negative")
	}
	return nil
}

// CopiedTrade links a source trade to the trade it was copied into on the
// target system, along with its reconciliation verdict.
type CopiedTrade struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	CopyParamsID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_copied_trades_batch,priority:1" json:"copy_params_id"`
	OwnerID              uuid.UUID        `gorm:"type:uuid;not null;index" json:"owner_id"`
	SourceTradeID        string           `gorm:"type:varchar(255);not null" json:"source_trade_id"`
	TargetTradeID        *string          `gorm:"type:varchar(255)" json:"target_trade_id,omitempty"`
	SourceEventID        *string          `gorm:"type:varchar(255);uniqueIndex" json:"source_event_id,omitempty"`
	CopyStatus           string           `gorm:"type:varchar(20);not null;default:'pending';index:idx_copied_trades_batch,priority:2" json:"copy_status"`
	ReconciliationStatus string           `gorm:"type:varchar(20);not null;default:'pending';index:idx_copied_trades_batch,priority:3" json:"reconciliation_status"`
	ReconciledAt         *time.Time       `json:"reconciled_at,omitempty"`
	SourceExitPrice      *decimal.Decimal `gorm:"type:numeric(20,8)" json:"source_exit_price,omitempty"`
	CopiedExitPrice      *decimal.Decimal `gorm:"type:numeric(20,8)" json:"copied_exit_price,omitempty"`
	SourcePnL            *decimal.Decimal `gorm:"column:source_pnl;type:numeric(20,8)" json:"source_pnl,omitempty"`
	CopiedPnL            *decimal.Decimal `gorm:"column:copied_pnl;type:numeric(20,8)" json:"copied_pnl,omitempty"`
	PnLDifference        *decimal.Decimal `gorm:"column:pnl_difference;type:numeric(20,8)" json:"pnl_difference,omitempty"`
	RequeueCount         int              `gorm:"not null;default:0" json:"requeue_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CopiedTrade) TableName() string {
	return "copied_trades"
}

func (c *CopiedTrade) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// IsRequeueable reports whether a verdict may be sent back for another pass.
func (c *CopiedTrade) IsRequeueable() bool {
	return c.ReconciliationStatus == ReconciliationMismatch || c.ReconciliationStatus == ReconciliationMissing
}

// Connection is a user's configured link to an external trading system that
// can be synced on demand.
type Connection struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	ConnectedAppID *uuid.UUID `gorm:"type:uuid;index" json:"connected_app_id,omitempty"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name"`
	Status         string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Connection) TableName() string {
	return "connections"
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// SyncEvent is an append-only record of a sync attempt.
type SyncEvent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	EventID      string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"event_id"`
	ConnectionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"connection_id"`
	OwnerID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Outcome      string         `gorm:"type:varchar(20);not null" json:"outcome"`
	OccurredAt   time.Time      `gorm:"not null;index" json:"occurred_at"`
	Details      datatypes.JSON `json:"details,omitempty"`
}

func (SyncEvent) TableName() string {
	return "sync_events"
}

func (e *SyncEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
