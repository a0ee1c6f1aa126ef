package helpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"journal-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var counter int64

func nextID() int64 {
	return atomic.AddInt64(&counter, 1)
}

// Dec parses a decimal literal and returns a pointer to it.
func Dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// CreateUser inserts a user with unique name and email.
func CreateUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	id := nextID()
	user := &models.User{
		ID:       uuid.New(),
		Username: fmt.Sprintf("testuser_%d", id),
		Email:    fmt.Sprintf("testuser_%d@example.com", id),
		Role:     role,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)
	return user
}

// CreateCopyParams inserts an active copy configuration for owner.
func CreateCopyParams(t *testing.T, db *gorm.DB, ownerID uuid.UUID, tolerance *decimal.Decimal) *models.CopyParams {
	t.Helper()
	params := &models.CopyParams{
		OwnerID:   ownerID,
		Name:      fmt.Sprintf("copy_%d", nextID()),
		Tolerance: tolerance,
		Status:    models.CopyParamsStatusActive,
	}
	require.NoError(t, db.Create(params).Error)
	return params
}

// CreateTrade inserts a journal trade with the given pnl and provenance key.
func CreateTrade(t *testing.T, db *gorm.DB, ownerID uuid.UUID, provenance *string, pnl string) *models.Trade {
	t.Helper()
	closedAt := time.Now().UTC()
	trade := &models.Trade{
		OwnerID:       ownerID,
		SourceTradeID: provenance,
		Symbol:        "BTCUSDT",
		Side:          "long",
		PnL:           Dec(pnl),
		ExitPrice:     Dec("65000.5"),
		ClosedAt:      &closedAt,
	}
	require.NoError(t, db.Create(trade).Error)
	return trade
}

// CreateCopiedTrade inserts an executed, pending copied trade linking source
// to a target provenance key.
func CreateCopiedTrade(t *testing.T, db *gorm.DB, params *models.CopyParams, sourceTradeID string, targetTradeID *string) *models.CopiedTrade {
	t.Helper()
	ct := &models.CopiedTrade{
		CopyParamsID:         params.ID,
		OwnerID:              params.OwnerID,
		SourceTradeID:        sourceTradeID,
		TargetTradeID:        targetTradeID,
		CopyStatus:           models.CopyStatusExecuted,
		ReconciliationStatus: models.ReconciliationPending,
	}
	require.NoError(t, db.Create(ct).Error)
	return ct
}

// CreateConnection inserts an active connection for owner.
func CreateConnection(t *testing.T, db *gorm.DB, ownerID uuid.UUID, appID *uuid.UUID) *models.Connection {
	t.Helper()
	conn := &models.Connection{
		OwnerID:        ownerID,
		ConnectedAppID: appID,
		Name:           fmt.Sprintf("conn_%d", nextID()),
		Status:         models.ConnectionStatusActive,
	}
	require.NoError(t, db.Create(conn).Error)
	return conn
}
