package mocks

import (
	"context"
	"time"

	"journal-backend/internal/models"
	"journal-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockLinkTokenRepository is a mock implementation of LinkTokenRepository
type MockLinkTokenRepository struct {
	mock.Mock
}

func (m *MockLinkTokenRepository) Create(ctx context.Context, token *models.LinkToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockLinkTokenRepository) GetByToken(ctx context.Context, token string) (*models.LinkToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LinkToken), args.Error(1)
}

func (m *MockLinkTokenRepository) MarkUsed(ctx context.Context, token string, now time.Time) (bool, error) {
	args := m.Called(ctx, token, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockLinkTokenRepository) SetConsumedBy(ctx context.Context, id uuid.UUID, appID uuid.UUID) error {
	args := m.Called(ctx, id, appID)
	return args.Error(0)
}

func (m *MockLinkTokenRepository) DeleteDead(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockConnectedAppRepository is a mock implementation of ConnectedAppRepository
type MockConnectedAppRepository struct {
	mock.Mock
}

func (m *MockConnectedAppRepository) Create(ctx context.Context, app *models.ConnectedApp) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockConnectedAppRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConnectedApp, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectedApp), args.Error(1)
}

func (m *MockConnectedAppRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ConnectedApp, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectedApp), args.Error(1)
}

func (m *MockConnectedAppRepository) GetActiveByOwnerAndName(ctx context.Context, ownerID uuid.UUID, appName string) (*models.ConnectedApp, error) {
	args := m.Called(ctx, ownerID, appName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectedApp), args.Error(1)
}

func (m *MockConnectedAppRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.ConnectedApp, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ConnectedApp), args.Error(1)
}

func (m *MockConnectedAppRepository) RevokeActiveByOwnerAndName(ctx context.Context, ownerID uuid.UUID, appName string, now time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, appName, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConnectedAppRepository) Revoke(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectedAppRepository) IncrementEvents(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockCopyParamsRepository is a mock implementation of CopyParamsRepository
type MockCopyParamsRepository struct {
	mock.Mock
}

func (m *MockCopyParamsRepository) Create(ctx context.Context, params *models.CopyParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockCopyParamsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CopyParams, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CopyParams), args.Error(1)
}

func (m *MockCopyParamsRepository) GetActiveByApp(ctx context.Context, ownerID, appID uuid.UUID) (*models.CopyParams, error) {
	args := m.Called(ctx, ownerID, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CopyParams), args.Error(1)
}

// MockCopiedTradeRepository is a mock implementation of CopiedTradeRepository
type MockCopiedTradeRepository struct {
	mock.Mock
}

func (m *MockCopiedTradeRepository) Create(ctx context.Context, trade *models.CopiedTrade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockCopiedTradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CopiedTrade, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CopiedTrade), args.Error(1)
}

func (m *MockCopiedTradeRepository) GetBySourceTrade(ctx context.Context, copyParamsID uuid.UUID, sourceTradeID string) (*models.CopiedTrade, error) {
	args := m.Called(ctx, copyParamsID, sourceTradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CopiedTrade), args.Error(1)
}

func (m *MockCopiedTradeRepository) ListPendingExecuted(ctx context.Context, copyParamsID, ownerID uuid.UUID) ([]*models.CopiedTrade, error) {
	args := m.Called(ctx, copyParamsID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CopiedTrade), args.Error(1)
}

func (m *MockCopiedTradeRepository) PendingCopyParamsIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockCopiedTradeRepository) ApplyVerdict(ctx context.Context, id uuid.UUID, update repositories.VerdictUpdate) (bool, error) {
	args := m.Called(ctx, id, update)
	return args.Bool(0), args.Error(1)
}

func (m *MockCopiedTradeRepository) Requeue(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCopiedTradeRepository) UpdateCopyOutcome(ctx context.Context, id uuid.UUID, targetTradeID *string, copyStatus string, sourceEventID string) error {
	args := m.Called(ctx, id, targetTradeID, copyStatus, sourceEventID)
	return args.Error(0)
}

// MockTradeRepository is a mock implementation of TradeRepository
type MockTradeRepository struct {
	mock.Mock
}

func (m *MockTradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockTradeRepository) GetByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Trade, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trade), args.Error(1)
}

func (m *MockTradeRepository) GetByProvenance(ctx context.Context, ownerID uuid.UUID, sourceTradeID string) (*models.Trade, error) {
	args := m.Called(ctx, ownerID, sourceTradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trade), args.Error(1)
}

// MockConnectionRepository is a mock implementation of ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Create(ctx context.Context, conn *models.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Connection, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Connection), args.Error(1)
}

func (m *MockConnectionRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockSyncEventRepository is a mock implementation of SyncEventRepository
type MockSyncEventRepository struct {
	mock.Mock
}

func (m *MockSyncEventRepository) Create(ctx context.Context, event *models.SyncEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSyncEventRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]*models.SyncEvent, error) {
	args := m.Called(ctx, connectionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SyncEvent), args.Error(1)
}

// MockEventProcessingRepository is a mock implementation of EventProcessingRepository
type MockEventProcessingRepository struct {
	mock.Mock
}

func (m *MockEventProcessingRepository) Create(ctx context.Context, event *models.EventProcessing) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventProcessingRepository) GetByEventID(ctx context.Context, eventID string) (*models.EventProcessing, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventProcessing), args.Error(1)
}

func (m *MockEventProcessingRepository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// NewMockRepositories returns a container wired entirely with mocks. It has
// no database, so Transaction runs its callback against the same mocks.
func NewMockRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		User:            &MockUserRepository{},
		LinkToken:       &MockLinkTokenRepository{},
		ConnectedApp:    &MockConnectedAppRepository{},
		CopyParams:      &MockCopyParamsRepository{},
		CopiedTrade:     &MockCopiedTradeRepository{},
		Trade:           &MockTradeRepository{},
		Connection:      &MockConnectionRepository{},
		SyncEvent:       &MockSyncEventRepository{},
		EventProcessing: &MockEventProcessingRepository{},
	}
}
