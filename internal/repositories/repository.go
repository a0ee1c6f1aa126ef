package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories contains all repository instances
type Repositories struct {
	db *gorm.DB

	User            UserRepository
	LinkToken       LinkTokenRepository
	ConnectedApp    ConnectedAppRepository
	CopyParams      CopyParamsRepository
	CopiedTrade     CopiedTradeRepository
	Trade           TradeRepository
	Connection      ConnectionRepository
	SyncEvent       SyncEventRepository
	EventProcessing EventProcessingRepository
}

// NewRepositories creates a new repository container with all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:              db,
		User:            NewUserRepository(db),
		LinkToken:       NewLinkTokenRepository(db),
		ConnectedApp:    NewConnectedAppRepository(db),
		CopyParams:      NewCopyParamsRepository(db),
		CopiedTrade:     NewCopiedTradeRepository(db),
		Trade:           NewTradeRepository(db),
		Connection:      NewConnectionRepository(db),
		SyncEvent:       NewSyncEventRepository(db),
		EventProcessing: NewEventProcessingRepository(db),
	}
}

// Transaction runs fn with a container whose repositories share one
// database transaction. A container assembled by hand without a database
// (unit tests with mocks) runs fn directly against itself.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
