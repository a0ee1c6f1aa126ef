package services

import (
	"context"
	"encoding/json"
	"testing"

	"journal-backend/internal/audit"
	"journal-backend/internal/models"
	"journal-backend/test/helpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SyncServiceTestSuite struct {
	suite.Suite
	env     *testEnv
	service SyncService
	owner   *models.User
	ctx     context.Context
}

func (suite *SyncServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.env = newTestEnv(suite.T())
	suite.owner = helpers.CreateUser(suite.T(), suite.env.db, models.RoleUser)
	suite.service = NewSyncService(suite.env.repos, suite.env.audit, suite.env.metrics)
}

func (suite *SyncServiceTestSuite) TestSync_Success() {
	app, _ := suite.env.registerApp(suite.T(), suite.owner, "iCopyTrade")
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, &app.ID)

	result, err := suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), SyncOutcomeSuccess, result.Status)
	assert.Equal(suite.T(), conn.ID, result.ConnectionID)
	assert.NotEmpty(suite.T(), result.EventID)

	stored, err := suite.env.repos.Connection.GetByID(suite.ctx, conn.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), stored.LastSyncedAt)
	assert.True(suite.T(), stored.LastSyncedAt.Equal(result.SyncedAt))
	assert.Equal(suite.T(), models.ConnectionStatusActive, stored.Status)

	events, err := suite.env.repos.SyncEvent.ListByConnection(suite.ctx, conn.ID, 10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), events, 1)
	assert.Equal(suite.T(), result.EventID, events[0].EventID)
	assert.Equal(suite.T(), SyncOutcomeSuccess, events[0].Outcome)

	var details map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(events[0].Details, &details))
	assert.Equal(suite.T(), "manual", details["trigger"])

	assert.Equal(suite.T(), []audit.Action{audit.ActionConnectionSynced}, suite.env.actions())
}

func (suite *SyncServiceTestSuite) TestSync_AppendsEveryAttempt() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)

	first, err := suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
	require.NoError(suite.T(), err)
	second, err := suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
	require.NoError(suite.T(), err)

	assert.NotEqual(suite.T(), first.EventID, second.EventID)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "sync_events", 2)
}

func (suite *SyncServiceTestSuite) TestSync_RecoversFromErrorStatus() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	require.NoError(suite.T(), suite.env.db.Model(&models.Connection{}).
		Where("id = ?", conn.ID).Update("status", models.ConnectionStatusError).Error)

	_, err := suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
	require.NoError(suite.T(), err)

	stored, err := suite.env.repos.Connection.GetByID(suite.ctx, conn.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ConnectionStatusActive, stored.Status)
}

func (suite *SyncServiceTestSuite) TestSync_Forbidden() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	stranger := helpers.CreateUser(suite.T(), suite.env.db, models.RoleUser)

	result, err := suite.service.Sync(suite.ctx, conn.ID, stranger.ID)
	assert.ErrorIs(suite.T(), err, ErrForbidden)
	assert.Nil(suite.T(), result)

	stored, err := suite.env.repos.Connection.GetByID(suite.ctx, conn.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), stored.LastSyncedAt)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "sync_events", 0)
}

func (suite *SyncServiceTestSuite) TestSync_AdminIsNotOwner() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	admin := helpers.CreateUser(suite.T(), suite.env.db, models.RoleAdmin)

	_, err := suite.service.Sync(suite.ctx, conn.ID, admin.ID)
	assert.ErrorIs(suite.T(), err, ErrForbidden)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "sync_events", 0)
}

func (suite *SyncServiceTestSuite) TestSync_NotFound() {
	_, err := suite.service.Sync(suite.ctx, uuid.New(), suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrConnectionNotFound)
}

func (suite *SyncServiceTestSuite) TestSync_MissingInput() {
	_, err := suite.service.Sync(suite.ctx, uuid.New(), uuid.Nil)
	assert.ErrorIs(suite.T(), err, ErrUnauthenticated)

	_, err = suite.service.Sync(suite.ctx, uuid.Nil, suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrMissingConnectionID)
}

func (suite *SyncServiceTestSuite) TestSync_RevokedConnection() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	require.NoError(suite.T(), suite.env.db.Model(&models.Connection{}).
		Where("id = ?", conn.ID).Update("status", models.ConnectionStatusRevoked).Error)

	_, err := suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrConnectionRevoked)
	assert.Equal(suite.T(), KindInvalidState, KindOf(err))
}

func (suite *SyncServiceTestSuite) TestSync_RevokedApp() {
	app, _ := suite.env.registerApp(suite.T(), suite.owner, "iCopyTrade")
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, &app.ID)
	_, err := suite.env.registry.Revoke(suite.ctx, userCaller(suite.owner), app.ID)
	require.NoError(suite.T(), err)

	_, err = suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrConnectionRevoked)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "sync_events", 0)
}

func (suite *SyncServiceTestSuite) TestListConnections_OwnerOnly() {
	other := helpers.CreateUser(suite.T(), suite.env.db, models.RoleUser)
	mine := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	helpers.CreateConnection(suite.T(), suite.env.db, other.ID, nil)

	conns, err := suite.service.ListConnections(suite.ctx, userCaller(suite.owner))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), conns, 1)
	assert.Equal(suite.T(), mine.ID, conns[0].ID)

	_, err = suite.service.ListConnections(suite.ctx, Caller{})
	assert.ErrorIs(suite.T(), err, ErrUnauthenticated)
}

func (suite *SyncServiceTestSuite) TestHistory() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	for i := 0; i < 3; i++ {
		_, err := suite.service.Sync(suite.ctx, conn.ID, suite.owner.ID)
		require.NoError(suite.T(), err)
	}

	events, err := suite.service.History(suite.ctx, conn.ID, userCaller(suite.owner), 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), events, 3)
	for i := 1; i < len(events); i++ {
		assert.False(suite.T(), events[i].OccurredAt.After(events[i-1].OccurredAt))
	}

	events, err = suite.service.History(suite.ctx, conn.ID, userCaller(suite.owner), 2)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), events, 2)

	admin := helpers.CreateUser(suite.T(), suite.env.db, models.RoleAdmin)
	events, err = suite.service.History(suite.ctx, conn.ID, userCaller(admin), 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), events, 3)
}

func (suite *SyncServiceTestSuite) TestHistory_Errors() {
	conn := helpers.CreateConnection(suite.T(), suite.env.db, suite.owner.ID, nil)
	stranger := helpers.CreateUser(suite.T(), suite.env.db, models.RoleUser)

	tests := []struct {
		name         string
		connectionID uuid.UUID
		caller       Caller
		want         error
	}{
		{"unauthenticated", conn.ID, Caller{}, ErrUnauthenticated},
		{"missing id", uuid.Nil, userCaller(suite.owner), ErrMissingConnectionID},
		{"not found", uuid.New(), userCaller(suite.owner), ErrConnectionNotFound},
		{"other owner", conn.ID, userCaller(stranger), ErrForbidden},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.History(suite.ctx, tt.connectionID, tt.caller, 10)
			assert.ErrorIs(suite.T(), err, tt.want)
		})
	}
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}
