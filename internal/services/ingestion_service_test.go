package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"journal-backend/internal/models"
	"journal-backend/pkg/security"
	"journal-backend/test/helpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type IngestionServiceTestSuite struct {
	suite.Suite
	env     *testEnv
	service IngestionService
	owner   *models.User
	app     *models.ConnectedApp
	secret  string
	params  *models.CopyParams
	ctx     context.Context
}

func (suite *IngestionServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.env = newTestEnv(suite.T())
	suite.owner = helpers.CreateUser(suite.T(), suite.env.db, models.RoleUser)
	suite.app, suite.secret = suite.env.registerApp(suite.T(), suite.owner, "iCopyTrade")
	suite.params = helpers.CreateCopyParams(suite.T(), suite.env.db, suite.owner.ID, nil)
	require.NoError(suite.T(), suite.env.db.Model(suite.params).Update("connected_app_id", suite.app.ID).Error)
	suite.service = NewIngestionService(suite.env.repos, suite.env.registry, suite.env.metrics)
}

func (suite *IngestionServiceTestSuite) event(eventID string, payload CopyEventPayload) CopyEvent {
	body, err := json.Marshal(payload)
	require.NoError(suite.T(), err)
	return CopyEvent{
		EventID:   eventID,
		AppID:     suite.app.ID,
		Signature: security.Sign(suite.secret, body),
		Payload:   body,
	}
}

func (suite *IngestionServiceTestSuite) TestIngest_CreatesCopiedTrade() {
	source := helpers.CreateTrade(suite.T(), suite.env.db, suite.owner.ID, nil, "100")
	target := "ict-1001"

	result, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-1", CopyEventPayload{
		SourceTradeID: source.ID.String(),
		TargetTradeID: &target,
		CopyStatus:    models.CopyStatusExecuted,
		TargetTrade: &TargetTradePayload{
			Symbol: "BTCUSDT",
			Side:   "long",
			PnL:    helpers.Dec("102"),
		},
	}))
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Duplicate)

	copied, err := suite.env.repos.CopiedTrade.GetByID(suite.ctx, result.CopiedTradeID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), copied)
	assert.Equal(suite.T(), suite.params.ID, copied.CopyParamsID)
	assert.Equal(suite.T(), models.CopyStatusExecuted, copied.CopyStatus)
	assert.Equal(suite.T(), models.ReconciliationPending, copied.ReconciliationStatus)
	assert.Equal(suite.T(), target, *copied.TargetTradeID)

	recorded, err := suite.env.repos.Trade.GetByProvenance(suite.ctx, suite.owner.ID, target)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), recorded)
	assert.True(suite.T(), recorded.PnL.Equal(*helpers.Dec("102")))

	app, err := suite.env.repos.ConnectedApp.GetByID(suite.ctx, suite.app.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), app.TotalEventsReceived)

	// The ingested copy reconciles against its source.
	recon := NewReconciliationService(suite.env.repos, nil, nil, ReconcileOptions{})
	summary, err := recon.Reconcile(suite.ctx, suite.params.ID, userCaller(suite.owner))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, summary.Matched)
}

func (suite *IngestionServiceTestSuite) TestIngest_DuplicateEventIgnored() {
	ev := suite.event("evt-dup", CopyEventPayload{SourceTradeID: "src-1", CopyStatus: models.CopyStatusPending})

	_, err := suite.service.IngestCopyEvent(suite.ctx, "http", ev)
	require.NoError(suite.T(), err)
	result, err := suite.service.IngestCopyEvent(suite.ctx, "nats", ev)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Duplicate)

	helpers.AssertRecordCount(suite.T(), suite.env.db, "copied_trades", 1)
	app, err := suite.env.repos.ConnectedApp.GetByID(suite.ctx, suite.app.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), app.TotalEventsReceived)
}

func (suite *IngestionServiceTestSuite) TestIngest_LaterEventUpdatesOutcome() {
	first, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-a", CopyEventPayload{
		SourceTradeID: "src-7",
		CopyStatus:    models.CopyStatusPending,
	}))
	require.NoError(suite.T(), err)

	target := "ict-7"
	second, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-b", CopyEventPayload{
		SourceTradeID: "src-7",
		TargetTradeID: &target,
		CopyStatus:    models.CopyStatusExecuted,
	}))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.CopiedTradeID, second.CopiedTradeID)

	copied, err := suite.env.repos.CopiedTrade.GetByID(suite.ctx, first.CopiedTradeID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.CopyStatusExecuted, copied.CopyStatus)
	assert.Equal(suite.T(), "evt-b", *copied.SourceEventID)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "copied_trades", 1)
}

func (suite *IngestionServiceTestSuite) TestIngest_StatusOnlyEventKeepsTarget() {
	source := helpers.CreateTrade(suite.T(), suite.env.db, suite.owner.ID, nil, "100")
	target := "ict-9"

	first, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-t1", CopyEventPayload{
		SourceTradeID: source.ID.String(),
		TargetTradeID: &target,
		CopyStatus:    models.CopyStatusExecuted,
		TargetTrade: &TargetTradePayload{
			Symbol: "BTCUSDT",
			Side:   "long",
			PnL:    helpers.Dec("101"),
		},
	}))
	require.NoError(suite.T(), err)

	_, err = suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-t2", CopyEventPayload{
		SourceTradeID: source.ID.String(),
		CopyStatus:    models.CopyStatusExecuted,
	}))
	require.NoError(suite.T(), err)

	copied, err := suite.env.repos.CopiedTrade.GetByID(suite.ctx, first.CopiedTradeID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), copied.TargetTradeID)
	assert.Equal(suite.T(), target, *copied.TargetTradeID)
	assert.Equal(suite.T(), "evt-t2", *copied.SourceEventID)

	reconciler := NewReconciliationService(suite.env.repos, suite.env.audit, suite.env.metrics, ReconcileOptions{})
	summary, err := reconciler.Reconcile(suite.ctx, suite.params.ID, userCaller(suite.owner))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, summary.Matched)
	assert.Equal(suite.T(), 0, summary.Missing)
}

func (suite *IngestionServiceTestSuite) TestIngest_CopyStatusDoesNotMoveBackward() {
	target := "ict-10"
	first, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-s1", CopyEventPayload{
		SourceTradeID: "src-10",
		TargetTradeID: &target,
		CopyStatus:    models.CopyStatusExecuted,
	}))
	require.NoError(suite.T(), err)

	for i, status := range []string{models.CopyStatusPending, models.CopyStatusFailed} {
		_, err = suite.service.IngestCopyEvent(suite.ctx, "http", suite.event(fmt.Sprintf("evt-s%d", i+2), CopyEventPayload{
			SourceTradeID: "src-10",
			CopyStatus:    status,
		}))
		require.NoError(suite.T(), err)

		copied, err := suite.env.repos.CopiedTrade.GetByID(suite.ctx, first.CopiedTradeID)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), models.CopyStatusExecuted, copied.CopyStatus, "after %s", status)
	}
}

func (suite *IngestionServiceTestSuite) TestIngest_BadSignature() {
	ev := suite.event("evt-bad", CopyEventPayload{SourceTradeID: "src-1", CopyStatus: models.CopyStatusExecuted})
	ev.Signature = security.Sign("not-the-secret", ev.Payload)

	_, err := suite.service.IngestCopyEvent(suite.ctx, "http", ev)
	assert.ErrorIs(suite.T(), err, ErrInvalidSignature)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "copied_trades", 0)
	helpers.AssertRecordCount(suite.T(), suite.env.db, "event_processing", 0)
}

func (suite *IngestionServiceTestSuite) TestIngest_RevokedApp() {
	_, err := suite.env.registry.Revoke(suite.ctx, userCaller(suite.owner), suite.app.ID)
	require.NoError(suite.T(), err)

	_, err = suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-r", CopyEventPayload{
		SourceTradeID: "src-1",
		CopyStatus:    models.CopyStatusExecuted,
	}))
	assert.ErrorIs(suite.T(), err, ErrAppRevoked)
}

func (suite *IngestionServiceTestSuite) TestIngest_InvalidPayloads() {
	tests := []struct {
		name    string
		payload CopyEventPayload
	}{
		{"missing source trade", CopyEventPayload{CopyStatus: models.CopyStatusExecuted}},
		{"unknown copy status", CopyEventPayload{SourceTradeID: "s", CopyStatus: "done"}},
		{"target trade without id", CopyEventPayload{SourceTradeID: "s", CopyStatus: models.CopyStatusExecuted, TargetTrade: &TargetTradePayload{Symbol: "X"}}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event(uuid.NewString(), tt.payload))
			assert.ErrorIs(suite.T(), err, ErrInvalidEvent)
		})
	}

	_, err := suite.service.IngestCopyEvent(suite.ctx, "http", CopyEvent{AppID: suite.app.ID, Payload: []byte("{}")})
	assert.ErrorIs(suite.T(), err, ErrInvalidEvent)
}

func (suite *IngestionServiceTestSuite) TestIngest_ForeignCopyParams() {
	stranger := helpers.CreateUser(suite.T(), suite.env.db, models.RoleUser)
	foreign := helpers.CreateCopyParams(suite.T(), suite.env.db, stranger.ID, nil)

	_, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-f", CopyEventPayload{
		CopyParamsID:  &foreign.ID,
		SourceTradeID: "src-1",
		CopyStatus:    models.CopyStatusExecuted,
	}))
	assert.ErrorIs(suite.T(), err, ErrForbidden)
}

func (suite *IngestionServiceTestSuite) TestIngest_NoActiveCopyParams() {
	require.NoError(suite.T(), suite.env.db.Model(suite.params).Update("status", models.CopyParamsStatusPaused).Error)

	_, err := suite.service.IngestCopyEvent(suite.ctx, "http", suite.event("evt-p", CopyEventPayload{
		SourceTradeID: "src-1",
		CopyStatus:    models.CopyStatusExecuted,
	}))
	assert.ErrorIs(suite.T(), err, ErrCopyParamsNotFound)
}

func TestIngestionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IngestionServiceTestSuite))
}
