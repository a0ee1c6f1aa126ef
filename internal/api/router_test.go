package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"journal-backend/internal/api"
	"journal-backend/internal/audit"
	"journal-backend/internal/config"
	"journal-backend/internal/metrics"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"
	"journal-backend/internal/scheduler"
	"journal-backend/internal/services"
	"journal-backend/pkg/auth"
	"journal-backend/pkg/linkclient"
	"journal-backend/pkg/security"
	"journal-backend/test/helpers"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RouterTestSuite struct {
	suite.Suite
	db       *gorm.DB
	repos    *repositories.Repositories
	audit    *audit.RecordingPublisher
	registry services.TrustRegistry
	jwt      *auth.JWTManager
	router   http.Handler
	user     *models.User
	bearer   string
}

func testConfig() *config.Config {
	cfg := &config.Config{Environment: "test"}
	cfg.Auth.JWTSecret = helpers.TestJWTSecret
	cfg.Auth.JWTExpiration = 3600
	cfg.RateLimit.ConsumePerMinute = 1000
	cfg.RateLimit.ConsumeBurst = 100
	cfg.RateLimit.APIPerHour = 10000
	cfg.Server.Port = "0"
	return cfg
}

func (s *RouterTestSuite) SetupTest() {
	s.db = helpers.NewTestDB(s.T())
	s.repos = repositories.NewRepositories(s.db)
	s.audit = audit.NewRecordingPublisher(64)

	box, err := security.NewSecretBox("router-test-master-key-0123456789abcdef")
	s.Require().NoError(err)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	s.registry = services.NewTrustRegistry(s.repos, box, s.audit, services.RegistryOptions{})

	cfg := testConfig()
	reconciler := services.NewReconciliationService(s.repos, s.audit, m, services.ReconcileOptions{Workers: 2})
	svc := api.Services{
		Links:          services.NewLinkService(s.repos, s.registry, s.audit, m, services.LinkOptions{}),
		Registry:       s.registry,
		Reconciliation: reconciler,
		Sync:           services.NewSyncService(s.repos, s.audit, m),
		Ingestion:      services.NewIngestionService(s.repos, s.registry, m),
		Maintenance:    scheduler.New(reconciler, s.repos, cfg, m),
	}
	server := api.NewServer(cfg, svc, api.ServerOptions{
		Metrics:  m,
		Gatherer: reg,
		Health: map[string]api.DependencyCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := s.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"nats": nil,
		},
	})
	s.router = server.SetupRoutes()

	s.jwt = helpers.NewTestJWTManager()
	s.user = helpers.CreateUser(s.T(), s.db, models.RoleUser)
	s.bearer = helpers.BearerToken(s.T(), s.jwt, s.user)
}

func (s *RouterTestSuite) issueToken() string {
	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/tokens", nil, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := helpers.DecodeJSON(s.T(), w)
	token, _ := body["linkToken"].(string)
	s.Require().Len(token, 64)
	return token
}

func (s *RouterTestSuite) TestHealth() {
	w := helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/health/live", nil, "")
	s.Equal(http.StatusOK, w.Code)

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/health/ready", nil, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	data := helpers.DecodeJSON(s.T(), w)["data"].(map[string]interface{})
	deps := data["dependencies"].(map[string]interface{})
	s.Equal("healthy", deps["database"].(map[string]interface{})["status"])
	s.Equal("disabled", deps["nats"].(map[string]interface{})["status"])
}

func (s *RouterTestSuite) TestReadinessUnhealthy() {
	server := api.NewServer(testConfig(), api.Services{}, api.ServerOptions{
		Gatherer: prometheus.NewRegistry(),
		Health: map[string]api.DependencyCheck{
			"kafka": func(context.Context) error { return errors.New("no brokers") },
		},
	})
	w := helpers.PerformRequest(s.T(), server.SetupRoutes(), http.MethodGet, "/health/ready", nil, "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal(false, helpers.DecodeJSON(s.T(), w)["success"])
}

func (s *RouterTestSuite) TestMetricsEndpoint() {
	helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/health/live", nil, "")
	w := helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")
}

func (s *RouterTestSuite) TestIssueToken() {
	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/tokens",
		map[string]string{"target_app": "OtherApp"}, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := helpers.DecodeJSON(s.T(), w)
	s.Len(body["linkToken"], 64)
	s.Equal(float64(900), body["expiresInSeconds"])
	s.NotEmpty(body["expiresAt"])

	var stored models.LinkToken
	s.Require().NoError(s.db.First(&stored).Error)
	s.Equal("OtherApp", stored.TargetApp)
	s.Equal(s.user.ID, stored.OwnerID)
}

func (s *RouterTestSuite) TestIssueToken_Unauthenticated() {
	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/tokens", nil, "")
	helpers.AssertErrorResponse(s.T(), w, http.StatusUnauthorized, "AUTH_REQUIRED")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/tokens", nil, "Bearer not-a-jwt")
	helpers.AssertErrorResponse(s.T(), w, http.StatusUnauthorized, "INVALID_TOKEN")
}

func (s *RouterTestSuite) TestConsumeToken() {
	token := s.issueToken()

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/consume", map[string]string{
		"linkToken":    token,
		"sourceSystem": "iCopyTrade",
		"sourceUrl":    "https://copy.example.com",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := helpers.DecodeJSON(s.T(), w)
	s.Equal(s.user.ID.String(), body["journalUserId"])
	s.Len(body["sharedSigningSecret"], 64)

	// Second redemption is rejected with the flat error body.
	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/consume", map[string]string{"linkToken": token}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	body = helpers.DecodeJSON(s.T(), w)
	s.Equal("TOKEN_ALREADY_USED", body["code"])
	s.Equal("link token has already been used", body["error"])
}

func (s *RouterTestSuite) TestConsumeToken_Errors() {
	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"missing token", map[string]string{}, http.StatusBadRequest, "MISSING_TOKEN"},
		{"unknown token", map[string]string{"linkToken": "deadbeef"}, http.StatusNotFound, "INVALID_TOKEN"},
		{"malformed body", []byte("{"), http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/consume", tc.body, "")
			s.Equal(tc.status, w.Code, w.Body.String())
			s.Equal(tc.code, helpers.DecodeJSON(s.T(), w)["code"])
		})
	}
}

func (s *RouterTestSuite) TestConsumeToken_Expired() {
	token := s.issueToken()
	s.Require().NoError(s.db.Model(&models.LinkToken{}).
		Where("token = ?", token).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/consume", map[string]string{"linkToken": token}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("TOKEN_EXPIRED", helpers.DecodeJSON(s.T(), w)["code"])
}

func (s *RouterTestSuite) TestReconcile() {
	params := helpers.CreateCopyParams(s.T(), s.db, s.user.ID, nil)
	source := helpers.CreateTrade(s.T(), s.db, s.user.ID, nil, "100")
	helpers.CreateTrade(s.T(), s.db, s.user.ID, helpers.StrPtr("tgt-1"), "103.5")
	helpers.CreateCopiedTrade(s.T(), s.db, params, source.ID.String(), helpers.StrPtr("tgt-1"))
	helpers.CreateCopiedTrade(s.T(), s.db, params, uuid.NewString(), helpers.StrPtr("tgt-2"))

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": params.ID.String()}, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body := helpers.DecodeJSON(s.T(), w)
	s.Equal("success", body["status"])
	s.Equal(float64(2), body["reconciled"])
	s.Equal(float64(1), body["matched"])
	s.Equal(float64(0), body["mismatch"])
	s.Equal(float64(1), body["missing"])
}

func (s *RouterTestSuite) TestReconcile_Errors() {
	other := helpers.CreateUser(s.T(), s.db, models.RoleUser)
	foreign := helpers.CreateCopyParams(s.T(), s.db, other.ID, nil)

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations", map[string]string{}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "MISSING_COPY_PARAMS_ID")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": "nope"}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "INVALID_COPY_PARAMS_ID")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": uuid.NewString()}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusNotFound, "COPY_PARAMS_NOT_FOUND")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": foreign.ID.String()}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusForbidden, "FORBIDDEN")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": foreign.ID.String()}, "")
	helpers.AssertErrorResponse(s.T(), w, http.StatusUnauthorized, "AUTH_REQUIRED")
}

func (s *RouterTestSuite) TestRequeue() {
	params := helpers.CreateCopyParams(s.T(), s.db, s.user.ID, nil)
	record := helpers.CreateCopiedTrade(s.T(), s.db, params, uuid.NewString(), helpers.StrPtr("tgt-x"))

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/copied-trades/"+record.ID.String()+"/requeue", nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "NOT_REQUEUEABLE")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": params.ID.String()}, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code)

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/copied-trades/"+record.ID.String()+"/requeue", nil, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	data := helpers.DecodeJSON(s.T(), w)["data"].(map[string]interface{})
	s.Equal(models.ReconciliationPending, data["reconciliation_status"])

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/copied-trades/bad/requeue", nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "INVALID_COPIED_TRADE_ID")
}

func (s *RouterTestSuite) TestSync() {
	conn := helpers.CreateConnection(s.T(), s.db, s.user.ID, nil)

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/connections/sync",
		map[string]string{"connectionId": conn.ID.String()}, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := helpers.DecodeJSON(s.T(), w)
	s.Equal("success", body["status"])
	s.Equal(conn.ID.String(), body["connectionId"])

	helpers.AssertRecordCount(s.T(), s.db, "sync_events", 1)
}

func (s *RouterTestSuite) TestSync_Errors() {
	other := helpers.CreateUser(s.T(), s.db, models.RoleUser)
	foreign := helpers.CreateConnection(s.T(), s.db, other.ID, nil)

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/connections/sync", map[string]string{}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "MISSING_CONNECTION_ID")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/connections/sync",
		map[string]string{"connectionId": uuid.NewString()}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusNotFound, "CONNECTION_NOT_FOUND")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/connections/sync",
		map[string]string{"connectionId": foreign.ID.String()}, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusForbidden, "FORBIDDEN")

	helpers.AssertRecordCount(s.T(), s.db, "sync_events", 0)
}

func (s *RouterTestSuite) TestConnectionsAndHistory() {
	conn := helpers.CreateConnection(s.T(), s.db, s.user.ID, nil)
	for i := 0; i < 2; i++ {
		w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/connections/sync",
			map[string]string{"connectionId": conn.ID.String()}, s.bearer)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}

	w := helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connections", nil, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	conns := helpers.DecodeJSON(s.T(), w)["data"].([]interface{})
	s.Require().Len(conns, 1)
	s.Equal(conn.ID.String(), conns[0].(map[string]interface{})["id"])

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connections/"+conn.ID.String()+"/sync-events?limit=1", nil, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	events := helpers.DecodeJSON(s.T(), w)["data"].([]interface{})
	s.Require().Len(events, 1)
	s.Equal("success", events[0].(map[string]interface{})["outcome"])

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connections/not-a-uuid/sync-events", nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "INVALID_CONNECTION_ID")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connections/"+conn.ID.String()+"/sync-events?limit=abc", nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "INVALID_LIMIT")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connections/"+uuid.NewString()+"/sync-events", nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusNotFound, "CONNECTION_NOT_FOUND")
}

func (s *RouterTestSuite) TestAdminMaintenance() {
	params := helpers.CreateCopyParams(s.T(), s.db, s.user.ID, nil)
	source := helpers.CreateTrade(s.T(), s.db, s.user.ID, nil, "10")
	targetKey := "tgt-admin"
	helpers.CreateTrade(s.T(), s.db, s.user.ID, &targetKey, "10")
	helpers.CreateCopiedTrade(s.T(), s.db, params, source.ID.String(), &targetKey)

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/admin/sweep", nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusForbidden, "ACCESS_DENIED")

	admin := helpers.CreateUser(s.T(), s.db, models.RoleAdmin)
	adminBearer := helpers.BearerToken(s.T(), s.jwt, admin)

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/admin/sweep", nil, adminBearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	data := helpers.DecodeJSON(s.T(), w)["data"].(map[string]interface{})
	s.Equal(float64(1), data["batches"])
	s.Equal(float64(1), data["matched"])

	w = helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/admin/gc", nil, adminBearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *RouterTestSuite) TestConnectedApps() {
	token := s.issueToken()
	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/links/consume",
		map[string]string{"linkToken": token, "sourceSystem": "iCopyTrade"}, "")
	s.Require().Equal(http.StatusOK, w.Code)

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connected-apps", nil, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	apps := helpers.DecodeJSON(s.T(), w)["data"].([]interface{})
	s.Require().Len(apps, 1)
	app := apps[0].(map[string]interface{})
	s.NotContains(app, "signing_secret")
	s.NotContains(app, "secret_hash")
	appID := app["id"].(string)

	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connected-apps/"+appID, nil, s.bearer)
	s.Equal(http.StatusOK, w.Code)

	other := helpers.CreateUser(s.T(), s.db, models.RoleUser)
	w = helpers.PerformRequest(s.T(), s.router, http.MethodGet, "/v1/connected-apps/"+appID, nil,
		helpers.BearerToken(s.T(), s.jwt, other))
	helpers.AssertErrorResponse(s.T(), w, http.StatusForbidden, "FORBIDDEN")

	w = helpers.PerformRequest(s.T(), s.router, http.MethodDelete, "/v1/connected-apps/"+appID, nil, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(models.AppStatusRevoked, helpers.DecodeJSON(s.T(), w)["data"].(map[string]interface{})["status"])

	w = helpers.PerformRequest(s.T(), s.router, http.MethodDelete, "/v1/connected-apps/"+appID, nil, s.bearer)
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "APP_ALREADY_REVOKED")
}

func (s *RouterTestSuite) TestCopyEvents_Rejections() {
	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/copy-events", []byte(`{}`), "")
	helpers.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "INVALID_APP_ID")

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/copy-events", strings.NewReader(body))
		req.Header.Set("X-App-Id", uuid.NewString())
		req.Header.Set("X-Event-Id", "evt-1")
		req.Header.Set("X-Signature", "00")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	helpers.AssertErrorResponse(s.T(), send(""), http.StatusBadRequest, "INVALID_EVENT")
	helpers.AssertErrorResponse(s.T(), send(`{"source_trade_id":"x"}`), http.StatusNotFound, "APP_NOT_FOUND")
	helpers.AssertErrorResponse(s.T(), send(strings.Repeat("x", 64<<10+1)), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
}

// TestLinkAndCopyFlow drives the whole handshake through the client SDK:
// issue, consume, publish a signed copy event, then reconcile.
func (s *RouterTestSuite) TestLinkAndCopyFlow() {
	server := httptest.NewServer(s.router)
	defer server.Close()
	client := linkclient.New(server.URL)
	ctx := context.Background()

	token := s.issueToken()
	link, err := client.Consume(ctx, token, "iCopyTrade", "")
	s.Require().NoError(err)
	s.Equal(s.user.ID.String(), link.JournalUserID)

	_, err = client.Consume(ctx, token, "iCopyTrade", "")
	var apiErr *linkclient.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("TOKEN_ALREADY_USED", apiErr.Code)

	apps, err := s.registry.List(ctx, services.Caller{UserID: s.user.ID, Role: s.user.Role})
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	appID := apps[0].ID

	params, err := s.repos.CopyParams.GetActiveByApp(ctx, s.user.ID, appID)
	s.Require().NoError(err)
	s.Require().NotNil(params)
	source := helpers.CreateTrade(s.T(), s.db, s.user.ID, nil, "100")

	closedAt := time.Now().UTC()
	targetID := "icopy-77"
	payload := services.CopyEventPayload{
		SourceTradeID: source.ID.String(),
		TargetTradeID: &targetID,
		CopyStatus:    models.CopyStatusExecuted,
		TargetTrade: &services.TargetTradePayload{
			Symbol:   "BTCUSDT",
			Side:     "long",
			PnL:      helpers.Dec("103"),
			ClosedAt: &closedAt,
		},
	}

	first, err := client.PublishCopyEvent(ctx, appID, "evt-flow-1", link.SigningSecret, payload)
	s.Require().NoError(err)
	s.False(first.Duplicate)
	s.NotEmpty(first.CopiedTradeID)

	dup, err := client.PublishCopyEvent(ctx, appID, "evt-flow-1", link.SigningSecret, payload)
	s.Require().NoError(err)
	s.True(dup.Duplicate)

	_, err = client.PublishCopyEvent(ctx, appID, "evt-flow-2", "not-the-secret", payload)
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusUnauthorized, apiErr.Status)

	w := helpers.PerformRequest(s.T(), s.router, http.MethodPost, "/v1/reconciliations",
		map[string]string{"copyParamsId": params.ID.String()}, s.bearer)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := helpers.DecodeJSON(s.T(), w)
	s.Equal(float64(1), body["matched"])

	var stored models.CopiedTrade
	s.Require().NoError(s.db.First(&stored, "id = ?", first.CopiedTradeID).Error)
	s.Equal(models.ReconciliationMatched, stored.ReconciliationStatus)
	s.Require().NotNil(stored.PnLDifference)
	s.True(stored.PnLDifference.Equal(*helpers.Dec("3")), "pnl difference %s", stored.PnLDifference)
	s.Require().NotNil(stored.SourcePnL)
	s.True(stored.SourcePnL.Equal(*helpers.Dec("100")))
	s.Require().NotNil(stored.CopiedPnL)
	s.True(stored.CopiedPnL.Equal(*helpers.Dec("103")))
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
