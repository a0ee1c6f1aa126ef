package services

import (
	"context"
	"testing"
	"time"

	"journal-backend/internal/audit"
	"journal-backend/internal/metrics"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"
	"journal-backend/pkg/security"
	"journal-backend/test/helpers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testMasterKey = "test-master-key-for-signing-secrets-0123456789"

// testEnv wires real services over an in-memory database.
type testEnv struct {
	db       *gorm.DB
	repos    *repositories.Repositories
	box      *security.SecretBox
	audit    *audit.RecordingPublisher
	metrics  *metrics.Metrics
	registry TrustRegistry

	// now drives the registry clock.
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := helpers.NewTestDB(t)
	box, err := security.NewSecretBox(testMasterKey)
	require.NoError(t, err)

	repos := repositories.NewRepositories(db)
	publisher := audit.NewRecordingPublisher(64)
	env := &testEnv{
		db:      db,
		repos:   repos,
		box:     box,
		audit:   publisher,
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
		now:     time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	env.registry = NewTrustRegistry(repos, box, publisher, RegistryOptions{
		Clock: func() time.Time { return env.now },
	})
	return env
}

// registerApp creates an active connected app for owner and returns it with
// its plaintext signing secret.
func (e *testEnv) registerApp(t *testing.T, owner *models.User, name string) (*models.ConnectedApp, string) {
	t.Helper()
	app, secret, err := e.registry.Register(context.Background(), e.repos, RegisterAppRequest{
		OwnerID:       owner.ID,
		OwnerIdentity: owner.Email,
		AppName:       name,
	}, time.Now().UTC())
	require.NoError(t, err)
	return app, secret
}

func (e *testEnv) actions() []audit.Action {
	var out []audit.Action
	for _, ev := range e.audit.Events() {
		out = append(out, ev.Action)
	}
	return out
}

func userCaller(u *models.User) Caller {
	return Caller{UserID: u.ID, Role: u.Role}
}
