package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"journal-backend/internal/audit"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"
	"journal-backend/pkg/security"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

// TrustRegistry stores connected apps and their signing secrets. A secret is
// written once, when the app is registered, and is only ever read back to
// verify event signatures.
type TrustRegistry interface {
	// Register creates an active app for the pair (owner, app name), revoking
	// any app already active for it. repos may be bound to a transaction.
	Register(ctx context.Context, repos *repositories.Repositories, req RegisterAppRequest, now time.Time) (*models.ConnectedApp, string, error)
	Get(ctx context.Context, caller Caller, id uuid.UUID) (*models.ConnectedApp, error)
	List(ctx context.Context, caller Caller) ([]*models.ConnectedApp, error)
	Revoke(ctx context.Context, caller Caller, id uuid.UUID) (*models.ConnectedApp, error)
	VerifySignature(ctx context.Context, appID uuid.UUID, payload []byte, signature string) (*models.ConnectedApp, error)
	RecordEvent(ctx context.Context, appID uuid.UUID) error
}

type RegisterAppRequest struct {
	OwnerID       uuid.UUID
	OwnerIdentity string
	AppName       string
	SourceURL     string
}

type RegistryOptions struct {
	Clock func() time.Time
}

type trustRegistry struct {
	repos     *repositories.Repositories
	box       *security.SecretBox
	publisher audit.Publisher
	now       func() time.Time
	log       *logger.Entry
}

// NewTrustRegistry creates a new trust registry
func NewTrustRegistry(repos *repositories.Repositories, box *security.SecretBox, publisher audit.Publisher, opts RegistryOptions) TrustRegistry {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &trustRegistry{
		repos:     repos,
		box:       box,
		publisher: publisher,
		now:       func() time.Time { return opts.Clock().UTC().Truncate(time.Microsecond) },
		log:       logger.WithField("component", "trust_registry"),
	}
}

func (r *trustRegistry) Register(ctx context.Context, repos *repositories.Repositories, req RegisterAppRequest, now time.Time) (*models.ConnectedApp, string, error) {
	if req.OwnerID == uuid.Nil || req.AppName == "" {
		return nil, "", fmt.Errorf("owner and app name are required")
	}

	secret, err := security.NewSigningSecret()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate signing secret: %w", err)
	}

	app := &models.ConnectedApp{
		ID:                  uuid.New(),
		OwnerID:             req.OwnerID,
		OwnerIdentity:       req.OwnerIdentity,
		AppName:             req.AppName,
		SigningSecretHash:   security.HashSecret(secret),
		Status:              models.AppStatusActive,
		TotalEventsReceived: 0,
	}
	if req.SourceURL != "" {
		app.SourceURL = &req.SourceURL
	}

	sealed, err := r.box.Seal(secret, app.ID.String())
	if err != nil {
		return nil, "", fmt.Errorf("failed to seal signing secret: %w", err)
	}
	app.SigningSecretEncrypted = sealed

	revoked, err := repos.ConnectedApp.RevokeActiveByOwnerAndName(ctx, req.OwnerID, req.AppName, now)
	if err != nil {
		return nil, "", fmt.Errorf("failed to revoke previous app link: %w", err)
	}
	if revoked > 0 {
		r.log.WithFields(logger.Fields{
			"owner_id": req.OwnerID,
			"app_name": req.AppName,
		}).Info("Previous app link revoked by re-link")
	}

	if err := repos.ConnectedApp.Create(ctx, app); err != nil {
		return nil, "", fmt.Errorf("failed to create connected app: %w", err)
	}

	return app, secret, nil
}

func (r *trustRegistry) Get(ctx context.Context, caller Caller, id uuid.UUID) (*models.ConnectedApp, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	app, err := r.repos.ConnectedApp.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get connected app: %w", err)
	}
	if app == nil {
		return nil, ErrAppNotFound
	}
	if !caller.CanAct(app.OwnerID) {
		return nil, ErrForbidden
	}
	return app, nil
}

func (r *trustRegistry) List(ctx context.Context, caller Caller) ([]*models.ConnectedApp, error) {
	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	apps, err := r.repos.ConnectedApp.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected apps: %w", err)
	}
	return apps, nil
}

func (r *trustRegistry) Revoke(ctx context.Context, caller Caller, id uuid.UUID) (*models.ConnectedApp, error) {
	app, err := r.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !app.IsActive() {
		return nil, ErrAppAlreadyRevoked
	}

	now := r.now()
	ok, err := r.repos.ConnectedApp.Revoke(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke connected app: %w", err)
	}
	if !ok {
		return nil, ErrAppAlreadyRevoked
	}
	app.Status = models.AppStatusRevoked
	app.RevokedAt = &now

	r.log.WithFields(logger.Fields{"app_id": id, "owner_id": app.OwnerID}).Info("Connected app revoked")

	event := audit.NewEvent(audit.ActionAppRevoked, app.OwnerID, "connected_app", id.String(), nil)
	if caller.UserID != uuid.Nil {
		event.ActorID = &caller.UserID
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.log.WithError(err).Warn("Failed to publish revoke audit event")
	}

	return app, nil
}

// VerifySignature authenticates payload as coming from the app.
func (r *trustRegistry) VerifySignature(ctx context.Context, appID uuid.UUID, payload []byte, signature string) (*models.ConnectedApp, error) {
	app, err := r.repos.ConnectedApp.GetByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connected app: %w", err)
	}
	if app == nil {
		return nil, ErrAppNotFound
	}
	if !app.IsActive() {
		return nil, ErrAppRevoked
	}

	secret, err := r.box.Open(app.SigningSecretEncrypted, app.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open signing secret: %w", err)
	}
	if security.HashSecret(secret) != app.SigningSecretHash {
		return nil, fmt.Errorf("signing secret hash mismatch for app %s", app.ID)
	}

	if err := security.VerifySignature(secret, payload, signature); err != nil {
		if errors.Is(err, security.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, err
	}
	return app, nil
}

func (r *trustRegistry) RecordEvent(ctx context.Context, appID uuid.UUID) error {
	if err := r.repos.ConnectedApp.IncrementEvents(ctx, appID, r.now()); err != nil {
		return fmt.Errorf("failed to record app event: %w", err)
	}
	return nil
}
