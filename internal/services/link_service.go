package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"journal-backend/internal/audit"
	"journal-backend/internal/metrics"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"
	"journal-backend/pkg/security"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const (
	DefaultLinkTokenTTL = 15 * time.Minute
	DefaultTargetApp    = "iCopyTrade"
)

// LinkService issues one-time link tokens and redeems them for a shared
// signing secret.
type LinkService interface {
	Issue(ctx context.Context, ownerID uuid.UUID, targetApp string) (*IssuedToken, error)
	Consume(ctx context.Context, req ConsumeRequest) (*ConsumeResult, error)
}

type IssuedToken struct {
	Token            string
	ExpiresAt        time.Time
	ExpiresInSeconds int
}

// ConsumeRequest is what the remote system presents. AppLabel and SourceURL
// are optional.
type ConsumeRequest struct {
	Token     string
	AppLabel  string
	SourceURL string
}

type ConsumeResult struct {
	OwnerID      uuid.UUID
	SharedSecret string
}

type LinkOptions struct {
	TokenTTL   time.Duration
	DefaultApp string
	Clock      func() time.Time
}

type linkService struct {
	repos     *repositories.Repositories
	registry  TrustRegistry
	publisher audit.Publisher
	metrics   *metrics.Metrics
	ttl       time.Duration
	targetApp string
	now       func() time.Time
	log       *logger.Entry
}

// NewLinkService creates a new link service
func NewLinkService(repos *repositories.Repositories, registry TrustRegistry, publisher audit.Publisher, m *metrics.Metrics, opts LinkOptions) LinkService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultLinkTokenTTL
	}
	if opts.DefaultApp == "" {
		opts.DefaultApp = DefaultTargetApp
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	return &linkService{
		repos:     repos,
		registry:  registry,
		publisher: publisher,
		metrics:   m,
		ttl:       opts.TokenTTL,
		targetApp: opts.DefaultApp,
		now:       func() time.Time { return opts.Clock().UTC().Truncate(time.Microsecond) },
		log:       logger.WithField("component", "link_service"),
	}
}

// Issue creates an unused token for ownerID valid for the configured TTL.
func (s *linkService) Issue(ctx context.Context, ownerID uuid.UUID, targetApp string) (*IssuedToken, error) {
	if ownerID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	targetApp = strings.TrimSpace(targetApp)
	if targetApp == "" {
		targetApp = s.targetApp
	}

	value, err := security.NewLinkToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate link token: %w", err)
	}

	now := s.now()
	token := &models.LinkToken{
		Token:     value,
		OwnerID:   ownerID,
		TargetApp: targetApp,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repos.LinkToken.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store link token: %w", err)
	}

	s.metrics.RecordTokenIssued()
	s.log.WithFields(logger.Fields{
		"owner_id":   ownerID,
		"token":      security.MaskSensitiveData(value, 4),
		"target_app": targetApp,
		"expires_at": token.ExpiresAt,
	}).Info("Link token issued")

	return &IssuedToken{
		Token:            value,
		ExpiresAt:        token.ExpiresAt,
		ExpiresInSeconds: int(s.ttl.Seconds()),
	}, nil
}

// Consume redeems a token exactly once. The used_at stamp is a conditional
// update, so of two concurrent callers only one sees a row affected.
func (s *linkService) Consume(ctx context.Context, req ConsumeRequest) (*ConsumeResult, error) {
	tokenValue := strings.TrimSpace(req.Token)
	if tokenValue == "" {
		s.metrics.RecordTokenConsume("invalid")
		return nil, ErrMissingToken
	}

	now := s.now()
	var (
		result *ConsumeResult
		appID  uuid.UUID
		app    string
	)

	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		won, err := tx.LinkToken.MarkUsed(ctx, tokenValue, now)
		if err != nil {
			return fmt.Errorf("failed to consume link token: %w", err)
		}

		token, err := tx.LinkToken.GetByToken(ctx, tokenValue)
		if err != nil {
			return fmt.Errorf("failed to load link token: %w", err)
		}
		if !won {
			switch {
			case token == nil:
				return ErrTokenNotFound
			case token.IsUsed():
				return ErrTokenAlreadyUsed
			default:
				return ErrTokenExpired
			}
		}
		if token == nil {
			return fmt.Errorf("link token vanished after consume")
		}

		app = strings.TrimSpace(req.AppLabel)
		if app == "" {
			app = token.TargetApp
		}

		var ownerIdentity string
		if user, err := tx.User.GetByID(ctx, token.OwnerID); err != nil {
			return fmt.Errorf("failed to load token owner: %w", err)
		} else if user != nil {
			ownerIdentity = user.Email
		}

		connected, secret, err := s.registry.Register(ctx, tx, RegisterAppRequest{
			OwnerID:       token.OwnerID,
			OwnerIdentity: ownerIdentity,
			AppName:       app,
			SourceURL:     strings.TrimSpace(req.SourceURL),
		}, now)
		if err != nil {
			return err
		}

		if err := tx.LinkToken.SetConsumedBy(ctx, token.ID, connected.ID); err != nil {
			return fmt.Errorf("failed to record consuming app: %w", err)
		}

		if err := provisionDefaults(ctx, tx, connected); err != nil {
			return err
		}

		appID = connected.ID
		result = &ConsumeResult{OwnerID: token.OwnerID, SharedSecret: secret}
		return nil
	})
	if err != nil {
		s.metrics.RecordTokenConsume(consumeOutcome(err))
		if KindOf(err) == KindInternal {
			s.log.WithError(err).Error("Link token consume failed")
		}
		return nil, err
	}

	s.metrics.RecordTokenConsume("success")
	s.log.WithFields(logger.Fields{
		"owner_id": result.OwnerID,
		"app_id":   appID,
		"app_name": app,
	}).Info("Link token consumed, connected app registered")

	event := audit.NewEvent(audit.ActionLinkConsumed, result.OwnerID, "connected_app", appID.String(), map[string]interface{}{
		"app_name": app,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish link audit event")
	}

	return result, nil
}

// provisionDefaults gives a freshly linked app a connection to sync and an
// active copy configuration for its events to land in.
func provisionDefaults(ctx context.Context, tx *repositories.Repositories, app *models.ConnectedApp) error {
	conn := &models.Connection{
		OwnerID:        app.OwnerID,
		ConnectedAppID: &app.ID,
		Name:           app.AppName,
		Status:         models.ConnectionStatusActive,
	}
	if err := tx.Connection.Create(ctx, conn); err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}

	params := &models.CopyParams{
		OwnerID:        app.OwnerID,
		ConnectedAppID: &app.ID,
		Name:           app.AppName,
		Status:         models.CopyParamsStatusActive,
	}
	if err := tx.CopyParams.Create(ctx, params); err != nil {
		return fmt.Errorf("failed to create copy configuration: %w", err)
	}
	return nil
}

func consumeOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "error"
	}
}
