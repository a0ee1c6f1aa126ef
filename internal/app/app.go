package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"journal-backend/internal/api"
	"journal-backend/internal/audit"
	"journal-backend/internal/config"
	"journal-backend/internal/database"
	"journal-backend/internal/kafka"
	"journal-backend/internal/metrics"
	"journal-backend/internal/nats"
	"journal-backend/internal/repositories"
	"journal-backend/internal/scheduler"
	"journal-backend/internal/services"
	"journal-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// App holds the wired dependencies shared by the server and the admin CLI.
type App struct {
	Config       *config.Config
	DB           *database.DB
	Repositories *repositories.Repositories
	Services     api.Services
	Metrics      *metrics.Metrics
	Scheduler    *scheduler.Scheduler

	publisher audit.Publisher
	redis     *redis.Client
	log       *logger.Entry
}

// New connects to the database and builds the services. Messaging
// transports are only started by Run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.WithField("component", "app")

	db, err := database.Initialize(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB); err != nil {
			database.Close(db)
			return nil, err
		}
	}

	box, err := security.NewSecretBox(cfg.Security.SecretEncryptionKey)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to initialize secret box: %w", err)
	}

	tolerance, err := cfg.Reconcile.ToleranceDecimal()
	if err != nil {
		database.Close(db)
		return nil, err
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	var publisher audit.Publisher = audit.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = kafka.NewAuditPublisher(cfg.Kafka, m)
		log.WithField("topic", cfg.Kafka.AuditTopic).Info("Publishing audit events to Kafka")
	}

	repos := repositories.NewRepositories(db.DB)
	registry := services.NewTrustRegistry(repos, box, publisher, services.RegistryOptions{})

	a := &App{
		Config:       cfg,
		DB:           db,
		Repositories: repos,
		Metrics:      m,
		publisher:    publisher,
		log:          log,
		Services: api.Services{
			Links: services.NewLinkService(repos, registry, publisher, m, services.LinkOptions{
				TokenTTL:   cfg.Link.TokenTTL,
				DefaultApp: cfg.Link.DefaultApp,
			}),
			Registry: registry,
			Reconciliation: services.NewReconciliationService(repos, publisher, m, services.ReconcileOptions{
				DefaultTolerance: &tolerance,
				Workers:          cfg.Reconcile.Workers,
				OpenTradeMaxAge:  cfg.Reconcile.OpenTradeMaxAge,
			}),
			Sync:      services.NewSyncService(repos, publisher, m),
			Ingestion: services.NewIngestionService(repos, registry, m),
		},
	}

	a.Scheduler = scheduler.New(a.Services.Reconciliation, repos, cfg, m)
	a.Services.Maintenance = a.Scheduler

	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return a, nil
}

// Run serves HTTP, consumes copy events and runs the scheduler until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	health := map[string]api.DependencyCheck{
		"database": a.DB.HealthCheck,
	}

	opts := api.ServerOptions{Metrics: a.Metrics, Health: health}
	if a.redis != nil {
		opts.Limiter = security.NewRedisRateLimiter(a.redis, "journal:ratelimit")
		health["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}

	var natsManager *nats.Manager
	if a.Config.NATS.Enabled {
		var err error
		natsManager, err = nats.NewManager(a.Config.NATS, a.Services.Ingestion, a.Metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize NATS: %w", err)
		}
		defer natsManager.Stop()

		if err := natsManager.Start(); err != nil {
			return fmt.Errorf("failed to start NATS consumers: %w", err)
		}
		health["nats"] = natsManager.HealthCheck
	}

	if a.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.NewServer(a.Config, a.Services, opts).HTTPServer()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.serveHTTP(gctx, srv)
	})

	g.Go(func() error {
		return a.Scheduler.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) serveHTTP(ctx context.Context, srv *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		a.log.WithField("addr", srv.Addr).Info("Starting HTTP server")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

// Close releases every external connection. Safe to call once after Run.
func (a *App) Close() {
	if err := a.publisher.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close audit publisher")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if err := database.Close(a.DB); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}
