package api

import (
	"net/http"
	"time"

	"journal-backend/internal/config"
	"journal-backend/internal/metrics"
	"journal-backend/internal/middleware"
	"journal-backend/internal/services"
	"journal-backend/pkg/auth"
	"journal-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
)

// Services groups what the HTTP layer calls into.
type Services struct {
	Links          services.LinkService
	Registry       services.TrustRegistry
	Reconciliation services.ReconciliationService
	Sync           services.SyncService
	Ingestion      services.IngestionService

	// Maintenance enables the admin routes when set.
	Maintenance Maintenance
}

// Server represents the API server
type Server struct {
	router      *gin.Engine
	config      *config.Config
	services    Services
	jwtManager  *auth.JWTManager
	limiter     security.RateLimiter
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	healthCheck map[string]DependencyCheck
	log         *logger.Entry
}

// ServerOptions carries the optional collaborators of the server.
type ServerOptions struct {
	// Limiter defaults to an in-process limiter.
	Limiter  security.RateLimiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   map[string]DependencyCheck
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, svc Services, opts ServerOptions) *Server {
	if opts.Limiter == nil {
		opts.Limiter = security.NewLocalRateLimiter()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:      cfg,
		services:    svc,
		jwtManager:  auth.NewJWTManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpiration)*time.Second),
		limiter:     opts.Limiter,
		metrics:     opts.Metrics,
		gatherer:    opts.Gatherer,
		healthCheck: opts.Health,
		log:         logger.WithField("component", "http"),
	}
}

// SetupRoutes sets up all API routes
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()

	var allowedOrigins []string
	if s.config.IsProduction() {
		allowedOrigins = []string{"https://journal.example.com"}
	} else {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(s.log))
	router.Use(middleware.RecoveryMiddleware(s.log, s.metrics))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(allowedOrigins))
	router.Use(s.metrics.HTTPMetricsMiddleware())

	s.setupHealthRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/v1")

	// Called by remote trading systems, not journal users.
	s.setupPartnerRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(s.jwtManager))
	protected.Use(middleware.RateLimitMiddleware(s.limiter, security.RateLimitRule{
		Name:   "api",
		Limit:  s.config.RateLimit.APIPerHour,
		Window: time.Hour,
		Burst:  s.config.RateLimit.APIPerHour / 10,
	}, middleware.UserKeyFunc))

	s.setupLinkRoutes(protected)
	s.setupReconciliationRoutes(protected)
	s.setupConnectionRoutes(protected)
	s.setupAdminRoutes(protected)

	s.router = router
	return router
}

func (s *Server) setupHealthRoutes(router *gin.Engine) {
	health := NewHealthHandler("1.0.0", s.healthCheck)
	router.GET("/health/live", health.LivenessProbe)
	router.GET("/health/ready", health.ReadinessProbe)
}

func (s *Server) setupPartnerRoutes(api *gin.RouterGroup) {
	linkHandler := NewLinkHandler(s.services.Links)
	consumeLimit := middleware.RateLimitMiddleware(s.limiter, security.RateLimitRule{
		Name:   "link_consume",
		Limit:  s.config.RateLimit.ConsumePerMinute,
		Window: time.Minute,
		Burst:  s.config.RateLimit.ConsumeBurst,
	}, middleware.DefaultKeyFunc)
	api.POST("/links/consume", consumeLimit, linkHandler.ConsumeToken)

	if s.services.Ingestion != nil {
		copyEvents := NewCopyEventHandler(s.services.Ingestion)
		api.POST("/copy-events", copyEvents.Ingest)
	}
}

func (s *Server) setupLinkRoutes(protected *gin.RouterGroup) {
	linkHandler := NewLinkHandler(s.services.Links)
	protected.POST("/links/tokens", linkHandler.IssueToken)
}

func (s *Server) setupReconciliationRoutes(protected *gin.RouterGroup) {
	handler := NewReconciliationHandler(s.services.Reconciliation)
	protected.POST("/reconciliations", handler.Reconcile)
	protected.POST("/copied-trades/:id/requeue", handler.Requeue)
}

func (s *Server) setupConnectionRoutes(protected *gin.RouterGroup) {
	handler := NewConnectionHandler(s.services.Sync, s.services.Registry)
	protected.GET("/connections", handler.ListConnections)
	protected.POST("/connections/sync", handler.Sync)
	protected.GET("/connections/:id/sync-events", handler.SyncHistory)

	apps := protected.Group("/connected-apps")
	apps.GET("", handler.ListConnectedApps)
	apps.GET("/:id", handler.GetConnectedApp)
	apps.DELETE("/:id", handler.RevokeConnectedApp)
}

func (s *Server) setupAdminRoutes(protected *gin.RouterGroup) {
	if s.services.Maintenance == nil {
		return
	}
	handler := NewAdminHandler(s.services.Maintenance)
	admin := protected.Group("/admin")
	admin.Use(middleware.AdminMiddleware())
	admin.POST("/sweep", handler.Sweep)
	admin.POST("/gc", handler.CollectGarbage)
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *gin.Engine {
	if s.router == nil {
		return s.SetupRoutes()
	}
	return s.router
}

// HTTPServer wraps the router with the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.GetRouter(),
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}
}
