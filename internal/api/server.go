package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/config"
	"example.com/woodtrack/services/production/internal/api/handlers"
	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/repositories"
	"example.com/woodtrack/services/production/internal/search"
	"example.com/woodtrack/services/production/internal/services"
	"example.com/woodtrack/services/production/internal/tracing"
)

// Dependencies carries everything the HTTP server needs
type Dependencies struct {
	Lifecycle    *services.LifecycleService
	Groups       *services.GroupService
	Notes        *services.NoteDebouncer
	Provider     identity.Provider
	Provisioning *identity.ProvisioningService
	Intake       *services.IntakeService
	Clients      *repositories.ClientRepository
	Products     *repositories.ClientProductRepository
	Orders       *repositories.OrderRepository
	Lines        *repositories.OrderLineRepository
	Search       *search.ElasticClient
	Metrics      *metrics.Metrics
	Tracer       tracing.Tracer
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	deps       Dependencies
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, deps Dependencies) *Server {
	server := &Server{
		config: cfg,
		deps:   deps,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      server.router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler := handlers.NewAuthHandler(s.deps.Provider, s.deps.Provisioning)
	linesHandler := handlers.NewLinesHandler(s.deps.Lifecycle, s.deps.Notes, s.deps.Tracer)
	groupsHandler := handlers.NewGroupsHandler(s.deps.Groups, s.deps.Tracer)
	usersHandler := handlers.NewUsersHandler(s.deps.Provisioning)
	catalogHandler := handlers.NewCatalogHandler(s.deps.Clients, s.deps.Products, s.deps.Orders, s.deps.Lines, s.deps.Intake)
	metricsHandler := handlers.NewMetricsHandler(s.deps.Metrics)

	var searcher handlers.CompletedSearcher
	if s.deps.Search != nil {
		searcher = s.deps.Search
	}
	searchHandler := handlers.NewSearchHandler(searcher)

	v1 := router.Group("/api/v1")
	authHandler.RegisterPublicRoutes(v1)

	authed := v1.Group("", handlers.AuthMiddleware(s.deps.Provider))
	authHandler.RegisterRoutes(authed)
	linesHandler.RegisterRoutes(authed)
	groupsHandler.RegisterRoutes(authed)
	usersHandler.RegisterRoutes(authed)
	catalogHandler.RegisterRoutes(authed)
	searchHandler.RegisterRoutes(authed)

	router.GET("/health", metricsHandler.HandleHealthCheck)
	router.GET("/metrics", metricsHandler.HandleGetMetrics)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
