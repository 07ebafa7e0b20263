// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/generate"
	"jazz_picker_backend/internal/jobs"
	"jazz_picker_backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	catalogHandler  *catalog.Handler
	generateHandler *generate.Handler

	// Jobs
	catalogSyncJob *jobs.CatalogSyncJob
}

// NewRouter builds the gin engine with the global middleware and every route registered.
func NewRouter(cfg *config.Config, logger *zap.Logger, catalogHandler *catalog.Handler, generateHandler *generate.Handler) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", "ETag", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// --- Setup Routes ---
	root := router.Group("")
	catalogHandler.RegisterRoutes(root)
	generateHandler.RegisterRoutes(root)

	return router
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	catalogHandler *catalog.Handler,
	generateHandler *generate.Handler,
	catalogSyncJob *jobs.CatalogSyncJob,
) (*Server, error) {
	router := NewRouter(cfg, logger, catalogHandler, generateHandler)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
		// Generation runs LilyPond inside the request.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LilyPondTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		router:          router,
		cfg:             cfg,
		logger:          logger,
		catalogHandler:  catalogHandler,
		generateHandler: generateHandler,
		catalogSyncJob:  catalogSyncJob,
	}, nil
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Start() error {
	if s.catalogSyncJob != nil {
		// Load the catalog before taking traffic so the first ETag is correct.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if _, err := s.catalogSyncJob.RunOnce(ctx); err != nil {
			s.logger.Error("Initial catalog sync failed, serving the existing catalog", zap.Error(err))
		}
		cancel()

		if err := s.catalogSyncJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start catalog sync job", zap.Error(err))
		}
	} else {
		s.logger.Info("Catalog sync job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.catalogSyncJob != nil {
		s.catalogSyncJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
