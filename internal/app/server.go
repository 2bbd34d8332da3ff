// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/config"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/inventory"
	"repairdesk_backend/internal/jobs"
	"repairdesk_backend/internal/media"
	"repairdesk_backend/internal/middleware"
	"repairdesk_backend/internal/note"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/profile"
	"repairdesk_backend/internal/request"
	"repairdesk_backend/internal/session"
	"repairdesk_backend/internal/shared"
	"repairdesk_backend/internal/sync"
	"repairdesk_backend/internal/unread"

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
	sessionHandler      *session.Handler
	profileHandler      *profile.Handler
	requestHandler      *request.Handler
	noteHandler         *note.Handler
	notificationHandler *notification.Handler
	unreadHandler       *unread.Handler
	inventoryHandler    *inventory.Handler
	mediaHandler        *media.Handler
	sseHandler          *gateway.SSEHandler

	// Jobs
	backgroundRefreshJob *jobs.BackgroundRefreshJob

	// Sync state for the status endpoint
	syncHub *sync.Hub

	// Middleware instances
	authMW      gin.HandlerFunc
	adminRoleMW gin.HandlerFunc
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessionHandler *session.Handler,
	profileHandler *profile.Handler,
	requestHandler *request.Handler,
	noteHandler *note.Handler,
	notificationHandler *notification.Handler,
	unreadHandler *unread.Handler,
	inventoryHandler *inventory.Handler,
	mediaHandler *media.Handler,
	sseHandler *gateway.SSEHandler,
	backgroundRefreshJob *jobs.BackgroundRefreshJob,
	syncHub *sync.Hub,
	tokenService shared.TokenService,
	blocklist shared.TokenBlocklist,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Create middleware instances
	authMW := middleware.AuthMiddleware(tokenService, blocklist, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "RepairDesk API is healthy!"})
	})

	// Uploaded photos and videos are served straight off local disk.
	router.Static("/media", cfg.MediaStoragePath)

	v1 := router.Group("/api/v1")

	// Session and profile routes manage their own auth subgroups.
	sessionHandler.RegisterRoutes(v1, authMW)
	profileHandler.RegisterRoutes(v1, authMW)

	// Service requests with their nested note threads share the
	// :request_id parameter, so both handlers mount on the same group.
	requestGroup := v1.Group("/requests", authMW)
	requestHandler.RegisterRoutes(requestGroup, adminRoleMW)
	noteHandler.RegisterRoutes(requestGroup)

	notificationGroup := v1.Group("/notifications", authMW)
	notificationHandler.RegisterRoutes(notificationGroup)

	unreadGroup := v1.Group("/unread", authMW)
	unreadHandler.RegisterRoutes(unreadGroup)

	mediaGroup := v1.Group("/media", authMW)
	mediaHandler.RegisterRoutes(mediaGroup)

	eventsGroup := v1.Group("/events", authMW)
	sseHandler.RegisterRoutes(eventsGroup)

	inventoryGroup := v1.Group("/inventory", authMW, adminRoleMW)
	inventoryHandler.RegisterRoutes(inventoryGroup)

	// Staff-only view of the shared data controllers' health.
	syncGroup := v1.Group("/sync", authMW, adminRoleMW)
	syncGroup.GET("/status", func(c *gin.Context) {
		common.RespondOK(c, "Sync status retrieved successfully.", syncHub.Statuses())
	})
	syncGroup.POST("/retry/:domain", func(c *gin.Context) {
		if err := syncHub.Retry(c.Request.Context(), c.Param("domain")); err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondOK(c, "Sync domain reloaded.", syncHub.Statuses())
	})

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:           httpServer,
		router:               router,
		cfg:                  cfg,
		logger:               logger,
		sessionHandler:       sessionHandler,
		profileHandler:       profileHandler,
		requestHandler:       requestHandler,
		noteHandler:          noteHandler,
		notificationHandler:  notificationHandler,
		unreadHandler:        unreadHandler,
		inventoryHandler:     inventoryHandler,
		mediaHandler:         mediaHandler,
		sseHandler:           sseHandler,
		backgroundRefreshJob: backgroundRefreshJob,
		syncHub:              syncHub,
		authMW:               authMW,
		adminRoleMW:          adminRoleMW,
	}, nil
}

func (s *Server) Start() error {
	if s.backgroundRefreshJob != nil {
		err := s.backgroundRefreshJob.SetupAndStart()
		if err != nil {
			s.logger.Error("Failed to setup and start background refresh job", zap.Error(err))
		}
	} else {
		s.logger.Info("Background refresh job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.backgroundRefreshJob != nil {
		s.backgroundRefreshJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
