// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/allisson/natter/internal/config"
	"github.com/allisson/natter/internal/metrics"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
	tokenHTTP "github.com/allisson/natter/internal/token/http"
	userHTTP "github.com/allisson/natter/internal/user/http"
)

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter wires the middleware chain and every API route.
func (s *Server) SetupRouter(
	cfg *config.Config,
	sessions *tokenHTTP.SessionController,
	capabilities *tokenHTTP.CapabilityController,
	users *userHTTP.UserHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := newCORSMiddleware(cfg, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if cfg.RateLimitEnabled {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRequestsPerSec), cfg.RateLimitBurst)
		router.Use(RateLimitMiddleware(limiter, s.logger))
	}

	router.Use(SecurityHeadersMiddleware())
	router.Use(RequireJSONMiddleware(s.logger))
	router.Use(tokenHTTP.RequestInfoMiddleware())

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1", sessions.AuthenticateUser, sessions.ValidateToken)
	{
		v1.POST("/users", users.RegisterUserHandler)

		sessionRoutes := v1.Group("/sessions")
		sessionRoutes.POST("", sessions.RequireAuthentication, sessions.LoginHandler)
		sessionRoutes.DELETE("", sessions.LogoutHandler)
		sessionRoutes.GET("/me", sessions.RequireAuthentication, sessions.MeHandler)

		capabilityRoutes := v1.Group("/capabilities")
		capabilityRoutes.POST("", sessions.RequireAuthentication, capabilities.MintHandler)
		capabilityRoutes.POST("/share", capabilities.ShareHandler)
		capabilityRoutes.DELETE("", capabilities.RevokeHandler)
	}

	resources := router.Group(tokenHTTP.ResourcePrefix,
		capabilities.LookupPermissions,
		capabilities.RequirePermission(http.MethodGet, tokenDomain.PermRead),
		capabilities.RequirePermission(http.MethodPost, tokenDomain.PermWrite),
		capabilities.RequirePermission(http.MethodPut, tokenDomain.PermWrite),
		capabilities.RequirePermission(http.MethodDelete, tokenDomain.PermDelete),
	)
	resources.GET("/*path", capabilities.ResourceHandler)
	resources.POST("/*path", capabilities.ResourceHandler)
	resources.PUT("/*path", capabilities.ResourceHandler)
	resources.DELETE("/*path", capabilities.ResourceHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if s.db == nil || s.db.PingContext(c.Request.Context()) != nil {
		database = "error"
	}

	if database != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": database},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": database},
	})
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
