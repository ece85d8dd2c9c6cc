// Package server exposes a user's notifications and settings over HTTP and
// streams live pushes as server-sent events or over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/push"
)

// Store is what the handlers read and write. *store.Store implements it.
type Store interface {
	ListForUser(ctx context.Context, userID int64, groupIDs []int64, limit int) ([]notification.Notification, error)
	ListSettings(ctx context.Context, userID int64) ([]notification.Setting, error)
	PutSetting(ctx context.Context, s notification.Setting) error
}

// DefaultListLimit caps GET /notifications when no limit is given.
const DefaultListLimit = 50

// Server is the HTTP API.
type Server struct {
	router   *gin.Engine
	store    Store
	hub      *push.Hub
	defaults dispatch.DefaultsSource
	secret   string
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults sets the category defaults reported for unset preferences.
func WithDefaults(d dispatch.DefaultsSource) Option {
	return func(s *Server) {
		if d != nil {
			s.defaults = d
		}
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts
// requests without an Origin header and same-host origins.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = check
	}
}

// New builds the router. secret verifies bearer tokens.
func New(st Store, hub *push.Hub, secret string, opts ...Option) *Server {
	s := &Server{
		router:   gin.New(),
		store:    st,
		hub:      hub,
		secret:   secret,
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaults == nil {
		s.defaults = categoryDefaults{}
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

type categoryDefaults struct{}

func (categoryDefaults) Default(c notification.Category) notification.Defaults {
	return c.Defaults()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "coursenotify"})
	})

	api := s.router.Group("/api/v1")
	api.Use(JWTAuth(s.secret))
	{
		api.GET("/notifications", s.handleList())
		api.GET("/notifications/stream", s.handleStream())
		api.GET("/notifications/ws", s.handleWebSocket())
		api.GET("/notification-settings", s.handleGetSettings())
		api.PUT("/notification-settings", s.handlePutSettings())
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
