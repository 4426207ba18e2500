// Package api serves the health endpoint and the GitHub webhook.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/disqord/internal/http/api/handlers"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Options configures the HTTP server.
type Options struct {
	Port          int
	WebhookSecret string
	Gateway       handlers.GatewayStatus
	Notifier      handlers.ReleaseNotifier
	Recorder      handlers.DeliveryRecorder
}

// ConfigureMode selects the gin mode for the environment.
func ConfigureMode(environment string) {
	if strings.EqualFold(environment, "development") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

// RegisterRoutes registers the health and webhook routes. The webhook route is
// only registered when a secret is configured.
func RegisterRoutes(r *gin.Engine, opts Options) {
	if r == nil {
		return
	}
	healthHandler := handlers.NewHealthHandler(opts.Gateway)
	r.GET("/health", healthHandler.Health)

	if strings.TrimSpace(opts.WebhookSecret) == "" || opts.Notifier == nil {
		log.Info("http: webhook secret not configured, GitHub webhook disabled")
		return
	}
	webhookHandler := handlers.NewWebhookHandler(opts.WebhookSecret, opts.Notifier, opts.Recorder)
	r.POST("/webhook/github", webhookHandler.GitHub)
}

// NewEngine builds a gin engine with middleware and routes.
func NewEngine(opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(Recovery(), RequestID(), Logger())
	RegisterRoutes(engine, opts)
	return engine
}

// Server wraps the HTTP listener.
type Server struct {
	httpServer *http.Server
}

// NewServer constructs a Server listening on opts.Port.
func NewServer(opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           NewEngine(opts),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return fmt.Errorf("http: server not initialized")
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("http: server started")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http: serve: %w", errServe)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := s.httpServer.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("http: shutdown: %w", errShutdown)
	}
	log.Info("http: server stopped")
	return nil
}
