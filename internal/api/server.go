// Package api serves predictions over HTTP with fiber
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/healthrisk/internal/ai"
	"github.com/gmsas95/healthrisk/internal/config"
	"github.com/gmsas95/healthrisk/internal/cron"
	"github.com/gmsas95/healthrisk/internal/metrics"
	"github.com/gmsas95/healthrisk/internal/store"
)

// Server handles the HTTP API
type Server struct {
	app          *fiber.App
	config       *config.Config
	store        *store.Store
	orchestrator *ai.Orchestrator
	refresher    *cron.Refresher
	metrics      *metrics.Metrics
	logger       *zap.Logger
	version      string
	now          func() time.Time
}

// Option customizes a Server
type Option func(*Server)

// WithStore enables the patient routes
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a new API server
func New(cfg *config.Config, orchestrator *ai.Orchestrator, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:       cfg,
		orchestrator: orchestrator,
		logger:       logger,
		version:      "dev",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	if s.store != nil {
		s.refresher = cron.NewRefresher(s.store, orchestrator, logger)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "healthrisk",
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
