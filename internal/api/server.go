// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the HTTP control surface of the session supervisor.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streampush/internal/api/middleware"
	"github.com/ManuGH/streampush/internal/health"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/procstats"
	"github.com/ManuGH/streampush/internal/session"
	"github.com/ManuGH/streampush/internal/supervisor"
)

// Controller is the session surface the API drives. *supervisor.Service
// satisfies it.
type Controller interface {
	StartSession(ctx context.Context, d session.Descriptor) error
	StopSession(ctx context.Context, id string) error
	Reconcile(ctx context.Context, path string) (supervisor.LoadResult, error)
	Sessions() []supervisor.Info
	Lookup(id string) (supervisor.Info, bool)
}

// StatsFunc samples resource usage of one encoder process.
type StatsFunc func(ctx context.Context, pid int) (procstats.Stats, error)

// Config configures the control API.
type Config struct {
	// SessionsFile is reconciled by POST /api/v1/sessions/reload.
	SessionsFile string
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
	// TracingService enables otelhttp spans under this service name.
	TracingService string
	// Stats defaults to procstats.Collect.
	Stats StatsFunc
	// Health serves /healthz and /readyz; nil installs one without checkers.
	Health *health.Manager
}

// Server routes control requests to a Controller.
type Server struct {
	ctl    Controller
	cfg    Config
	logger zerolog.Logger
}

// New constructs a Server.
func New(ctl Controller, cfg Config) *Server {
	if cfg.Stats == nil {
		cfg.Stats = procstats.Collect
	}
	if cfg.Health == nil {
		cfg.Health = health.NewManager("")
	}
	cfg.Health.SetDetails(func() map[string]any {
		return map[string]any{"active_sessions": len(ctl.Sessions())}
	})
	return &Server{
		ctl:    ctl,
		cfg:    cfg,
		logger: log.WithComponent("api"),
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		EnableLogging:  true,
		TracingService: s.cfg.TracingService,
		RateLimit:      s.cfg.RateLimit,
	})

	r.Get("/healthz", s.cfg.Health.ServeHealth)
	r.Get("/readyz", s.cfg.Health.ServeReady)
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleStart)
		r.Post("/reload", s.handleReload)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleStop)
	})
	return r
}
