// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig holds the listener settings of the daemon.
type ServerConfig struct {
	// APIListen is the control API address; empty disables the API server.
	APIListen string
	// MetricsListen is the Prometheus address; empty disables the metrics server.
	MetricsListen string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the listener timeouts used by streampushd.
func DefaultServerConfig(apiListen, metricsListen string) ServerConfig {
	return ServerConfig{
		APIListen:       apiListen,
		MetricsListen:   metricsListen,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler serves the control API when APIListen is set
	APIHandler http.Handler

	// MetricsHandler serves Prometheus metrics when MetricsListen is set
	MetricsHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	return nil
}
