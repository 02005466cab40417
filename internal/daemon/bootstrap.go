// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the session supervisor into a long-running process.
package daemon

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streampush/internal/api"
	"github.com/ManuGH/streampush/internal/capture"
	"github.com/ManuGH/streampush/internal/config"
	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/health"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/playlist"
	"github.com/ManuGH/streampush/internal/statusfile"
	"github.com/ManuGH/streampush/internal/supervisor"
	"github.com/ManuGH/streampush/internal/telemetry"
)

// Build wires an App from a loaded configuration. Options left zero in
// Options are filled by the registry.
func Build(ctx context.Context, cfg config.AppConfig, opts supervisor.Options) (*App, error) {
	logger := log.WithComponent("daemon")

	provider := startTelemetry(ctx, cfg, logger)

	pacing, err := capture.ParsePacing(cfg.Capture.Pacing)
	if err != nil {
		return nil, fmt.Errorf("capture pacing: %w", err)
	}

	binary := encoder.ResolveBinary(cfg.FFmpeg.Bin, cfg.FFmpeg.SearchDirs)
	logger.Info().Str(log.FieldEncoder, binary).Msg("encoder binary resolved")

	if opts.Launcher == nil {
		opts.Launcher = encoder.ExecLauncher{RingSize: cfg.FFmpeg.StderrTail}
	}
	if opts.Builder.Binary == "" {
		opts.Builder = encoder.NewBuilder(binary, cfg.FFmpeg.Profile)
	}
	if opts.Capture == (capture.Config{}) {
		opts.Capture = capture.Config{FPS: cfg.Capture.FPS, Pacing: pacing}
	}
	if opts.Playlist == (playlist.Config{}) {
		opts.Playlist = playlist.Config{PassDelay: cfg.Playlist.PassDelay}
	}
	if opts.StopTimeout == 0 {
		opts.StopTimeout = cfg.Supervisor.StopTimeout
	}
	if opts.WorkerStopTimeout == 0 {
		opts.WorkerStopTimeout = cfg.Supervisor.WorkerStopTimeout
	}
	if opts.TerminateGrace == 0 {
		opts.TerminateGrace = cfg.Supervisor.TerminateGrace
	}
	if opts.EventBuffer == 0 {
		opts.EventBuffer = cfg.Supervisor.EventBuffer
	}

	var (
		reg    *supervisor.Registry
		status *statusfile.Writer
	)
	if cfg.Status.File != "" {
		status = statusfile.New(cfg.Status.File, func() []supervisor.Info { return reg.Sessions() })
		prev := opts.OnChange
		opts.OnChange = func() {
			status.Notify()
			if prev != nil {
				prev()
			}
		}
	}
	reg = supervisor.New(opts)
	svc := supervisor.NewService(reg)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker(opts.Builder.Binary))
	hm.RegisterChecker(health.NewFileChecker("session_list", cfg.Sessions.File))
	hm.RegisterChecker(health.NewWritableDirChecker("status_dir", cfg.Status.File))

	deps := Deps{Logger: logger}
	if cfg.API.Listen != "" {
		tracing := ""
		if provider != nil && provider.InstanceID() != "" {
			tracing = telemetry.ServiceName
		}
		deps.APIHandler = api.New(svc, api.Config{
			SessionsFile:   cfg.Sessions.File,
			RateLimit:      cfg.API.RateLimit,
			TracingService: tracing,
			Health:         hm,
		}).Handler()
	}
	if cfg.Metrics.Listen != "" {
		deps.MetricsHandler = promhttp.Handler()
	}

	mgr, err := NewManager(DefaultServerConfig(cfg.API.Listen, cfg.Metrics.Listen), deps)
	if err != nil {
		return nil, err
	}

	// LIFO: the watcher stops first, then sessions, then the status file and
	// telemetry flush.
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}
	if status != nil {
		mgr.RegisterShutdownHook("status-file", func(context.Context) error { return status.Write() })
	}
	mgr.RegisterShutdownHook("sessions", svc.Shutdown)

	var watcher *config.FileWatcher
	if cfg.Sessions.File != "" && cfg.Sessions.Watch {
		watcher = config.NewFileWatcher(cfg.Sessions.File, config.DefaultDebounce, func(ctx context.Context, path string) error {
			_, err := svc.Reconcile(ctx, path)
			return err
		})
		mgr.RegisterShutdownHook("session-watcher", func(context.Context) error {
			watcher.Stop()
			return nil
		})
	}

	return NewApp(logger, mgr, svc, AppOptions{
		SessionsFile: cfg.Sessions.File,
		Watcher:      watcher,
		Status:       status,
	}), nil
}

// startTelemetry installs the tracer provider. Tracing is optional: a
// failure is logged and the daemon runs without it.
func startTelemetry(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) *telemetry.Provider {
	telCfg, err := cfg.Telemetry.Provider(cfg.Version, "")
	if err == nil {
		var provider *telemetry.Provider
		if provider, err = telemetry.NewProvider(ctx, telCfg); err == nil {
			if telCfg.Enabled {
				logger.Info().
					Str("exporter", string(telCfg.Exporter)).
					Str("endpoint", telCfg.Endpoint).
					Float64("sampling_rate", telCfg.SamplingRate).
					Str("instance_id", provider.InstanceID()).
					Msg("telemetry initialized")
			}
			return provider
		}
	}
	logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
	return nil
}
