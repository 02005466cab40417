// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"

	"github.com/ManuGH/streampush/internal/capture"
	"github.com/ManuGH/streampush/internal/telemetry"
	"github.com/rs/zerolog"
)

// Validate checks the final configuration. All problems are reported at once.
func Validate(cfg AppConfig) error {
	var errs []error

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}

	if cfg.Supervisor.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.stop_timeout must be positive, got %s", cfg.Supervisor.StopTimeout))
	}
	if cfg.Supervisor.WorkerStopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.worker_stop_timeout must be positive, got %s", cfg.Supervisor.WorkerStopTimeout))
	}
	if cfg.Supervisor.TerminateGrace <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.terminate_grace must be positive, got %s", cfg.Supervisor.TerminateGrace))
	}
	if cfg.Supervisor.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("supervisor.event_buffer must be at least 1, got %d", cfg.Supervisor.EventBuffer))
	}
	if cfg.FFmpeg.StderrTail < 1 {
		errs = append(errs, fmt.Errorf("ffmpeg.stderr_tail must be at least 1, got %d", cfg.FFmpeg.StderrTail))
	}

	if cfg.Capture.FPS < 1 || cfg.Capture.FPS > 240 {
		errs = append(errs, fmt.Errorf("capture.fps must be within [1,240], got %d", cfg.Capture.FPS))
	}
	if _, err := capture.ParsePacing(cfg.Capture.Pacing); err != nil {
		errs = append(errs, fmt.Errorf("capture.pacing: %w", err))
	}
	if cfg.Playlist.PassDelay < 0 {
		errs = append(errs, fmt.Errorf("playlist.pass_delay must not be negative, got %s", cfg.Playlist.PassDelay))
	}

	if cfg.Sessions.Watch && cfg.Sessions.File == "" {
		errs = append(errs, errors.New("sessions.watch requires sessions.file"))
	}
	if cfg.API.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit must not be negative, got %d", cfg.API.RateLimit))
	}
	if cfg.API.Listen != "" && cfg.API.Listen == cfg.Metrics.Listen {
		errs = append(errs, fmt.Errorf("api.listen and metrics.listen must differ (%s)", cfg.API.Listen))
	}

	errs = append(errs, cfg.Telemetry.validate()...)

	return errors.Join(errs...)
}

func (t TelemetryConfig) validate() []error {
	if !t.Enabled {
		return nil
	}
	var errs []error
	if _, err := telemetry.ParseExporter(t.Exporter); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.exporter: %w", err))
	}
	if t.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sampling_rate must be within [0,1], got %v", t.SamplingRate))
	}
	return errs
}

// Provider maps the telemetry section onto the tracer provider config of
// one daemon run.
func (t TelemetryConfig) Provider(version, instanceID string) (telemetry.Config, error) {
	cfg := telemetry.Config{
		Enabled:      t.Enabled,
		Endpoint:     t.Endpoint,
		SamplingRate: t.SamplingRate,
		Environment:  t.Environment,
		Version:      version,
		InstanceID:   instanceID,
	}
	if !t.Enabled {
		return cfg, nil
	}
	exp, err := telemetry.ParseExporter(t.Exporter)
	if err != nil {
		return cfg, fmt.Errorf("telemetry.exporter: %w", err)
	}
	cfg.Exporter = exp
	return cfg, nil
}
