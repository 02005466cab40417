// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration and the session list.
//
// Precedence for the daemon configuration is ENV > File > Defaults. The
// file is strict YAML: unknown keys are rejected.
package config

import (
	"time"

	"github.com/ManuGH/streampush/internal/encoder"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Log        LogConfig        `yaml:"log"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Capture    CaptureConfig    `yaml:"capture"`
	Playlist   PlaylistConfig   `yaml:"playlist"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	API        APIConfig        `yaml:"api"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Status     StatusConfig     `yaml:"status"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// FFmpegConfig locates the encoder and fixes its output profile.
type FFmpegConfig struct {
	Bin        string          `yaml:"bin"`
	SearchDirs []string        `yaml:"search_dirs"`
	Profile    encoder.Profile `yaml:"profile"`
	StderrTail int             `yaml:"stderr_tail"`
}

// SupervisorConfig bounds the registry's waits.
type SupervisorConfig struct {
	StopTimeout       time.Duration `yaml:"stop_timeout"`
	WorkerStopTimeout time.Duration `yaml:"worker_stop_timeout"`
	TerminateGrace    time.Duration `yaml:"terminate_grace"`
	EventBuffer       int           `yaml:"event_buffer"`
}

// CaptureConfig controls screen sessions.
type CaptureConfig struct {
	FPS    int    `yaml:"fps"`
	Pacing string `yaml:"pacing"`
}

// PlaylistConfig controls playlist sessions.
type PlaylistConfig struct {
	PassDelay time.Duration `yaml:"pass_delay"`
}

// SessionsConfig points at the session list.
type SessionsConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

// APIConfig controls the HTTP control surface. An empty Listen disables it.
type APIConfig struct {
	Listen    string `yaml:"listen"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute per client, 0 = unlimited
}

// MetricsConfig controls the Prometheus listener. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// StatusConfig controls the status snapshot file. An empty File disables it.
type StatusConfig struct {
	File string `yaml:"file"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}
