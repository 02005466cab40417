// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/streampush/internal/encoder"
)

// Defaults.
const (
	DefaultStopTimeout       = 5 * time.Second
	DefaultWorkerStopTimeout = 5 * time.Second
	DefaultTerminateGrace    = 5 * time.Second
	DefaultEventBuffer       = 64
	DefaultFPS               = 30
	DefaultStderrTail        = 64
	DefaultAPIListen         = "127.0.0.1:8088"
	DefaultRateLimit         = 120
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{Level: "info"},
		FFmpeg: FFmpegConfig{
			Profile:    encoder.DefaultProfile(),
			StderrTail: DefaultStderrTail,
		},
		Supervisor: SupervisorConfig{
			StopTimeout:       DefaultStopTimeout,
			WorkerStopTimeout: DefaultWorkerStopTimeout,
			TerminateGrace:    DefaultTerminateGrace,
			EventBuffer:       DefaultEventBuffer,
		},
		Capture: CaptureConfig{FPS: DefaultFPS, Pacing: "free"},
		API:     APIConfig{Listen: DefaultAPIListen, RateLimit: DefaultRateLimit},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
