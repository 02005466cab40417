// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty path means
// defaults plus environment only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load runs Defaults -> strict file -> environment -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func newStrictDecoder(r io.Reader) *yaml.Decoder {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec
}

// decodeStrict decodes exactly one YAML document into out, rejecting
// unknown fields.
func decodeStrict(data []byte, out any) error {
	dec := newStrictDecoder(bytes.NewReader(data))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.Log.Level = l.envString("STREAMPUSH_LOG_LEVEL", cfg.Log.Level)

	cfg.FFmpeg.Bin = l.envString("STREAMPUSH_FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.SearchDirs = l.envList("STREAMPUSH_FFMPEG_SEARCH_DIRS", cfg.FFmpeg.SearchDirs)
	cfg.FFmpeg.Profile.VideoCodec = l.envString("STREAMPUSH_FFMPEG_VIDEO_CODEC", cfg.FFmpeg.Profile.VideoCodec)
	cfg.FFmpeg.Profile.Preset = l.envString("STREAMPUSH_FFMPEG_PRESET", cfg.FFmpeg.Profile.Preset)
	cfg.FFmpeg.Profile.AudioCodec = l.envString("STREAMPUSH_FFMPEG_AUDIO_CODEC", cfg.FFmpeg.Profile.AudioCodec)
	cfg.FFmpeg.Profile.Format = l.envString("STREAMPUSH_FFMPEG_FORMAT", cfg.FFmpeg.Profile.Format)

	cfg.Supervisor.StopTimeout = l.envDuration("STREAMPUSH_STOP_TIMEOUT", cfg.Supervisor.StopTimeout)
	cfg.Supervisor.WorkerStopTimeout = l.envDuration("STREAMPUSH_WORKER_STOP_TIMEOUT", cfg.Supervisor.WorkerStopTimeout)
	cfg.Supervisor.TerminateGrace = l.envDuration("STREAMPUSH_TERMINATE_GRACE", cfg.Supervisor.TerminateGrace)

	cfg.Capture.FPS = l.envInt("STREAMPUSH_CAPTURE_FPS", cfg.Capture.FPS)
	cfg.Capture.Pacing = l.envString("STREAMPUSH_CAPTURE_PACING", cfg.Capture.Pacing)
	cfg.Playlist.PassDelay = l.envDuration("STREAMPUSH_PLAYLIST_PASS_DELAY", cfg.Playlist.PassDelay)

	cfg.Sessions.File = l.envString("STREAMPUSH_SESSIONS_FILE", cfg.Sessions.File)
	cfg.Sessions.Watch = l.envBool("STREAMPUSH_SESSIONS_WATCH", cfg.Sessions.Watch)

	cfg.API.Listen = l.envString("STREAMPUSH_API_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt("STREAMPUSH_API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.Metrics.Listen = l.envString("STREAMPUSH_METRICS_LISTEN", cfg.Metrics.Listen)
	cfg.Status.File = l.envString("STREAMPUSH_STATUS_FILE", cfg.Status.File)

	cfg.Telemetry.Enabled = l.envBool("STREAMPUSH_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("STREAMPUSH_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("STREAMPUSH_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("STREAMPUSH_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

// Wrapper methods for consumed key tracking.

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}
