// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/streampush/internal/telemetry"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v1.2.3"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "streampush.yaml", `
log:
  level: debug
ffmpeg:
  bin: /opt/ffmpeg/bin/ffmpeg
  search_dirs: [ffmpeg/bin]
  profile:
    preset: ultrafast
supervisor:
  stop_timeout: 3s
capture:
  fps: 15
  pacing: throttled
sessions:
  file: /etc/streampush/sessions.json
  watch: true
`)
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpeg.Bin)
	assert.Equal(t, []string{"ffmpeg/bin"}, cfg.FFmpeg.SearchDirs)
	assert.Equal(t, "ultrafast", cfg.FFmpeg.Profile.Preset)
	assert.Equal(t, "libx264", cfg.FFmpeg.Profile.VideoCodec, "unset profile fields keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Supervisor.StopTimeout)
	assert.Equal(t, DefaultWorkerStopTimeout, cfg.Supervisor.WorkerStopTimeout)
	assert.Equal(t, 15, cfg.Capture.FPS)
	assert.Equal(t, "throttled", cfg.Capture.Pacing)
	assert.True(t, cfg.Sessions.Watch)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "streampush.yaml", "capture:\n  fps: 15\n")
	t.Setenv("STREAMPUSH_CAPTURE_FPS", "25")
	t.Setenv("STREAMPUSH_STOP_TIMEOUT", "750ms")
	t.Setenv("STREAMPUSH_FFMPEG_SEARCH_DIRS", "a, ,b")
	t.Setenv("STREAMPUSH_API_LISTEN", "")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Capture.FPS)
	assert.Equal(t, 750*time.Millisecond, cfg.Supervisor.StopTimeout)
	assert.Equal(t, []string{"a", "b"}, cfg.FFmpeg.SearchDirs)
	assert.Equal(t, DefaultAPIListen, cfg.API.Listen, "empty env keeps the current value")
	assert.Contains(t, l.ConsumedEnvKeys, "STREAMPUSH_CAPTURE_FPS")
}

func TestLoad_StrictUnknownField(t *testing.T) {
	path := writeFile(t, "streampush.yaml", "capture:\n  framerate: 30\n")
	_, err := NewLoader(path, "dev").Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := writeFile(t, "streampush.toml", "x = 1\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoad_RejectsMultipleDocuments(t *testing.T) {
	path := writeFile(t, "streampush.yaml", "log:\n  level: info\n---\nlog:\n  level: debug\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, "streampush.yaml", "")
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultFPS, cfg.Capture.FPS)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{name: "bad level", mutate: func(c *AppConfig) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "zero stop timeout", mutate: func(c *AppConfig) { c.Supervisor.StopTimeout = 0 }, wantErr: "stop_timeout"},
		{name: "fps too high", mutate: func(c *AppConfig) { c.Capture.FPS = 500 }, wantErr: "capture.fps"},
		{name: "bad pacing", mutate: func(c *AppConfig) { c.Capture.Pacing = "vsync" }, wantErr: "capture.pacing"},
		{name: "watch without file", mutate: func(c *AppConfig) { c.Sessions.Watch = true }, wantErr: "sessions.watch"},
		{name: "same listeners", mutate: func(c *AppConfig) { c.Metrics.Listen = c.API.Listen }, wantErr: "must differ"},
		{name: "telemetry endpoint", mutate: func(c *AppConfig) { c.Telemetry.Enabled = true }, wantErr: "telemetry.endpoint"},
		{name: "telemetry exporter", mutate: func(c *AppConfig) {
			c.Telemetry.Enabled, c.Telemetry.Endpoint, c.Telemetry.Exporter = true, "localhost:4317", "zipkin"
		}, wantErr: "telemetry.exporter"},
		{name: "telemetry sampling", mutate: func(c *AppConfig) {
			c.Telemetry.Enabled, c.Telemetry.Endpoint, c.Telemetry.SamplingRate = true, "localhost:4317", 1.5
		}, wantErr: "telemetry.sampling_rate"},
		{name: "telemetry disabled ignores fields", mutate: func(c *AppConfig) { c.Telemetry.Exporter = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Capture.FPS = 0
	cfg.Supervisor.EventBuffer = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture.fps")
	assert.Contains(t, err.Error(), "event_buffer")
}

func TestTelemetryProvider(t *testing.T) {
	tc := TelemetryConfig{Enabled: true, Exporter: "HTTP", Endpoint: "localhost:4318", SamplingRate: 0.5, Environment: "lab"}
	cfg, err := tc.Provider("1.2.3", "run-1")
	require.NoError(t, err)
	assert.Equal(t, telemetry.Config{
		Enabled:      true,
		Exporter:     telemetry.ExporterHTTP,
		Endpoint:     "localhost:4318",
		SamplingRate: 0.5,
		Environment:  "lab",
		Version:      "1.2.3",
		InstanceID:   "run-1",
	}, cfg)

	tc.Exporter = "zipkin"
	_, err = tc.Provider("1.2.3", "")
	require.Error(t, err)

	tc.Enabled = false
	cfg, err = tc.Provider("1.2.3", "")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}
