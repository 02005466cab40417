// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !windows

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/streampush/internal/config"
	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/statusfile"
	"github.com/ManuGH/streampush/internal/supervisor"
)

// sleepLauncher replaces every encoder with a long sleep.
type sleepLauncher struct{}

func (sleepLauncher) Launch(ctx context.Context, _ encoder.Command) (*encoder.Process, error) {
	return encoder.Start(ctx, encoder.Command{Path: "sleep", Args: []string{"30"}}, 8)
}

const sessionList = `
streams:
  - stream_id: cam1
    stream_type: rtmp
    input_source: rtmp://in/cam1
    output_url: rtmp://out/cam1
  - id: cam2
    kind: live-input
    source: rtmp://in/cam2
    destination: rtmp://out/cam2
    enabled: false
`

func TestApp_RunLoadsServesAndStops(t *testing.T) {
	dir := t.TempDir()
	sessionsFile := filepath.Join(dir, "sessions.yaml")
	require.NoError(t, os.WriteFile(sessionsFile, []byte(sessionList), 0o600))
	statusPath := filepath.Join(dir, "run", "status.yaml")
	apiAddr := reserveListenAddr(t)

	cfg := config.Defaults()
	cfg.Sessions.File = sessionsFile
	cfg.Status.File = statusPath
	cfg.API.Listen = apiAddr
	cfg.Supervisor.StopTimeout = 2 * time.Second

	app, err := Build(context.Background(), cfg, supervisor.Options{Launcher: sleepLauncher{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := make(chan error, 1)
	go func() { errChan <- app.Run(ctx) }()

	require.NoError(t, waitForListen(apiAddr, 3*time.Second))
	require.Eventually(t, func() bool {
		snap, err := statusfile.Read(statusPath)
		return err == nil && len(snap.Sessions) == 1 && snap.Sessions[0].ID == "cam1"
	}, 3*time.Second, 20*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + apiAddr + "/api/v1/sessions")
	require.NoError(t, err)
	var body struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "cam1", body.Sessions[0].ID)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	snap, err := statusfile.Read(statusPath)
	require.NoError(t, err)
	assert.Empty(t, snap.Sessions)
}

func TestApp_RequiresService(t *testing.T) {
	mgr, err := NewManager(testServerConfig("", ""), Deps{Logger: testLogger()})
	require.NoError(t, err)

	err = NewApp(testLogger(), mgr, nil, AppOptions{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingService)

	err = NewApp(testLogger(), nil, nil, AppOptions{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrMissingManager)
}

func TestBuild_RejectsUnknownPacing(t *testing.T) {
	cfg := config.Defaults()
	cfg.API.Listen = ""
	cfg.Capture.Pacing = "turbo"

	_, err := Build(context.Background(), cfg, supervisor.Options{})
	assert.Error(t, err)
}
