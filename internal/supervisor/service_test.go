// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/streampush/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, path, content string) string {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "sessions.json")
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestService_LoadFromConfig(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	movie := touch(t, "movie.mp4")
	absent := filepath.Join(t.TempDir(), "absent.mp4")

	path := writeList(t, "", fmt.Sprintf(`{
  "enabled": true,
  "streams": [
    {"stream_id": "cam", "input_source": "rtmp://in/live", "output_url": "rtmp://out/cam", "stream_type": "rtmp"},
    {"stream_id": "gone", "input_source": %q, "output_url": "rtmp://out/gone", "stream_type": "local_video"},
    {"stream_id": "movie", "input_source": %q, "output_url": "rtmp://out/movie", "stream_type": "local_video", "loop": true},
    {"stream_id": "off", "input_source": "rtmp://in/x", "output_url": "rtmp://out/off", "stream_type": "rtmp", "enabled": false}
  ]
}`, absent, movie))

	res, err := svc.LoadFromConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cam", "movie"}, res.Started)
	assert.Equal(t, []string{"off"}, res.Skipped)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "gone", res.Failed[0].ID)
	assert.Equal(t, []string{"cam", "movie"}, svc.ListActive())
}

func TestService_LoadFromConfig_Malformed(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	path := writeList(t, "", `{"streams": [`)

	_, err := svc.LoadFromConfig(context.Background(), path)
	require.ErrorIs(t, err, config.ErrLoad)
	assert.Empty(t, svc.ListActive())
}

func TestService_LoadFromConfig_BadEntryKeepsEarlierSessions(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	path := writeList(t, "", `{"streams": [
    {"stream_id": "a", "input_source": "rtmp://in", "output_url": "rtmp://out/a", "stream_type": "rtmp"},
    {"stream_id": "b", "output_url": "rtmp://out/b", "stream_type": "rtmp"},
    {"stream_id": "c", "input_source": "rtmp://in", "output_url": "rtmp://out/c", "stream_type": "rtmp"}
  ]}`)

	res, err := svc.LoadFromConfig(context.Background(), path)
	require.ErrorIs(t, err, config.ErrLoad)
	assert.Equal(t, []string{"a"}, res.Started)
	assert.Equal(t, []string{"a"}, svc.ListActive())
}

func TestService_LoadFromConfig_Disabled(t *testing.T) {
	l := newStub(sleeper)
	svc := NewService(newTestRegistry(t, l))
	path := writeList(t, "", `{"enabled": false, "streams": [
    {"stream_id": "a", "input_source": "rtmp://in", "output_url": "rtmp://out/a", "stream_type": "rtmp"}
  ]}`)

	res, err := svc.LoadFromConfig(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Disabled)
	assert.Empty(t, svc.ListActive())
	assert.Zero(t, l.Launches())
}

func TestService_StartStopSession(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	ctx := context.Background()

	require.NoError(t, svc.StartSession(ctx, live("cam")))
	assert.ErrorIs(t, svc.StartSession(ctx, live("cam")), ErrAlreadyRunning)
	require.NoError(t, svc.StopSession(ctx, "cam"))
	assert.ErrorIs(t, svc.StopSession(ctx, "cam"), ErrNotFound)
	assert.Empty(t, svc.ListActive())
}

func TestService_Reconcile(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	ctx := context.Background()

	path := writeList(t, "", `{"streams": [
    {"stream_id": "a", "input_source": "rtmp://in", "output_url": "rtmp://out/a", "stream_type": "rtmp"},
    {"stream_id": "b", "input_source": "rtmp://in", "output_url": "rtmp://out/b", "stream_type": "rtmp"},
    {"stream_id": "keep", "input_source": "rtmp://in", "output_url": "rtmp://out/keep", "stream_type": "rtmp"}
  ]}`)
	_, err := svc.LoadFromConfig(ctx, path)
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, live("manual")))
	keepBefore, _ := svc.Registry().Lookup("keep")

	writeList(t, path, `{"streams": [
    {"stream_id": "b", "input_source": "rtmp://in", "output_url": "rtmp://out/b2", "stream_type": "rtmp"},
    {"stream_id": "keep", "input_source": "rtmp://in", "output_url": "rtmp://out/keep", "stream_type": "rtmp"},
    {"stream_id": "c", "input_source": "rtmp://in", "output_url": "rtmp://out/c", "stream_type": "rtmp"}
  ]}`)
	res, err := svc.Reconcile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Stopped)
	assert.Equal(t, []string{"b"}, res.Restarted)
	assert.Equal(t, []string{"c"}, res.Started)
	assert.Equal(t, []string{"b", "c", "keep", "manual"}, svc.ListActive())

	keepAfter, _ := svc.Registry().Lookup("keep")
	assert.Equal(t, keepBefore.RunID, keepAfter.RunID, "unchanged entries keep running")
	b, _ := svc.Registry().Lookup("b")
	assert.Equal(t, "rtmp://out/b2", b.Descriptor.Destination)
}

func TestService_Reconcile_InvalidListChangesNothing(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	ctx := context.Background()

	path := writeList(t, "", `{"streams": [
    {"stream_id": "a", "input_source": "rtmp://in", "output_url": "rtmp://out/a", "stream_type": "rtmp"}
  ]}`)
	_, err := svc.LoadFromConfig(ctx, path)
	require.NoError(t, err)

	writeList(t, path, `{"streams": [ {"stream_id": "a", "stream_type": "warp"} ]}`)
	_, err = svc.Reconcile(ctx, path)
	require.ErrorIs(t, err, config.ErrLoad)
	assert.Equal(t, []string{"a"}, svc.ListActive())
}

func TestService_Reconcile_DisabledStopsManaged(t *testing.T) {
	svc := NewService(newTestRegistry(t, newStub(sleeper)))
	ctx := context.Background()

	path := writeList(t, "", `{"streams": [
    {"stream_id": "a", "input_source": "rtmp://in", "output_url": "rtmp://out/a", "stream_type": "rtmp"}
  ]}`)
	_, err := svc.LoadFromConfig(ctx, path)
	require.NoError(t, err)
	require.NoError(t, svc.StartSession(ctx, live("manual")))

	writeList(t, path, `{"enabled": false, "streams": []}`)
	res, err := svc.Reconcile(ctx, path)
	require.NoError(t, err)
	assert.True(t, res.Disabled)
	assert.Equal(t, []string{"a"}, res.Stopped)
	assert.Equal(t, []string{"manual"}, svc.ListActive())
}

func TestService_Reconcile_LeavesManualRestartOfListID(t *testing.T) {
	l := newStub(quickExit)
	r := newTestRegistry(t, l)
	svc := NewService(r)
	ctx := context.Background()

	path := writeList(t, "", `{"streams": [
    {"stream_id": "cam", "input_source": "rtmp://in", "output_url": "rtmp://out/list", "stream_type": "rtmp"}
  ]}`)
	_, err := svc.LoadFromConfig(ctx, path)
	require.NoError(t, err)
	ev := nextEvent(t, r, "cam")
	require.Equal(t, ReasonCompleted, ev.Reason)

	l.SetRun(sleeper)
	manual := live("cam")
	manual.Destination = "rtmp://out/manual"
	require.NoError(t, svc.StartSession(ctx, manual))
	before, ok := r.Lookup("cam")
	require.True(t, ok)

	writeList(t, path, `{"streams": [
    {"stream_id": "cam", "input_source": "rtmp://in", "output_url": "rtmp://out/list2", "stream_type": "rtmp"}
  ]}`)
	res, err := svc.Reconcile(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, res.Restarted)
	assert.Empty(t, res.Stopped)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "cam", res.Failed[0].ID)

	after, ok := r.Lookup("cam")
	require.True(t, ok)
	assert.Equal(t, before.RunID, after.RunID)
	assert.Equal(t, "rtmp://out/manual", after.Descriptor.Destination)
}
