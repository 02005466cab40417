// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package playlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/procgroup"
	"github.com/ManuGH/streampush/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLauncher runs a stand-in command for every item and records the
// input path of each requested encoder.
type stubLauncher struct {
	run  encoder.Command
	fail map[string]bool

	mu     sync.Mutex
	inputs []string
}

func (l *stubLauncher) Launch(ctx context.Context, c encoder.Command) (*encoder.Process, error) {
	in := inputOf(c)
	l.mu.Lock()
	l.inputs = append(l.inputs, in)
	l.mu.Unlock()
	if l.fail[in] {
		return nil, encoder.ErrSpawn
	}
	return encoder.ExecLauncher{}.Launch(ctx, l.run)
}

func (l *stubLauncher) Inputs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.inputs)
}

func inputOf(c encoder.Command) string {
	for i, a := range c.Args {
		if a == "-i" && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	return p
}

type itemLog struct {
	mu      sync.Mutex
	indices []int
}

func (l *itemLog) add(i int, _ string) {
	l.mu.Lock()
	l.indices = append(l.indices, i)
	l.mu.Unlock()
}

func (l *itemLog) get() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.indices)
}

func quick() encoder.Command { return encoder.Command{Path: "sleep", Args: []string{"0.05"}} }

func TestDriver_PlaysInOrderAndFinishes(t *testing.T) {
	dir := t.TempDir()
	a, b := touch(t, dir, "a.mp4"), touch(t, dir, "b.mp4")
	l := &stubLauncher{run: quick()}
	var seen itemLog

	d := &Driver{Items: []string{a, b}, Destination: "rtmp://x", Launcher: l, OnItem: seen.add}
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []int{0, 1}, seen.get())
	assert.Equal(t, []string{a, b}, l.Inputs())
	st := d.State()
	assert.Equal(t, PhaseStopped, st.Phase)
	assert.Equal(t, 1, st.Pass)
}

func TestDriver_LoopSkipsMissingAndWraps(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.mp4")
	missing := filepath.Join(dir, "b.mp4")
	l := &stubLauncher{run: quick()}
	var seen itemLog

	d := &Driver{Items: []string{a, missing}, Destination: "rtmp://x", Loop: true, Launcher: l, OnItem: seen.add}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return len(seen.get()) >= 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, idx := range seen.get() {
		assert.Equal(t, 0, idx)
	}
	assert.NotContains(t, l.Inputs(), missing)
	assert.GreaterOrEqual(t, d.State().Pass, 2)
}

func TestDriver_ExpandsM3UItems(t *testing.T) {
	dir := t.TempDir()
	intro := touch(t, dir, "intro.mp4")
	a, b := touch(t, dir, "a.mp4"), touch(t, dir, "b.mp4")
	list := filepath.Join(dir, "show.m3u8")
	require.NoError(t, os.WriteFile(list, []byte("#EXTM3U\na.mp4\n#EXTINF:-1,B\nb.mp4\n"), 0o600))
	l := &stubLauncher{run: quick()}

	d := &Driver{Items: []string{intro, list}, Destination: "rtmp://x", Launcher: l}
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []string{intro, a, b}, l.Inputs())
}

func TestDriver_AllMissingEndsWithMissingSource(t *testing.T) {
	dir := t.TempDir()
	d := &Driver{
		Items:       []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")},
		Destination: "rtmp://x",
		Loop:        true,
		Launcher:    &stubLauncher{run: quick()},
	}
	err := d.Run(context.Background())
	require.ErrorIs(t, err, session.ErrMissingSource)
	assert.Equal(t, PhaseStopped, d.State().Phase)
}

func TestDriver_SpawnFailureAdvances(t *testing.T) {
	dir := t.TempDir()
	a, b := touch(t, dir, "a.mp4"), touch(t, dir, "b.mp4")
	l := &stubLauncher{run: quick(), fail: map[string]bool{a: true}}
	var seen itemLog

	d := &Driver{Items: []string{a, b}, Destination: "rtmp://x", Launcher: l, OnItem: seen.add}
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []int{1}, seen.get())
	assert.Equal(t, []string{a, b}, l.Inputs())
}

func TestDriver_FailedItemAdvances(t *testing.T) {
	dir := t.TempDir()
	a, b := touch(t, dir, "a.mp4"), touch(t, dir, "b.mp4")
	l := &stubLauncher{run: encoder.Command{Path: "sh", Args: []string{"-c", "exit 1"}}}
	var seen itemLog

	d := &Driver{Items: []string{a, b}, Destination: "rtmp://x", Launcher: l, OnItem: seen.add}
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []int{0, 1}, seen.get())
}

func TestDriver_CancelTerminatesCurrentItem(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.mp4")
	l := &stubLauncher{run: encoder.Command{Path: "sleep", Args: []string{"30"}}}

	d := &Driver{Items: []string{a}, Destination: "rtmp://x", Loop: true, Launcher: l, Config: Config{Grace: time.Second}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return d.State().Phase == PhasePlaying }, 5*time.Second, 10*time.Millisecond)
	pid := d.State().PID
	require.Greater(t, pid, 0)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
	assert.False(t, procgroup.Alive(pid))
	assert.Equal(t, 0, d.State().PID)
}

func TestDriver_EmptyPlaylist(t *testing.T) {
	d := &Driver{Destination: "rtmp://x"}
	err := d.Run(context.Background())
	assert.True(t, errors.Is(err, session.ErrInvalidDescriptor))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "playing", PhasePlaying.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
