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
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/streampush/internal/capture"
	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/stretchr/testify/require"
)

// stubLauncher replaces every encoder command with a stand-in process and
// remembers what was requested.
type stubLauncher struct {
	mu    sync.Mutex
	run   encoder.Command
	fail  bool
	procs []*encoder.Process
	cmds  []encoder.Command
}

func newStub(run encoder.Command) *stubLauncher { return &stubLauncher{run: run} }

func (l *stubLauncher) Launch(ctx context.Context, c encoder.Command) (*encoder.Process, error) {
	l.mu.Lock()
	l.cmds = append(l.cmds, c)
	run, fail := l.run, l.fail
	l.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: exec: %q: executable file not found in $PATH", encoder.ErrSpawn, c.Path)
	}
	run.Stdin = c.Stdin
	p, err := encoder.ExecLauncher{}.Launch(ctx, run)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	return p, nil
}

// SetRun changes the stand-in process used by later launches.
func (l *stubLauncher) SetRun(c encoder.Command) {
	l.mu.Lock()
	l.run = c
	l.mu.Unlock()
}

func (l *stubLauncher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cmds)
}

func (l *stubLauncher) Last() *encoder.Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.procs) == 0 {
		return nil
	}
	return l.procs[len(l.procs)-1]
}

func (l *stubLauncher) Inputs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.cmds {
		if i := slices.Index(c.Args, "-i"); i >= 0 && i+1 < len(c.Args) {
			out = append(out, c.Args[i+1])
		}
	}
	return out
}

var (
	sleeper   = encoder.Command{Path: "sleep", Args: []string{"30"}}
	sink      = encoder.Command{Path: "sh", Args: []string{"-c", "cat >/dev/null"}}
	stubborn  = encoder.Command{Path: "sh", Args: []string{"-c", "trap '' TERM; while true; do sleep 1; done"}}
	quickExit = encoder.Command{Path: "sleep", Args: []string{"0.05"}}
)

type fakeGrabber struct{}

func (fakeGrabber) Size() (int, int, error) { return 8, 8, nil }
func (fakeGrabber) PixelFormat() string     { return "rgba" }
func (fakeGrabber) Grab() ([]byte, error)   { return make([]byte, 8*8*4), nil }

func fakeGrabbers(string) (capture.Grabber, error) { return fakeGrabber{}, nil }

func newTestRegistry(t *testing.T, l encoder.Launcher, mutate ...func(*Options)) *Registry {
	t.Helper()
	opts := Options{
		Launcher:          l,
		Grabbers:          fakeGrabbers,
		StopTimeout:       2 * time.Second,
		WorkerStopTimeout: 5 * time.Second,
		TerminateGrace:    time.Second,
		EventBuffer:       256,
	}
	for _, m := range mutate {
		m(&opts)
	}
	r := New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}

func touch(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	return p
}

// nextEvent waits for the next event for id, skipping others.
func nextEvent(t *testing.T, r *Registry, id string) Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-r.Events():
			if ev.ID == id {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s", id)
		}
	}
}
