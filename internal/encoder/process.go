// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/metrics"
	"github.com/ManuGH/streampush/internal/procgroup"
	"github.com/rs/zerolog"
)

var (
	// ErrSpawn is returned when the OS fails to create the encoder process.
	ErrSpawn = errors.New("encoder spawn failed")
	// ErrNoStdin is returned by Write on processes started without a stdin pipe.
	ErrNoStdin = errors.New("encoder has no stdin pipe")
)

// DefaultRingSize is the number of stderr lines kept per process.
const DefaultRingSize = 64

// Launcher spawns encoder processes.
type Launcher interface {
	Launch(ctx context.Context, c Command) (*Process, error)
}

// ExecLauncher spawns real processes via os/exec.
type ExecLauncher struct {
	RingSize int
}

// Launch implements Launcher.
func (l ExecLauncher) Launch(ctx context.Context, c Command) (*Process, error) {
	return Start(ctx, c, l.RingSize)
}

// Process wraps one spawned encoder.
type Process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ring    *LineRing
	started time.Time
	logger  zerolog.Logger

	done chan struct{}
	err  error // written once before done is closed

	closeOnce sync.Once
	closeErr  error
}

// Start launches c in its own process group. ctx is only used for log
// correlation: the process outlives the request that started it and is
// stopped through Terminate.
func Start(ctx context.Context, c Command, ringSize int) (*Process, error) {
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	logger := log.WithComponentFromContext(ctx, "encoder")

	cmd := exec.Command(c.Path, c.Args...) // #nosec G204 -- argument vector built by Builder
	procgroup.Set(cmd)

	p := &Process{
		cmd:    cmd,
		ring:   NewLineRing(ringSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	if c.Stdin {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			metrics.IncEncoderSpawn("error")
			return nil, fmt.Errorf("%w: stdin pipe: %v", ErrSpawn, err)
		}
		p.stdin = stdin
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		metrics.IncEncoderSpawn("error")
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		metrics.IncEncoderSpawn("error")
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, c.Path, err)
	}
	p.started = time.Now()
	p.logger = logger.With().Int(log.FieldPID, cmd.Process.Pid).Logger()
	metrics.IncEncoderSpawn("ok")
	p.logger.Debug().Str("command", cmd.String()).Msg("encoder process started")

	go p.reap(stderr)
	return p, nil
}

// reap drains stderr and collects the exit status.
func (p *Process) reap(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	for scanner.Scan() {
		p.ring.Add(scanner.Text())
	}
	// Drain anything the scanner gave up on so the child never blocks on stderr.
	_, _ = io.Copy(io.Discard, stderr)

	p.err = p.cmd.Wait()

	reason := "clean"
	if p.err != nil {
		reason = "error"
		var exitErr *exec.ExitError
		if errors.As(p.err, &exitErr) && exitErr.ExitCode() < 0 {
			reason = "signaled"
		}
	}
	metrics.IncEncoderExit(reason)
	close(p.done)
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// StartedAt returns the spawn time.
func (p *Process) StartedAt() time.Time { return p.started }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has been reaped.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Err returns the exit error once Done is closed, nil before.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// ExitCode returns the exit code, -1 if still running or killed by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Wait blocks until the process exits or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Write sends raw bytes to the process' stdin. A blocked write is released
// when the process exits and the pipe breaks.
func (p *Process) Write(b []byte) (int, error) {
	if p.stdin == nil {
		return 0, ErrNoStdin
	}
	return p.stdin.Write(b)
}

// CloseInput closes stdin, signalling end of input.
func (p *Process) CloseInput() error {
	if p.stdin == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		p.closeErr = p.stdin.Close()
	})
	return p.closeErr
}

// Terminate sends SIGTERM to the process group, waits up to grace, then
// escalates to SIGKILL. It returns procgroup.ErrGraceExceeded if escalation
// was needed.
func (p *Process) Terminate(grace time.Duration) error {
	if p.Exited() {
		return nil
	}
	err := procgroup.Terminate(p.cmd, p.done, grace, procgroup.DefaultReap)
	_ = p.CloseInput()
	if err != nil {
		p.logger.Warn().Err(err).Strs("stderr", p.LastLines(10)).Msg("encoder did not stop gracefully")
	}
	return err
}

// LastLines returns the last n lines the encoder wrote to stderr.
func (p *Process) LastLines(n int) []string {
	return p.ring.LastN(n)
}

func (p *Process) String() string {
	return p.cmd.String()
}
