// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts encoder processes in their own process group and
// tears whole groups down with a SIGTERM -> grace -> SIGKILL lifecycle.
package procgroup

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/metrics"
)

var (
	// ErrGraceExceeded is returned when the group ignored SIGTERM for the whole
	// grace period and had to be sent SIGKILL.
	ErrGraceExceeded = errors.New("process did not exit within grace period")
	// ErrKillFailed is returned when the group was still alive after SIGKILL.
	ErrKillFailed = errors.New("kill operation failed")
)

// DefaultReap bounds the wait for the kernel to reap a SIGKILLed group.
const DefaultReap = 2 * time.Second

// Set configures the command to start in a new process group.
// Mandatory for Kill and Terminate to reach child processes.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate attempts to gracefully stop a process group.
// It sends SIGTERM and waits for done to be closed (the owner closes it after
// cmd.Wait returned). If the process does not exit within grace it sends
// SIGKILL, waits at most reap and returns ErrGraceExceeded (wrapping
// ErrKillFailed when even SIGKILL did not help).
// It is safe to call on nil or unstarted commands and on exited processes.
func Terminate(cmd *exec.Cmd, done <-chan struct{}, grace, reap time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	default:
	}

	pid := cmd.Process.Pid
	logger := log.WithComponent("procgroup")

	signal("SIGTERM", Kill(cmd, syscall.SIGTERM))
	logger.Debug().Int(log.FieldPID, pid).Msg("sent SIGTERM to process group")

	select {
	case <-done:
		metrics.IncProcWait("graceful")
		return nil
	case <-time.After(grace):
	}

	logger.Warn().Int(log.FieldPID, pid).Dur("grace", grace).Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	signal("SIGKILL", Kill(cmd, syscall.SIGKILL))

	if reap <= 0 {
		reap = DefaultReap
	}
	select {
	case <-done:
		metrics.IncProcWait("forced")
		return ErrGraceExceeded
	case <-time.After(reap):
		metrics.IncProcWait("unreaped")
		return fmt.Errorf("%w: %w", ErrGraceExceeded, ErrKillFailed)
	}
}

func signal(name string, err error) {
	if err == nil {
		metrics.IncProcTerminate(name, "sent")
		return
	}
	metrics.IncProcTerminate(name, "error")
}
