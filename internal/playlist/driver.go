// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playlist streams a list of media files one after another to a
// single destination, one encoder process per file.
package playlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/metrics"
	"github.com/ManuGH/streampush/internal/session"
)

// Phase is the driver's position in its state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseAdvancing
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseAdvancing:
		return "advancing"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the driver.
type State struct {
	Phase Phase
	Index int // item being played, -1 when none
	Pass  int // completed passes over the list
	PID   int // current encoder pid, 0 when none
}

// Defaults for Config.
const (
	DefaultGrace = 5 * time.Second
	// failBackoff separates passes in which nothing could be started.
	failBackoff = time.Second
)

// Config tunes the driver.
type Config struct {
	Grace     time.Duration // termination grace for the current item
	PassDelay time.Duration // pause before wrapping to the first item
}

// Driver plays Items in order, wrapping around when Loop is set. Items
// naming an .m3u/.m3u8 file are replaced by its entries, re-read on
// every pass.
type Driver struct {
	Items       []string
	Destination string
	Loop        bool

	Builder  encoder.Builder
	Launcher encoder.Launcher
	Config   Config

	// OnItem, if set, is called when an item's encoder has started.
	OnItem func(index int, path string)
	// CheckSource reports whether an item can be played; defaults to a
	// local file existence check.
	CheckSource func(path string) error

	mu    sync.Mutex
	state State
}

// State returns a snapshot of the driver state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) set(fn func(*State)) {
	d.mu.Lock()
	fn(&d.state)
	d.mu.Unlock()
}

// Run drives the playlist until it ends or ctx is cancelled. Cancellation
// and a finished non-looping list return nil. A pass in which every item was
// missing returns an error wrapping session.ErrMissingSource.
func (d *Driver) Run(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "playlist")
	check := d.CheckSource
	if check == nil {
		check = encoder.CheckLocalSource
	}
	launcher := d.Launcher
	if launcher == nil {
		launcher = encoder.ExecLauncher{}
	}
	grace := d.Config.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	d.set(func(s *State) { *s = State{Phase: PhaseIdle, Index: -1} })
	defer d.set(func(s *State) { s.Phase, s.Index, s.PID = PhaseStopped, -1, 0 })

	if len(d.Items) == 0 {
		return fmt.Errorf("%w: empty playlist", session.ErrInvalidDescriptor)
	}

	for {
		items := expand(d.Items, func(item string, err error) {
			logger.Warn().Err(err).
				Str(log.FieldEvent, "playlist.list_unreadable").
				Str(log.FieldItem, item).
				Msg("playlist file unreadable, skipping")
			metrics.IncPlaylistItem("missing")
		})
		present, started := 0, 0
		for i, item := range items {
			if ctx.Err() != nil {
				return nil
			}
			if err := check(item); err != nil {
				logger.Warn().Err(err).
					Str(log.FieldEvent, "playlist.item_missing").
					Int(log.FieldIndex, i).
					Str(log.FieldItem, item).
					Msg("playlist item missing, skipping")
				metrics.IncPlaylistItem("missing")
				continue
			}
			present++
			if d.play(ctx, launcher, grace, i, item) {
				started++
			}
			if ctx.Err() != nil {
				return nil
			}
			d.set(func(s *State) { s.Phase, s.PID = PhaseAdvancing, 0 })
		}

		d.set(func(s *State) { s.Pass++ })
		metrics.PlaylistPassesTotal.Inc()

		if present == 0 {
			return fmt.Errorf("%w: all %d playlist items missing", session.ErrMissingSource, len(items))
		}
		if !d.Loop {
			logger.Info().Str(log.FieldEvent, "playlist.finished").Msg("playlist finished")
			return nil
		}

		delay := d.Config.PassDelay
		if started == 0 && delay < failBackoff {
			delay = failBackoff
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}
		logger.Debug().Str(log.FieldEvent, "playlist.wrap").Msg("playlist wrapped to first item")
	}
}

// play runs one item to completion or cancellation and reports whether its
// encoder was started.
func (d *Driver) play(ctx context.Context, launcher encoder.Launcher, grace time.Duration, index int, item string) bool {
	logger := log.WithComponentFromContext(ctx, "playlist").With().
		Int(log.FieldIndex, index).
		Str(log.FieldItem, item).
		Logger()

	proc, err := launcher.Launch(ctx, d.Builder.PlaylistItem(item, d.Destination))
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "playlist.item_spawn_failed").Msg("failed to start encoder for playlist item")
		metrics.IncPlaylistItem("spawn_failed")
		return false
	}
	d.set(func(s *State) { s.Phase, s.Index, s.PID = PhasePlaying, index, proc.Pid() })
	logger.Info().Str(log.FieldEvent, "playlist.item_started").Int(log.FieldPID, proc.Pid()).Msg("playing playlist item")
	if d.OnItem != nil {
		d.OnItem(index, item)
	}

	select {
	case <-proc.Done():
		if err := proc.Err(); err != nil {
			logger.Warn().Err(err).
				Int(log.FieldExitCode, proc.ExitCode()).
				Strs("stderr", proc.LastLines(10)).
				Str(log.FieldEvent, "playlist.item_failed").
				Msg("playlist item encoder failed")
			metrics.IncPlaylistItem("failed")
		} else {
			metrics.IncPlaylistItem("completed")
		}
	case <-ctx.Done():
		_ = proc.Terminate(grace)
		metrics.IncPlaylistItem("cancelled")
	}
	return true
}
