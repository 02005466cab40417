// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/metrics"
	"github.com/rs/zerolog"
)

// Defaults for Config.
const (
	DefaultFPS   = 30
	DefaultGrace = 5 * time.Second
)

// exitProbe bounds how long a failed write waits to see the encoder exit.
const exitProbe = time.Second

// Config controls the capture loop.
type Config struct {
	FPS    int
	Pacing Pacing
	Grace  time.Duration // encoder termination grace period
}

func (c Config) withDefaults() Config {
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.Pacing == "" {
		c.Pacing = PacingFree
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	return c
}

// Stream is an opened capture pipeline: a grabber feeding one encoder.
type Stream struct {
	grabber Grabber
	proc    *encoder.Process
	cfg     Config
	logger  zerolog.Logger
	frames  atomic.Uint64
}

// Open probes the grabber size and spawns the encoder reading raw frames
// from stdin. Errors here mean the session could not be created at all.
func Open(ctx context.Context, g Grabber, b encoder.Builder, l encoder.Launcher, destination string, cfg Config) (*Stream, error) {
	cfg = cfg.withDefaults()
	w, h, err := g.Size()
	if err != nil {
		return nil, fmt.Errorf("probe display size: %w", err)
	}
	cmd := b.RawVideo(destination, encoder.RawInput{
		PixelFormat: g.PixelFormat(),
		Width:       w,
		Height:      h,
		FPS:         cfg.FPS,
	})
	proc, err := l.Launch(ctx, cmd)
	if err != nil {
		return nil, err
	}
	logger := log.WithComponentFromContext(ctx, "capture").With().
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", w, h)).
		Int(log.FieldFPS, cfg.FPS).
		Str("pacing", string(cfg.Pacing)).
		Int(log.FieldPID, proc.Pid()).
		Logger()
	logger.Info().Str(log.FieldEvent, "capture.opened").Msg("screen capture pipeline opened")
	return &Stream{grabber: g, proc: proc, cfg: cfg, logger: logger}, nil
}

// Process returns the encoder fed by this stream.
func (s *Stream) Process() *encoder.Process { return s.proc }

// Frames returns the number of frames written so far.
func (s *Stream) Frames() uint64 { return s.frames.Load() }

// Run pumps frames until ctx is cancelled, the encoder exits or a grab
// fails, then terminates the encoder. Cancellation is a clean stop and
// returns nil; an encoder that exited by itself yields ErrEncoderExited.
func (s *Stream) Run(ctx context.Context) error {
	stopped := make(chan struct{})
	termErr := make(chan error, 1)

	// Terminating from a separate goroutine breaks the pipe under a writer
	// that is blocked on a full stdin buffer.
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		termErr <- s.proc.Terminate(s.cfg.Grace)
	}()

	err := s.pump(ctx)
	close(stopped)
	if tErr := <-termErr; tErr != nil {
		s.logger.Warn().Err(tErr).Msg("encoder termination exceeded grace period")
		if err == nil {
			err = tErr
		}
	}

	ev := s.logger.Info()
	if err != nil && !errors.Is(err, ErrEncoderExited) {
		ev = s.logger.Warn().Err(err)
	}
	ev.Str(log.FieldEvent, "capture.closed").Uint64("frames", s.Frames()).Msg("screen capture pipeline closed")
	return err
}

func (s *Stream) pump(ctx context.Context) error {
	p := newPacer(s.cfg.Pacing, s.cfg.FPS)
	for {
		if err := p.Wait(ctx); err != nil {
			return nil
		}
		select {
		case <-s.proc.Done():
			return ErrEncoderExited
		default:
		}

		start := time.Now()
		frame, err := s.grabber.Grab()
		metrics.CaptureGrabDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("grab frame: %w", err)
		}

		if _, err := s.proc.Write(frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-s.proc.Done():
				return ErrEncoderExited
			case <-time.After(exitProbe):
				return fmt.Errorf("write frame: %w", err)
			}
		}
		s.frames.Add(1)
		metrics.ObserveFrame(len(frame))
	}
}
