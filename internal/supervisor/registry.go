// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package supervisor owns the set of running sessions: it starts them,
// stops them and notices when they end on their own.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/streampush/internal/capture"
	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/metrics"
	"github.com/ManuGH/streampush/internal/playlist"
	"github.com/ManuGH/streampush/internal/procgroup"
	"github.com/ManuGH/streampush/internal/session"
	"github.com/ManuGH/streampush/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Defaults for Options.
const (
	DefaultStopTimeout       = 5 * time.Second
	DefaultWorkerStopTimeout = 5 * time.Second
	DefaultTerminateGrace    = 5 * time.Second
	DefaultEventBuffer       = 64
)

// Options configures a Registry. Zero values select defaults.
type Options struct {
	Launcher encoder.Launcher
	Builder  encoder.Builder
	Grabbers capture.GrabberFactory
	Capture  capture.Config
	Playlist playlist.Config

	// StopTimeout bounds the SIGTERM wait for direct processes.
	StopTimeout time.Duration
	// WorkerStopTimeout bounds the wait for a cancelled worker.
	WorkerStopTimeout time.Duration
	// TerminateGrace is the SIGTERM grace workers give their encoders.
	TerminateGrace time.Duration
	EventBuffer    int

	// OnChange is called after the set of sessions changed, outside the lock.
	OnChange func()
}

func (o Options) withDefaults() Options {
	if o.Launcher == nil {
		o.Launcher = encoder.ExecLauncher{}
	}
	if o.Grabbers == nil {
		o.Grabbers = capture.NewScreenGrabber
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.WorkerStopTimeout <= 0 {
		o.WorkerStopTimeout = DefaultWorkerStopTimeout
	}
	if o.TerminateGrace <= 0 {
		o.TerminateGrace = DefaultTerminateGrace
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.Capture.Grace <= 0 {
		o.Capture.Grace = o.TerminateGrace
	}
	if o.Playlist.Grace <= 0 {
		o.Playlist.Grace = o.TerminateGrace
	}
	return o
}

type handleKind int

const (
	handleProcess handleKind = iota
	handleWorker
)

// worker is a supervised goroutine with an explicit cancellation token.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error // valid once done is closed
	pid    func() int
}

// entry is one registry slot. Fields other than the lock-guarded flags are
// written before ready is set and are read-only afterwards.
type entry struct {
	desc    session.Descriptor
	runID   string
	started time.Time

	kind handleKind
	proc *encoder.Process
	w    *worker

	// guarded by Registry.mu
	ready    bool
	stopping bool
	stopped  chan struct{}
	stopErr  error
}

func (e *entry) done() <-chan struct{} {
	if e.kind == handleProcess {
		return e.proc.Done()
	}
	return e.w.done
}

func (e *entry) exitErr() error {
	if e.kind == handleProcess {
		return e.proc.Err()
	}
	return e.w.err
}

func (e *entry) pid() int {
	if e.kind == handleProcess {
		return e.proc.Pid()
	}
	if e.w.pid == nil {
		return 0
	}
	return e.w.pid()
}

// Info describes a running session.
type Info struct {
	ID         string             `json:"id"`
	Kind       session.Kind       `json:"kind"`
	Descriptor session.Descriptor `json:"descriptor"`
	RunID      string             `json:"run_id"`
	PID        int                `json:"pid,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	Stopping   bool               `json:"stopping"`
}

// Registry maps session ids to running handles. Presence means active.
type Registry struct {
	opts   Options
	logger zerolog.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	events  chan Event
	watches sync.WaitGroup
}

// New creates an empty registry.
func New(opts Options) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		opts:    opts,
		logger:  log.WithComponent("supervisor"),
		tracer:  telemetry.Tracer("github.com/ManuGH/streampush/internal/supervisor"),
		entries: make(map[string]*entry),
		events:  make(chan Event, opts.EventBuffer),
	}
}

// Events delivers one Event per session that left the registry. Events are
// dropped, and counted, when the buffer is full.
func (r *Registry) Events() <-chan Event { return r.events }

// Start launches a session. The id slot is reserved before anything is
// spawned, so concurrent Starts of one id cannot both succeed.
func (r *Registry) Start(ctx context.Context, d session.Descriptor) error {
	ctx, span := r.tracer.Start(ctx, "supervisor.Start",
		trace.WithAttributes(telemetry.SessionAttributes(d.ID, string(d.Kind), "")...))
	defer span.End()

	nd, err := d.Normalize()
	if err != nil {
		r.startFailed(span, string(d.Kind), "invalid", err)
		return err
	}
	d = nd
	kind := string(d.Kind)

	if d.Kind == session.KindLocalFile {
		if err := encoder.CheckLocalSource(d.Source); err != nil {
			r.startFailed(span, kind, "missing_source", err)
			return err
		}
	}

	e := &entry{desc: d, runID: uuid.NewString()}
	span.SetAttributes(telemetry.SessionAttributes("", "", e.runID)...)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.startFailed(span, kind, "closed", ErrClosed)
		return ErrClosed
	}
	if _, exists := r.entries[d.ID]; exists {
		r.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrAlreadyRunning, d.ID)
		r.startFailed(span, kind, "already_running", err)
		return err
	}
	r.entries[d.ID] = e
	r.mu.Unlock()

	ctx = log.ContextWithRunID(log.ContextWithSessionID(ctx, d.ID), e.runID)
	logger := log.WithComponentFromContext(ctx, "supervisor").With().Str(log.FieldKind, kind).Logger()

	if err := r.spawn(ctx, e); err != nil {
		r.mu.Lock()
		if r.entries[d.ID] == e {
			delete(r.entries, d.ID)
		}
		r.mu.Unlock()
		err = fmt.Errorf("%w: session %s: %w", ErrSpawn, d.ID, err)
		logger.Error().Err(err).Str(log.FieldEvent, "session.spawn_failed").Msg("failed to start session")
		r.startFailed(span, kind, "spawn_failed", err)
		return err
	}

	r.mu.Lock()
	if r.closed {
		delete(r.entries, d.ID)
		r.mu.Unlock()
		_ = r.terminate(e)
		r.startFailed(span, kind, "closed", ErrClosed)
		return ErrClosed
	}
	e.started = time.Now()
	e.ready = true
	r.watches.Add(1) // before unlock so Shutdown's Wait observes it
	r.mu.Unlock()

	go r.watch(e, logger)

	metrics.IncSessionStart(kind, "ok")
	metrics.SessionAdded(kind)
	logger.Info().
		Str(log.FieldEvent, "session.started").
		Str(log.FieldDestination, d.Destination).
		Int(log.FieldPID, e.pid()).
		Msg("session started")
	r.changed()
	return nil
}

func (r *Registry) startFailed(span trace.Span, kind, result string, err error) {
	metrics.IncSessionStart(kind, result)
	telemetry.RecordError(span, err, result)
}

// spawn creates the handle for e. It runs with the slot reserved but not
// yet visible as active.
func (r *Registry) spawn(ctx context.Context, e *entry) error {
	d := e.desc
	switch d.Kind {
	case session.KindScreen:
		g, err := r.opts.Grabbers(d.Source)
		if err != nil {
			return err
		}
		stream, err := capture.Open(ctx, g, r.opts.Builder, r.opts.Launcher, d.Destination, r.opts.Capture)
		if err != nil {
			return err
		}
		e.kind = handleWorker
		e.w = r.runWorker(ctx, stream.Run, func() int { return stream.Process().Pid() })
		return nil

	case session.KindPlaylist:
		drv := &playlist.Driver{
			Items:       d.Playlist,
			Destination: d.Destination,
			Loop:        d.Loop,
			Builder:     r.opts.Builder,
			Launcher:    r.opts.Launcher,
			Config:      r.opts.Playlist,
		}
		e.kind = handleWorker
		e.w = r.runWorker(ctx, drv.Run, func() int { return drv.State().PID })
		return nil

	default:
		cmd, err := r.opts.Builder.Direct(d)
		if err != nil {
			return err
		}
		proc, err := r.opts.Launcher.Launch(ctx, cmd)
		if err != nil {
			return err
		}
		e.kind = handleProcess
		e.proc = proc
		return nil
	}
}

// runWorker starts run in its own goroutine. The worker context keeps the
// caller's values but not its cancellation.
func (r *Registry) runWorker(ctx context.Context, run func(context.Context) error, pid func() int) *worker {
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &worker{cancel: cancel, done: make(chan struct{}), pid: pid}
	go func() {
		defer close(w.done)
		defer func() {
			if rec := recover(); rec != nil {
				w.err = fmt.Errorf("worker panic: %v", rec)
			}
		}()
		w.err = run(wctx)
	}()
	return w
}

// watch removes e when its handle ends on its own.
func (r *Registry) watch(e *entry, logger zerolog.Logger) {
	defer r.watches.Done()
	<-e.done()
	if e.kind == handleWorker {
		e.w.cancel()
	}

	r.mu.Lock()
	natural := !e.stopping && r.entries[e.desc.ID] == e
	if natural {
		delete(r.entries, e.desc.ID)
	}
	r.mu.Unlock()
	if !natural {
		return
	}

	err := e.exitErr()
	reason := ReasonCompleted
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrEncoderExited):
		reason = ReasonEncoderExited
	default:
		reason = ReasonFailed
	}

	kind := string(e.desc.Kind)
	metrics.SessionRemoved(kind)
	metrics.IncSessionEnd(kind, string(reason))

	ev := logger.Info()
	if reason == ReasonFailed {
		ev = logger.Warn().Err(err)
		if e.kind == handleProcess {
			ev = ev.Int(log.FieldExitCode, e.proc.ExitCode()).Strs("stderr", e.proc.LastLines(10))
		}
	}
	ev.Str(log.FieldEvent, "session.ended").Str(log.FieldReason, string(reason)).Msg("session ended on its own")

	r.publish(Event{ID: e.desc.ID, RunID: e.runID, Kind: e.desc.Kind, Reason: reason, Err: err, At: time.Now()})
	r.changed()
}

// Stop terminates a session and removes it. A Stop for a session that is
// already stopping waits for the first one and returns its result. ctx
// carries trace and log context and bounds only that join; the termination
// itself runs to completion or the stop timeout even if ctx is cancelled.
func (r *Registry) Stop(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "supervisor.Stop",
		trace.WithAttributes(telemetry.SessionAttributes(id, "", "")...))
	defer span.End()

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || !e.ready {
		r.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrNotFound, id)
		metrics.IncSessionStop("", "not_found")
		telemetry.RecordError(span, err, "not_found")
		return err
	}
	if e.stopping {
		stopped := e.stopped
		r.mu.Unlock()
		select {
		case <-stopped:
			r.mu.Lock()
			err := e.stopErr
			r.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.stopping = true
	e.stopped = make(chan struct{})
	r.mu.Unlock()

	kind := string(e.desc.Kind)
	span.SetAttributes(telemetry.SessionAttributes("", kind, e.runID)...)
	ctx = log.ContextWithRunID(log.ContextWithSessionID(ctx, id), e.runID)
	logger := log.WithComponentFromContext(ctx, "supervisor").With().Str(log.FieldKind, kind).Logger()
	logger.Info().Str(log.FieldEvent, "session.stopping").Msg("stopping session")

	err := r.terminate(e)

	r.mu.Lock()
	if r.entries[id] == e {
		delete(r.entries, id)
	}
	e.stopErr = err
	close(e.stopped)
	r.mu.Unlock()

	reason, result := ReasonStopped, "ok"
	if err != nil {
		reason, result = ReasonStopTimeout, "timeout"
		telemetry.RecordError(span, err, result)
		logger.Warn().Err(err).Str(log.FieldEvent, "session.stop_timeout").Msg("session did not stop in time, removed anyway")
	} else {
		logger.Info().Str(log.FieldEvent, "session.stopped").Msg("session stopped")
	}
	metrics.SessionRemoved(kind)
	metrics.IncSessionStop(kind, result)

	r.publish(Event{ID: id, RunID: e.runID, Kind: e.desc.Kind, Reason: reason, Err: err, At: time.Now()})
	r.changed()
	return err
}

// terminate ends e's handle. The wait is bounded by the stop timeouts only,
// so the id is never released while the encoder may still be pushing.
func (r *Registry) terminate(e *entry) error {
	id := e.desc.ID
	if e.kind == handleProcess {
		// Terminate escalates to SIGKILL once StopTimeout passed.
		err := e.proc.Terminate(r.opts.StopTimeout)
		if err != nil {
			return fmt.Errorf("%w: session %s: %w", ErrStopTimeout, id, err)
		}
		return nil
	}

	e.w.cancel()
	timer := time.NewTimer(r.opts.WorkerStopTimeout)
	defer timer.Stop()
	select {
	case <-e.w.done:
		if err := e.w.err; errors.Is(err, procgroup.ErrGraceExceeded) {
			return fmt.Errorf("%w: session %s: %w", ErrStopTimeout, id, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: session %s: worker still running after %s", ErrStopTimeout, id, r.opts.WorkerStopTimeout)
	}
}

// ActiveIDs returns the sorted ids of all active sessions.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if e.ready {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Sessions returns a snapshot of all active sessions sorted by id.
func (r *Registry) Sessions() []Info {
	type snap struct {
		e        *entry
		stopping bool
	}
	r.mu.Lock()
	snaps := make([]snap, 0, len(r.entries))
	for _, e := range r.entries {
		if e.ready {
			snaps = append(snaps, snap{e: e, stopping: e.stopping})
		}
	}
	r.mu.Unlock()

	out := make([]Info, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, infoOf(s.e, s.stopping))
	}
	slices.SortFunc(out, func(a, b Info) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Lookup returns the session with the given id.
func (r *Registry) Lookup(id string) (Info, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || !e.ready {
		r.mu.Unlock()
		return Info{}, false
	}
	stopping := e.stopping
	r.mu.Unlock()
	return infoOf(e, stopping), true
}

func infoOf(e *entry, stopping bool) Info {
	d := e.desc
	d.Playlist = slices.Clone(d.Playlist)
	return Info{
		ID:         d.ID,
		Kind:       d.Kind,
		Descriptor: d,
		RunID:      e.runID,
		PID:        e.pid(),
		StartedAt:  e.started,
		Stopping:   stopping,
	}
}

// StopAll stops every active session in parallel and joins the errors.
func (r *Registry) StopAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, id := range r.ActiveIDs() {
		g.Go(func() error {
			if err := r.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Shutdown rejects further Starts, stops all sessions and waits for their
// watchers to finish or ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	err := r.StopAll(ctx)

	done := make(chan struct{})
	go func() {
		r.watches.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

func (r *Registry) publish(ev Event) {
	select {
	case r.events <- ev:
	default:
		metrics.SessionEventsDropped.Inc()
		r.logger.Warn().Str(log.FieldSessionID, ev.ID).Str(log.FieldReason, string(ev.Reason)).Msg("session event dropped, buffer full")
	}
}

func (r *Registry) changed() {
	if r.opts.OnChange != nil {
		r.opts.OnChange()
	}
}
