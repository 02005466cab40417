// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/streampush/internal/config"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/statusfile"
	"github.com/ManuGH/streampush/internal/supervisor"
)

// App owns the long-lived runtime around the session service (initial
// load, list watcher, reload signal, event log, status file) and delegates
// server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	svc          *supervisor.Service
	sessionsFile string
	watcher      *config.FileWatcher
	status       *statusfile.Writer
	reloadSignal os.Signal
}

// AppOptions carries the optional parts of an App.
type AppOptions struct {
	// SessionsFile is loaded at startup and reconciled on SIGHUP.
	SessionsFile string
	// Watcher reconciles SessionsFile when it changes.
	Watcher *config.FileWatcher
	// Status is kept current while the app runs.
	Status *statusfile.Writer
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, svc *supervisor.Service, opts AppOptions) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		svc:          svc,
		sessionsFile: opts.SessionsFile,
		watcher:      opts.Watcher,
		status:       opts.Status,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a server fails. Sessions are stopped by the manager's
// shutdown hooks before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.svc == nil {
		return ErrMissingService
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logEvents(ctx)
		return nil
	})

	if a.status != nil {
		g.Go(func() error {
			a.status.Run(ctx)
			return nil
		})
	}

	if a.sessionsFile != "" {
		// A broken list must not keep the API from coming up.
		if _, err := a.svc.LoadFromConfig(ctx, a.sessionsFile); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "sessions.initial_load_failed").Msg("initial session list load failed")
		}
	}

	// The watcher is best-effort: startup should not fail if it cannot be started.
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "sessions.watcher_start_failed").Msg("failed to start session list watcher")
		}
	}

	if a.sessionsFile != "" && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "sessions.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reconciling session list")
					if _, err := a.svc.Reconcile(ctx, a.sessionsFile); err != nil {
						a.logger.Warn().Err(err).Str(log.FieldEvent, "sessions.reload_failed").Msg("session list reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// logEvents records every session that leaves the registry.
func (a *App) logEvents(ctx context.Context) {
	events := a.svc.Registry().Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			e := a.logger.Info()
			if ev.Err != nil {
				e = a.logger.Warn().Err(ev.Err)
			}
			e.Str(log.FieldEvent, "session.ended").
				Str(log.FieldSessionID, ev.ID).
				Str(log.FieldRunID, ev.RunID).
				Str(log.FieldKind, string(ev.Kind)).
				Str(log.FieldReason, string(ev.Reason)).
				Bool("natural", ev.Natural()).
				Msg("session ended")
		}
	}
}
