// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/streampush/internal/config"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/session"
	"github.com/rs/zerolog"
)

// StartFailure records a session list entry that did not start.
type StartFailure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// LoadResult summarises a bulk load or reconcile.
type LoadResult struct {
	Disabled  bool           `json:"disabled,omitempty"`
	Started   []string       `json:"started,omitempty"`
	Stopped   []string       `json:"stopped,omitempty"`
	Restarted []string       `json:"restarted,omitempty"`
	Skipped   []string       `json:"skipped,omitempty"`
	Failed    []StartFailure `json:"failed,omitempty"`
}

// Service is the public operations surface over a Registry. It also
// remembers which sessions came from the session list so that Reconcile
// can converge on a changed file.
type Service struct {
	reg    *Registry
	logger zerolog.Logger

	mu      sync.Mutex
	managed map[string]session.Descriptor
}

// NewService wraps reg.
func NewService(reg *Registry) *Service {
	return &Service{
		reg:     reg,
		logger:  log.WithComponent("supervisor"),
		managed: make(map[string]session.Descriptor),
	}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *Registry { return s.reg }

// StartSession starts one session. A started id is no longer managed by
// the session list, even if a list entry of that id ran before and ended.
func (s *Service) StartSession(ctx context.Context, d session.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reg.Start(ctx, d); err != nil {
		return err
	}
	delete(s.managed, d.ID)
	return nil
}

// StopSession stops one session.
func (s *Service) StopSession(ctx context.Context, id string) error {
	err := s.reg.Stop(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.mu.Lock()
		delete(s.managed, id)
		s.mu.Unlock()
	}
	return err
}

// ListActive returns the sorted ids of active sessions.
func (s *Service) ListActive() []string { return s.reg.ActiveIDs() }

// Sessions describes every active session.
func (s *Service) Sessions() []Info { return s.reg.Sessions() }

// Lookup describes one active session.
func (s *Service) Lookup(id string) (Info, bool) { return s.reg.Lookup(id) }

// LoadFromConfig starts every enabled entry of the session list at path.
// Individual start failures are recorded and skipped. A file that cannot be
// read or parsed returns config.ErrLoad before anything starts; an entry that
// cannot be converted returns config.ErrLoad after the entries before it
// were started. A disabled list starts nothing and is not an error.
func (s *Service) LoadFromConfig(ctx context.Context, path string) (LoadResult, error) {
	logger := s.logger.With().Str(log.FieldPath, path).Logger()
	var res LoadResult

	list, err := config.ReadSessionList(path)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "sessions.load_failed").Msg("failed to read session list")
		return res, err
	}
	if !list.IsEnabled() {
		res.Disabled = true
		logger.Warn().Err(config.ErrSessionsDisabled).Str(log.FieldEvent, "sessions.disabled").Msg("session list is disabled, nothing started")
		return res, nil
	}

	plan := list.Resolve()
	s.logSkipped(logger, plan.Skipped)
	res.Skipped = plan.Skipped

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range plan.Descriptors {
		if err := s.reg.Start(ctx, d); err != nil {
			res.Failed = append(res.Failed, StartFailure{ID: d.ID, Err: err.Error()})
			logger.Warn().Err(err).Str(log.FieldSessionID, d.ID).Msg("session from list failed to start")
			continue
		}
		s.managed[d.ID] = d
		res.Started = append(res.Started, d.ID)
	}

	if plan.Err != nil {
		logger.Error().Err(plan.Err).Str(log.FieldEvent, "sessions.load_aborted").Msg("session list load aborted")
		return res, plan.Err
	}
	logger.Info().
		Str(log.FieldEvent, "sessions.loaded").
		Int("started", len(res.Started)).
		Int("failed", len(res.Failed)).
		Int("skipped", len(res.Skipped)).
		Msg("session list loaded")
	return res, nil
}

// Reconcile converges the sessions started from the list at path onto its
// current content: new entries start, removed or disabled ones stop, changed
// ones restart. Sessions started through StartSession are left alone; a list
// entry reusing such an id is reported as failed. A list that fails to load
// changes nothing.
func (s *Service) Reconcile(ctx context.Context, path string) (LoadResult, error) {
	logger := s.logger.With().Str(log.FieldPath, path).Logger()
	var res LoadResult

	list, err := config.ReadSessionList(path)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "sessions.reconcile_failed").Msg("failed to read session list, keeping current sessions")
		return res, err
	}

	var desired []session.Descriptor
	if list.IsEnabled() {
		plan := list.Resolve()
		if plan.Err != nil {
			logger.Error().Err(plan.Err).Str(log.FieldEvent, "sessions.reconcile_failed").Msg("invalid session list, keeping current sessions")
			return res, plan.Err
		}
		desired = plan.Descriptors
		res.Skipped = plan.Skipped
		s.logSkipped(logger, plan.Skipped)
	} else {
		res.Disabled = true
	}

	want := make(map[string]session.Descriptor, len(desired))
	for _, d := range desired {
		want[d.ID] = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restart := make(map[string]bool)
	for id, cur := range s.managed {
		next, keep := want[id]
		if keep && next.Equal(cur) {
			continue
		}
		if err := s.reg.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			logger.Warn().Err(err).Str(log.FieldSessionID, id).Msg("stopping session removed from list")
		}
		delete(s.managed, id)
		if keep {
			restart[id] = true
		} else {
			res.Stopped = append(res.Stopped, id)
		}
	}

	for _, d := range desired {
		if _, ok := s.managed[d.ID]; ok {
			continue
		}
		if err := s.reg.Start(ctx, d); err != nil {
			res.Failed = append(res.Failed, StartFailure{ID: d.ID, Err: err.Error()})
			logger.Warn().Err(err).Str(log.FieldSessionID, d.ID).Msg("session from list failed to start")
			continue
		}
		s.managed[d.ID] = d
		if restart[d.ID] {
			res.Restarted = append(res.Restarted, d.ID)
		} else {
			res.Started = append(res.Started, d.ID)
		}
	}

	logger.Info().
		Str(log.FieldEvent, "sessions.reconciled").
		Int("started", len(res.Started)).
		Int("stopped", len(res.Stopped)).
		Int("restarted", len(res.Restarted)).
		Int("failed", len(res.Failed)).
		Msg("session list reconciled")
	return res, nil
}

func (s *Service) logSkipped(logger zerolog.Logger, skipped []string) {
	for _, id := range skipped {
		logger.Info().Str(log.FieldSessionID, id).Str(log.FieldEvent, "sessions.entry_disabled").Msg("session entry disabled, skipping")
	}
}

// Shutdown stops all sessions; see Registry.Shutdown.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	clear(s.managed)
	s.mu.Unlock()
	return s.reg.Shutdown(ctx)
}
