// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/streampush/internal/api/middleware"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/procstats"
	"github.com/ManuGH/streampush/internal/session"
	"github.com/ManuGH/streampush/internal/supervisor"
)

const maxBodyBytes = 1 << 20

// sessionView is one session as the API reports it.
type sessionView struct {
	supervisor.Info
	Stats *procstats.Stats `json:"stats,omitempty"`
}

func (s *Server) view(r *http.Request, info supervisor.Info) sessionView {
	v := sessionView{Info: info}
	if info.PID <= 0 {
		return v
	}
	st, err := s.cfg.Stats(r.Context(), info.PID)
	if err != nil {
		// The process may exit between the listing and the sample.
		s.logger.Debug().Err(err).Str(log.FieldSessionID, info.ID).Int(log.FieldPID, info.PID).Msg("process stats unavailable")
		return v
	}
	v.Stats = &st
	return v
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos := s.ctl.Sessions()
	out := make([]sessionView, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.view(r, info))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	middleware.AnnotateSession(r, id)
	info, ok := s.ctl.Lookup(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", supervisor.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, s.view(r, info))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var d session.Descriptor
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %w", session.ErrInvalidDescriptor, err))
		return
	}
	middleware.AnnotateSession(r, d.ID)

	if err := s.ctl.StartSession(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	info, ok := s.ctl.Lookup(d.ID)
	if !ok {
		// Finished before we could look at it.
		writeJSON(w, http.StatusCreated, map[string]string{"id": d.ID})
		return
	}
	writeJSON(w, http.StatusCreated, s.view(r, info))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	middleware.AnnotateSession(r, id)
	if err := s.ctl.StopSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.SessionsFile == "" {
		writeJSON(w, http.StatusConflict, errorBody{Error: "no_session_list", Detail: "no session list configured"})
		return
	}
	res, err := s.ctl.Reconcile(r.Context(), s.cfg.SessionsFile)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Disabled {
		s.logger.Info().Str(log.FieldEvent, "sessions.reload_disabled").Msg("reload found a disabled session list")
	}
	writeJSON(w, http.StatusOK, res)
}

var _ Controller = (*supervisor.Service)(nil)
