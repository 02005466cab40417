// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/streampush/internal/config"
	"github.com/ManuGH/streampush/internal/encoder"
	"github.com/ManuGH/streampush/internal/session"
	"github.com/ManuGH/streampush/internal/supervisor"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a stable error code.
func writeError(w http.ResponseWriter, err error) {
	code, name := classify(err)
	writeJSON(w, code, errorBody{Error: name, Detail: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, config.ErrLoad):
		return http.StatusUnprocessableEntity, "load_failed"
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		return http.StatusConflict, "already_running"
	case errors.Is(err, supervisor.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, supervisor.ErrSpawn), errors.Is(err, encoder.ErrSpawn):
		return http.StatusBadGateway, "spawn_failed"
	case errors.Is(err, session.ErrMissingSource):
		return http.StatusBadRequest, "missing_source"
	case errors.Is(err, session.ErrInvalidDescriptor):
		return http.StatusBadRequest, "invalid_descriptor"
	case errors.Is(err, supervisor.ErrStopTimeout):
		return http.StatusGatewayTimeout, "stop_timeout"
	case errors.Is(err, supervisor.ErrClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
