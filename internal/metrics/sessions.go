// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the stream supervisor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionStartTotal tracks the outcome of session start attempts.
	SessionStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_session_start_total",
		Help: "Total number of session start attempts by kind and result",
	}, []string{"kind", "result"})

	// SessionStopTotal tracks the outcome of explicit session stops.
	SessionStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_session_stop_total",
		Help: "Total number of session stop requests by kind and result",
	}, []string{"kind", "result"})

	// SessionEndTotal tracks sessions that ended without a stop request.
	SessionEndTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_session_end_total",
		Help: "Total number of sessions that ended on their own, by kind and reason",
	}, []string{"kind", "reason"})

	// SessionsActive tracks the number of registered sessions.
	SessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streampush_sessions_active",
		Help: "Number of currently registered sessions by kind",
	}, []string{"kind"})

	// SessionEventsDropped counts completion events nobody consumed in time.
	SessionEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streampush_session_events_dropped_total",
		Help: "Total number of session completion events dropped because the channel was full",
	})
)

// IncSessionStart records a session start attempt outcome.
func IncSessionStart(kind, result string) {
	SessionStartTotal.WithLabelValues(label(kind), label(result)).Inc()
}

// IncSessionStop records a session stop outcome.
func IncSessionStop(kind, result string) {
	SessionStopTotal.WithLabelValues(label(kind), label(result)).Inc()
}

// IncSessionEnd records a session ending without a stop request.
func IncSessionEnd(kind, reason string) {
	SessionEndTotal.WithLabelValues(label(kind), label(reason)).Inc()
}

// SessionAdded bumps the active gauge for kind.
func SessionAdded(kind string) {
	SessionsActive.WithLabelValues(label(kind)).Inc()
}

// SessionRemoved lowers the active gauge for kind.
func SessionRemoved(kind string) {
	SessionsActive.WithLabelValues(label(kind)).Dec()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
