// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EncoderSpawnTotal tracks encoder process starts.
	EncoderSpawnTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_encoder_spawn_total",
		Help: "Total number of encoder process starts by result",
	}, []string{"result"})

	// EncoderExitTotal tracks encoder process exits.
	EncoderExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_encoder_exit_total",
		Help: "Total number of encoder process exits by reason",
	}, []string{"reason"})

	// ProcTerminateTotal tracks signals sent to encoder process groups.
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_proc_terminate_total",
		Help: "Signals sent to encoder process groups by signal and result",
	}, []string{"signal", "result"})

	// ProcWaitTotal tracks how terminated processes ended up exiting.
	ProcWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_proc_wait_total",
		Help: "Outcome of waiting on terminated encoder processes",
	}, []string{"outcome"})
)

// IncEncoderSpawn records an encoder spawn outcome ("ok" or "error").
func IncEncoderSpawn(result string) {
	EncoderSpawnTotal.WithLabelValues(label(result)).Inc()
}

// IncEncoderExit records why an encoder process exited.
func IncEncoderExit(reason string) {
	EncoderExitTotal.WithLabelValues(label(reason)).Inc()
}

// IncProcTerminate records a signal delivery attempt.
func IncProcTerminate(signal, result string) {
	ProcTerminateTotal.WithLabelValues(label(signal), label(result)).Inc()
}

// IncProcWait records the wait outcome after termination.
func IncProcWait(outcome string) {
	ProcWaitTotal.WithLabelValues(label(outcome)).Inc()
}
