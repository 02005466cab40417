// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"time"

	"github.com/ManuGH/streampush/internal/session"
)

// Reason describes why a session left the registry.
type Reason string

const (
	// ReasonStopped: removed by Stop.
	ReasonStopped Reason = "stopped"
	// ReasonStopTimeout: removed by Stop after the wait was exhausted.
	ReasonStopTimeout Reason = "stop_timeout"
	// ReasonCompleted: the process or worker finished cleanly on its own.
	ReasonCompleted Reason = "completed"
	// ReasonEncoderExited: a screen session's encoder went away.
	ReasonEncoderExited Reason = "encoder_exited"
	// ReasonFailed: the process or worker ended with an error.
	ReasonFailed Reason = "failed"
)

// Event is published whenever a session leaves the registry.
type Event struct {
	ID     string
	RunID  string
	Kind   session.Kind
	Reason Reason
	Err    error
	At     time.Time
}

// Natural reports whether the session ended without a Stop.
func (e Event) Natural() bool {
	return e.Reason != ReasonStopped && e.Reason != ReasonStopTimeout
}
