// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldKind      = "kind"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldReason    = "reason"

	// Media / stream fields
	FieldSource      = "source"
	FieldDestination = "destination"
	FieldResolution  = "resolution"
	FieldFPS         = "fps"
	FieldEncoder     = "encoder"
	FieldItem        = "item"
	FieldIndex       = "index"

	// Path / HTTP fields
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
)
