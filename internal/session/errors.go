// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "errors"

var (
	// ErrInvalidDescriptor is returned when a descriptor violates its invariants.
	ErrInvalidDescriptor = errors.New("invalid session descriptor")

	// ErrMissingSource is returned when a referenced local input does not exist.
	// Inside a playlist it is per item and only skips that item.
	ErrMissingSource = errors.New("source file not found")
)
