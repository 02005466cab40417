// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"errors"
	"fmt"

	"github.com/ManuGH/streampush/internal/encoder"
)

var (
	// ErrAlreadyRunning rejects a Start for an id that is already present.
	ErrAlreadyRunning = errors.New("session already running")
	// ErrNotFound is returned by Stop for an unknown id.
	ErrNotFound = errors.New("session not found")
	// ErrSpawn means the session's process or worker could not be created.
	// The session was never registered. It matches encoder.ErrSpawn too.
	ErrSpawn = fmt.Errorf("session spawn failed: %w", encoder.ErrSpawn)
	// ErrStopTimeout means the session did not terminate in time. Its id was
	// removed regardless.
	ErrStopTimeout = errors.New("session stop timed out")
	// ErrClosed rejects Start after Shutdown.
	ErrClosed = errors.New("registry closed")
)
