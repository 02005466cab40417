// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// Pacing selects how frames are timed relative to the declared frame rate.
type Pacing string

const (
	// PacingFree writes frames as fast as the grabber delivers them. The
	// encoder is told the nominal rate and stamps frames itself, so output
	// time can drift from wall time when capture is faster or slower.
	PacingFree Pacing = "free"
	// PacingThrottled limits writes to one frame per 1/fps.
	PacingThrottled Pacing = "throttled"
)

// ParsePacing parses a pacing mode; empty means free.
func ParsePacing(s string) (Pacing, error) {
	switch p := Pacing(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PacingFree:
		return PacingFree, nil
	case PacingThrottled:
		return PacingThrottled, nil
	default:
		return "", fmt.Errorf("unknown capture pacing %q (supported: free, throttled)", s)
	}
}

// pacer gates each frame.
type pacer interface {
	Wait(ctx context.Context) error
}

type freePacer struct{}

func (freePacer) Wait(ctx context.Context) error { return ctx.Err() }

func newPacer(p Pacing, fps int) pacer {
	if p != PacingThrottled || fps <= 0 {
		return freePacer{}
	}
	return rate.NewLimiter(rate.Limit(fps), 1)
}
