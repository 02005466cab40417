// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capture samples a display and pipes raw frames into an encoder.
package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"
)

var (
	// ErrNoDisplay is returned when no active display can be captured.
	ErrNoDisplay = errors.New("no active display")
	// ErrEncoderExited ends a capture loop whose encoder went away on its own.
	ErrEncoderExited = errors.New("encoder exited")
)

// Grabber produces tightly packed raw frames of a fixed size.
type Grabber interface {
	Size() (width, height int, err error)
	PixelFormat() string
	Grab() ([]byte, error)
}

// GrabberFactory opens a Grabber for a display selector ("" = primary).
type GrabberFactory func(selector string) (Grabber, error)

// ScreenGrabber captures one display via the OS screenshot APIs.
type ScreenGrabber struct {
	display int
	bounds  image.Rectangle
}

// NewScreenGrabber opens the display with the given index; an empty selector
// means the primary display.
func NewScreenGrabber(selector string) (Grabber, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, ErrNoDisplay
	}
	display := 0
	if s := strings.TrimSpace(selector); s != "" {
		idx, err := strconv.Atoi(strings.TrimPrefix(s, "display:"))
		if err != nil {
			return nil, fmt.Errorf("invalid display selector %q: %w", selector, err)
		}
		display = idx
	}
	if display < 0 || display >= n {
		return nil, fmt.Errorf("%w: display %d (have %d)", ErrNoDisplay, display, n)
	}
	bounds := screenshot.GetDisplayBounds(display)
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: display %d has empty bounds", ErrNoDisplay, display)
	}
	return &ScreenGrabber{display: display, bounds: bounds}, nil
}

// Size implements Grabber.
func (g *ScreenGrabber) Size() (int, int, error) {
	return g.bounds.Dx(), g.bounds.Dy(), nil
}

// PixelFormat implements Grabber. Frames are image.RGBA pixels.
func (g *ScreenGrabber) PixelFormat() string { return "rgba" }

// Grab implements Grabber.
func (g *ScreenGrabber) Grab() ([]byte, error) {
	img, err := screenshot.CaptureRect(g.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", g.display, err)
	}
	return packRGBA(img), nil
}

// packRGBA returns the pixel rows without stride padding.
func packRGBA(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	row := 4 * w
	if img.Stride == row && len(img.Pix) >= row*h {
		return img.Pix[:row*h]
	}
	out := make([]byte, 0, row*h)
	for y := 0; y < h; y++ {
		off := y * img.Stride
		out = append(out, img.Pix[off:off+row]...)
	}
	return out
}
