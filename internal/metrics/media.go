// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlaylistItemsTotal tracks playlist item outcomes.
	PlaylistItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streampush_playlist_items_total",
		Help: "Total number of playlist items by result (played, missing, failed, interrupted)",
	}, []string{"result"})

	// PlaylistPassesTotal tracks completed passes over a playlist.
	PlaylistPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streampush_playlist_passes_total",
		Help: "Total number of completed playlist passes",
	})

	// CaptureFramesTotal tracks frames written to encoder stdin.
	CaptureFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streampush_capture_frames_total",
		Help: "Total number of captured frames written to encoders",
	})

	// CaptureBytesTotal tracks raw bytes written to encoder stdin.
	CaptureBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streampush_capture_bytes_total",
		Help: "Total raw frame bytes written to encoders",
	})

	// CaptureGrabDuration tracks how long a single display grab takes.
	CaptureGrabDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streampush_capture_grab_duration_seconds",
		Help:    "Duration of a single display grab",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 12), // 1ms to ~2s
	})
)

// IncPlaylistItem records the outcome of one playlist item.
func IncPlaylistItem(result string) {
	PlaylistItemsTotal.WithLabelValues(label(result)).Inc()
}

// ObserveFrame records one frame of n bytes written to an encoder.
func ObserveFrame(n int) {
	CaptureFramesTotal.Inc()
	CaptureBytesTotal.Add(float64(n))
}
