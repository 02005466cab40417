// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package statusfile keeps a YAML snapshot of the running sessions on disk
// for operators and external tooling.
package statusfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/supervisor"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Snapshot is the file content.
type Snapshot struct {
	UpdatedAt time.Time `yaml:"updated_at"`
	Sessions  []Session `yaml:"sessions"`
}

// Session is one running session.
type Session struct {
	ID          string    `yaml:"id"`
	Kind        string    `yaml:"kind"`
	RunID       string    `yaml:"run_id"`
	Source      string    `yaml:"source,omitempty"`
	Playlist    []string  `yaml:"playlist,omitempty"`
	Destination string    `yaml:"destination"`
	Loop        bool      `yaml:"loop,omitempty"`
	PID         int       `yaml:"pid,omitempty"`
	StartedAt   time.Time `yaml:"started_at"`
	Stopping    bool      `yaml:"stopping,omitempty"`
}

// Source lists the current sessions.
type Source func() []supervisor.Info

// Writer rewrites the file after changes. Notify is cheap and never blocks;
// bursts of changes collapse into one write.
type Writer struct {
	path    string
	source  Source
	kick    chan struct{}
	logger  zerolog.Logger
	nowFunc func() time.Time
}

// New creates a writer for path.
func New(path string, source Source) *Writer {
	return &Writer{
		path:    filepath.Clean(path),
		source:  source,
		kick:    make(chan struct{}, 1),
		logger:  log.WithComponent("statusfile"),
		nowFunc: time.Now,
	}
}

// Notify schedules a rewrite.
func (w *Writer) Notify() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run writes the file on every notification until ctx is cancelled. The
// final snapshot after shutdown is written by calling Write directly.
func (w *Writer) Run(ctx context.Context) {
	w.flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			w.flush()
		}
	}
}

func (w *Writer) flush() {
	if err := w.Write(); err != nil {
		w.logger.Warn().Err(err).Str(log.FieldPath, w.path).Msg("failed to write status file")
	}
}

// Write builds a snapshot and atomically replaces the file.
func (w *Writer) Write() error {
	snap := Snapshot{UpdatedAt: w.nowFunc().UTC(), Sessions: []Session{}}
	for _, info := range w.source() {
		d := info.Descriptor
		snap.Sessions = append(snap.Sessions, Session{
			ID:          info.ID,
			Kind:        string(info.Kind),
			RunID:       info.RunID,
			Source:      d.Source,
			Playlist:    d.Playlist,
			Destination: d.Destination,
			Loop:        d.Loop,
			PID:         info.PID,
			StartedAt:   info.StartedAt.UTC(),
			Stopping:    info.Stopping,
		})
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	return writeAtomic(w.path, data)
}

// Read loads a status file.
func Read(path string) (Snapshot, error) {
	// #nosec G304 -- status file path is provided by the operator
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode status %s: %w", path, err)
	}
	return snap, nil
}
