// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/streampush/internal/session"
)

// SessionList is the session list document. It accepts JSON or YAML; both
// are decoded with the strict YAML decoder.
type SessionList struct {
	Enabled *bool          `yaml:"enabled"`
	Streams []SessionEntry `yaml:"streams"`
}

// IsEnabled reports the top-level flag; absent means enabled.
func (l SessionList) IsEnabled() bool { return l.Enabled == nil || *l.Enabled }

// SessionEntry is one session in the list. Both the historical field names
// (stream_id, input_source, output_url, stream_type, video_list) and the
// descriptor names are accepted.
type SessionEntry struct {
	Enabled *bool `yaml:"enabled"`

	StreamID    string   `yaml:"stream_id"`
	InputSource string   `yaml:"input_source"`
	OutputURL   string   `yaml:"output_url"`
	StreamType  string   `yaml:"stream_type"`
	VideoList   []string `yaml:"video_list"`

	ID          string   `yaml:"id"`
	Kind        string   `yaml:"kind"`
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	Playlist    []string `yaml:"playlist"`

	Loop bool `yaml:"loop"`
}

// IsEnabled reports the entry flag; absent means enabled.
func (e SessionEntry) IsEnabled() bool { return e.Enabled == nil || *e.Enabled }

// Descriptor converts the entry into a validated, normalized descriptor.
func (e SessionEntry) Descriptor() (session.Descriptor, error) {
	id, err := pick("id", e.StreamID, e.ID)
	if err != nil {
		return session.Descriptor{}, err
	}
	kind, err := pick("kind", e.StreamType, e.Kind)
	if err != nil {
		return session.Descriptor{}, err
	}
	src, err := pick("source", e.InputSource, e.Source)
	if err != nil {
		return session.Descriptor{}, err
	}
	dst, err := pick("destination", e.OutputURL, e.Destination)
	if err != nil {
		return session.Descriptor{}, err
	}
	if len(e.VideoList) > 0 && len(e.Playlist) > 0 {
		return session.Descriptor{}, fmt.Errorf("%w: both video_list and playlist are set", session.ErrInvalidDescriptor)
	}
	items := e.VideoList
	if len(items) == 0 {
		items = e.Playlist
	}

	return session.Descriptor{
		ID:          id,
		Kind:        session.Kind(kind),
		Source:      src,
		Playlist:    items,
		Destination: dst,
		Loop:        e.Loop,
	}.Normalize()
}

// pick returns whichever spelling of a field is set; setting both to
// different values is an error.
func pick(field, legacy, current string) (string, error) {
	switch {
	case legacy == "":
		return current, nil
	case current == "" || current == legacy:
		return legacy, nil
	default:
		return "", fmt.Errorf("%w: conflicting values for %s: %q and %q", session.ErrInvalidDescriptor, field, legacy, current)
	}
}

// ReadSessionList reads and strictly decodes a session list file. Any
// failure wraps ErrLoad.
func ReadSessionList(path string) (SessionList, error) {
	// #nosec G304 -- session list path is provided by the operator via CLI/ENV/API
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return SessionList{}, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	var list SessionList
	if err := decodeStrict(data, &list); err != nil {
		return SessionList{}, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return list, nil
}

// Plan is the outcome of resolving a session list into descriptors.
type Plan struct {
	// Descriptors to start, in file order.
	Descriptors []session.Descriptor
	// Skipped holds ids (or positions) of disabled entries.
	Skipped []string
	// Err is set when an entry could not be converted. Descriptors holds
	// the entries before it; the rest of the list is not processed.
	Err error
}

// Resolve converts enabled entries into descriptors, stopping at the first
// entry that cannot be converted. Duplicate ids are rejected as invalid.
func (l SessionList) Resolve() Plan {
	var p Plan
	seen := make(map[string]int, len(l.Streams))
	for i, e := range l.Streams {
		if !e.IsEnabled() {
			name := e.StreamID
			if name == "" {
				name = e.ID
			}
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			p.Skipped = append(p.Skipped, name)
			continue
		}
		d, err := e.Descriptor()
		if err != nil {
			p.Err = fmt.Errorf("%w: entry %d: %w", ErrLoad, i, err)
			return p
		}
		if prev, dup := seen[d.ID]; dup {
			p.Err = fmt.Errorf("%w: entry %d: %w: id %q already used by entry %d", ErrLoad, i, session.ErrInvalidDescriptor, d.ID, prev)
			return p
		}
		seen[d.ID] = i
		p.Descriptors = append(p.Descriptors, d)
	}
	return p
}
