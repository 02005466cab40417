// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session defines the immutable description of one streaming session.
package session

import (
	"fmt"
	"slices"
	"strings"
)

// Kind selects how a session obtains its input.
type Kind string

const (
	KindLiveInput  Kind = "live-input"
	KindLocalFile  Kind = "local-file"
	KindRemoteFile Kind = "remote-file"
	KindScreen     Kind = "screen"
	KindPlaylist   Kind = "playlist"
)

// legacyKinds maps the stream_type names used by existing session lists.
var legacyKinds = map[string]Kind{
	"rtmp":         KindLiveInput,
	"local_video":  KindLocalFile,
	"remote_video": KindRemoteFile,
	"screen":       KindScreen,
	"video_list":   KindPlaylist,
}

// ParseKind accepts both canonical kind names and legacy stream_type names.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch k := Kind(s); k {
	case KindLiveInput, KindLocalFile, KindRemoteFile, KindScreen, KindPlaylist:
		return k, nil
	}
	if k, ok := legacyKinds[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown source kind %q", ErrInvalidDescriptor, s)
}

// Worker reports whether sessions of this kind run under a background worker
// rather than as a single directly spawned process.
func (k Kind) Worker() bool {
	return k == KindScreen || k == KindPlaylist
}

func (k Kind) String() string { return string(k) }

// Descriptor describes one streaming intent. It is treated as a value: the
// registry keeps its own copy and never hands out the playlist slice.
type Descriptor struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Playlist    []string `json:"playlist,omitempty" yaml:"playlist,omitempty"`
	Destination string   `json:"destination" yaml:"destination"`
	Loop        bool     `json:"loop" yaml:"loop"`
}

// Validate checks the descriptor invariants.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDescriptor)
	}
	kind, err := ParseKind(string(d.Kind))
	if err != nil {
		return err
	}
	if strings.TrimSpace(d.Destination) == "" {
		return fmt.Errorf("%w: session %s: destination is required", ErrInvalidDescriptor, d.ID)
	}
	switch kind {
	case KindPlaylist:
		if len(d.Playlist) == 0 {
			return fmt.Errorf("%w: session %s: playlist must not be empty", ErrInvalidDescriptor, d.ID)
		}
		for i, item := range d.Playlist {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("%w: session %s: playlist item %d is empty", ErrInvalidDescriptor, d.ID, i)
			}
		}
	case KindScreen:
		// Source optionally selects a display index; empty means primary.
	default:
		if strings.TrimSpace(d.Source) == "" {
			return fmt.Errorf("%w: session %s: source is required for %s", ErrInvalidDescriptor, d.ID, kind)
		}
	}
	return nil
}

// Normalize returns a copy with the kind canonicalised and the playlist cloned.
func (d Descriptor) Normalize() (Descriptor, error) {
	k, err := ParseKind(string(d.Kind))
	if err != nil {
		return Descriptor{}, err
	}
	d.Kind = k
	d.ID = strings.TrimSpace(d.ID)
	d.Playlist = slices.Clone(d.Playlist)
	return d, d.Validate()
}

// Equal reports whether two descriptors describe the same session.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.ID == o.ID &&
		d.Kind == o.Kind &&
		d.Source == o.Source &&
		d.Destination == o.Destination &&
		d.Loop == o.Loop &&
		slices.Equal(d.Playlist, o.Playlist)
}
