// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"live-input", KindLiveInput},
		{"rtmp", KindLiveInput},
		{"local_video", KindLocalFile},
		{"remote_video", KindRemoteFile},
		{" Screen ", KindScreen},
		{"video_list", KindPlaylist},
		{"playlist", KindPlaylist},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("webcam")
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		wantErr bool
	}{
		{"file ok", Descriptor{ID: "a", Kind: KindLocalFile, Source: "/v.mp4", Destination: "rtmp://x/live"}, false},
		{"screen without source", Descriptor{ID: "s", Kind: KindScreen, Destination: "rtmp://x/live"}, false},
		{"playlist ok", Descriptor{ID: "p", Kind: KindPlaylist, Playlist: []string{"a.mp4"}, Destination: "rtmp://x/live"}, false},
		{"missing id", Descriptor{Kind: KindLocalFile, Source: "/v.mp4", Destination: "rtmp://x"}, true},
		{"missing destination", Descriptor{ID: "a", Kind: KindLocalFile, Source: "/v.mp4"}, true},
		{"missing source", Descriptor{ID: "a", Kind: KindLiveInput, Destination: "rtmp://x"}, true},
		{"empty playlist", Descriptor{ID: "p", Kind: KindPlaylist, Destination: "rtmp://x"}, true},
		{"blank playlist item", Descriptor{ID: "p", Kind: KindPlaylist, Playlist: []string{" "}, Destination: "rtmp://x"}, true},
		{"unknown kind", Descriptor{ID: "a", Kind: "tape", Source: "x", Destination: "rtmp://x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDescriptor)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalize_ClonesPlaylist(t *testing.T) {
	items := []string{"a.mp4", "b.mp4"}
	d, err := Descriptor{ID: " p ", Kind: "video_list", Playlist: items, Destination: "rtmp://x"}.Normalize()
	require.NoError(t, err)

	items[0] = "changed.mp4"
	assert.Equal(t, "p", d.ID)
	assert.Equal(t, KindPlaylist, d.Kind)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, d.Playlist)
}

func TestEqual(t *testing.T) {
	a := Descriptor{ID: "p", Kind: KindPlaylist, Playlist: []string{"a"}, Destination: "d", Loop: true}
	b := a
	b.Playlist = []string{"a"}
	assert.True(t, a.Equal(b))

	b.Playlist = []string{"a", "b"}
	assert.False(t, a.Equal(b))
}

func TestKindWorker(t *testing.T) {
	assert.True(t, KindScreen.Worker())
	assert.True(t, KindPlaylist.Worker())
	assert.False(t, KindLocalFile.Worker())
}
