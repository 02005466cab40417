// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package encoder builds encoder argument vectors and supervises the external
// encoder processes that push media to a session's destination.
package encoder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ManuGH/streampush/internal/session"
)

// Profile is the fixed output encoding applied to every session.
type Profile struct {
	VideoCodec string `yaml:"video_codec"`
	Preset     string `yaml:"preset"`
	AudioCodec string `yaml:"audio_codec"`
	Format     string `yaml:"format"`
}

// DefaultProfile is H.264 veryfast + AAC in FLV, suitable for RTMP ingest.
func DefaultProfile() Profile {
	return Profile{
		VideoCodec: "libx264",
		Preset:     "veryfast",
		AudioCodec: "aac",
		Format:     "flv",
	}
}

func (p Profile) withDefaults() Profile {
	def := DefaultProfile()
	if p.VideoCodec == "" {
		p.VideoCodec = def.VideoCodec
	}
	if p.Preset == "" {
		p.Preset = def.Preset
	}
	if p.AudioCodec == "" {
		p.AudioCodec = def.AudioCodec
	}
	if p.Format == "" {
		p.Format = def.Format
	}
	return p
}

// RawInput describes raw frames written to the encoder's stdin.
type RawInput struct {
	PixelFormat string
	Width       int
	Height      int
	FPS         int
}

// Command is a fully resolved encoder invocation.
type Command struct {
	Path  string
	Args  []string
	Stdin bool // frames are written to the process' standard input
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Path, c.Args)
}

// Builder constructs encoder commands. It holds no mutable state.
type Builder struct {
	Binary  string
	Profile Profile
}

// NewBuilder returns a Builder for the resolved binary and profile.
func NewBuilder(binary string, profile Profile) Builder {
	if binary == "" {
		binary = defaultBinary
	}
	return Builder{Binary: binary, Profile: profile.withDefaults()}
}

// Direct builds the command for a session that is a single encoder process:
// a network input, or a local/remote file optionally looped forever.
func (b Builder) Direct(d session.Descriptor) (Command, error) {
	args := []string{"-re"}
	switch d.Kind {
	case session.KindLocalFile, session.KindRemoteFile:
		if d.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", d.Source)
	case session.KindLiveInput:
		args = append(args, "-i", d.Source)
	default:
		return Command{}, fmt.Errorf("%w: %s sessions are not direct", session.ErrInvalidDescriptor, d.Kind)
	}
	args = append(args, b.outputArgs(true, d.Destination)...)
	return Command{Path: b.path(), Args: args}, nil
}

// PlaylistItem builds the command streaming one playlist file at native rate.
func (b Builder) PlaylistItem(path, destination string) Command {
	args := []string{"-re", "-i", path}
	args = append(args, b.outputArgs(true, destination)...)
	return Command{Path: b.path(), Args: args}
}

// RawVideo builds the command reading raw frames from stdin.
func (b Builder) RawVideo(destination string, in RawInput) Command {
	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", in.PixelFormat,
		"-s", strconv.Itoa(in.Width) + "x" + strconv.Itoa(in.Height),
		"-r", strconv.Itoa(in.FPS),
		"-i", "-",
	}
	args = append(args, b.outputArgs(false, destination)...)
	return Command{Path: b.path(), Args: args, Stdin: true}
}

func (b Builder) outputArgs(audio bool, destination string) []string {
	p := b.Profile.withDefaults()
	out := []string{"-c:v", p.VideoCodec, "-preset", p.Preset}
	if audio {
		out = append(out, "-c:a", p.AudioCodec)
	}
	return append(out, "-f", p.Format, destination)
}

func (b Builder) path() string {
	if b.Binary == "" {
		return defaultBinary
	}
	return b.Binary
}

// CheckLocalSource returns session.ErrMissingSource if path does not exist.
func CheckLocalSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", session.ErrMissingSource, path)
		}
		return fmt.Errorf("stat source %s: %w", path, err)
	}
	return nil
}
