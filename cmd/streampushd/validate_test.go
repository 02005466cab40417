// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestRunValidate(t *testing.T) {
	validList := writeFile(t, "sessions.yaml", `
streams:
  - stream_id: cam1
    stream_type: rtmp
    input_source: rtmp://in/cam1
    output_url: rtmp://out/cam1
  - stream_id: cam2
    stream_type: rtmp
    input_source: rtmp://in/cam2
    output_url: rtmp://out/cam2
    enabled: false
`)
	duplicateList := writeFile(t, "dup.yaml", `
streams:
  - {stream_id: a, stream_type: rtmp, input_source: x, output_url: y}
  - {stream_id: a, stream_type: rtmp, input_source: x, output_url: z}
`)
	validCfg := writeFile(t, "streampush.yaml", "log:\n  level: debug\nsessions:\n  file: "+validList+"\n")
	unknownKey := writeFile(t, "bad.yaml", "log:\n  level: debug\n  colour: true\n")

	tests := []struct {
		name       string
		args       []string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{"no args", nil, 2, "", "required"},
		{"valid config and its list", []string{"-f", validCfg}, 0, "1 sessions, 1 skipped", ""},
		{"unknown key", []string{"-f", unknownKey}, 1, "", "Configuration error"},
		{"missing file", []string{"-f", filepath.Join(t.TempDir(), "nope.yaml")}, 1, "", "Configuration error"},
		{"list only", []string{"-sessions", validList}, 0, "enabled", ""},
		{"duplicate ids", []string{"-sessions", duplicateList}, 1, "", "Session list error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runValidate(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantExit, code, "stderr: %s", stderr.String())
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}
