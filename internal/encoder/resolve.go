// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultBinary = "ffmpeg"

// BinaryName is the platform file name of the encoder binary.
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// ResolveBinary returns the encoder binary to execute.
//
// Resolution order:
// 1) Explicit configured path (e.g. STREAMPUSH_FFMPEG_BIN)
// 2) A bundled binary next to the running executable
// 3) A binary in one of searchDirs (relative dirs are taken from the executable's dir)
// 4) "ffmpeg", resolved through PATH at spawn time
//
// Resolution never fails; a bad fallback surfaces as a spawn error.
func ResolveBinary(configured string, searchDirs []string) string {
	exe, _ := os.Executable()
	return resolveBinaryWithStat(configured, exe, searchDirs, os.Stat)
}

func resolveBinaryWithStat(configured, executable string, searchDirs []string, stat func(string) (os.FileInfo, error)) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}

	name := BinaryName()
	var exeDir string
	if executable != "" {
		exeDir = filepath.Dir(executable)
	}

	candidates := make([]string, 0, len(searchDirs)+1)
	if exeDir != "" {
		candidates = append(candidates, filepath.Join(exeDir, name))
	}
	for _, dir := range searchDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) && exeDir != "" {
			dir = filepath.Join(exeDir, dir)
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, candidate := range candidates {
		if fi, err := stat(candidate); err == nil && fi != nil && !fi.IsDir() {
			return candidate
		}
	}
	return defaultBinary
}
