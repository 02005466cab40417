// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsM3U reports whether path names an M3U playlist file.
func IsM3U(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		return true
	}
	return false
}

// ReadM3U returns the media entries of an M3U document. Directives and
// comments are skipped; relative entries are resolved against baseDir.
func ReadM3U(r io.Reader, baseDir string) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
			first = false
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) && !strings.Contains(line, "://") && baseDir != "" {
			line = filepath.Join(baseDir, line)
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read m3u: %w", err)
	}
	return out, nil
}

// readM3UFile reads the entries of the list at path.
func readM3UFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- playlist paths come from the session list
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadM3U(f, filepath.Dir(path))
}

// expand replaces every M3U item with the entries it lists. Lists are
// not expanded recursively. Unreadable lists are reported and dropped.
func expand(items []string, report func(item string, err error)) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !IsM3U(item) {
			out = append(out, item)
			continue
		}
		entries, err := readM3UFile(item)
		if err != nil {
			report(item, err)
			continue
		}
		for _, e := range entries {
			if IsM3U(e) {
				report(e, fmt.Errorf("nested playlist %s not supported", e))
				continue
			}
			out = append(out, e)
		}
	}
	return out
}
