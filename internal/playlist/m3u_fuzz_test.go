// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"strings"
	"testing"
)

// FuzzReadM3U checks that arbitrary documents never panic and never yield
// blank or directive entries.
func FuzzReadM3U(f *testing.F) {
	f.Add("#EXTM3U\n#EXTINF:-1,A\na.mp4\n")
	f.Add("")
	f.Add("\ufeff\n\n#\nrtmp://x/y\n")
	f.Add("  spaced.mp4  \r\n")

	f.Fuzz(func(t *testing.T, doc string) {
		entries, err := ReadM3U(strings.NewReader(doc), "/base")
		if err != nil {
			return
		}
		for _, e := range entries {
			if strings.TrimSpace(e) == "" || strings.HasPrefix(e, "#") {
				t.Fatalf("unexpected entry %q", e)
			}
		}
	})
}
