// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/ManuGH/streampush/internal/config"
)

// runValidate checks a daemon config and, if given or configured, the
// session list it points at.
//
// Exit codes:
//   - 0: everything is valid
//   - 1: the config or session list is invalid
//   - 2: usage error
func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file, sessions string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&sessions, "sessions", "", "path to the session list")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" && sessions == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --file or --sessions is required")
		return 2
	}

	if file != "" {
		cfg, err := config.NewLoader(file, version).Load()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", file, err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "✓ %s is valid\n", file)
		if sessions == "" {
			sessions = cfg.Sessions.File
		}
	}

	if sessions == "" {
		return 0
	}
	list, err := config.ReadSessionList(sessions)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Session list error in %s:\n  %v\n", sessions, err)
		return 1
	}
	plan := list.Resolve()
	if plan.Err != nil {
		_, _ = fmt.Fprintf(stderr, "Session list error in %s:\n  %v\n", sessions, plan.Err)
		return 1
	}
	state := "enabled"
	if !list.IsEnabled() {
		state = "disabled"
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s is valid (%s, %d sessions, %d skipped)\n", sessions, state, len(plan.Descriptors), len(plan.Skipped))
	return 0
}
