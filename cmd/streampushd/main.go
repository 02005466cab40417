// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// streampushd supervises ffmpeg sessions that push live inputs, files,
// playlists and screen captures to streaming destinations.
//
// Usage:
//
//	streampushd [-config streampush.yaml] [-sessions sessions.yaml]
//	streampushd validate -f streampush.yaml [-sessions sessions.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/streampush/internal/config"
	"github.com/ManuGH/streampush/internal/daemon"
	"github.com/ManuGH/streampush/internal/log"
	"github.com/ManuGH/streampush/internal/supervisor"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "validate" {
		os.Exit(runValidate(os.Args[2:], os.Stdout, os.Stderr))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	sessionsPath := flag.String("sessions", "", "path to the session list, overrides sessions.file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: "info", Service: "streampushd", Version: version})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(strings.TrimSpace(*configPath), version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str(log.FieldPath, *configPath).
			Msg("failed to load configuration")
	}
	if p := strings.TrimSpace(*sessionsPath); p != "" {
		cfg.Sessions.File = p
	}

	log.Configure(log.Config{Level: cfg.Log.Level, Service: "streampushd", Version: version})
	logger = log.WithComponent("main")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str(log.FieldPath, *configPath).
		Str("sessions_file", cfg.Sessions.File).
		Msg("configuration loaded")

	app, err := daemon.Build(ctx, cfg, supervisor.Options{})
	if err != nil {
		logger.Fatal().Err(err).Str(log.FieldEvent, "startup.failed").Msg("failed to build daemon")
	}

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.exited").Msg("daemon exited with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
}
