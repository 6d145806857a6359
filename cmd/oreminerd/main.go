package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/b0ase/path402/apps/oreminer/internal/config"
	"github.com/b0ase/path402/apps/oreminer/internal/daemon"
	"github.com/b0ase/path402/apps/oreminer/internal/logging"
	"github.com/b0ase/path402/apps/oreminer/internal/mcpserver"
)

var Version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to oreminer.yaml")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools on stdio instead of waiting for a signal")
	flag.Parse()

	// Resolve config path
	if *cfgPath == "" {
		home, _ := os.UserHomeDir()
		*cfgPath = filepath.Join(home, ".oreminer", "oreminer.yaml")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP transport
	var logger zerolog.Logger
	if *mcpMode {
		logger = logging.New(os.Stderr, "oreminerd", cfg.Log.Level, cfg.Log.Format)
	} else {
		logger = logging.Init("oreminerd", cfg.Log.Level, cfg.Log.Format)
		fmt.Printf("\n  ORE Miner  v%s\n\n", Version)
	}
	log := logger.With().Str("component", "main").Logger()

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to create data dir")
	}
	log.Info().Str("data_dir", cfg.DataDir).Str("rpc", cfg.RPC.URL).Msg("Configuration loaded")

	d, err := daemon.New(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create daemon")
	}
	if err := d.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start daemon")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		if err := mcpserver.New(Version, d).Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("MCP server exited")
		}
	} else {
		<-ctx.Done()
		log.Info().Msg("Received signal, shutting down...")
	}

	d.Stop()
	log.Info().Msg("Goodbye.")
}
