package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/launcher"
)

// runUp implements the `up` CLI command: load the config, launch
// the configured nodes against a project registry (nil here — the CLI
// only knows built-in component types; a project embedding Tide as a
// library calls launcher.Launch directly with its own registry), run
// until SIGINT/SIGTERM, then stop every node and auxiliary process.
func runUp(logger *slog.Logger, configPath string) {
	cfg, logger := loadConfig(logger, configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodes, aux, err := launcher.Launch(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("launch failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tide up", "nodes", len(nodes), "aux_processes", len(aux))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")
	cancel()

	for _, n := range nodes {
		if err := n.Stop(); err != nil {
			logger.Warn("node stop failed", "error", err)
		}
	}
	for _, a := range aux {
		if err := a.Stop(); err != nil {
			logger.Warn("auxiliary process stop failed", "error", err)
		}
	}

	logger.Info("tide stopped")
}
