// Package main is the entry point for the Tide CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/buildinfo"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"

	_ "github.com/NorthCarolinaRivalRobotics/tide/internal/transport/local"
	_ "github.com/NorthCarolinaRivalRobotics/tide/internal/transport/mqtt"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "init":
			if flag.NArg() < 2 {
				fmt.Fprintln(os.Stderr, "usage: tide init <project> [--robot-id R]")
				os.Exit(1)
			}
			runInit(logger, flag.Args()[1:])
		case "status":
			runStatus(logger, *configPath, flag.Args()[1:])
		case "up":
			upFlags := flag.NewFlagSet("up", flag.ExitOnError)
			upConfig := upFlags.String("config", *configPath, "path to config file")
			upFlags.Parse(flag.Args()[1:])
			runUp(logger, *upConfig)
		case "version":
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.BuildInfo() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
			os.Exit(1)
		}
		return
	}

	fmt.Println("Tide - robot pub/sub middleware")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init <project>   Scaffold a project skeleton")
	fmt.Println("  status           Discover running Tide nodes")
	fmt.Println("  up --config P    Launch the nodes in a config file")
	fmt.Println("  version          Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// loadConfig resolves configPath (explicit flag, then config.DefaultSearchPaths)
// and loads it, reconfiguring logger's level from cfg.LogLevel when set.
func loadConfig(logger *slog.Logger, configPath string) (*config.Config, *slog.Logger) {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded", "path", cfgPath, "session_mode", cfg.Session.Mode, "nodes", len(cfg.Nodes))
	return cfg, logger
}
