package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/namespace"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
)

const defaultStatusTimeout = 2 * time.Second

// runStatus implements the `status` CLI command: a discovery query on
// "**", replies grouped by robot_id/group/topic, one line per
// discovered key; "No Tide nodes discovered" when empty.
func runStatus(logger *slog.Logger, configPath string, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	timeout := fs.Duration("timeout", defaultStatusTimeout, "discovery query timeout")
	fs.Parse(args)

	// Unlike `up`, discovery works without a config file: fall back to
	// a default peer session so `tide status` is usable from anywhere.
	sessionCfg := config.SessionConfig{Mode: config.ModePeer}
	if cfgPath, err := config.FindConfig(configPath); err == nil {
		if cfg, err := config.Load(cfgPath); err == nil {
			sessionCfg = cfg.Session
		} else {
			logger.Warn("status: ignoring unreadable config", "path", cfgPath, "error", err)
		}
	}

	session, err := transport.Open(sessionCfg, logger)
	if err != nil {
		logger.Error("status: open transport session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	samples, err := session.Get(ctx, "**", *timeout)
	if err != nil {
		logger.Error("status: discovery query failed", "error", err)
		os.Exit(1)
	}

	if len(samples) == 0 {
		fmt.Println("No Tide nodes discovered")
		return
	}

	seen := make(map[string]bool)
	var keys []string
	for _, s := range samples {
		if seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		robot, group, topic := namespace.ParseKey(key)
		if group != "" {
			fmt.Printf("%s  robot_id=%s group=%s topic=%s\n", key, robot, group, topic)
		} else {
			fmt.Printf("%s  robot_id=%s topic=%s\n", key, robot, topic)
		}
	}
}
