package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/scaffold"
)

// runInit implements the `init` CLI command: scaffold a new project
// directory with a ping/pong node pair and the config that launches
// them.
func runInit(logger *slog.Logger, args []string) {
	project := args[0]

	fs := flag.NewFlagSet("init", flag.ExitOnError)
	robotID := fs.String("robot-id", "robot", "robot namespace for the scaffolded nodes")
	fs.Parse(args[1:])

	if err := scaffold.Write(project, scaffold.Params{Project: project, RobotID: *robotID}); err != nil {
		logger.Error("init failed", "project", project, "error", err)
		os.Exit(1)
	}

	files := scaffold.Files()
	sort.Strings(files)
	fmt.Printf("Created project %s:\n", project)
	for _, f := range files {
		fmt.Printf("  %s/%s\n", project, f)
	}
	fmt.Println()
	fmt.Printf("Next: cd %s && go mod tidy && go run .\n", project)
}
