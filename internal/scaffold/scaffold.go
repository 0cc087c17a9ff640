// Package scaffold renders the project skeleton the `tide init`
// subcommand writes: a runnable ping/pong pair against the public tide
// package, plus the config file that launches them.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Params fills the scaffold templates.
type Params struct {
	// Project is the new project's directory name, module path, and
	// the dotted-name prefix its node types register under.
	Project string
	// RobotID is the ping node's robot namespace segment.
	RobotID string
}

// rendered file name -> template file name under templates/.
var files = map[string]string{
	"ping_node.go":       "ping_node.go.tmpl",
	"pong_node.go":       "pong_node.go.tmpl",
	"main.go":            "main.go.tmpl",
	"go.mod":             "go.mod.tmpl",
	"config/config.yaml": "config.yaml.tmpl",
}

// Write renders the full skeleton into dir, creating it (and
// dir/config) as needed. Existing files are overwritten; Write does
// not clear anything else already in dir.
func Write(dir string, p Params) error {
	if p.Project == "" {
		return fmt.Errorf("scaffold: project name must not be empty")
	}
	if p.RobotID == "" {
		p.RobotID = "robot"
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return fmt.Errorf("scaffold: parse templates: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		return fmt.Errorf("scaffold: create %s: %w", dir, err)
	}

	for out, src := range files {
		path := filepath.Join(dir, out)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("scaffold: create %s: %w", path, err)
		}
		execErr := tmpl.ExecuteTemplate(f, src, p)
		closeErr := f.Close()
		if execErr != nil {
			return fmt.Errorf("scaffold: render %s: %w", path, execErr)
		}
		if closeErr != nil {
			return fmt.Errorf("scaffold: write %s: %w", path, closeErr)
		}
	}
	return nil
}

// Files returns the relative paths Write produces, in no particular
// order, for the CLI to report what it created.
func Files() []string {
	out := make([]string, 0, len(files))
	for name := range files {
		out = append(out, name)
	}
	return out
}
