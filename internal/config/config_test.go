package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("session:\n  mode: peer\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("session:\n  mode: peer\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	origSearch := searchPathsFunc
	searchPathsFunc = func() []string { return []string{"config.yaml"} }
	defer func() { searchPathsFunc = origSearch }()

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
session:
  mode: peer
nodes:
  - type: tide.components.PIDNode
    params:
      kp: 1.0
  - type: mypkg.SensorNode
    params: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Mode != ModePeer {
		t.Errorf("session.mode = %q, want peer", cfg.Session.Mode)
	}
	if len(cfg.Nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(cfg.Nodes))
	}
	if cfg.Nodes[0].Type != "tide.components.PIDNode" {
		t.Errorf("nodes[0].type = %q", cfg.Nodes[0].Type)
	}
}

func TestLoad_DefaultsSessionMode(t *testing.T) {
	path := writeConfig(t, "nodes: []\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Mode != ModePeer {
		t.Errorf("session.mode = %q, want default peer", cfg.Session.Mode)
	}
}

func TestLoad_UnknownSessionMode(t *testing.T) {
	path := writeConfig(t, "session:\n  mode: bogus\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with unknown session.mode should error")
	}
	var cerr *ConfigError
	if !asConfigError(err, &cerr) {
		t.Fatalf("error is not a *ConfigError: %v", err)
	}
}

func TestLoad_EmptyNodeType(t *testing.T) {
	path := writeConfig(t, `
session:
  mode: peer
nodes:
  - type: ""
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with empty node type should error")
	}
	if !strings.Contains(err.Error(), "type must not be empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "session: [this is not a mapping\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with malformed YAML should error")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: bogus\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load with invalid log_level should error")
	}
}

// asConfigError is a tiny errors.As helper kept local to avoid importing
// errors just for one assertion in tests.
func asConfigError(err error, target **ConfigError) bool {
	ce, ok := err.(*ConfigError)
	if !ok {
		return false
	}
	*target = ce
	return true
}
