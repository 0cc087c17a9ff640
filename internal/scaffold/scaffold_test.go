package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite_RendersFullSkeleton(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "myrobot")

	err := Write(dir, Params{Project: "myrobot", RobotID: "rover"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, name := range Files() {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("missing scaffolded file %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("scaffolded file %s is empty", name)
		}
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "config", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(cfg), "myrobot.PingNode") {
		t.Errorf("config.yaml missing project-prefixed node type:\n%s", cfg)
	}
	if !strings.Contains(string(cfg), "robot_id: rover") {
		t.Errorf("config.yaml missing robot_id override:\n%s", cfg)
	}

	pong, err := os.ReadFile(filepath.Join(dir, "pong_node.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(pong), `"/rover/ping/ping"`) {
		t.Errorf("pong_node.go should subscribe to the rover ping key:\n%s", pong)
	}
}

func TestWrite_DefaultsRobotID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")

	if err := Write(dir, Params{Project: "proj"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "config", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(cfg), "robot_id: robot") {
		t.Errorf("expected default robot_id, got:\n%s", cfg)
	}
}

func TestWrite_EmptyProjectRejected(t *testing.T) {
	if err := Write(t.TempDir(), Params{}); err == nil {
		t.Fatal("expected error for empty project name")
	}
}
