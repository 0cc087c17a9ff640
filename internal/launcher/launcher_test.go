package launcher

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
	_ "github.com/NorthCarolinaRivalRobotics/tide/internal/transport/local"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func localSessionConfig() config.SessionConfig {
	return config.SessionConfig{Mode: config.ModePeer}
}

func TestLaunch_ResolvesBuiltinAndStartsNodes(t *testing.T) {
	cfg := &config.Config{
		Session: localSessionConfig(),
		Nodes: []config.NodeConfig{
			{Type: "tide.components.PIDNode", Params: map[string]any{"robot_id": "robot", "hz": 20.0, "kp": 1.0}},
			{Type: "tide.components.MuxNode", Params: map[string]any{"robot_id": "robot", "hz": 20.0,
				"inputs": []any{map[string]any{"topic": "cmd/teleop", "priority": 0}}}},
		},
	}

	nodes, aux, err := Launch(context.Background(), cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
		for _, a := range aux {
			a.Stop()
		}
	}()

	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
	for i, n := range nodes {
		if n == nil {
			t.Errorf("nodes[%d] is nil", i)
		}
	}
	if len(aux) != 0 {
		t.Errorf("len(aux) = %d, want 0 (no env vars set)", len(aux))
	}
}

func TestLaunch_ProjectRegistryTakesPriorityOverBuiltins(t *testing.T) {
	called := false
	project := node.NewRegistry()
	project.Register("tide.components.PIDNode", func(cfg node.Config) (node.Runtime, error) {
		called = true
		n := node.New(cfg)
		n.Bind(stubStepper{})
		return n, nil
	})

	cfg := &config.Config{
		Session: localSessionConfig(),
		Nodes: []config.NodeConfig{
			{Type: "tide.components.PIDNode", Params: map[string]any{"robot_id": "robot", "hz": 20.0}},
		},
	}

	nodes, aux, err := Launch(context.Background(), cfg, project, testLogger())
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
		for _, a := range aux {
			a.Stop()
		}
	}()

	if !called {
		t.Error("project registry constructor was not invoked; builtin shadowed it")
	}
}

func TestLaunch_UnresolvableTypeFailsAllOrNothing(t *testing.T) {
	cfg := &config.Config{
		Session: localSessionConfig(),
		Nodes: []config.NodeConfig{
			{Type: "tide.components.PIDNode", Params: map[string]any{"robot_id": "robot", "hz": 20.0}},
			{Type: "tide.components.DoesNotExist", Params: map[string]any{"robot_id": "robot", "hz": 20.0}},
		},
	}

	nodes, aux, err := Launch(context.Background(), cfg, nil, testLogger())
	if err == nil {
		for _, n := range nodes {
			n.Stop()
		}
		for _, a := range aux {
			a.Stop()
		}
		t.Fatal("Launch succeeded, want error for unresolvable node type")
	}
	if nodes != nil {
		t.Errorf("nodes = %v, want nil on failure", nodes)
	}
	if aux != nil {
		t.Errorf("aux = %v, want nil on failure", aux)
	}
}

func TestLaunch_RecorderStartsWhenEnvSet(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvRecordBag, dir)

	cfg := &config.Config{
		Session: localSessionConfig(),
		Nodes: []config.NodeConfig{
			{Type: "tide.components.PIDNode", Params: map[string]any{"robot_id": "robot", "hz": 20.0}},
		},
	}

	nodes, aux, err := Launch(context.Background(), cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
	}()

	if len(aux) != 1 {
		t.Fatalf("len(aux) = %d, want 1 recorder process", len(aux))
	}
	if err := aux[0].Stop(); err != nil {
		t.Errorf("recorder Stop: %v", err)
	}
}

type stubStepper struct{}

func (stubStepper) Step() error { return nil }
