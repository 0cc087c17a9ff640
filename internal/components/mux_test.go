package components

import (
	"testing"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport/local"
)

type twist struct {
	X float64 `cbor:"x"`
}

func newTestMux(t *testing.T, sess *local.Session) *MuxNode {
	t.Helper()
	mux, err := NewMuxNode(node.Config{
		RobotID: "robot",
		Session: sess,
		Hz:      50,
		Params: map[string]any{
			"output_topic": "cmd/mux",
			"inputs": []any{
				map[string]any{"topic": "cmd/teleop", "priority": 0},
				map[string]any{"topic": "cmd/autonomy", "priority": 1},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewMuxNode: %v", err)
	}
	return mux
}

// TestMuxNode_OnlyAutonomyPresent: with only the low-priority input
// publishing, its value wins.
func TestMuxNode_OnlyAutonomyPresent(t *testing.T) {
	sess := local.New(config.SessionConfig{}, nil)
	defer sess.Close()

	mux := newTestMux(t, sess)
	mux.Start()
	defer mux.Stop()

	out := make(chan twist, 4)
	collector := node.New(node.Config{RobotID: "robot", Session: sess, Hz: 10})
	collector.Subscribe("cmd/mux", func(v any) {
		if m, ok := v.(map[string]any); ok {
			out <- twist{X: toFloat64(m["x"])}
		}
	})

	pub := node.New(node.Config{RobotID: "robot", Session: sess, Hz: 10})
	pub.Put("cmd/autonomy", map[string]any{"x": 1.0})

	select {
	case v := <-out:
		if v.X != 1.0 {
			t.Errorf("got x=%v, want 1.0", v.X)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mux output")
	}
}

// TestMuxNode_TeleopPreemptsAutonomy: when both arrive (teleop.x=2,
// autonomy.x=3), the next emission is x=2.
func TestMuxNode_TeleopPreemptsAutonomy(t *testing.T) {
	sess := local.New(config.SessionConfig{}, nil)
	defer sess.Close()

	mux := newTestMux(t, sess)
	mux.Start()
	defer mux.Stop()

	out := make(chan twist, 4)
	collector := node.New(node.Config{RobotID: "robot", Session: sess, Hz: 10})
	collector.Subscribe("cmd/mux", func(v any) {
		if m, ok := v.(map[string]any); ok {
			out <- twist{X: toFloat64(m["x"])}
		}
	})

	pub := node.New(node.Config{RobotID: "robot", Session: sess, Hz: 10})
	pub.Put("cmd/teleop", map[string]any{"x": 2.0})
	pub.Put("cmd/autonomy", map[string]any{"x": 3.0})

	select {
	case v := <-out:
		if v.X != 2.0 {
			t.Errorf("got x=%v, want 2.0 (teleop must preempt autonomy)", v.X)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mux output")
	}
}
