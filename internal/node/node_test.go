package node

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/config"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport/local"
)

func newTestNode(t *testing.T, group string, hz float64) *Node {
	t.Helper()
	sess := local.New(config.SessionConfig{}, nil)
	t.Cleanup(func() { sess.Close() })
	return New(Config{RobotID: "robot", Group: group, Hz: hz, Session: sess})
}

// stepFunc adapts a plain function to Stepper for tests that don't need
// a full concrete node type.
type stepFunc func() error

func (f stepFunc) Step() error { return f() }

func TestNode_PutSubscribeDelivers(t *testing.T) {
	n := newTestNode(t, "g", 10)

	received := make(chan any, 1)
	if err := n.Subscribe("topic", func(v any) { received <- v }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := n.Put("topic", "hello"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case v := <-received:
		if v != "hello" {
			t.Errorf("got %v, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestNode_Subscribe_DedupesTransportSubscription(t *testing.T) {
	n := newTestNode(t, "g", 10)

	var calls int32
	cb := func(any) { atomic.AddInt32(&calls, 1) }

	if err := n.Subscribe("topic", cb); err != nil {
		t.Fatalf("Subscribe 1: %v", err)
	}
	if err := n.RegisterCallback("topic", cb); err != nil {
		t.Fatalf("RegisterCallback 2: %v", err)
	}

	if err := n.Put("topic", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if atomic.LoadInt32(&calls) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("got %d callback invocations, want 2", atomic.LoadInt32(&calls))
		case <-time.After(time.Millisecond):
		}
	}

	n.subs.mu.Lock()
	numSubs := len(n.subs.byKey)
	n.subs.mu.Unlock()
	if numSubs != 1 {
		t.Errorf("got %d distinct transport subscriptions, want 1", numSubs)
	}
}

// TestNode_TakeSemantics: after Take
// returns a value, the next Take returns nothing until a new sample
// arrives.
func TestNode_TakeSemantics(t *testing.T) {
	n := newTestNode(t, "g", 10)

	if err := n.Subscribe("topic", nil); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, ok := n.Take("topic"); ok {
		t.Fatal("Take before any sample should return false")
	}

	if err := n.Put("topic", 42); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var v any
	var ok bool
	deadline := time.After(time.Second)
	for {
		v, ok = n.Take("topic")
		if ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for sample to land in cache")
		case <-time.After(time.Millisecond):
		}
	}
	if v != int64(42) && v != 42 {
		t.Errorf("got %v, want 42", v)
	}

	if _, ok := n.Take("topic"); ok {
		t.Fatal("second Take with no new sample should return false")
	}
}

func TestNode_StepPanicRecovered(t *testing.T) {
	n := newTestNode(t, "g", 50)
	n.Bind(stepFunc(func() error { panic("boom") }))

	n.Start()
	time.Sleep(60 * time.Millisecond)
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestNode_StepErrorDoesNotStopLoop(t *testing.T) {
	n := newTestNode(t, "g", 100)
	var count int32
	n.Bind(stepFunc(func() error {
		atomic.AddInt32(&count, 1)
		return errors.New("bad tick")
	}))

	n.Start()
	time.Sleep(120 * time.Millisecond)
	n.Stop()

	if atomic.LoadInt32(&count) < 5 {
		t.Errorf("expected step to keep being invoked despite errors, got %d calls", count)
	}
}

// TestNode_SchedulerRate: over a window, Step runs
// between 0.8*hz and 1.05*hz times, with the upper bound strict.
func TestNode_SchedulerRate(t *testing.T) {
	n := newTestNode(t, "g", 50)
	var count int32
	n.Bind(stepFunc(func() error {
		atomic.AddInt32(&count, 1)
		return nil
	}))

	n.Start()
	time.Sleep(time.Second)
	n.Stop()

	got := atomic.LoadInt32(&count)
	if float64(got) < 0.8*50 {
		t.Errorf("got %d step calls in 1s at hz=50, want >= %v", got, 0.8*50)
	}
	if float64(got) > 1.05*50 {
		t.Errorf("got %d step calls in 1s at hz=50, want <= %v (strict upper bound)", got, 1.05*50)
	}
}

// TestNode_StopIdempotent: a second Stop completes successfully and
// the worker stays down.
func TestNode_StopIdempotent(t *testing.T) {
	n := newTestNode(t, "g", 50)
	n.Bind(stepFunc(func() error { return nil }))

	n.Start()
	time.Sleep(20 * time.Millisecond)

	if err := n.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if n.Running() {
		t.Error("node reports running after Stop")
	}
}

func TestNode_StartIdempotentReturnsSameNode(t *testing.T) {
	n := newTestNode(t, "g", 50)
	n.Bind(stepFunc(func() error { return nil }))

	h1 := n.Start()
	h2 := n.Start()
	defer n.Stop()

	if h1.node != h2.node {
		t.Error("Start called twice should reference the same node")
	}
}

func TestNode_GetTimesOutWithNoQueryable(t *testing.T) {
	n := newTestNode(t, "g", 10)
	ctx := context.Background()
	if _, ok := n.Get(ctx, "nobody-publishes-this", 20*time.Millisecond); ok {
		t.Error("Get against a key nothing has published should return false")
	}
}
