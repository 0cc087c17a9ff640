// Package node implements the node runtime: the lifecycle,
// scheduling, and messaging contract every Tide node obeys. A node is a
// periodic worker with its own rate, a set of subscriptions against a
// shared transport.Session, and a Step hook the scheduler drives at
// that rate.
package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/namespace"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/transport"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/wire"
)

// DefaultHz is the scheduler rate used when a node's config does not
// specify one.
const DefaultHz = 50.0

// Stepper is the one method user code implements: the periodic hook
// the scheduler invokes at the node's rate. Returning an error marks
// the tick as failed; the error is logged through the node's logger and
// the loop continues.
type Stepper interface {
	Step() error
}

// Runtime is the full per-node contract: Put, Subscribe,
// RegisterCallback, Take, Get, Start, Stop. A
// Node value satisfies it directly; Step is supplied by the embedding
// type.
type Runtime interface {
	Put(topic string, value any) error
	Subscribe(topic string, cb Callback) error
	RegisterCallback(topic string, cb Callback) error
	Take(topic string) (any, bool)
	Get(ctx context.Context, topic string, timeout time.Duration) (any, bool)
	Start() *Handle
	Stop() error
}

// Bindable is implemented by Node. A concrete node type calls Bind(self)
// once, immediately after embedding construction, so Start (which takes
// no arguments, per Runtime) knows which Stepper to drive — the
// embedding struct itself, not the embedded Node value.
type Bindable interface {
	Bind(s Stepper)
}

// Callback receives a decoded sample for a subscribed topic. It runs on
// a transport goroutine and must not block.
type Callback func(value any)

// RecorderSink receives every payload a node publishes, regardless of
// topic, for best-effort bag capture. internal/recorder's active
// singleton implements this through a narrow indirection so internal/node
// never imports internal/recorder directly.
type RecorderSink interface {
	Record(topic string, payload []byte, tsNano int64)
}

// noopRecorder stands in when Config.Recorder is unset, so Put never
// has to nil-check the sink; the launcher threads the real recorder
// through Config.Recorder when recording is active.
var noopRecorder = recorderFunc(func(string, []byte, int64) {})

type recorderFunc func(topic string, payload []byte, tsNano int64)

func (f recorderFunc) Record(topic string, payload []byte, tsNano int64) { f(topic, payload, tsNano) }

// Config is the construction-time parameterization common to every
// node: robot/group namespace segments, rate, transport session, and
// opaque per-node params forwarded from the launcher's config.NodeConfig.
type Config struct {
	RobotID string
	Group   string
	Hz      float64
	Session transport.Session
	Codec   wire.Codec
	Logger  *slog.Logger

	// Recorder receives every Put payload; defaults to a no-op so a
	// Node constructed outside the launcher (e.g. in a test) never nil
	// panics. internal/launcher fills this from the recorder singleton
	// it installed (internal/recorder.Active) before constructing the
	// node set, so Put itself never touches a process-wide global.
	Recorder RecorderSink

	// Params carries the node's config.NodeConfig.Params map verbatim.
	Params map[string]any
}

// Node is the embeddable base every concrete node type wraps. It is not
// itself a Stepper — embedders provide Step and typically override
// nothing else.
type Node struct {
	robotID string
	group   string
	hz      float64
	session transport.Session
	codec   wire.Codec
	logger  *slog.Logger
	rec     RecorderSink
	params  map[string]any

	subs    *subscriptionTable
	sched   *scheduler
	stepper Stepper
	handle  *Handle
}

// Bind records the concrete node value (the struct embedding this
// Node) as the Stepper Start should drive. Must be called once, before
// Start, by every concrete node's constructor — see Bindable.
func (n *Node) Bind(s Stepper) {
	n.stepper = s
}

// New constructs a Node from cfg, applying the runtime defaults:
// robot_id defaults to "robot" (via internal/namespace), hz defaults to
// DefaultHz.
func New(cfg Config) *Node {
	robotID := cfg.RobotID
	if robotID == "" {
		robotID = namespace.DefaultRobotID
	}
	hz := cfg.Hz
	if hz <= 0 {
		hz = DefaultHz
	}
	codec := cfg.Codec
	if codec == nil {
		codec = wire.Default
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = noopRecorder
	}

	n := &Node{
		robotID: robotID,
		group:   cfg.Group,
		hz:      hz,
		session: cfg.Session,
		codec:   codec,
		logger:  logger,
		rec:     rec,
		params:  cfg.Params,
	}
	n.subs = newSubscriptionTable(n)
	return n
}

// RobotID returns the node's robot namespace segment.
func (n *Node) RobotID() string { return n.robotID }

// Group returns the node's group namespace segment.
func (n *Node) Group() string { return n.group }

// Hz returns the node's configured scheduler rate.
func (n *Node) Hz() float64 { return n.hz }

// Logger returns the node's logger, for use by the embedding type's
// Step implementation.
func (n *Node) Logger() *slog.Logger { return n.logger }

// Param returns params[key] and whether it was present, for concrete
// node types reading their construction-time config.Params.
func (n *Node) Param(key string) (any, bool) {
	v, ok := n.params[key]
	return v, ok
}

// fullKey derives the namespaced transport key for topic.
func (n *Node) fullKey(topic string) string {
	return namespace.MakeKey(n.robotID, n.group, topic)
}

// Handle is returned by Start; it exists so the scheduler's internal
// goroutine machinery is not exposed directly. Currently it carries no
// public surface beyond identity — future per-node introspection (e.g.
// a health endpoint) hangs off this type rather than widening Runtime.
type Handle struct {
	node *Node
}
