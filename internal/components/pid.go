package components

import (
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
)

// PIDNode is a single-axis PID controller: each tick it reads the
// cached reference and state samples and publishes a command computed
// from their error (with Kp=1, Ki=Kd=0 a constant reference/state
// pair converges to a constant command).
type PIDNode struct {
	node.Node

	kp, ki, kd float64

	referenceTopic string
	stateTopic     string
	commandTopic   string

	reference float64
	state     float64
	integral  float64
	prevErr   float64
	havePrev  bool
	lastTick  time.Time
}

func newPIDConstructor(cfg node.Config) (node.Runtime, error) {
	return NewPIDNode(cfg), nil
}

// NewPIDNode constructs a PIDNode from cfg.Params: kp/ki/kd (default
// kp=1, ki=0, kd=0) and reference_topic/state_topic/command_topic
// (default "reference"/"state"/"command").
func NewPIDNode(cfg node.Config) *PIDNode {
	p := &PIDNode{
		kp:             floatParam(cfg.Params, "kp", 1),
		ki:             floatParam(cfg.Params, "ki", 0),
		kd:             floatParam(cfg.Params, "kd", 0),
		referenceTopic: stringParam(cfg.Params, "reference_topic", "reference"),
		stateTopic:     stringParam(cfg.Params, "state_topic", "state"),
		commandTopic:   stringParam(cfg.Params, "command_topic", "command"),
	}
	p.Node = *node.New(cfg)
	p.Node.Bind(p)
	p.Subscribe(p.referenceTopic, nil)
	p.Subscribe(p.stateTopic, nil)
	return p
}

// Step reads the most recent reference/state samples (if any arrived
// since the last tick; otherwise the PID keeps its last setpoint and
// measurement, matching the estimator's "keep moving on no new
// sample" behavior) and publishes the PID command.
func (p *PIDNode) Step() error {
	if ref, ok := p.Take(p.referenceTopic); ok {
		p.reference = toFloat64(ref)
	}
	if st, ok := p.Take(p.stateTopic); ok {
		p.state = toFloat64(st)
	}

	now := time.Now()
	dt := 0.02 // first tick: assume one period at the node's default rate
	if p.havePrev {
		dt = now.Sub(p.lastTick).Seconds()
		if dt <= 0 {
			dt = 1e-3
		}
	}
	p.lastTick = now

	err := p.reference - p.state
	p.integral += err * dt
	derivative := 0.0
	if p.havePrev {
		derivative = (err - p.prevErr) / dt
	}
	p.prevErr = err
	p.havePrev = true

	command := p.kp*err + p.ki*p.integral + p.kd*derivative
	return p.Put(p.commandTopic, command)
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}
