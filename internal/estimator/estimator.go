// Package estimator implements the pose estimator: a concrete
// node.Runtime running an on-manifold SE(2)/SE(3) extended Kalman
// filter driven by twist and pose-measurement samples, built on
// internal/lie.
package estimator

import (
	"fmt"
	"time"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/lie"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
)

// Mode selects which manifold the filter runs on.
type Mode string

const (
	SE2 Mode = "SE2"
	SE3 Mode = "SE3"
)

// Default noise diagonals.
const (
	defaultProcessNoise     = 1e-4
	defaultMeasurementNoise = 1e-2
)

// Node is the pose-estimator node: topics twist_topic/measure_topic/
// output_topic, all namespaced normally.
type Node struct {
	node.Node

	mode Mode

	twistTopic   string
	measureTopic string
	outputTopic  string

	se2 *se2Filter
	se3 *se3Filter

	lastTwist []float64
	lastTick  time.Time
	haveTick  bool
}

func newConstructor(cfg node.Config) (node.Runtime, error) {
	return New(cfg)
}

// Register installs the estimator under its dotted built-in name in r,
// for internal/components.Builtins (or a project registry) to resolve.
func Register(r *node.Registry) {
	r.Register("tide.estimator.Node", newConstructor)
}

// New constructs a pose-estimator Node from cfg.Params: "mode" (SE2,
// default, or SE3), "twist_topic" (default "twist"), "measure_topic"
// (default "measurement"), "output_topic" (default "pose"), and
// optional "q_diag"/"r_diag" noise-diagonal overrides.
func New(cfg node.Config) (*Node, error) {
	mode := Mode(stringParam(cfg.Params, "mode", string(SE2)))

	e := &Node{
		mode:         mode,
		twistTopic:   stringParam(cfg.Params, "twist_topic", "twist"),
		measureTopic: stringParam(cfg.Params, "measure_topic", "measurement"),
		outputTopic:  stringParam(cfg.Params, "output_topic", "pose"),
	}

	qDiag := floatSliceParam(cfg.Params, "q_diag")
	rDiag := floatSliceParam(cfg.Params, "r_diag")

	switch mode {
	case SE2:
		e.se2 = newSE2Filter(orDefault(qDiag, 3, defaultProcessNoise), orDefault(rDiag, 3, defaultMeasurementNoise))
		e.lastTwist = make([]float64, 3)
	case SE3:
		e.se3 = newSE3Filter(orDefault(qDiag, 6, defaultProcessNoise), orDefault(rDiag, 6, defaultMeasurementNoise))
		e.lastTwist = make([]float64, 6)
	default:
		return nil, fmt.Errorf("estimator: unknown mode %q (want SE2 or SE3)", mode)
	}

	e.Node = *node.New(cfg)
	e.Node.Bind(e)
	e.Subscribe(e.twistTopic, nil)
	e.Subscribe(e.measureTopic, nil)
	return e, nil
}

// Step computes dt, consumes the latest cached twist (keeping the
// last one if none arrived this tick — the estimator keeps moving),
// propagates; then consumes the latest cached pose measurement if
// present and updates; publishes the current estimate.
func (e *Node) Step() error {
	dt := e.tickDt()

	if raw, ok := e.Take(e.twistTopic); ok {
		xi, err := decodeTwist(raw, e.mode)
		if err != nil {
			e.Logger().Warn("estimator: dropped malformed twist sample", "error", err)
		} else {
			e.lastTwist = xi
		}
	}
	e.propagate(dt)

	if raw, ok := e.Take(e.measureTopic); ok {
		if err := e.applyMeasurement(raw); err != nil {
			e.Logger().Warn("estimator: dropped malformed measurement", "error", err)
		}
	}

	return e.Put(e.outputTopic, e.posePayload())
}

func (e *Node) tickDt() float64 {
	now := time.Now()
	dt := 1.0 / e.Hz()
	if e.haveTick {
		if d := now.Sub(e.lastTick).Seconds(); d > 0 {
			dt = d
		}
	}
	e.lastTick = now
	e.haveTick = true
	return dt
}

func (e *Node) propagate(dt float64) {
	switch e.mode {
	case SE2:
		e.se2.propagate([3]float64{e.lastTwist[0], e.lastTwist[1], e.lastTwist[2]}, dt)
	case SE3:
		var xi [6]float64
		copy(xi[:], e.lastTwist)
		e.se3.propagate(xi, dt)
	}
}

func (e *Node) applyMeasurement(raw any) error {
	switch e.mode {
	case SE2:
		z, err := decodePoseSE2(raw)
		if err != nil {
			return err
		}
		return e.se2.update(z)
	case SE3:
		z, err := decodePoseSE3(raw)
		if err != nil {
			return err
		}
		return e.se3.update(z)
	default:
		return fmt.Errorf("estimator: unknown mode %q", e.mode)
	}
}

// posePayload builds the message published on output_topic: translation
// plus rotation, the latter as an angle (SE2) or a (w,x,y,z) quaternion
// (SE3) — the same shape decodePoseSE2/decodePoseSE3 accept, so a
// publisher and the estimator can exchange pose samples directly.
func (e *Node) posePayload() map[string]any {
	switch e.mode {
	case SE2:
		return map[string]any{
			"translation": []float64{e.se2.X.T[0], e.se2.X.T[1]},
			"rotation":    []float64{e.se2.X.R.Angle()},
		}
	case SE3:
		q := lie.QuaternionFromSO3(e.se3.X.R)
		return map[string]any{
			"translation": []float64{e.se3.X.T[0], e.se3.X.T[1], e.se3.X.T[2]},
			"rotation":    []float64{q.W, q.X, q.Y, q.Z},
		}
	default:
		return nil
	}
}

// ErrorNorm returns the tangent-space distance between the current
// estimate and target, for tests exercising convergence. target must
// be a lie.SE2 in SE2 mode or a
// lie.SE3 in SE3 mode.
func (e *Node) ErrorNorm(target any) (float64, error) {
	switch e.mode {
	case SE2:
		g, ok := target.(lie.SE2)
		if !ok {
			return 0, fmt.Errorf("estimator: ErrorNorm target must be lie.SE2 in SE2 mode")
		}
		return e.se2.errorNorm(g), nil
	case SE3:
		g, ok := target.(lie.SE3)
		if !ok {
			return 0, fmt.Errorf("estimator: ErrorNorm target must be lie.SE3 in SE3 mode")
		}
		return e.se3.errorNorm(g), nil
	default:
		return 0, fmt.Errorf("estimator: unknown mode %q", e.mode)
	}
}
