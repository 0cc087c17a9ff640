// Package components holds the framework's built-in node types:
// PIDNode and MuxNode, illustrating the node contract, plus the pose
// estimator. They are registered under the
// "tide.components."/"tide.estimator." dotted namespaces and
// resolved there by internal/launcher when a project's
// config.NodeConfig.Type is not found in the project's own Registry.
package components

import (
	"github.com/NorthCarolinaRivalRobotics/tide/internal/estimator"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/node"
)

// Builtins returns a fresh Registry populated with every built-in node
// type. internal/launcher.Launch consults it as the second step of the
// project-then-builtin resolution order.
func Builtins() *node.Registry {
	r := node.NewRegistry()
	r.Register("tide.components.PIDNode", newPIDConstructor)
	r.Register("tide.components.MuxNode", newMuxConstructor)
	estimator.Register(r)
	return r
}

// floatParam reads a float64 out of a node.Config.Params map, applying
// def when the key is absent. YAML numeric scalars decode through
// gopkg.in/yaml.v3 as int or float64 depending on literal form, so both
// are accepted.
func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// stringParam reads a string out of params, applying def when the key
// is absent or not a string.
func stringParam(params map[string]any, key, def string) string {
	v, ok := params[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}
