package estimator

import (
	"fmt"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/lie"
	"github.com/NorthCarolinaRivalRobotics/tide/internal/wire"
)

// decodeTwist pulls a (linear, angular) velocity pair out of a
// generically-decoded sample (a map[string]any, as internal/node's
// Take returns for any non-raw-bytes payload) and concatenates them
// into the twist vector ExpSE2/ExpSE3 expect: (vx, vy, omega) for SE2,
// (rho, phi) = (vx, vy, vz, wx, wy, wz) for SE3.
func decodeTwist(raw any, mode Mode) ([]float64, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, &wire.SchemaError{Want: "mapping", Got: fmt.Sprintf("%T", raw)}
	}
	linear := floatSlice(m["linear"])
	angular := floatSlice(m["angular"])

	switch mode {
	case SE2:
		if len(linear) < 2 || len(angular) < 1 {
			return nil, fmt.Errorf("SE2 twist needs linear=[vx,vy] and angular=[omega]")
		}
		return []float64{linear[0], linear[1], angular[0]}, nil
	case SE3:
		if len(linear) < 3 || len(angular) < 3 {
			return nil, fmt.Errorf("SE3 twist needs linear=[vx,vy,vz] and angular=[wx,wy,wz]")
		}
		return []float64{linear[0], linear[1], linear[2], angular[0], angular[1], angular[2]}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// decodePoseSE2 builds an SE2 group element from a {translation:
// [x,y], rotation: [theta]} sample.
func decodePoseSE2(raw any) (lie.SE2, error) {
	m, ok := asMap(raw)
	if !ok {
		return lie.SE2{}, &wire.SchemaError{Want: "mapping", Got: fmt.Sprintf("%T", raw)}
	}
	t := floatSlice(m["translation"])
	r := floatSlice(m["rotation"])
	if len(t) < 2 || len(r) < 1 {
		return lie.SE2{}, fmt.Errorf("SE2 measurement needs translation=[x,y] and rotation=[theta]")
	}
	return lie.SE2{R: lie.ExpSO2(r[0]), T: [2]float64{t[0], t[1]}}, nil
}

// decodePoseSE3 builds an SE3 group element from a {translation:
// [x,y,z], rotation: [w,x,y,z]} sample (unit quaternion).
func decodePoseSE3(raw any) (lie.SE3, error) {
	m, ok := asMap(raw)
	if !ok {
		return lie.SE3{}, &wire.SchemaError{Want: "mapping", Got: fmt.Sprintf("%T", raw)}
	}
	t := floatSlice(m["translation"])
	r := floatSlice(m["rotation"])
	if len(t) < 3 || len(r) < 4 {
		return lie.SE3{}, fmt.Errorf("SE3 measurement needs translation=[x,y,z] and rotation=[w,x,y,z]")
	}
	q := lie.Quaternion{W: r[0], X: r[1], Y: r[2], Z: r[3]}
	return lie.SE3{R: q.Normalize().AsSO3(), T: [3]float64{t[0], t[1], t[2]}}, nil
}

// asMap accepts either a map[string]any (the codec's native decode
// shape) or a map[any]any (some codec configurations decode mappings
// with a broader key type), normalizing to map[string]any.
func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			if ks, ok := k.(string); ok {
				out[ks] = v
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// floatSlice converts a decoded array value ([]any of numbers, or
// already a []float64) into []float64, skipping elements it can't
// convert.
func floatSlice(raw any) []float64 {
	switch v := raw.(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			out = append(out, toFloat64(e))
		}
		return out
	default:
		return nil
	}
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

// stringParam reads a string out of params, defaulting to def when
// absent or not a string.
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

// floatSliceParam reads a numeric array param (e.g. "q_diag: [1e-4,
// 1e-4, 1e-4]" in YAML), returning nil if absent or malformed.
func floatSliceParam(params map[string]any, key string) []float64 {
	v, ok := params[key]
	if !ok {
		return nil
	}
	return floatSlice(v)
}

// orDefault returns diag if it has exactly n entries, otherwise a
// fresh slice of n copies of def.
func orDefault(diag []float64, n int, def float64) []float64 {
	if len(diag) == n {
		return diag
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = def
	}
	return out
}
