package lie

import "math"

// SO2 is a 2D rotation, represented directly by its angle in radians.
type SO2 struct {
	theta float64
}

// IdentitySO2 returns the identity rotation.
func IdentitySO2() SO2 { return SO2{} }

// ExpSO2 maps a scalar Lie-algebra element (the rotation rate) to the
// group. For SO(2) this is just angle normalization; there is no
// small-angle singularity to guard against.
func ExpSO2(theta float64) SO2 {
	return SO2{theta: normalizeAngle(theta)}
}

// Log returns the Lie-algebra element (angle) this rotation represents.
func (g SO2) Log() float64 { return g.theta }

// Angle returns the rotation angle in radians: [-pi, pi) for rotations
// built by ExpSO2, Compose or Inverse, (-pi, pi] for FromMatrixSO2.
func (g SO2) Angle() float64 { return g.theta }

// Compose returns g followed by h (group multiplication, angle addition).
func (g SO2) Compose(h SO2) SO2 {
	return SO2{theta: normalizeAngle(g.theta + h.theta)}
}

// Inverse returns the inverse rotation.
func (g SO2) Inverse() SO2 {
	return SO2{theta: normalizeAngle(-g.theta)}
}

// AsMatrix returns the 2x2 rotation matrix, row-major.
func (g SO2) AsMatrix() [2][2]float64 {
	c, s := math.Cos(g.theta), math.Sin(g.theta)
	return [2][2]float64{{c, -s}, {s, c}}
}

// FromMatrixSO2 builds an SO2 from a 2x2 rotation matrix.
func FromMatrixSO2(m [2][2]float64) SO2 {
	return SO2{theta: math.Atan2(m[1][0], m[0][0])}
}

// Adjoint returns the adjoint map for SO(2), which is trivial (scalar
// identity): rotation commutes with itself in one dimension.
func (g SO2) Adjoint() float64 { return 1 }

func normalizeAngle(theta float64) float64 {
	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta - math.Pi
}
