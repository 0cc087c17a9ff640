package lie

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SE2 is a 2D rigid transform: rotation plus translation.
type SE2 struct {
	R SO2
	T [2]float64
}

// IdentitySE2 returns the identity transform.
func IdentitySE2() SE2 { return SE2{R: IdentitySO2()} }

// se2LeftJacobian returns the 2x2 "V" matrix used by both exp and log:
// V(theta) such that exp((vx, vy, theta)) translates by V * (vx, vy).
func se2LeftJacobian(theta float64) *mat.Dense {
	var a, b float64
	if math.Abs(theta) < smallAngleEps {
		a = 1 - theta*theta/6
		b = theta/2 - theta*theta*theta/24
	} else {
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / theta
	}
	return mat.NewDense(2, 2, []float64{a, -b, b, a})
}

// ExpSE2 maps a twist (vx, vy, omega) to the group.
func ExpSE2(v [3]float64) SE2 {
	theta := v[2]
	V := se2LeftJacobian(theta)

	var t mat.Dense
	t.Mul(V, mat.NewDense(2, 1, []float64{v[0], v[1]}))

	return SE2{
		R: ExpSO2(theta),
		T: [2]float64{t.At(0, 0), t.At(1, 0)},
	}
}

// Log returns the twist (vx, vy, omega) for this transform.
func (g SE2) Log() [3]float64 {
	theta := g.R.Log()
	V := se2LeftJacobian(theta)

	var Vinv mat.Dense
	if err := Vinv.Inverse(V); err != nil {
		// V is singular only if theta wraps to exactly a multiple of 2*pi
		// with a degenerate Jacobian, which the SO2 angle range (at most
		// pi in magnitude) excludes.
		panic(err)
	}

	var rho mat.Dense
	rho.Mul(&Vinv, mat.NewDense(2, 1, []float64{g.T[0], g.T[1]}))

	return [3]float64{rho.At(0, 0), rho.At(1, 0), theta}
}

// Compose returns g followed by h.
func (g SE2) Compose(h SE2) SE2 {
	m := g.R.AsMatrix()
	tx := m[0][0]*h.T[0] + m[0][1]*h.T[1] + g.T[0]
	ty := m[1][0]*h.T[0] + m[1][1]*h.T[1] + g.T[1]
	return SE2{R: g.R.Compose(h.R), T: [2]float64{tx, ty}}
}

// Inverse returns the inverse transform.
func (g SE2) Inverse() SE2 {
	rInv := g.R.Inverse()
	m := rInv.AsMatrix()
	tx := -(m[0][0]*g.T[0] + m[0][1]*g.T[1])
	ty := -(m[1][0]*g.T[0] + m[1][1]*g.T[1])
	return SE2{R: rInv, T: [2]float64{tx, ty}}
}

// AsMatrix returns the 3x3 homogeneous transform matrix, row-major.
func (g SE2) AsMatrix() [3][3]float64 {
	r := g.R.AsMatrix()
	return [3][3]float64{
		{r[0][0], r[0][1], g.T[0]},
		{r[1][0], r[1][1], g.T[1]},
		{0, 0, 1},
	}
}

// FromMatrixSE2 builds an SE2 from a 3x3 homogeneous transform matrix.
func FromMatrixSE2(m [3][3]float64) SE2 {
	return SE2{
		R: FromMatrixSO2([2][2]float64{{m[0][0], m[0][1]}, {m[1][0], m[1][1]}}),
		T: [2]float64{m[0][2], m[1][2]},
	}
}

// Adjoint returns the 3x3 adjoint representation of g, mapping a
// left-twist perturbation expressed in g's frame to one expressed in
// the identity frame.
func (g SE2) Adjoint() *mat.Dense {
	r := g.R.AsMatrix()
	return mat.NewDense(3, 3, []float64{
		r[0][0], r[0][1], g.T[1],
		r[1][0], r[1][1], -g.T[0],
		0, 0, 1,
	})
}
