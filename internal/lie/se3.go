package lie

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SE3 is a 3D rigid transform: rotation plus translation.
type SE3 struct {
	R SO3
	T [3]float64
}

// IdentitySE3 returns the identity transform.
func IdentitySE3() SE3 { return SE3{R: IdentitySO3()} }

// se3LeftJacobian returns the 3x3 "V" matrix such that exp((rho, phi))
// translates by V * rho, for rotation part phi with angle theta =
// ||phi||.
func se3LeftJacobian(phi [3]float64) *mat.Dense {
	theta := norm3(phi)
	K := skew(phi)

	var b, c float64
	if theta < smallAngleEps {
		b = 0.5 - theta*theta/24
		c = 1.0/6 - theta*theta/120
	} else {
		b = (1 - math.Cos(theta)) / (theta * theta)
		c = (theta - math.Sin(theta)) / (theta * theta * theta)
	}

	var k2 mat.Dense
	k2.Mul(K, K)

	V := identity(3)
	V.Add(V, scaled(K, b))
	V.Add(V, scaled(&k2, c))
	return V
}

// ExpSE3 maps a twist (rho, phi) — translation part then rotation part
// — to the group.
func ExpSE3(v [6]float64) SE3 {
	rho := [3]float64{v[0], v[1], v[2]}
	phi := [3]float64{v[3], v[4], v[5]}

	V := se3LeftJacobian(phi)

	var t mat.Dense
	t.Mul(V, mat.NewDense(3, 1, rho[:]))

	return SE3{
		R: ExpSO3(phi),
		T: [3]float64{t.At(0, 0), t.At(1, 0), t.At(2, 0)},
	}
}

// Log returns the twist (rho, phi) for this transform.
func (g SE3) Log() [6]float64 {
	phi := g.R.Log()
	V := se3LeftJacobian(phi)

	var Vinv mat.Dense
	if err := Vinv.Inverse(V); err != nil {
		panic(err)
	}

	var rho mat.Dense
	rho.Mul(&Vinv, mat.NewDense(3, 1, g.T[:]))

	return [6]float64{
		rho.At(0, 0), rho.At(1, 0), rho.At(2, 0),
		phi[0], phi[1], phi[2],
	}
}

// Compose returns g followed by h.
func (g SE3) Compose(h SE3) SE3 {
	m := g.R.AsMatrix()
	var t [3]float64
	for i := 0; i < 3; i++ {
		t[i] = m[i][0]*h.T[0] + m[i][1]*h.T[1] + m[i][2]*h.T[2] + g.T[i]
	}
	return SE3{R: g.R.Compose(h.R), T: t}
}

// Inverse returns the inverse transform.
func (g SE3) Inverse() SE3 {
	rInv := g.R.Inverse()
	m := rInv.AsMatrix()
	var t [3]float64
	for i := 0; i < 3; i++ {
		t[i] = -(m[i][0]*g.T[0] + m[i][1]*g.T[1] + m[i][2]*g.T[2])
	}
	return SE3{R: rInv, T: t}
}

// AsMatrix returns the 4x4 homogeneous transform matrix, row-major.
func (g SE3) AsMatrix() [4][4]float64 {
	r := g.R.AsMatrix()
	var out [4][4]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[i][j]
		}
		out[i][3] = g.T[i]
	}
	out[3][3] = 1
	return out
}

// FromMatrixSE3 builds an SE3 from a 4x4 homogeneous transform matrix.
func FromMatrixSE3(m [4][4]float64) SE3 {
	var r [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j]
		}
	}
	return SE3{R: FromMatrixSO3(r), T: [3]float64{m[0][3], m[1][3], m[2][3]}}
}

// Adjoint returns the 6x6 adjoint representation of g, block-structured
// as [[R, [t]_x R], [0, R]] in the (rho, phi) ordering used throughout
// this package.
func (g SE3) Adjoint() *mat.Dense {
	r := g.R.Matrix()
	tSkew := skew(g.T)

	var tR mat.Dense
	tR.Mul(tSkew, r)

	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, r.At(i, j))
			out.Set(i, j+3, tR.At(i, j))
			out.Set(i+3, j+3, r.At(i, j))
		}
	}
	return out
}
