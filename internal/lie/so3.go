package lie

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SO3 is a 3D rotation, represented internally as a 3x3 rotation
// matrix backed by gonum.
type SO3 struct {
	m *mat.Dense // 3x3
}

// IdentitySO3 returns the identity rotation.
func IdentitySO3() SO3 {
	return SO3{m: identity(3)}
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// skew returns the 3x3 cross-product matrix [v]_x such that
// [v]_x * w == v cross w.
func skew(v [3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}

// vee is the inverse of skew: extracts the vector from a skew-symmetric
// matrix. Callers pass in a matrix that need not be exactly
// skew-symmetric (e.g. R - R^T); vee averages the off-diagonal pairs.
func vee(m *mat.Dense) [3]float64 {
	return [3]float64{
		0.5 * (m.At(2, 1) - m.At(1, 2)),
		0.5 * (m.At(0, 2) - m.At(2, 0)),
		0.5 * (m.At(1, 0) - m.At(0, 1)),
	}
}

func norm3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// ExpSO3 maps a rotation vector (axis * angle, in the Lie algebra
// so(3)) to the group via Rodrigues' formula, with a Taylor-series
// fallback below smallAngleEps to avoid dividing by a near-zero angle.
func ExpSO3(v [3]float64) SO3 {
	theta := norm3(v)
	K := skew(v)

	var a, b float64 // coefficients of K and K^2
	if theta < smallAngleEps {
		// sin(x)/x -> 1, (1-cos(x))/x^2 -> 1/2 as x -> 0.
		a = 1 - theta*theta/6
		b = 0.5 - theta*theta/24
	} else {
		a = math.Sin(theta) / theta
		b = (1 - math.Cos(theta)) / (theta * theta)
	}

	var k2 mat.Dense
	k2.Mul(K, K)

	r := identity(3)
	r.Add(r, scaled(K, a))
	r.Add(r, scaled(&k2, b))
	return SO3{m: r}
}

func scaled(m mat.Matrix, s float64) *mat.Dense {
	var out mat.Dense
	out.Scale(s, m)
	return &out
}

// Log returns the rotation vector (axis * angle) for this rotation,
// using a Taylor-series fallback when the rotation angle is small.
func (g SO3) Log() [3]float64 {
	tr := g.m.At(0, 0) + g.m.At(1, 1) + g.m.At(2, 2)
	cosTheta := (tr - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)

	var diff mat.Dense
	diff.Sub(g.m, g.m.T())
	w := vee(&diff)

	if theta < smallAngleEps {
		// theta / (2*sin(theta)) -> 1/2 as theta -> 0; below
		// smallAngleEps the next-order term (theta^2/12) is under float64
		// resolution, so the limit 1/2 is used directly.
		return [3]float64{w[0] * 0.5, w[1] * 0.5, w[2] * 0.5}
	}

	scale := theta / (2 * math.Sin(theta))
	return [3]float64{w[0] * scale, w[1] * scale, w[2] * scale}
}

// Compose returns g followed by h.
func (g SO3) Compose(h SO3) SO3 {
	var out mat.Dense
	out.Mul(g.m, h.m)
	return SO3{m: &out}
}

// Inverse returns the inverse rotation (the transpose, since SO(3)
// matrices are orthonormal).
func (g SO3) Inverse() SO3 {
	var out mat.Dense
	out.CloneFrom(g.m.T())
	return SO3{m: &out}
}

// AsMatrix returns the 3x3 rotation matrix, row-major.
func (g SO3) AsMatrix() [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = g.m.At(i, j)
		}
	}
	return out
}

// FromMatrixSO3 builds an SO3 from a 3x3 rotation matrix.
func FromMatrixSO3(m [3][3]float64) SO3 {
	d := mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
	return SO3{m: d}
}

// Adjoint returns the 3x3 adjoint representation of g, which for SO(3)
// equals the rotation matrix itself.
func (g SO3) Adjoint() *mat.Dense {
	var out mat.Dense
	out.CloneFrom(g.m)
	return &out
}

// Matrix exposes the underlying gonum matrix for callers (the EKF's
// propagate/update steps) that need to compose it into a larger
// Jacobian without round-tripping through the fixed-size array form.
func (g SO3) Matrix() *mat.Dense { return g.m }
