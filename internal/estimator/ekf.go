package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/NorthCarolinaRivalRobotics/tide/internal/lie"
)

// se2Filter is the SE(2) EKF state: mean X in SE(2),
// a 3x3 covariance P, and diagonal process/measurement noise Q/R.
type se2Filter struct {
	X lie.SE2
	P *mat.Dense
	Q *mat.Dense
	R *mat.Dense
}

func newSE2Filter(qDiag, rDiag []float64) *se2Filter {
	return &se2Filter{
		X: lie.IdentitySE2(),
		P: diagMatrix(3, qDiag), // initial covariance starts at the process noise scale
		Q: diagMatrix(3, qDiag),
		R: diagMatrix(3, rDiag),
	}
}

// propagate applies the prediction step: ΔX = exp(ξ·dt),
// X ← X·ΔX, P ← Ad(ΔX) P Ad(ΔX)ᵀ + Q·dt².
func (f *se2Filter) propagate(xi [3]float64, dt float64) {
	scaled := [3]float64{xi[0] * dt, xi[1] * dt, xi[2] * dt}
	dX := lie.ExpSE2(scaled)
	adj := dX.Adjoint()

	var tmp, adjP mat.Dense
	tmp.Mul(adj, f.P)
	adjP.Mul(&tmp, adj.T())

	var qTerm, newP mat.Dense
	qTerm.Scale(dt*dt, f.Q)
	newP.Add(&adjP, &qTerm)

	f.X = f.X.Compose(dX)
	f.P = symmetrize(&newP)
}

// update applies the correction step: r = log(X⁻¹·Z), S = P + R,
// K = P·S⁻¹, X ← X·exp(K·r), P ← (I−K)·P. The (I−K)·P shortcut is not
// numerically hardened against a very small R.
func (f *se2Filter) update(z lie.SE2) error {
	r := f.X.Inverse().Compose(z).Log()

	var S mat.Dense
	S.Add(f.P, f.R)
	var Sinv mat.Dense
	if err := Sinv.Inverse(&S); err != nil {
		return fmt.Errorf("estimator: SE2 innovation covariance singular: %w", err)
	}

	var K mat.Dense
	K.Mul(f.P, &Sinv)

	rVec := mat.NewVecDense(3, r[:])
	var krVec mat.VecDense
	krVec.MulVec(&K, rVec)

	var kr [3]float64
	for i := range kr {
		kr[i] = krVec.AtVec(i)
	}
	f.X = f.X.Compose(lie.ExpSE2(kr))

	var imk, newP mat.Dense
	imk.Sub(identity(3), &K)
	newP.Mul(&imk, f.P)
	f.P = symmetrize(&newP)
	return nil
}

// errorNorm returns ||log(X⁻¹·target)||, the tangent-space distance to
// target used by the convergence tests.
func (f *se2Filter) errorNorm(target lie.SE2) float64 {
	e := f.X.Inverse().Compose(target).Log()
	return norm(e[:])
}

// se3Filter is the SE(3) analog: mean X in SE(3), 6x6 covariance, twists
// ordered (rho, phi) throughout to match internal/lie's SE3 convention.
type se3Filter struct {
	X lie.SE3
	P *mat.Dense
	Q *mat.Dense
	R *mat.Dense
}

func newSE3Filter(qDiag, rDiag []float64) *se3Filter {
	return &se3Filter{
		X: lie.IdentitySE3(),
		P: diagMatrix(6, qDiag),
		Q: diagMatrix(6, qDiag),
		R: diagMatrix(6, rDiag),
	}
}

func (f *se3Filter) propagate(xi [6]float64, dt float64) {
	var scaled [6]float64
	for i := range scaled {
		scaled[i] = xi[i] * dt
	}
	dX := lie.ExpSE3(scaled)
	adj := dX.Adjoint()

	var tmp, adjP mat.Dense
	tmp.Mul(adj, f.P)
	adjP.Mul(&tmp, adj.T())

	var qTerm, newP mat.Dense
	qTerm.Scale(dt*dt, f.Q)
	newP.Add(&adjP, &qTerm)

	f.X = f.X.Compose(dX)
	f.P = symmetrize(&newP)
}

func (f *se3Filter) update(z lie.SE3) error {
	r := f.X.Inverse().Compose(z).Log()

	var S mat.Dense
	S.Add(f.P, f.R)
	var Sinv mat.Dense
	if err := Sinv.Inverse(&S); err != nil {
		return fmt.Errorf("estimator: SE3 innovation covariance singular: %w", err)
	}

	var K mat.Dense
	K.Mul(f.P, &Sinv)

	rVec := mat.NewVecDense(6, r[:])
	var krVec mat.VecDense
	krVec.MulVec(&K, rVec)

	var kr [6]float64
	for i := range kr {
		kr[i] = krVec.AtVec(i)
	}
	f.X = f.X.Compose(lie.ExpSE3(kr))

	var imk, newP mat.Dense
	imk.Sub(identity(6), &K)
	newP.Mul(&imk, f.P)
	f.P = symmetrize(&newP)
	return nil
}

func (f *se3Filter) errorNorm(target lie.SE3) float64 {
	e := f.X.Inverse().Compose(target).Log()
	return norm(e[:])
}

func diagMatrix(n int, diag []float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		v := 0.0
		if i < len(diag) {
			v = diag[i]
		}
		m.Set(i, i, v)
	}
	return m
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// symmetrize averages m with its transpose, keeping P symmetric to
// working precision in the face of floating-point rounding across the
// Compose/Adjoint chain.
func symmetrize(m *mat.Dense) *mat.Dense {
	var t, out mat.Dense
	t.CloneFrom(m.T())
	out.Add(m, &t)
	out.Scale(0.5, &out)
	return &out
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
