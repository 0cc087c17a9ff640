// Package lie implements the SO(2), SO(3), SE(2), and SE(3) Lie groups
// used by the pose estimator: identity, composition, inverse,
// matrix conversion, and the exp/log maps between each group and its
// Lie algebra, plus the adjoint representation used to transport
// covariance across a perturbation. Matrix algebra is backed by
// gonum.org/v1/gonum/mat rather than hand-rolled fixed-size arrays.
package lie

// smallAngleEps is the rotation-angle threshold below which exp/log
// switch to their Taylor-series fallback to avoid dividing by a
// near-zero sine or angle.
const smallAngleEps = 1e-8
