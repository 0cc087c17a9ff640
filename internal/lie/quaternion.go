package lie

import "math"

// Quaternion is a unit quaternion (w, x, y, z) representing a 3D
// rotation.
type Quaternion struct {
	W, X, Y, Z float64
}

// IdentityQuaternion returns the identity rotation.
func IdentityQuaternion() Quaternion { return Quaternion{W: 1} }

// QuaternionFromEuler builds a unit quaternion from roll/pitch/yaw
// (radians), using the ZYX convention: q = q_yaw * q_pitch * q_roll.
func QuaternionFromEuler(roll, pitch, yaw float64) Quaternion {
	qYaw := Quaternion{W: math.Cos(yaw / 2), Z: math.Sin(yaw / 2)}
	qPitch := Quaternion{W: math.Cos(pitch / 2), Y: math.Sin(pitch / 2)}
	qRoll := Quaternion{W: math.Cos(roll / 2), X: math.Sin(roll / 2)}
	return qYaw.Mul(qPitch).Mul(qRoll)
}

// Mul composes two quaternions (q followed by r, in the Hamilton
// convention: result represents applying r then q when used to rotate
// vectors).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conjugate returns the conjugate (and, since q is unit, the inverse).
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Normalize returns q scaled to unit length.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return IdentityQuaternion()
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// ToEuler converts back to roll, pitch, yaw (radians), applying the
// standard gimbal-lock guard: the asin argument is clamped to [-1, 1],
// and pitch saturates to ±pi/2 with the sign of the (unclamped)
// argument when the gimbal lock condition is hit.
func (q Quaternion) ToEuler() (roll, pitch, yaw float64) {
	sinPitch := 2 * (q.W*q.Y - q.Z*q.X)

	if sinPitch >= 1 {
		pitch = math.Pi / 2
	} else if sinPitch <= -1 {
		pitch = -math.Pi / 2
	} else {
		pitch = math.Asin(sinPitch)
	}

	sinRollCosPitch := 2 * (q.W*q.X + q.Y*q.Z)
	cosRollCosPitch := 1 - 2*(q.X*q.X+q.Y*q.Y)
	roll = math.Atan2(sinRollCosPitch, cosRollCosPitch)

	sinYawCosPitch := 2 * (q.W*q.Z + q.X*q.Y)
	cosYawCosPitch := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	yaw = math.Atan2(sinYawCosPitch, cosYawCosPitch)

	return roll, pitch, yaw
}

// AsSO3 converts this quaternion to its equivalent SO3 rotation matrix.
func (q Quaternion) AsSO3() SO3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return FromMatrixSO3([3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	})
}

// QuaternionFromSO3 converts a rotation matrix to its equivalent unit
// quaternion (Shepperd's method, numerically stable across all rotation
// angles).
func QuaternionFromSO3(g SO3) Quaternion {
	m := g.AsMatrix()
	tr := m[0][0] + m[1][1] + m[2][2]

	var q Quaternion
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quaternion{
			W: 0.25 * s,
			X: (m[2][1] - m[1][2]) / s,
			Y: (m[0][2] - m[2][0]) / s,
			Z: (m[1][0] - m[0][1]) / s,
		}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := math.Sqrt(1+m[0][0]-m[1][1]-m[2][2]) * 2
		q = Quaternion{
			W: (m[2][1] - m[1][2]) / s,
			X: 0.25 * s,
			Y: (m[0][1] + m[1][0]) / s,
			Z: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] > m[2][2]:
		s := math.Sqrt(1+m[1][1]-m[0][0]-m[2][2]) * 2
		q = Quaternion{
			W: (m[0][2] - m[2][0]) / s,
			X: (m[0][1] + m[1][0]) / s,
			Y: 0.25 * s,
			Z: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := math.Sqrt(1+m[2][2]-m[0][0]-m[1][1]) * 2
		q = Quaternion{
			W: (m[1][0] - m[0][1]) / s,
			X: (m[0][2] + m[2][0]) / s,
			Y: (m[1][2] + m[2][1]) / s,
			Z: 0.25 * s,
		}
	}
	return q.Normalize()
}
