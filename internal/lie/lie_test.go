package lie

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSO2_ExpLogRoundTrip(t *testing.T) {
	for _, theta := range []float64{0, 1e-10, 0.01, 0.5, -0.5, 1.5} {
		g := ExpSO2(theta)
		got := g.Log()
		if !almostEqual(got, theta, 1e-6) {
			t.Errorf("SO2 round trip theta=%v got=%v", theta, got)
		}
	}
}

func TestSO2_ComposeInverseIsIdentity(t *testing.T) {
	g := ExpSO2(0.37)
	id := g.Compose(g.Inverse())
	if !almostEqual(id.Angle(), 0, 1e-9) {
		t.Errorf("g * g^-1 angle = %v, want 0", id.Angle())
	}
}

func TestSO3_ExpLogRoundTrip(t *testing.T) {
	cases := [][3]float64{
		{0, 0, 0},
		{1e-10, 1e-10, 1e-10},
		{0.1, -0.2, 0.05},
		{0.4, 0.3, -0.4},
	}
	for _, v := range cases {
		g := ExpSO3(v)
		got := g.Log()
		for i := range v {
			if !almostEqual(got[i], v[i], 1e-6) {
				t.Errorf("SO3 round trip v=%v got=%v (component %d)", v, got, i)
			}
		}
	}
}

func TestSO3_InverseIsTranspose(t *testing.T) {
	g := ExpSO3([3]float64{0.2, 0.1, -0.3})
	inv := g.Inverse()
	id := g.Compose(inv)
	m := id.AsMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if !almostEqual(m[i][j], want, 1e-9) {
				t.Errorf("g*g^-1[%d][%d] = %v, want %v", i, j, m[i][j], want)
			}
		}
	}
}

func TestSE2_ExpLogRoundTrip(t *testing.T) {
	cases := [][3]float64{
		{0, 0, 0},
		{1e-10, 1e-10, 1e-10},
		{0.3, -0.1, 0.2},
		{1.0, 0.5, -0.4},
	}
	for _, v := range cases {
		g := ExpSE2(v)
		got := g.Log()
		for i := range v {
			if !almostEqual(got[i], v[i], 1e-6) {
				t.Errorf("SE2 round trip v=%v got=%v (component %d)", v, got, i)
			}
		}
	}
}

func TestSE3_ExpLogRoundTrip(t *testing.T) {
	cases := [][6]float64{
		{0, 0, 0, 0, 0, 0},
		{0.1, -0.2, 0.05, 0.2, -0.1, 0.05},
		{0.3, 0.3, 0.3, 0.2, 0.2, 0.2},
	}
	for _, v := range cases {
		g := ExpSE3(v)
		got := g.Log()
		for i := range v {
			if !almostEqual(got[i], v[i], 1e-5) {
				t.Errorf("SE3 round trip v=%v got=%v (component %d)", v, got, i)
			}
		}
	}
}

func TestQuaternion_EulerRoundTrip(t *testing.T) {
	cases := [][3]float64{
		{0, 0, 0},
		{0.1, 0.2, 0.3},
		{-0.4, 0.1, -0.2},
	}
	for _, c := range cases {
		roll, pitch, yaw := c[0], c[1], c[2]
		q := QuaternionFromEuler(roll, pitch, yaw)
		r2, p2, y2 := q.ToEuler()
		if !almostEqual(r2, roll, 1e-6) || !almostEqual(p2, pitch, 1e-6) || !almostEqual(y2, yaw, 1e-6) {
			t.Errorf("Euler round trip (%v,%v,%v) got (%v,%v,%v)", roll, pitch, yaw, r2, p2, y2)
		}
	}
}

func TestQuaternion_GimbalLockClampsPitch(t *testing.T) {
	q := Quaternion{W: math.Sqrt(0.5), X: 0, Y: math.Sqrt(0.5), Z: 0}
	_, pitch, _ := q.ToEuler()
	if !almostEqual(math.Abs(pitch), math.Pi/2, 1e-9) {
		t.Errorf("pitch at gimbal lock = %v, want +-pi/2", pitch)
	}
}

func TestQuaternion_SO3RoundTrip(t *testing.T) {
	g := ExpSO3([3]float64{0.2, -0.3, 0.1})
	q := QuaternionFromSO3(g)
	g2 := q.AsSO3()
	m1, m2 := g.AsMatrix(), g2.AsMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !almostEqual(m1[i][j], m2[i][j], 1e-9) {
				t.Errorf("quaternion<->SO3 round trip [%d][%d] = %v, want %v", i, j, m2[i][j], m1[i][j])
			}
		}
	}
}
