package physics

import "math"

// Quat is a rotation quaternion. Operations assume unit length unless stated.
type Quat struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// Identity is the no-rotation quaternion.
var Identity = Quat{W: 1}

// FromAxisAngle builds a rotation of angle radians about axis.
func FromAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	if a == Zero {
		return Identity
	}
	s, c := math.Sincos(angle / 2)
	return Quat{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: c}
}

// Mul composes q and o: the result applies o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Dot(o Quat) float64 { return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W }
func (q Quat) Neg() Quat          { return Quat{-q.X, -q.Y, -q.Z, -q.W} }
func (q Quat) Conjugate() Quat    { return Quat{-q.X, -q.Y, -q.Z, q.W} }

// Inverse returns the multiplicative inverse; a zero quaternion maps to Identity.
func (q Quat) Inverse() Quat {
	n := q.Dot(q)
	if n == 0 {
		return Identity
	}
	c := q.Conjugate()
	return Quat{c.X / n, c.Y / n, c.Z / n, c.W / n}
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.Dot(q))
	if n == 0 {
		return Identity
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Up is the rotated +Y axis, the pointing direction of a hand.
func (q Quat) Up() Vec3 { return q.Rotate(UnitY) }

// AxisAngle decomposes q into a unit axis and an angle in [0, 2π].
func (q Quat) AxisAngle() (Vec3, float64) {
	n := q.Normalize()
	w := math.Max(-1, math.Min(1, n.W))
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < 1e-9 {
		return UnitX, 0
	}
	return Vec3{n.X / s, n.Y / s, n.Z / s}, angle
}

// Pow scales the rotation angle of q by t, keeping the axis.
func (q Quat) Pow(t float64) Quat {
	axis, angle := q.AxisAngle()
	if angle == 0 {
		return Identity
	}
	return FromAxisAngle(axis, angle*t)
}

// Delta returns the shortest rotation d such that d*from == to (up to sign).
func Delta(from, to Quat) Quat {
	if to.Dot(from) < 0 {
		to = to.Neg()
	}
	return to.Mul(from.Inverse()).Normalize()
}

// ApproxEqual compares rotations, treating q and -q as the same rotation.
func (q Quat) ApproxEqual(o Quat, eps float64) bool {
	return math.Abs(math.Abs(q.Dot(o))-1) <= eps
}
