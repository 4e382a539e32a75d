package physics

import "math"

// Pose is a position plus orientation.
type Pose struct {
	Position Vec3 `json:"position" yaml:"position"`
	Rotation Quat `json:"rotation" yaml:"rotation"`
}

// Ray is a half line with a maximum usable length.
type Ray struct {
	Origin    Vec3
	Direction Vec3 // unit length
	Length    float64
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 { return r.Origin.Add(r.Direction.Scale(t)) }

// AABB is an axis aligned bounding box.
type AABB struct {
	Min Vec3 `json:"min" yaml:"min"`
	Max Vec3 `json:"max" yaml:"max"`
}

// BoxAround centers a box of the given dimensions on center.
func BoxAround(center, dimensions Vec3) AABB {
	half := dimensions.Scale(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// DistanceTo is the distance from p to the closest point of the box, zero inside.
func (b AABB) DistanceTo(p Vec3) float64 {
	clamp := Vec3{
		math.Max(b.Min.X, math.Min(p.X, b.Max.X)),
		math.Max(b.Min.Y, math.Min(p.Y, b.Max.Y)),
		math.Max(b.Min.Z, math.Min(p.Z, b.Max.Z)),
	}
	return clamp.Distance(p)
}

// IntersectRay uses the slab method and returns the entry distance along r.
// A ray starting inside the box reports distance 0.
func (b AABB) IntersectRay(r Ray) (float64, bool) {
	tMin, tMax := 0.0, r.Length
	if tMax <= 0 {
		tMax = math.Inf(1)
	}
	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (lo[i] - origin[i]) * inv
		t2 := (hi[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
