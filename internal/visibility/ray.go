package visibility

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/insolation/pkg/geom"
)

// hitEpsilon rejects hits closer than this along the ray, and near-parallel
// triangles, in the Moller-Trumbore test.
const hitEpsilon = 1e-9

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    geom.Vec3
	Direction geom.Vec3 // Normalized direction

	inv      geom.Vec3 // 1/Direction per axis
	parallel [3]bool   // axis component is zero
}

// NewRay creates a ray and precomputes the reciprocals used by slab tests.
func NewRay(origin, direction geom.Vec3) Ray {
	r := Ray{Origin: origin, Direction: direction}
	for axis := 0; axis < 3; axis++ {
		d := direction.Axis(axis)
		if d == 0 {
			r.parallel[axis] = true
			continue
		}
		switch axis {
		case 0:
			r.inv.X = 1 / d
		case 1:
			r.inv.Y = 1 / d
		case 2:
			r.inv.Z = 1 / d
		}
	}
	return r
}

// IsFinite reports whether origin and direction are usable.
func (r Ray) IsFinite() bool {
	return r.Origin.IsFinite() && r.Direction.IsFinite() && r.Direction.Length() > 0
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box geom.AABB) (t float64, hit bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Axis(axis)
		lo, hi := box.Min.Axis(axis), box.Max.Axis(axis)
		if r.parallel[axis] {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		inv := r.inv.Axis(axis)
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	// Check if intersection is valid
	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectTriangle is the two-sided Moller-Trumbore test. It returns the
// distance along the ray to the hit.
func (r Ray) IntersectTriangle(tri geom.Triangle) (t float64, hit bool) {
	a, b, c := tri.A.R3(), tri.B.R3(), tri.C.R3()
	dir := r.Direction.R3()
	edge1 := r3.Sub(b, a)
	edge2 := r3.Sub(c, a)
	h := r3.Cross(dir, edge2)
	det := r3.Dot(edge1, h)
	// near zero: ray parallel to the triangle plane
	if det > -hitEpsilon && det < hitEpsilon {
		return 0, false
	}
	invDet := 1 / det
	s := r3.Sub(r.Origin.R3(), a)
	u := invDet * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := r3.Cross(s, edge1)
	v := invDet * r3.Dot(dir, q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = invDet * r3.Dot(edge2, q)
	if t < hitEpsilon {
		return 0, false
	}
	return t, true
}
