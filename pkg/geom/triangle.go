package geom

// Triangle is a triangular facet. Vertex order defines the facing of Normal.
type Triangle struct {
	A, B, C Vec3
}

// Normal returns the unit normal following the right-hand rule over A, B, C.
func (t Triangle) Normal() Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Normalize()
}

// Area returns the surface area of the triangle.
func (t Triangle) Area() float64 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Length() / 2
}

// Centroid returns the average of the three vertices.
func (t Triangle) Centroid() Vec3 {
	return t.A.Add(t.B).Add(t.C).Scale(1.0 / 3.0)
}

// Bounds returns the bounding box of the triangle.
func (t Triangle) Bounds() AABB {
	return EmptyAABB().Extend(t.A).Extend(t.B).Extend(t.C)
}

// IsFinite reports whether all vertices are finite.
func (t Triangle) IsFinite() bool {
	return t.A.IsFinite() && t.B.IsFinite() && t.C.IsFinite()
}
