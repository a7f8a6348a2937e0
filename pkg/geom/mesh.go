package geom

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned for degenerate or malformed geometry.
var ErrInvalidGeometry = errors.New("invalid geometry")

// degenerateArea is the area below which a face is treated as collapsed.
const degenerateArea = 1e-12

// Face is a triangle or quad given as indices into Mesh.Vertices.
type Face []int

// Mesh is a face-vertex mesh of triangles and quads. Each face is one
// analysis cell when the mesh is sampled.
type Mesh struct {
	Vertices []Vec3
	Faces    []Face
}

// Geometry is anything the sampler can grid into analysis faces and the
// visibility engine can use as a ray blocker.
type Geometry interface {
	// Area returns the total surface area in square model units.
	Area() float64
	// Discretize returns a mesh whose faces approximate gridSize.
	Discretize(gridSize float64) (*Mesh, error)
	// Triangles returns the unmodified surface as triangles.
	Triangles() []Triangle
}

// NewMesh creates a mesh and validates face indices.
func NewMesh(vertices []Vec3, faces []Face) (*Mesh, error) {
	m := &Mesh{Vertices: vertices, Faces: faces}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks face arity, index bounds and finite coordinates.
func (m *Mesh) Validate() error {
	for i, v := range m.Vertices {
		if !v.IsFinite() {
			return fmt.Errorf("%w: vertex %d is not finite", ErrInvalidGeometry, i)
		}
	}
	for i, f := range m.Faces {
		if len(f) != 3 && len(f) != 4 {
			return fmt.Errorf("%w: face %d has %d vertices", ErrInvalidGeometry, i, len(f))
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("%w: face %d references vertex %d", ErrInvalidGeometry, i, idx)
			}
		}
	}
	return nil
}

// FaceTriangles splits face i into one or two triangles, (0,1,2) and (0,2,3).
func (m *Mesh) FaceTriangles(i int) []Triangle {
	f := m.Faces[i]
	v := m.Vertices
	tris := []Triangle{{v[f[0]], v[f[1]], v[f[2]]}}
	if len(f) == 4 {
		tris = append(tris, Triangle{v[f[0]], v[f[2]], v[f[3]]})
	}
	return tris
}

// FaceArea returns the area of face i.
func (m *Mesh) FaceArea(i int) float64 {
	var area float64
	for _, t := range m.FaceTriangles(i) {
		area += t.Area()
	}
	return area
}

// FaceCentroid returns the area-weighted centroid of face i.
func (m *Mesh) FaceCentroid(i int) Vec3 {
	tris := m.FaceTriangles(i)
	if len(tris) == 1 {
		return tris[0].Centroid()
	}
	var sum Vec3
	var total float64
	for _, t := range tris {
		a := t.Area()
		sum = sum.Add(t.Centroid().Scale(a))
		total += a
	}
	if total == 0 {
		return tris[0].Centroid()
	}
	return sum.Scale(1 / total)
}

// FaceNormal returns the unit normal of face i using Newell's method, which
// stays stable for slightly non-planar quads.
func (m *Mesh) FaceNormal(i int) Vec3 {
	f := m.Faces[i]
	var n Vec3
	for j := range f {
		cur := m.Vertices[f[j]]
		next := m.Vertices[f[(j+1)%len(f)]]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n.Normalize()
}

// Area returns the total area of all faces.
func (m *Mesh) Area() float64 {
	var area float64
	for i := range m.Faces {
		area += m.FaceArea(i)
	}
	return area
}

// Bounds returns the bounding box of all vertices.
func (m *Mesh) Bounds() AABB {
	b := EmptyAABB()
	for _, v := range m.Vertices {
		b = b.Extend(v)
	}
	return b
}

// Discretize returns the mesh itself: mesh faces are already analysis cells.
func (m *Mesh) Discretize(float64) (*Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Triangles returns every face split into triangles, skipping collapsed ones.
func (m *Mesh) Triangles() []Triangle {
	out := make([]Triangle, 0, len(m.Faces)*2)
	for i := range m.Faces {
		for _, t := range m.FaceTriangles(i) {
			if t.Area() > degenerateArea {
				out = append(out, t)
			}
		}
	}
	return out
}

// DegenerateFace returns the index of the first face with no area, or -1.
func (m *Mesh) DegenerateFace() int {
	for i := range m.Faces {
		if m.FaceArea(i) <= degenerateArea {
			return i
		}
	}
	return -1
}

// Join merges meshes into one, re-indexing faces.
func Join(meshes ...*Mesh) *Mesh {
	out := &Mesh{}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		base := len(out.Vertices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, f := range m.Faces {
			nf := make(Face, len(f))
			for j, idx := range f {
				nf[j] = idx + base
			}
			out.Faces = append(out.Faces, nf)
		}
	}
	return out
}
