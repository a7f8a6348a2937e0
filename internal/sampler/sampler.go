// Package sampler turns analysed geometry into offset sample points and
// merges analysed and context geometry into the mesh that blocks sky rays.
package sampler

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/insolation/pkg/geom"
)

// ErrInvalidGeometry is returned for degenerate geometry or non-positive
// grid size and offset.
var ErrInvalidGeometry = geom.ErrInvalidGeometry

// ErrEmptyInput is returned when no sample points could be produced.
var ErrEmptyInput = errors.New("no sample points produced")

// minArea is the area at or below which geometry counts as degenerate.
const minArea = 1e-12

// SamplePoint is one analysis location: a face of the gridded study mesh.
type SamplePoint struct {
	Position geom.Vec3 // centroid moved Offset along Normal; the ray origin
	Centroid geom.Vec3 // face centroid on the surface
	Normal   geom.Vec3 // unit outward normal
	Area     float64   // face area in square model units
	Offset   float64
	Source   int // index of the input geometry the face came from
}

// OccluderMesh is the merged triangle set that can block sky rays. It keeps
// no reference to the geometry it was built from.
type OccluderMesh struct {
	Triangles []geom.Triangle
}

// Len returns the number of triangles.
func (o *OccluderMesh) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Triangles)
}

// Study is the sampler output.
type Study struct {
	Points   []SamplePoint
	Mesh     *geom.Mesh // joined gridded mesh, one face per point
	Occluder *OccluderMesh
}

// Areas returns the per-point areas in point order.
func (s *Study) Areas() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Area
	}
	return out
}

// Sample grids geometry into sample points and builds the occluder from the
// unmodified geometry plus context. Meshes contribute one point per face;
// continuous surfaces are discretised to approximately gridSize first.
func Sample(geometry, context []geom.Geometry, gridSize, offset float64) (*Study, error) {
	if !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return nil, fmt.Errorf("%w: grid size must be positive, got %v", ErrInvalidGeometry, gridSize)
	}
	if !(offset > 0) || math.IsInf(offset, 0) {
		return nil, fmt.Errorf("%w: offset distance must be positive, got %v", ErrInvalidGeometry, offset)
	}
	if err := checkArea("geometry", geometry); err != nil {
		return nil, err
	}
	if err := checkArea("context", context); err != nil {
		return nil, err
	}

	study := &Study{Occluder: &OccluderMesh{}}
	meshes := make([]*geom.Mesh, 0, len(geometry))
	for gi, g := range geometry {
		m, err := g.Discretize(gridSize)
		if err != nil {
			return nil, fmt.Errorf("discretizing geometry %d: %w", gi, err)
		}
		if f := m.DegenerateFace(); f >= 0 {
			return nil, fmt.Errorf("%w: geometry %d face %d has no area", ErrInvalidGeometry, gi, f)
		}
		for fi := range m.Faces {
			normal := m.FaceNormal(fi)
			centroid := m.FaceCentroid(fi)
			study.Points = append(study.Points, SamplePoint{
				Position: centroid.Add(normal.Scale(offset)),
				Centroid: centroid,
				Normal:   normal,
				Area:     m.FaceArea(fi),
				Offset:   offset,
				Source:   gi,
			})
		}
		meshes = append(meshes, m)
		study.Occluder.Triangles = append(study.Occluder.Triangles, g.Triangles()...)
	}
	for _, c := range context {
		study.Occluder.Triangles = append(study.Occluder.Triangles, c.Triangles()...)
	}
	if len(study.Points) == 0 {
		return nil, ErrEmptyInput
	}
	study.Mesh = geom.Join(meshes...)
	return study, nil
}

func checkArea(kind string, gs []geom.Geometry) error {
	for i, g := range gs {
		if g == nil {
			return fmt.Errorf("%w: %s %d is nil", ErrInvalidGeometry, kind, i)
		}
		// Mesh.Area indexes faces directly.
		if m, ok := g.(*geom.Mesh); ok {
			if m == nil {
				return fmt.Errorf("%w: %s %d is nil", ErrInvalidGeometry, kind, i)
			}
			if err := m.Validate(); err != nil {
				return fmt.Errorf("%s %d: %w", kind, i, err)
			}
		}
		if a := g.Area(); !(a > minArea) || math.IsInf(a, 0) {
			return fmt.Errorf("%w: %s %d has area %v", ErrInvalidGeometry, kind, i, a)
		}
	}
	return nil
}
