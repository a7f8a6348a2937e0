package geom

import (
	"fmt"
	"math"
)

// Quad is a continuous bilinear surface spanned by four corners given
// counter-clockwise when viewed from the side the normal points to.
type Quad struct {
	Corners [4]Vec3
}

// NewQuad creates a quad from four corners.
func NewQuad(a, b, c, d Vec3) Quad {
	return Quad{Corners: [4]Vec3{a, b, c, d}}
}

// Rectangle returns an axis-aligned horizontal rectangle at height z whose
// normal points up.
func Rectangle(minX, minY, maxX, maxY, z float64) Quad {
	return NewQuad(
		Vec3{minX, minY, z},
		Vec3{maxX, minY, z},
		Vec3{maxX, maxY, z},
		Vec3{minX, maxY, z},
	)
}

// at evaluates the bilinear patch at (u, v) in [0,1]^2.
func (q Quad) at(u, v float64) Vec3 {
	c := q.Corners
	bottom := c[0].Scale(1 - u).Add(c[1].Scale(u))
	top := c[3].Scale(1 - u).Add(c[2].Scale(u))
	return bottom.Scale(1 - v).Add(top.Scale(v))
}

// Area returns the area of the two triangles spanning the corners.
func (q Quad) Area() float64 {
	return q.asMesh().Area()
}

func (q Quad) asMesh() *Mesh {
	return &Mesh{Vertices: q.Corners[:], Faces: []Face{{0, 1, 2, 3}}}
}

// Triangles returns the quad as two triangles.
func (q Quad) Triangles() []Triangle {
	return q.asMesh().Triangles()
}

// Discretize subdivides the quad into cells whose edges approximate gridSize.
func (q Quad) Discretize(gridSize float64) (*Mesh, error) {
	if !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return nil, fmt.Errorf("%w: grid size %v", ErrInvalidGeometry, gridSize)
	}
	c := q.Corners
	lenU := (c[0].Distance(c[1]) + c[3].Distance(c[2])) / 2
	lenV := (c[0].Distance(c[3]) + c[1].Distance(c[2])) / 2
	fu, fv := cellCount(lenU, gridSize), cellCount(lenV, gridSize)
	if err := checkCells(fu, fv); err != nil {
		return nil, err
	}
	nu, nv := int(fu), int(fv)

	m := &Mesh{
		Vertices: make([]Vec3, 0, (nu+1)*(nv+1)),
		Faces:    make([]Face, 0, nu*nv),
	}
	for j := 0; j <= nv; j++ {
		for i := 0; i <= nu; i++ {
			m.Vertices = append(m.Vertices, q.at(float64(i)/float64(nu), float64(j)/float64(nv)))
		}
	}
	row := nu + 1
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			a := j*row + i
			m.Faces = append(m.Faces, Face{a, a + 1, a + row + 1, a + row})
		}
	}
	return m, nil
}

// MaxCells bounds the number of grid cells one surface may be split into.
const MaxCells = 1 << 22

// cellCount returns how many cells of roughly gridSize fit along length.
func cellCount(length, gridSize float64) float64 {
	return math.Max(1, math.Round(length/gridSize))
}

// checkCells rejects grids whose cell counts are not finite or exceed
// MaxCells, before they are converted to int.
func checkCells(nu, nv float64) error {
	if math.IsNaN(nu) || math.IsNaN(nv) || math.IsInf(nu, 0) || math.IsInf(nv, 0) || nu*nv > MaxCells {
		return fmt.Errorf("%w: grid of %v x %v cells exceeds %d", ErrInvalidGeometry, nu, nv, MaxCells)
	}
	return nil
}
