package geom

import (
	"fmt"
	"math"
)

// Polygon is a continuous planar surface bounded by a simple polygon. Vertices
// run counter-clockwise when viewed from the side the normal points to.
type Polygon struct {
	Vertices []Vec3
}

// NewPolygon creates a polygon from its boundary vertices.
func NewPolygon(vertices ...Vec3) Polygon {
	return Polygon{Vertices: vertices}
}

// Normal returns the unit plane normal (Newell's method).
func (p Polygon) Normal() Vec3 {
	var n Vec3
	for i, cur := range p.Vertices {
		next := p.Vertices[(i+1)%len(p.Vertices)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n.Normalize()
}

// Area returns the planar area.
func (p Polygon) Area() float64 {
	if len(p.Vertices) < 3 {
		return 0
	}
	var n Vec3
	for i, cur := range p.Vertices {
		next := p.Vertices[(i+1)%len(p.Vertices)]
		n = n.Add(cur.Cross(next))
	}
	return math.Abs(n.Dot(p.Normal())) / 2
}

// frame returns an orthonormal basis (u, v) in the polygon plane with the
// origin at the first vertex.
func (p Polygon) frame() (origin, u, v Vec3) {
	n := p.Normal()
	origin = p.Vertices[0]
	for i := 1; i < len(p.Vertices); i++ {
		e := p.Vertices[i].Sub(origin)
		if e.Length() > 0 {
			u = e.Normalize()
			break
		}
	}
	v = n.Cross(u)
	return origin, u, v
}

// project returns the polygon vertices in plane coordinates.
func (p Polygon) project() ([][2]float64, Vec3, Vec3, Vec3) {
	origin, u, v := p.frame()
	pts := make([][2]float64, len(p.Vertices))
	for i, vert := range p.Vertices {
		d := vert.Sub(origin)
		pts[i] = [2]float64{d.Dot(u), d.Dot(v)}
	}
	return pts, origin, u, v
}

// Discretize covers the polygon with square cells of gridSize in its own
// plane. Interior cells are kept whole; boundary cells are clipped against the
// boundary so the face areas sum to the polygon area. A polygon with no
// usable cell piece is returned as its own triangulation.
func (p Polygon) Discretize(gridSize float64) (*Mesh, error) {
	if !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return nil, fmt.Errorf("%w: grid size %v", ErrInvalidGeometry, gridSize)
	}
	if len(p.Vertices) < 3 {
		return nil, fmt.Errorf("%w: polygon has %d vertices", ErrInvalidGeometry, len(p.Vertices))
	}
	pts, origin, u, v := p.project()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range pts {
		minX, maxX = math.Min(minX, pt[0]), math.Max(maxX, pt[0])
		minY, maxY = math.Min(minY, pt[1]), math.Max(maxY, pt[1])
	}
	fx := math.Ceil((maxX - minX) / gridSize)
	fy := math.Ceil((maxY - minY) / gridSize)
	if err := checkCells(fx, fy); err != nil {
		return nil, err
	}
	nx, ny := int(fx), int(fy)

	var tris []clipTriangle
	for _, t := range earClip(pts) {
		tris = append(tris, newClipTriangle(pts[t[0]], pts[t[1]], pts[t[2]]))
	}

	m := &Mesh{}
	index := make(map[[2]int]int)
	corner := func(i, j int) int {
		key := [2]int{i, j}
		if idx, ok := index[key]; ok {
			return idx
		}
		m.Vertices = append(m.Vertices, toPlane(origin, u, v, [2]float64{
			minX + float64(i)*gridSize,
			minY + float64(j)*gridSize,
		}))
		index[key] = len(m.Vertices) - 1
		return index[key]
	}
	cellArea := gridSize * gridSize
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			x0, y0 := minX+float64(i)*gridSize, minY+float64(j)*gridSize
			cell := [][2]float64{{x0, y0}, {x0 + gridSize, y0}, {x0 + gridSize, y0 + gridSize}, {x0, y0 + gridSize}}
			var pieces [][][2]float64
			var covered float64
			for _, t := range tris {
				if !t.overlaps(x0, y0, x0+gridSize, y0+gridSize) {
					continue
				}
				piece := t.clip(cell)
				a := area2(piece)
				if a <= degenerateArea {
					continue
				}
				pieces = append(pieces, piece)
				covered += a
			}
			if covered >= cellArea*(1-1e-9) {
				m.Faces = append(m.Faces, Face{corner(i, j), corner(i+1, j), corner(i+1, j+1), corner(i, j+1)})
				continue
			}
			for _, piece := range pieces {
				m.addPiece(origin, u, v, piece)
			}
		}
	}
	if len(m.Faces) == 0 {
		return p.triangleMesh(), nil
	}
	return m, nil
}

// addPiece appends a convex plane-space piece as one face, fanning pieces with
// more than four corners into triangles.
func (m *Mesh) addPiece(origin, u, v Vec3, piece [][2]float64) {
	base := len(m.Vertices)
	for _, pt := range piece {
		m.Vertices = append(m.Vertices, toPlane(origin, u, v, pt))
	}
	if len(piece) <= 4 {
		f := make(Face, len(piece))
		for k := range f {
			f[k] = base + k
		}
		m.Faces = append(m.Faces, f)
		return
	}
	for k := 1; k+1 < len(piece); k++ {
		if math.Abs(cross2(piece[0], piece[k], piece[k+1]))/2 <= degenerateArea {
			continue
		}
		m.Faces = append(m.Faces, Face{base, base + k, base + k + 1})
	}
}

func toPlane(origin, u, v Vec3, pt [2]float64) Vec3 {
	return origin.Add(u.Scale(pt[0])).Add(v.Scale(pt[1]))
}

// clipTriangle is a counter-clockwise plane-space triangle used as a convex
// clip region.
type clipTriangle struct {
	a, b, c                [2]float64
	minX, minY, maxX, maxY float64
}

func newClipTriangle(a, b, c [2]float64) clipTriangle {
	return clipTriangle{
		a: a, b: b, c: c,
		minX: math.Min(a[0], math.Min(b[0], c[0])),
		minY: math.Min(a[1], math.Min(b[1], c[1])),
		maxX: math.Max(a[0], math.Max(b[0], c[0])),
		maxY: math.Max(a[1], math.Max(b[1], c[1])),
	}
}

func (t clipTriangle) overlaps(minX, minY, maxX, maxY float64) bool {
	return t.minX < maxX && t.maxX > minX && t.minY < maxY && t.maxY > minY
}

// clip returns the part of the convex polygon in that lies inside t
// (Sutherland-Hodgman).
func (t clipTriangle) clip(in [][2]float64) [][2]float64 {
	out := in
	for _, edge := range [3][2][2]float64{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
		if len(out) == 0 {
			return nil
		}
		e0, e1 := edge[0], edge[1]
		src := out
		out = make([][2]float64, 0, len(src)+1)
		for k, cur := range src {
			prev := src[(k+len(src)-1)%len(src)]
			dCur, dPrev := cross2(e0, e1, cur), cross2(e0, e1, prev)
			if dCur >= 0 {
				if dPrev < 0 {
					out = appendDistinct(out, intersect2(prev, cur, dPrev, dCur))
				}
				out = appendDistinct(out, cur)
			} else if dPrev >= 0 {
				out = appendDistinct(out, intersect2(prev, cur, dPrev, dCur))
			}
		}
		if len(out) > 1 && samePoint(out[0], out[len(out)-1]) {
			out = out[:len(out)-1]
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// intersect2 returns the point where segment a-b crosses the clip line, given
// the signed distances of a and b.
func intersect2(a, b [2]float64, da, db float64) [2]float64 {
	s := da / (da - db)
	return [2]float64{a[0] + s*(b[0]-a[0]), a[1] + s*(b[1]-a[1])}
}

func appendDistinct(pts [][2]float64, p [2]float64) [][2]float64 {
	if len(pts) > 0 && samePoint(pts[len(pts)-1], p) {
		return pts
	}
	return append(pts, p)
}

func samePoint(a, b [2]float64) bool {
	return math.Abs(a[0]-b[0]) <= 1e-12 && math.Abs(a[1]-b[1]) <= 1e-12
}

// area2 is the shoelace area of a plane-space polygon.
func area2(pts [][2]float64) float64 {
	var s float64
	for i, cur := range pts {
		next := pts[(i+1)%len(pts)]
		s += cur[0]*next[1] - next[0]*cur[1]
	}
	return math.Abs(s) / 2
}

// Triangles returns an ear-clipped triangulation of the polygon.
func (p Polygon) Triangles() []Triangle {
	if len(p.Vertices) < 3 {
		return nil
	}
	pts, _, _, _ := p.project()
	idx := earClip(pts)
	tris := make([]Triangle, 0, len(idx))
	for _, t := range idx {
		tris = append(tris, Triangle{p.Vertices[t[0]], p.Vertices[t[1]], p.Vertices[t[2]]})
	}
	return tris
}

func (p Polygon) triangleMesh() *Mesh {
	pts, _, _, _ := p.project()
	m := &Mesh{Vertices: append([]Vec3(nil), p.Vertices...)}
	for _, t := range earClip(pts) {
		m.Faces = append(m.Faces, Face{t[0], t[1], t[2]})
	}
	return m
}

// earClip triangulates a simple counter-clockwise polygon in plane
// coordinates and returns vertex index triples.
func earClip(pts [][2]float64) [][3]int {
	n := len(pts)
	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}
	var out [][3]int
	for guard := 0; len(remaining) > 3 && guard < n*n; guard++ {
		clipped := false
		for i := range remaining {
			prev := remaining[(i+len(remaining)-1)%len(remaining)]
			cur := remaining[i]
			next := remaining[(i+1)%len(remaining)]
			if cross2(pts[prev], pts[cur], pts[next]) <= 0 {
				continue
			}
			ear := true
			for _, k := range remaining {
				if k == prev || k == cur || k == next {
					continue
				}
				if inTriangle2(pts[k], pts[prev], pts[cur], pts[next]) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			out = append(out, [3]int{prev, cur, next})
			remaining = append(remaining[:i], remaining[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}
	if len(remaining) == 3 {
		out = append(out, [3]int{remaining[0], remaining[1], remaining[2]})
	}
	return out
}

func cross2(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func inTriangle2(p, a, b, c [2]float64) bool {
	return cross2(a, b, p) >= 0 && cross2(b, c, p) >= 0 && cross2(c, a, p) >= 0
}
