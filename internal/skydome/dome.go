// Package skydome provides the discretised sky patch directions used to cast
// visibility rays, and the sky matrix radiance that goes with them.
package skydome

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/insolation/pkg/geom"
)

// ErrSkyMatrixMismatch is returned when a radiance sequence does not match a
// supported dome resolution.
var ErrSkyMatrixMismatch = errors.New("sky matrix does not match a dome resolution")

// Resolution selects a sky subdivision.
type Resolution int

const (
	// Tregenza is the 145 patch dome.
	Tregenza Resolution = 1
	// Reinhart is the 577 patch dome (Tregenza with each patch split in four).
	Reinhart Resolution = 2
)

// tregenzaRows holds patches per altitude row, horizon first, excluding the
// zenith cap.
var tregenzaRows = []int{30, 30, 24, 24, 18, 12, 6}

// String returns the conventional dome name.
func (r Resolution) String() string {
	switch r {
	case Tregenza:
		return "tregenza"
	case Reinhart:
		return "reinhart"
	default:
		return fmt.Sprintf("resolution(%d)", int(r))
	}
}

// PatchCount returns the number of sky patches including the zenith cap.
func (r Resolution) PatchCount() int {
	n := 0
	for _, c := range r.rows() {
		n += c
	}
	return n + 1
}

// rows returns patches per row for this subdivision.
func (r Resolution) rows() []int {
	s := int(r)
	rows := make([]int, 0, len(tregenzaRows)*s)
	for _, c := range tregenzaRows {
		for i := 0; i < s; i++ {
			rows = append(rows, c*s)
		}
	}
	return rows
}

// Valid reports whether r is a supported resolution.
func (r Resolution) Valid() bool {
	return r == Tregenza || r == Reinhart
}

// ResolutionFor infers the dome resolution from a radiance sequence length.
// Lengths other than 145 and 577 are rejected.
func ResolutionFor(patches int) (Resolution, error) {
	switch patches {
	case Tregenza.PatchCount():
		return Tregenza, nil
	case Reinhart.PatchCount():
		return Reinhart, nil
	default:
		return 0, fmt.Errorf("%w: %d patches (want %d or %d)",
			ErrSkyMatrixMismatch, patches, Tregenza.PatchCount(), Reinhart.PatchCount())
	}
}

// SkyVector is the direction of one sky patch.
type SkyVector struct {
	Index      int       // patch index, aligned with the sky matrix
	Row        int       // altitude row, 0 at the horizon; the zenith cap is the last row
	Direction  geom.Vec3 // unit vector toward the patch centre
	SolidAngle float64   // steradians
}

var (
	domeOnce  [3]sync.Once
	domeCache [3][]SkyVector
)

// build generates the unrotated dome. Row band height is
// pi / (2*rows + subdivision), so both domes leave a 6 degree cap radius
// above the last row. Patch 0 of each row is centred on north and patches
// advance clockwise.
func build(r Resolution) []SkyVector {
	rows := r.rows()
	band := math.Pi / float64(2*len(rows)+int(r))
	vecs := make([]SkyVector, 0, r.PatchCount())
	for row, count := range rows {
		bottom := band * float64(row)
		top := bottom + band
		alt := bottom + band/2
		step := 2 * math.Pi / float64(count)
		solid := 2 * math.Pi * (math.Sin(top) - math.Sin(bottom)) / float64(count)
		for i := 0; i < count; i++ {
			vecs = append(vecs, SkyVector{
				Index:      len(vecs),
				Row:        row,
				Direction:  Direction(alt, step*float64(i)),
				SolidAngle: solid,
			})
		}
	}
	capBottom := band * float64(len(rows))
	vecs = append(vecs, SkyVector{
		Index:      len(vecs),
		Row:        len(rows),
		Direction:  geom.Vec3{X: 0, Y: 0, Z: 1},
		SolidAngle: 2 * math.Pi * (1 - math.Sin(capBottom)),
	})
	return vecs
}

func cached(r Resolution) []SkyVector {
	domeOnce[r].Do(func() {
		domeCache[r] = build(r)
	})
	return domeCache[r]
}

// Vectors returns the patch vectors for a resolution rotated counter-clockwise
// about +Z by north radians. A zero angle returns the unrotated dome exactly.
// The returned slice is a copy and may be modified by the caller.
func Vectors(r Resolution, north float64) ([]SkyVector, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: unknown resolution %d", ErrSkyMatrixMismatch, int(r))
	}
	vecs := append([]SkyVector(nil), cached(r)...)
	return Rotate(vecs, north), nil
}

// Rotate rotates vectors in place about +Z by angle radians (counter-clockwise
// seen from above) and returns them. Altitude and length are preserved.
func Rotate(vecs []SkyVector, angle float64) []SkyVector {
	if angle == 0 {
		return vecs
	}
	rot := r3.NewRotation(angle, r3.Vec{Z: 1})
	for i := range vecs {
		d := rot.Rotate(vecs[i].Direction.R3())
		// rotation about Z must not disturb altitude
		d.Z = vecs[i].Direction.Z
		vecs[i].Direction = geom.FromR3(d)
	}
	return vecs
}
