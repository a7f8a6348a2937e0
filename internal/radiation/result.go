package radiation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Faultbox/insolation/internal/irradiance"
	"github.com/Faultbox/insolation/internal/sampler"
	"github.com/Faultbox/insolation/internal/skydome"
	"github.com/Faultbox/insolation/pkg/geom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultSet is the output of one analysis. Points, Results and the matrix
// rows share the same index.
type ResultSet struct {
	Points  []sampler.SamplePoint
	Mesh    *geom.Mesh // gridded study mesh, one face per point
	Results []float64  // per point, areal
	Total   float64    // absolute, area weighted and unit converted
	Matrix  *irradiance.IntersectionMatrix

	Resolution skydome.Resolution
	GridSize   float64
	Offset     float64
	Units      string
	North      float64
	Elapsed    time.Duration
}

// Assemble packages the pipeline outputs without further computation.
func Assemble(points []sampler.SamplePoint, results []float64, total float64, matrix *irradiance.IntersectionMatrix) *ResultSet {
	rs := &ResultSet{
		Points:  points,
		Results: results,
		Total:   total,
		Matrix:  matrix,
	}
	if matrix != nil {
		rs.Resolution = matrix.Resolution
	}
	return rs
}

// PatchCount returns the number of sky patches in the matrix.
func (rs *ResultSet) PatchCount() int {
	if rs.Matrix == nil {
		return 0
	}
	return rs.Matrix.Patches()
}

// RayCount returns the number of rays cast.
func (rs *ResultSet) RayCount() int {
	return len(rs.Points) * rs.PatchCount()
}

// Areas returns the per-point areas.
func (rs *ResultSet) Areas() []float64 {
	out := make([]float64, len(rs.Points))
	for i, p := range rs.Points {
		out[i] = p.Area
	}
	return out
}

type jsonPoint struct {
	Position [3]float64 `json:"position"`
	Normal   [3]float64 `json:"normal"`
	Area     float64    `json:"area"`
	Result   float64    `json:"result"`
	Source   int        `json:"source"`
}

type jsonResultSet struct {
	Resolution string      `json:"resolution"`
	Patches    int         `json:"patches"`
	North      float64     `json:"north"`
	Units      string      `json:"units"`
	GridSize   float64     `json:"grid_size"`
	Offset     float64     `json:"offset"`
	Total      float64     `json:"total"`
	ElapsedMS  int64       `json:"elapsed_ms"`
	Points     []jsonPoint `json:"points"`
	Matrix     [][]float64 `json:"intersection_matrix,omitempty"`
}

func vec(v geom.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// WriteJSON writes the result set. The intersection matrix is included only
// when withMatrix is set.
func (rs *ResultSet) WriteJSON(w io.Writer, withMatrix bool) error {
	out := jsonResultSet{
		Resolution: rs.Resolution.String(),
		Patches:    rs.PatchCount(),
		North:      rs.North,
		Units:      rs.Units,
		GridSize:   rs.GridSize,
		Offset:     rs.Offset,
		Total:      rs.Total,
		ElapsedMS:  rs.Elapsed.Milliseconds(),
		Points:     make([]jsonPoint, len(rs.Points)),
	}
	for i, p := range rs.Points {
		out.Points[i] = jsonPoint{
			Position: vec(p.Position),
			Normal:   vec(p.Normal),
			Area:     p.Area,
			Result:   rs.Results[i],
			Source:   p.Source,
		}
	}
	if withMatrix && rs.Matrix != nil {
		out.Matrix = rs.Matrix.Values
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteJSONFile writes the result set to path, creating parent directories.
func (rs *ResultSet) WriteJSONFile(path string, withMatrix bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := rs.WriteJSON(f, withMatrix); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
