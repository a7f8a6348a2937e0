package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/insolation/pkg/geom"
)

// Surface file errors.
var (
	ErrInvalidSurfaceFile   = errors.New("invalid surface file")
	ErrUnsupportedExtension = errors.New("unsupported geometry file extension")
)

// surfaceDoc is one entry of a surface file. Exactly one shape field is set.
type surfaceDoc struct {
	Name      string        `yaml:"name"`
	Quad      [][3]float64  `yaml:"quad"`
	Polygon   [][3]float64  `yaml:"polygon"`
	Rectangle *rectangleDoc `yaml:"rectangle"`
}

type rectangleDoc struct {
	Min [2]float64 `yaml:"min"`
	Max [2]float64 `yaml:"max"`
	Z   float64    `yaml:"z"`
}

type surfaceFile struct {
	Surfaces []surfaceDoc `yaml:"surfaces"`
}

// Surface is a named continuous surface from a surface file.
type Surface struct {
	Name     string
	Geometry geom.Geometry
}

// ParseSurfaces parses a YAML list of quads, polygons and rectangles.
func ParseSurfaces(data []byte) ([]Surface, error) {
	var doc surfaceFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSurfaceFile, err)
	}
	if len(doc.Surfaces) == 0 {
		return nil, fmt.Errorf("%w: no surfaces", ErrInvalidSurfaceFile)
	}

	out := make([]Surface, 0, len(doc.Surfaces))
	for i, s := range doc.Surfaces {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("surface%d", i)
		}
		g, err := s.geometry()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSurfaceFile, name, err)
		}
		out = append(out, Surface{Name: name, Geometry: g})
	}
	return out, nil
}

func (s surfaceDoc) geometry() (geom.Geometry, error) {
	shapes := 0
	if s.Quad != nil {
		shapes++
	}
	if s.Polygon != nil {
		shapes++
	}
	if s.Rectangle != nil {
		shapes++
	}
	if shapes != 1 {
		return nil, fmt.Errorf("expected exactly one of quad, polygon or rectangle, got %d", shapes)
	}

	switch {
	case s.Quad != nil:
		if len(s.Quad) != 4 {
			return nil, fmt.Errorf("quad needs 4 corners, got %d", len(s.Quad))
		}
		c := toVecs(s.Quad)
		return geom.NewQuad(c[0], c[1], c[2], c[3]), nil
	case s.Polygon != nil:
		if len(s.Polygon) < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(s.Polygon))
		}
		return geom.NewPolygon(toVecs(s.Polygon)...), nil
	default:
		r := s.Rectangle
		return geom.Rectangle(r.Min[0], r.Min[1], r.Max[0], r.Max[1], r.Z), nil
	}
}

func toVecs(pts [][3]float64) []geom.Vec3 {
	out := make([]geom.Vec3, len(pts))
	for i, p := range pts {
		out[i] = geom.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	return out
}

// ParseSurfacesFile reads and parses a surface file from disk.
func ParseSurfacesFile(path string) ([]Surface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading surface file: %w", err)
	}
	return ParseSurfaces(data)
}

// LoadGeometry loads analysis geometry from an STL mesh or a YAML surface
// file, chosen by extension.
func LoadGeometry(path string) ([]geom.Geometry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		stl, err := ParseSTLFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []geom.Geometry{stl.Mesh}, nil
	case ".yaml", ".yml":
		surfaces, err := ParseSurfacesFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out := make([]geom.Geometry, len(surfaces))
		for i, s := range surfaces {
			out[i] = s.Geometry
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}
}

// LoadGeometries loads and concatenates every file in paths.
func LoadGeometries(paths []string) ([]geom.Geometry, error) {
	var out []geom.Geometry
	for _, p := range paths {
		g, err := LoadGeometry(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g...)
	}
	return out, nil
}
