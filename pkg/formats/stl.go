// Package formats provides readers for geometry and sky matrix input files.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/insolation/pkg/geom"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLSyntax = errors.New("invalid ASCII STL syntax")
)

const (
	stlHeaderSize = 80
	stlFacetSize  = 50 // normal, 3 vertices, attribute byte count
)

// STL is a parsed stereolithography file.
type STL struct {
	Name   string
	Binary bool
	Mesh   *geom.Mesh
}

// ParseSTL parses binary or ASCII STL data. Coincident vertices are welded,
// stored facet normals are ignored and recomputed from winding.
func ParseSTL(data []byte) (*STL, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("solid")) {
		return parseASCIISTL(trimmed)
	}
	return parseBinarySTL(data)
}

// isBinarySTL reports whether the facet count in the header matches the data
// length. ASCII files may start with "solid" in a binary header, so the size
// check decides.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(len(data)) == uint64(stlHeaderSize+4)+uint64(count)*stlFacetSize
}

func parseBinarySTL(data []byte) (*STL, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, fmt.Errorf("%w: header", ErrTruncatedSTLData)
	}

	name := strings.TrimRight(string(data[:stlHeaderSize]), "\x00 ")
	r := bytes.NewReader(data[stlHeaderSize:])

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading facet count", ErrTruncatedSTLData)
	}
	if uint64(r.Len()) < uint64(count)*stlFacetSize {
		return nil, fmt.Errorf("%w: %d facets declared, %d bytes left", ErrTruncatedSTLData, count, r.Len())
	}

	w := newWelder(int(count))
	for i := uint32(0); i < count; i++ {
		var facet struct {
			Normal    [3]float32
			Vertices  [3][3]float32
			Attribute uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &facet); err != nil {
			return nil, fmt.Errorf("%w: reading facet %d", ErrTruncatedSTLData, i)
		}
		var tri [3]geom.Vec3
		for k, v := range facet.Vertices {
			tri[k] = geom.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
		}
		w.add(tri)
	}

	mesh, err := w.mesh()
	if err != nil {
		return nil, err
	}
	return &STL{Name: name, Binary: true, Mesh: mesh}, nil
}

func parseASCIISTL(data []byte) (*STL, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	stl := &STL{}
	w := newWelder(0)
	var (
		tri     [3]geom.Vec3
		nVerts  int
		inFacet bool
		ended   bool
		line    int
	)

	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			stl.Name = strings.Join(fields[1:], " ")
		case "facet":
			if inFacet {
				return nil, fmt.Errorf("%w: line %d: nested facet", ErrInvalidSTLSyntax, line)
			}
			inFacet, nVerts = true, 0
		case "outer", "endloop":
		case "vertex":
			if !inFacet || nVerts == 3 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrInvalidSTLSyntax, line)
			}
			v, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLSyntax, line, err)
			}
			tri[nVerts] = v
			nVerts++
		case "endfacet":
			if !inFacet || nVerts != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrInvalidSTLSyntax, line, nVerts)
			}
			w.add(tri)
			inFacet = false
		case "endsolid":
			ended = true
		default:
			return nil, fmt.Errorf("%w: line %d: unknown keyword %q", ErrInvalidSTLSyntax, line, fields[0])
		}
		if ended {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if inFacet || !ended {
		return nil, fmt.Errorf("%w: missing endsolid", ErrTruncatedSTLData)
	}

	mesh, err := w.mesh()
	if err != nil {
		return nil, err
	}
	stl.Mesh = mesh
	return stl, nil
}

func parseVertex(fields []string) (geom.Vec3, error) {
	if len(fields) != 3 {
		return geom.Vec3{}, fmt.Errorf("vertex needs 3 coordinates, got %d", len(fields))
	}
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.Vec3{}, err
		}
		c[i] = v
	}
	return geom.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// ParseSTLFile reads and parses an STL file from disk.
func ParseSTLFile(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return ParseSTL(data)
}

// welder merges bitwise-identical vertices into a shared vertex list.
type welder struct {
	index    map[geom.Vec3]int
	vertices []geom.Vec3
	faces    []geom.Face
}

func newWelder(facets int) *welder {
	return &welder{
		index: make(map[geom.Vec3]int, facets),
		faces: make([]geom.Face, 0, facets),
	}
}

func (w *welder) add(tri [3]geom.Vec3) {
	face := make(geom.Face, 3)
	for k, v := range tri {
		// -0 and +0 must weld
		if v.X == 0 {
			v.X = 0
		}
		if v.Y == 0 {
			v.Y = 0
		}
		if v.Z == 0 {
			v.Z = 0
		}
		idx, ok := w.index[v]
		if !ok {
			idx = len(w.vertices)
			w.index[v] = idx
			w.vertices = append(w.vertices, v)
		}
		face[k] = idx
	}
	w.faces = append(w.faces, face)
}

func (w *welder) mesh() (*geom.Mesh, error) {
	return geom.NewMesh(w.vertices, w.faces)
}
