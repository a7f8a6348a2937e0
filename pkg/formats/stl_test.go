package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/insolation/pkg/geom"
)

// createTestSTL builds a binary STL with the given triangles.
func createTestSTL(name string, tris [][3][3]float32) []byte {
	buf := new(bytes.Buffer)

	header := make([]byte, stlHeaderSize)
	copy(header, name)
	buf.Write(header)

	binary.Write(buf, binary.LittleEndian, uint32(len(tris)))
	for _, tri := range tris {
		binary.Write(buf, binary.LittleEndian, [3]float32{}) // normal
		for _, v := range tri {
			binary.Write(buf, binary.LittleEndian, v)
		}
		binary.Write(buf, binary.LittleEndian, uint16(0)) // attribute
	}
	return buf.Bytes()
}

// unitSquare is two triangles covering [0,1]x[0,1] at z=0, facing up.
var unitSquare = [][3][3]float32{
	{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
}

const asciiSquare = `solid square
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 1 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid square
`

func TestParseSTL_Binary(t *testing.T) {
	stl, err := ParseSTL(createTestSTL("square", unitSquare))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if !stl.Binary {
		t.Error("expected binary STL")
	}
	if stl.Name != "square" {
		t.Errorf("expected name 'square', got %q", stl.Name)
	}
	if len(stl.Mesh.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(stl.Mesh.Faces))
	}
	// Shared corners are welded
	if len(stl.Mesh.Vertices) != 4 {
		t.Errorf("expected 4 welded vertices, got %d", len(stl.Mesh.Vertices))
	}
	if a := stl.Mesh.Area(); math.Abs(a-1) > 1e-9 {
		t.Errorf("expected area 1, got %v", a)
	}
	if n := stl.Mesh.FaceNormal(0); math.Abs(n.Z-1) > 1e-9 {
		t.Errorf("expected +Z normal, got %v", n)
	}
}

func TestParseSTL_BinaryHeaderStartingWithSolid(t *testing.T) {
	stl, err := ParseSTL(createTestSTL("solid exported", unitSquare))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if !stl.Binary {
		t.Error("expected binary detection by size despite 'solid' header")
	}
}

func TestParseSTL_ASCII(t *testing.T) {
	stl, err := ParseSTL([]byte(asciiSquare))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if stl.Binary {
		t.Error("expected ASCII STL")
	}
	if stl.Name != "square" {
		t.Errorf("expected name 'square', got %q", stl.Name)
	}
	if len(stl.Mesh.Faces) != 2 || len(stl.Mesh.Vertices) != 4 {
		t.Errorf("expected 2 faces and 4 vertices, got %d and %d",
			len(stl.Mesh.Faces), len(stl.Mesh.Vertices))
	}
}

func TestParseSTL_Truncated(t *testing.T) {
	data := createTestSTL("square", unitSquare)
	// Header claims 2 facets but one is cut off
	_, err := ParseSTL(data[:len(data)-10])
	if !errors.Is(err, ErrTruncatedSTLData) {
		t.Errorf("expected ErrTruncatedSTLData, got %v", err)
	}

	_, err = ParseSTL([]byte{1, 2, 3})
	if !errors.Is(err, ErrTruncatedSTLData) {
		t.Errorf("expected ErrTruncatedSTLData for tiny input, got %v", err)
	}
}

func TestParseSTL_ASCIIErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"missing endsolid", "solid x\n facet normal 0 0 1\n outer loop\n vertex 0 0 0\n vertex 1 0 0\n vertex 0 1 0\n endloop\n endfacet\n", ErrTruncatedSTLData},
		{"bad number", "solid x\n facet normal 0 0 1\n outer loop\n vertex 0 zero 0\n", ErrInvalidSTLSyntax},
		{"two vertices", "solid x\n facet normal 0 0 1\n outer loop\n vertex 0 0 0\n vertex 1 0 0\n endloop\n endfacet\nendsolid\n", ErrInvalidSTLSyntax},
		{"unknown keyword", "solid x\n polygon\nendsolid\n", ErrInvalidSTLSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTL([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseSTL() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseSTL_NonFinite(t *testing.T) {
	nan := float32(math.NaN())
	data := createTestSTL("bad", [][3][3]float32{{{0, 0, 0}, {1, 0, 0}, {nan, 1, 0}}})
	_, err := ParseSTL(data)
	if !errors.Is(err, geom.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestParseSTLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.stl")
	if err := os.WriteFile(path, createTestSTL("square", unitSquare), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stl, err := ParseSTLFile(path)
	if err != nil {
		t.Fatalf("ParseSTLFile failed: %v", err)
	}
	if len(stl.Mesh.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(stl.Mesh.Faces))
	}

	if _, err := ParseSTLFile(filepath.Join(t.TempDir(), "missing.stl")); err == nil {
		t.Error("expected error for missing file")
	}
}
