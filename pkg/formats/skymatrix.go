package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/insolation/internal/skydome"
)

// ErrInvalidSkyMatrix is returned for sky matrix files that cannot be parsed.
var ErrInvalidSkyMatrix = errors.New("invalid sky matrix file")

// skyMatrixDoc is the YAML form of a sky matrix.
type skyMatrixDoc struct {
	North   float64   `yaml:"north"`
	Direct  []float64 `yaml:"direct"`
	Diffuse []float64 `yaml:"diffuse"`
}

// ParseSkyMatrixYAML parses a YAML sky matrix document.
func ParseSkyMatrixYAML(data []byte) (*skydome.SkyMatrix, error) {
	var doc skyMatrixDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSkyMatrix, err)
	}
	if len(doc.Direct) == 0 && len(doc.Diffuse) == 0 {
		return nil, fmt.Errorf("%w: no patch values", ErrInvalidSkyMatrix)
	}
	return skydome.NewSkyMatrix(doc.North, doc.Direct, doc.Diffuse)
}

// ParseSkyMatrixText parses the plain text form: the north angle on the first
// line, then one "direct diffuse" pair per patch. Blank lines and lines
// starting with '#' are skipped; values may be separated by spaces, tabs or
// commas.
func ParseSkyMatrixText(data []byte) (*skydome.SkyMatrix, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))

	var (
		north           float64
		haveNorth       bool
		direct, diffuse []float64
		line            int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		values := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSkyMatrix, line, err)
			}
			values[i] = v
		}

		if !haveNorth {
			if len(values) != 1 {
				return nil, fmt.Errorf("%w: line %d: expected north angle", ErrInvalidSkyMatrix, line)
			}
			north, haveNorth = values[0], true
			continue
		}
		if len(values) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected direct and diffuse values, got %d",
				ErrInvalidSkyMatrix, line, len(values))
		}
		direct = append(direct, values[0])
		diffuse = append(diffuse, values[1])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !haveNorth || len(direct) == 0 {
		return nil, fmt.Errorf("%w: no patch values", ErrInvalidSkyMatrix)
	}
	return skydome.NewSkyMatrix(north, direct, diffuse)
}

// ParseSkyMatrixFile reads a sky matrix, choosing the parser by extension.
func ParseSkyMatrixFile(path string) (*skydome.SkyMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sky matrix file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseSkyMatrixYAML(data)
	default:
		return ParseSkyMatrixText(data)
	}
}
