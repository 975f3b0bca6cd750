package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// objFormat is the Wavefront OBJ text format. Only positions, normals and
// faces are stored; polygons are fan triangulated when read.
type objFormat struct{}

func (objFormat) Name() string      { return "obj" }
func (objFormat) Extension() string { return "obj" }

func (objFormat) Write(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	for _, p := range m.Positions {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
	}
	hasNormals := len(m.Normals) == len(m.Positions) && len(m.Normals) > 0
	for _, tri := range m.Triangles {
		if hasNormals {
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", tri[0]+1, tri[0]+1, tri[1]+1, tri[1]+1, tri[2]+1, tri[2]+1)
		} else {
			fmt.Fprintf(bw, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1)
		}
	}
	return bw.Flush()
}

func (objFormat) Read(r io.Reader) (*Mesh, error) {
	m := &Mesh{}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v", "vn":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if fields[0] == "v" {
				m.Positions = append(m.Positions, v)
			} else {
				m.Normals = append(m.Normals, v)
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNum)
			}
			ids := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				id, err := parseFaceIndex(f, len(m.Positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				ids = append(ids, id)
			}
			for i := 1; i+1 < len(ids); i++ {
				m.Triangles = append(m.Triangles, [3]int{ids[0], ids[i], ids[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseVec3(fields []string) (core.Vec3, error) {
	if len(fields) < 3 {
		return core.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var c [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return core.Vec3{}, err
		}
		c[i] = f
	}
	return core.NewVec3(c[0], c[1], c[2]), nil
}

// parseFaceIndex parses "v", "v/vt", "v//vn" or "v/vt/vn", returning the
// zero based vertex index. Negative indices count back from the last vertex.
func parseFaceIndex(field string, numVertices int) (int, error) {
	v, _, _ := strings.Cut(field, "/")
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid face index %q", field)
	}
	if id < 0 {
		return numVertices + id, nil
	}
	return id - 1, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
