package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// plyFormat is the Stanford PLY format. Meshes are written as
// binary_little_endian; binary files of either byte order are read.
// Polygons are fan triangulated when read.
type plyFormat struct{}

func (plyFormat) Name() string      { return "ply" }
func (plyFormat) Extension() string { return "ply" }

func (plyFormat) Write(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	hasNormals := len(m.Normals) == len(m.Positions) && len(m.Normals) > 0

	fmt.Fprintf(bw, "ply\nformat binary_little_endian 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(m.Positions))
	fmt.Fprintf(bw, "property float x\nproperty float y\nproperty float z\n")
	if hasNormals {
		fmt.Fprintf(bw, "property float nx\nproperty float ny\nproperty float nz\n")
	}
	fmt.Fprintf(bw, "element face %d\n", len(m.Triangles))
	fmt.Fprintf(bw, "property list uchar int vertex_indices\nend_header\n")

	for i, p := range m.Positions {
		values := []float32{float32(p.X), float32(p.Y), float32(p.Z)}
		if hasNormals {
			n := m.Normals[i]
			values = append(values, float32(n.X), float32(n.Y), float32(n.Z))
		}
		if err := binary.Write(bw, binary.LittleEndian, values); err != nil {
			return err
		}
	}
	for _, tri := range m.Triangles {
		if err := bw.WriteByte(3); err != nil {
			return err
		}
		ids := []int32{int32(tri[0]), int32(tri[1]), int32(tri[2])}
		if err := binary.Write(bw, binary.LittleEndian, ids); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// plyProperty is a property definition from the header
type plyProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // Type of the list count
}

type plyElement struct {
	Name  string
	Count int
	Props []plyProperty
}

type plyHeader struct {
	Format   string
	Elements []plyElement
}

func (plyFormat) Read(r io.Reader) (*Mesh, error) {
	br := bufio.NewReader(r)
	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	var order binary.ByteOrder
	switch header.Format {
	case "binary_little_endian":
		order = binary.LittleEndian
	case "binary_big_endian":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unsupported PLY format %q", header.Format)
	}

	m := &Mesh{}
	for _, el := range header.Elements {
		switch el.Name {
		case "vertex":
			if err := readPLYVertices(br, order, el, m); err != nil {
				return nil, err
			}
		case "face":
			if err := readPLYFaces(br, order, el, m); err != nil {
				return nil, err
			}
		default:
			for i := 0; i < el.Count; i++ {
				for _, prop := range el.Props {
					if _, err := readPLYProperty(br, order, prop); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return m, nil
}

func parsePLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("not a PLY file")
	}

	header := &plyHeader{}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header: %w", err)
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "end_header":
			return header, nil
		case "format":
			if len(parts) >= 2 {
				header.Format = parts[1]
			}
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element definition: %s", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, plyElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("property before element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			el := &header.Elements[len(header.Elements)-1]
			el.Props = append(el.Props, prop)
		}
	}
}

func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) >= 4 && parts[0] == "list" {
		return plyProperty{IsList: true, ListType: parts[1], Type: parts[2], Name: parts[3]}, nil
	}
	if len(parts) < 2 {
		return plyProperty{}, fmt.Errorf("invalid property definition")
	}
	return plyProperty{Type: parts[0], Name: parts[1]}, nil
}

func readPLYVertices(br *bufio.Reader, order binary.ByteOrder, el plyElement, m *Mesh) error {
	index := map[string]int{}
	for i, prop := range el.Props {
		index[prop.Name] = i
	}
	_, hasNormals := index["nx"]

	values := make([]float64, len(el.Props))
	for i := 0; i < el.Count; i++ {
		for j, prop := range el.Props {
			v, err := readPLYProperty(br, order, prop)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", i, err)
			}
			if len(v) > 0 {
				values[j] = v[0]
			}
		}
		m.Positions = append(m.Positions, core.NewVec3(values[index["x"]], values[index["y"]], values[index["z"]]))
		if hasNormals {
			m.Normals = append(m.Normals, core.NewVec3(values[index["nx"]], values[index["ny"]], values[index["nz"]]))
		}
	}
	return nil
}

func readPLYFaces(br *bufio.Reader, order binary.ByteOrder, el plyElement, m *Mesh) error {
	for i := 0; i < el.Count; i++ {
		for _, prop := range el.Props {
			v, err := readPLYProperty(br, order, prop)
			if err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			if prop.Name != "vertex_indices" && prop.Name != "vertex_index" {
				continue
			}
			for k := 1; k+1 < len(v); k++ {
				m.Triangles = append(m.Triangles, [3]int{int(v[0]), int(v[k]), int(v[k+1])})
			}
		}
	}
	return nil
}

// readPLYProperty reads one property value, or every element of a list
func readPLYProperty(br *bufio.Reader, order binary.ByteOrder, prop plyProperty) ([]float64, error) {
	if !prop.IsList {
		v, err := readPLYScalar(br, order, prop.Type)
		return []float64{v}, err
	}
	n, err := readPLYScalar(br, order, prop.ListType)
	if err != nil {
		return nil, err
	}
	out := make([]float64, int(n))
	for i := range out {
		if out[i], err = readPLYScalar(br, order, prop.Type); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readPLYScalar(br *bufio.Reader, order binary.ByteOrder, dataType string) (float64, error) {
	var buf [8]byte
	size := plyTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("unknown PLY type %q", dataType)
	}
	if _, err := io.ReadFull(br, buf[:size]); err != nil {
		return 0, err
	}
	b := buf[:size]

	switch dataType {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(order.Uint32(b))), nil
	default:
		return math.Float64frombits(order.Uint64(b)), nil
	}
}

func plyTypeSize(dataType string) int {
	switch dataType {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "float", "int32", "uint32", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}
