package primitive

import (
	"fmt"
	"slices"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// MeshPrimitive is a polygon mesh described by face vertex counts and a
// flat list of vertex indices
type MeshPrimitive struct {
	VerticesPerFace []int
	VertexIDs       []int
	Interpolation   string // "linear" or "catmullClark"
	Vars            Variables
}

// NewMesh creates a linear polygon mesh with the given positions
func NewMesh(verticesPerFace, vertexIDs []int, points []core.Vec3) *MeshPrimitive {
	return &MeshPrimitive{
		VerticesPerFace: verticesPerFace,
		VertexIDs:       vertexIDs,
		Interpolation:   "linear",
		Vars: Variables{
			"P": {Interpolation: Vertex, Data: points},
		},
	}
}

// NewCube creates an axis aligned box mesh spanning lo..hi with six quads
func NewCube(lo, hi core.Vec3) *MeshPrimitive {
	points := []core.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z}, {X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	ids := []int{
		0, 3, 2, 1, // -z
		4, 5, 6, 7, // +z
		0, 1, 5, 4, // -y
		3, 7, 6, 2, // +y
		0, 4, 7, 3, // -x
		1, 2, 6, 5, // +x
	}
	return NewMesh([]int{4, 4, 4, 4, 4, 4}, ids, points)
}

// TypeName implements Primitive
func (m *MeshPrimitive) TypeName() string { return "MeshPrimitive" }

// Variables implements Primitive
func (m *MeshPrimitive) Variables() Variables { return m.Vars }

// Bound implements Primitive
func (m *MeshPrimitive) Bound() core.AABB { return boundOf(m.Vars) }

// NumFaces returns the number of polygons
func (m *MeshPrimitive) NumFaces() int { return len(m.VerticesPerFace) }

// NumVertices returns the number of distinct vertices referenced by the topology
func (m *MeshPrimitive) NumVertices() int {
	if len(m.VertexIDs) == 0 {
		return 0
	}
	return slices.Max(m.VertexIDs) + 1
}

// VariableSize returns the expected element count for an interpolation
func (m *MeshPrimitive) VariableSize(interp Interpolation) int {
	switch interp {
	case Constant:
		return 1
	case Uniform:
		return m.NumFaces()
	case Vertex, Varying:
		return m.NumVertices()
	case FaceVarying:
		return len(m.VertexIDs)
	}
	return -1
}

// Validate implements Primitive
func (m *MeshPrimitive) Validate() error {
	total := 0
	for _, n := range m.VerticesPerFace {
		if n < 3 {
			return fmt.Errorf("MeshPrimitive: face with %d vertices: %w", n, core.ErrInvalidValue)
		}
		total += n
	}
	if total != len(m.VertexIDs) {
		return fmt.Errorf("MeshPrimitive: faces reference %d vertices but %d ids given: %w", total, len(m.VertexIDs), core.ErrTopologyMismatch)
	}
	for _, id := range m.VertexIDs {
		if id < 0 {
			return fmt.Errorf("MeshPrimitive: negative vertex id %d: %w", id, core.ErrInvalidValue)
		}
	}
	return validateSizes(m.TypeName(), m.Vars, m.VariableSize)
}

// Triangulate fans every polygon into triangles, returning vertex id triples
// and for each triangle the face-varying offsets of its corners
func (m *MeshPrimitive) Triangulate() (triangles [][3]int, corners [][3]int) {
	offset := 0
	for _, n := range m.VerticesPerFace {
		for i := 1; i+1 < n; i++ {
			triangles = append(triangles, [3]int{
				m.VertexIDs[offset], m.VertexIDs[offset+i], m.VertexIDs[offset+i+1],
			})
			corners = append(corners, [3]int{offset, offset + i, offset + i + 1})
		}
		offset += n
	}
	return triangles, corners
}

// SameTopology reports whether other has identical face structure
func (m *MeshPrimitive) SameTopology(other *MeshPrimitive) bool {
	return slices.Equal(m.VerticesPerFace, other.VerticesPerFace) &&
		slices.Equal(m.VertexIDs, other.VertexIDs) &&
		m.Interpolation == other.Interpolation
}

// Hash implements core.Hashable
func (m *MeshPrimitive) Hash(h *core.Hasher) {
	h.AppendString(m.TypeName())
	h.Append(m.VerticesPerFace)
	h.Append(m.VertexIDs)
	h.AppendString(m.Interpolation)
	m.Vars.hash(h)
}

func (m *MeshPrimitive) withVariables(vars Variables) Primitive {
	return &MeshPrimitive{
		VerticesPerFace: m.VerticesPerFace,
		VertexIDs:       m.VertexIDs,
		Interpolation:   m.Interpolation,
		Vars:            vars,
	}
}
