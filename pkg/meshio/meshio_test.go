package meshio

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeMesh(t *testing.T) *Mesh {
	t.Helper()
	m, err := FromPrimitive(primitive.NewCube(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1)))
	require.NoError(t, err)
	return m
}

func TestFormats_WriteRead(t *testing.T) {
	for _, format := range Formats.Names() {
		t.Run(format, func(t *testing.T) {
			mesh := cubeMesh(t)
			ext, err := Extension(format)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "cube."+ext)
			require.NoError(t, WriteFile(path, format, mesh))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, mesh.Triangles, got.Triangles)
			require.Len(t, got.Positions, len(mesh.Positions))
			for i := range mesh.Positions {
				assert.InDelta(t, 0, got.Positions[i].Subtract(mesh.Positions[i]).Length(), 1e-6)
			}
		})
	}
}

func TestExtension_Unknown(t *testing.T) {
	_, err := Extension("abc")
	assert.ErrorIs(t, err, core.ErrUnknownModel)
}

func TestObj_ReadPolygonsAndNegativeIndices(t *testing.T) {
	src := `# quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f -4 -3/1 -2//1 -1/1/1
`
	m, err := objFormat{}.Read(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, m.Triangles)
}

func TestBinaryMesh_RejectsOtherData(t *testing.T) {
	_, err := binaryMesh{}.Read(bytes.NewReader([]byte("v 0 0 0 0 0 0")))
	assert.Error(t, err)
}

func TestFromPrimitive(t *testing.T) {
	cube := primitive.NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	normals := make([]core.Vec3, 8)
	cube.Vars["N"] = primitive.Variable{Interpolation: primitive.Vertex, Data: normals}

	m, err := FromPrimitive(cube)
	require.NoError(t, err)
	assert.Len(t, m.Triangles, 12)
	assert.Len(t, m.Normals, 8)

	delete(cube.Vars, "P")
	_, err = FromPrimitive(cube)
	assert.ErrorIs(t, err, core.ErrMissingVariable)
}

func TestPly_KeepsNormalsAndTriangulatesPolygons(t *testing.T) {
	mesh := cubeMesh(t)
	mesh.Normals = make([]core.Vec3, len(mesh.Positions))
	for i, p := range mesh.Positions {
		mesh.Normals[i] = p.Normalize()
	}

	var buf bytes.Buffer
	require.NoError(t, plyFormat{}.Write(&buf, mesh))
	assert.True(t, strings.HasPrefix(buf.String(), "ply\nformat binary_little_endian 1.0\n"))

	got, err := plyFormat{}.Read(&buf)
	require.NoError(t, err)
	require.Len(t, got.Normals, len(mesh.Normals))
	assert.InDelta(t, mesh.Normals[0].X, got.Normals[0].X, 1e-6)

	quad := "ply\nformat binary_little_endian 1.0\nelement vertex 0\nproperty float x\nproperty float y\nproperty float z\n" +
		"element face 1\nproperty list uchar int vertex_indices\nend_header\n" +
		"\x04\x00\x00\x00\x00\x01\x00\x00\x00\x02\x00\x00\x00\x03\x00\x00\x00"
	got, err = plyFormat{}.Read(strings.NewReader(quad))
	require.NoError(t, err)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, got.Triangles)
}

func TestPly_RejectsAscii(t *testing.T) {
	_, err := plyFormat{}.Read(strings.NewReader("ply\nformat ascii 1.0\nend_header\n"))
	assert.ErrorContains(t, err, "unsupported PLY format")
}
