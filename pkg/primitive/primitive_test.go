package primitive

import (
	"errors"
	"testing"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMesh_Validate(t *testing.T) {
	cube := NewCube(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
	require.NoError(t, cube.Validate())
	assert.Equal(t, 6, cube.NumFaces())
	assert.Equal(t, 8, cube.NumVertices())

	tests := []struct {
		name   string
		mutate func(m *MeshPrimitive)
		target error
	}{
		{
			name: "too few P",
			mutate: func(m *MeshPrimitive) {
				m.Vars["P"] = Variable{Interpolation: Vertex, Data: []core.Vec3{{}, {}}}
			},
			target: core.ErrTopologyMismatch,
		},
		{
			name:   "face count mismatch",
			mutate: func(m *MeshPrimitive) { m.VerticesPerFace = m.VerticesPerFace[:5] },
			target: core.ErrTopologyMismatch,
		},
		{
			name:   "degenerate face",
			mutate: func(m *MeshPrimitive) { m.VerticesPerFace[0] = 2 },
			target: core.ErrInvalidValue,
		},
		{
			name: "uniform sized per face",
			mutate: func(m *MeshPrimitive) {
				m.Vars["Cs"] = Variable{Interpolation: Uniform, Data: []core.Color{{R: 1}}}
			},
			target: core.ErrTopologyMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewCube(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
			tt.mutate(m)
			err := m.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "unexpected error %v", err)
		})
	}
}

func TestMesh_Triangulate(t *testing.T) {
	cube := NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	tris, corners := cube.Triangulate()
	assert.Len(t, tris, 12)
	assert.Len(t, corners, 12)
	assert.Equal(t, [3]int{0, 3, 2}, tris[0])
	assert.Equal(t, [3]int{0, 2, 3}, corners[1])
}

func TestHashOf(t *testing.T) {
	a := NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	b := NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	assert.Equal(t, HashOf(a), HashOf(b))

	c := NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 2))
	assert.NotEqual(t, HashOf(a), HashOf(c))

	pts := NewPoints([]core.Vec3{{X: 1}})
	crv := NewCurves([]int{1}, "linear", []core.Vec3{{X: 1}})
	assert.NotEqual(t, HashOf(pts), HashOf(crv))
}

func TestInterpolators_Lerp(t *testing.T) {
	a := NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	b := NewCube(core.NewVec3(2, 0, 0), core.NewVec3(3, 1, 1))

	mid, err := DefaultInterpolators.Lerp(a, b, 0.5)
	require.NoError(t, err)
	p, ok := mid.Variables().Vec3s("P")
	require.True(t, ok)
	assert.InDelta(t, 1.0, p[0].X, 1e-12)

	// Exact endpoints return the original samples
	start, err := DefaultInterpolators.Lerp(a, b, 0)
	require.NoError(t, err)
	assert.Same(t, a, start)

	end, err := DefaultInterpolators.Lerp(a, b, 1)
	require.NoError(t, err)
	assert.Same(t, b, end)
}

func TestInterpolators_Mismatch(t *testing.T) {
	a := NewCube(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	pts := NewPoints([]core.Vec3{{}})

	_, err := DefaultInterpolators.Lerp(a, pts, 0.5)
	assert.ErrorIs(t, err, core.ErrTopologyMismatch)

	fewer := NewPoints([]core.Vec3{{}, {}})
	_, err = DefaultInterpolators.Lerp(pts, fewer, 0.5)
	assert.ErrorIs(t, err, core.ErrTopologyMismatch)

	r := &Interpolators{byType: map[string]Interpolator{}}
	_, err = r.Lerp(pts, pts, 0.5)
	assert.ErrorIs(t, err, core.ErrUnsupportedPrimitive)
}

func TestParseInterpolation(t *testing.T) {
	interp, ok := ParseInterpolation("FaceVarying")
	assert.True(t, ok)
	assert.Equal(t, FaceVarying, interp)

	_, ok = ParseInterpolation("invalid")
	assert.False(t, ok)
}
