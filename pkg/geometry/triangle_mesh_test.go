package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

func quad() *scene.MeshData {
	return &scene.MeshData{
		Positions: []core.Vec3{
			core.NewVec3(0, 0, 0),
			core.NewVec3(1, 0, 0),
			core.NewVec3(1, 1, 0),
			core.NewVec3(0, 1, 0),
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
}

func TestMeshTriangles_Transform(t *testing.T) {
	shapes := MeshTriangles(quad(), core.Translate(core.NewVec3(0, 0, -5)), 7)
	require.Len(t, shapes, 2)

	bvh := NewBVH(shapes)
	box := bvh.BoundingBox()
	assert.Equal(t, core.NewVec3(0, 0, -5), box.Min)
	assert.Equal(t, core.NewVec3(1, 1, -5), box.Max)

	var hit HitRecord
	assert.True(t, bvh.Hit(core.NewRay(core.NewVec3(0.75, 0.25, 0), core.NewVec3(0, 0, -1)), 0.001, 100, &hit))
	assert.InDelta(t, 5.0, hit.T, 1e-9)
	assert.Equal(t, 7, hit.Surface)
}

func TestMeshTriangles_SkipsBadIndices(t *testing.T) {
	mesh := quad()
	mesh.Triangles = append(mesh.Triangles, [3]int{0, 2, 9})

	shapes := MeshTriangles(mesh, core.Identity(), 0)
	assert.Len(t, shapes, 2)
}

func TestMeshTriangles_SmoothWhenNormalsPerVertex(t *testing.T) {
	mesh := quad()
	mesh.Normals = []core.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}}

	shapes := MeshTriangles(mesh, core.Scale(core.NewVec3(2, 2, 2)), 0)
	require.Len(t, shapes, 2)
	tri := shapes[0].(*Triangle)
	assert.NotNil(t, tri.normals)
	assert.InDelta(t, 1.0, tri.normals[0].Length(), 1e-9)
}
