package geometry

import (
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// MeshTriangles places the first pose of a mesh in world space with m
// and returns its triangles. Meshes with one normal per vertex are
// smooth shaded. Triangles with out of range indices are skipped.
func MeshTriangles(mesh *scene.MeshData, m core.Mat44, surface int) []Shape {
	positions := make([]core.Vec3, len(mesh.Positions))
	for i, p := range mesh.Positions {
		positions[i] = m.TransformPoint(p)
	}

	var normals []core.Vec3
	if len(mesh.Normals) == len(mesh.Positions) {
		normals = make([]core.Vec3, len(mesh.Normals))
		for i, n := range mesh.Normals {
			normals[i] = m.TransformNormal(n)
		}
	}

	shapes := make([]Shape, 0, len(mesh.Triangles))
	for _, tri := range mesh.Triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]
		if !inRange(i0, len(positions)) || !inRange(i1, len(positions)) || !inRange(i2, len(positions)) {
			continue
		}
		if normals != nil {
			shapes = append(shapes, NewSmoothTriangle(positions[i0], positions[i1], positions[i2],
				normals[i0], normals[i1], normals[i2], surface))
		} else {
			shapes = append(shapes, NewTriangle(positions[i0], positions[i1], positions[i2], surface))
		}
	}
	return shapes
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}
