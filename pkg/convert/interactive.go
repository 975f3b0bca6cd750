package convert

import (
	"fmt"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/meshio"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// InteractiveBackend converts geometry into live in-memory objects. Motion
// samples after the first are stored as poses on the first sample's mesh.
type InteractiveBackend struct{}

// NewInteractiveBackend creates an interactive backend
func NewInteractiveBackend() *InteractiveBackend {
	return &InteractiveBackend{}
}

// Convert implements Backend
func (InteractiveBackend) Convert(name string, samples []primitive.Primitive) (*scene.Object, error) {
	first, ok := samples[0].(*primitive.MeshPrimitive)
	if !ok {
		return nil, fmt.Errorf("%s: %w", samples[0].TypeName(), core.ErrUnsupportedPrimitive)
	}
	mesh, err := meshio.FromPrimitive(first)
	if err != nil {
		return nil, err
	}

	data := &scene.MeshData{
		Positions: mesh.Positions,
		Normals:   mesh.Normals,
		Triangles: mesh.Triangles,
		Tangents:  vertexVec3s(first, "uTangent", len(mesh.Positions)),
	}

	for i, sample := range samples[1:] {
		pose, err := extractPose(first, sample, data)
		if err != nil {
			return nil, fmt.Errorf("motion sample %d: %w", i+1, err)
		}
		data.Poses = append(data.Poses, pose)
	}

	return &scene.Object{
		Entity: scene.Entity{Name: name, Model: "mesh_object", Params: scene.ParamArray{}},
		Mesh:   data,
	}, nil
}

// extractPose pulls positions, normals and tangents from a deformation
// sample. Every variable present on the first sample must be present
// with the same size.
func extractPose(first *primitive.MeshPrimitive, sample primitive.Primitive, data *scene.MeshData) (scene.MeshPose, error) {
	mp, ok := sample.(*primitive.MeshPrimitive)
	if !ok {
		return scene.MeshPose{}, fmt.Errorf("%s sample of a MeshPrimitive: %w", sample.TypeName(), core.ErrTopologyMismatch)
	}
	if !first.SameTopology(mp) {
		return scene.MeshPose{}, fmt.Errorf("face topology differs: %w", core.ErrTopologyMismatch)
	}

	points, ok := mp.Vars.Vec3s("P")
	if !ok {
		return scene.MeshPose{}, fmt.Errorf("no \"P\" variable: %w", core.ErrMissingVariable)
	}
	if len(points) != len(data.Positions) {
		return scene.MeshPose{}, fmt.Errorf("%d points, expected %d: %w", len(points), len(data.Positions), core.ErrTopologyMismatch)
	}
	pose := scene.MeshPose{Positions: points}

	if len(data.Normals) > 0 {
		normals := vertexVec3s(mp, "N", len(points))
		if normals == nil {
			return scene.MeshPose{}, fmt.Errorf("no vertex \"N\" variable: %w", core.ErrMissingVariable)
		}
		pose.Normals = normals
	}
	if len(data.Tangents) > 0 {
		tangents := vertexVec3s(mp, "uTangent", len(points))
		if tangents == nil {
			return scene.MeshPose{}, fmt.Errorf("no vertex \"uTangent\" variable: %w", core.ErrMissingVariable)
		}
		pose.Tangents = tangents
	}
	return pose, nil
}

func vertexVec3s(mp *primitive.MeshPrimitive, name string, n int) []core.Vec3 {
	v, ok := mp.Vars[name]
	if !ok || (v.Interpolation != primitive.Vertex && v.Interpolation != primitive.Varying) {
		return nil
	}
	data, ok := v.Data.([]core.Vec3)
	if !ok || len(data) != n {
		return nil
	}
	return data
}
