package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/df07/go-scene-bridge/pkg/core"
)

func TestTriangle_Hit(t *testing.T) {
	// Triangle in the XY plane
	triangle := NewTriangle(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 3)

	tests := []struct {
		name      string
		ray       core.Ray
		shouldHit bool
		expectedT float64
		frontFace bool
	}{
		{
			name:      "Ray hits triangle center",
			ray:       core.NewRay(core.NewVec3(0.25, 0.25, 1), core.NewVec3(0, 0, -1)),
			shouldHit: true,
			expectedT: 1.0,
			frontFace: true,
		},
		{
			name:      "Ray hits triangle edge",
			ray:       core.NewRay(core.NewVec3(0.5, 0, 1), core.NewVec3(0, 0, -1)),
			shouldHit: true,
			expectedT: 1.0,
			frontFace: true,
		},
		{
			name:      "Ray misses triangle",
			ray:       core.NewRay(core.NewVec3(1, 1, 1), core.NewVec3(0, 0, -1)),
			shouldHit: false,
		},
		{
			name:      "Ray parallel to triangle",
			ray:       core.NewRay(core.NewVec3(0.25, 0.25, 0), core.NewVec3(1, 0, 0)),
			shouldHit: false,
		},
		{
			name:      "Ray hits from behind",
			ray:       core.NewRay(core.NewVec3(0.25, 0.25, -2), core.NewVec3(0, 0, 1)),
			shouldHit: true,
			expectedT: 2.0,
			frontFace: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hit HitRecord
			isHit := triangle.Hit(tt.ray, 0.001, 10.0, &hit)

			assert.Equal(t, tt.shouldHit, isHit)
			if !tt.shouldHit {
				return
			}
			assert.InDelta(t, tt.expectedT, hit.T, 1e-9)
			assert.Equal(t, tt.frontFace, hit.FrontFace)
			assert.Equal(t, 3, hit.Surface)
			// Normal always faces the incoming ray
			assert.Less(t, hit.Normal.Dot(tt.ray.Direction), 0.0)
		})
	}
}

func TestTriangle_SmoothNormals(t *testing.T) {
	up := core.NewVec3(0, 0, 1)
	tilted := core.NewVec3(1, 0, 1)
	triangle := NewSmoothTriangle(
		core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0),
		up, tilted, up, 0)

	var hit HitRecord
	ray := core.NewRay(core.NewVec3(0.5, 0.25, 1), core.NewVec3(0, 0, -1))
	assert.True(t, triangle.Hit(ray, 0.001, 10, &hit))

	// Interpolated normal leans towards +X but stays unit length
	assert.Greater(t, hit.Normal.X, 0.0)
	assert.InDelta(t, 1.0, hit.Normal.Length(), 1e-9)
	assert.Equal(t, up, triangle.Normal())
}

func TestTriangle_BoundingBox(t *testing.T) {
	triangle := NewTriangle(core.NewVec3(-1, 2, 0), core.NewVec3(3, -1, 1), core.NewVec3(0, 0, -2), 0)
	box := triangle.BoundingBox()

	assert.Equal(t, core.NewVec3(-1, -1, -2), box.Min)
	assert.Equal(t, core.NewVec3(3, 2, 1), box.Max)
	assert.False(t, math.IsNaN(box.Center().X))
}
