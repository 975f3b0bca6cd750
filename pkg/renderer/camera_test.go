package renderer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

func assertVecNear(t *testing.T, want, got core.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
	assert.InDelta(t, want.Z, got.Z, 1e-9)
}

func TestCamera_ImagePlane(t *testing.T) {
	c := NewCamera(core.Identity(), 90, 100, 50)

	tests := []struct {
		name string
		u, v float64
		want core.Vec3
	}{
		{"centre", 0.5, 0.5, core.NewVec3(0, 0, -1)},
		{"right edge", 1, 0.5, core.NewVec3(1, 0, -1).Normalize()},
		{"top edge", 0.5, 0, core.NewVec3(0, 0.5, -1).Normalize()},
		{"bottom left", 0, 1, core.NewVec3(-1, -0.5, -1).Normalize()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := c.rayAt(tt.u, tt.v)
			assert.Equal(t, core.Vec3{}, ray.Origin)
			assertVecNear(t, tt.want, ray.Direction)
		})
	}
}

func TestCamera_Transform(t *testing.T) {
	m := core.Rotate(90, core.NewVec3(0, 1, 0)).Multiply(core.Translate(core.NewVec3(1, 2, 3)))
	c := NewCamera(m, 45, 10, 10)

	assertVecNear(t, core.NewVec3(-1, 0, 0), c.Forward())
	ray := c.GetRay(5, 5, rand.New(rand.NewSource(1)))
	assert.Equal(t, core.NewVec3(1, 2, 3), ray.Origin)
	assert.InDelta(t, 1.0, ray.Direction.Length(), 1e-9)
}

func TestCamera_InvalidFOVUsesDefault(t *testing.T) {
	for _, fov := range []float64{0, -10, 180, 400} {
		c := NewCamera(core.Identity(), fov, 10, 10)
		assert.InDelta(t, math.Tan(DefaultHorizontalFOV*math.Pi/360), c.halfWidth, 1e-12)
	}
}

func TestNewSceneCamera(t *testing.T) {
	cam := &scene.Camera{
		Entity:    scene.Entity{Name: "cam", Params: scene.ParamArray{}},
		Transform: transform.NewSequence(core.Translate(core.NewVec3(0, 0, 5))),
	}
	cam.Params.Insert("horizontal_fov", 90.0)

	c := NewSceneCamera(cam, 20, 10)
	assert.Equal(t, core.NewVec3(0, 0, 5), c.origin)
	assert.InDelta(t, 1.0, c.halfWidth, 1e-12)
	assert.InDelta(t, 0.5, c.halfHeight, 1e-12)
}
