package renderer

import (
	"math"
	"math/rand"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// DefaultHorizontalFOV is used when a camera carries no field of view, degrees
const DefaultHorizontalFOV = 54.43

// Camera is a pinhole camera looking down -Z in its own space with +Y up
type Camera struct {
	toWorld    core.Mat44
	origin     core.Vec3
	width      int
	height     int
	halfWidth  float64 // Image plane half extents at unit distance
	halfHeight float64
}

// NewCamera creates a camera for a width x height image. m maps camera
// space to world space.
func NewCamera(m core.Mat44, horizontalFOV float64, width, height int) *Camera {
	if horizontalFOV <= 0 || horizontalFOV >= 180 {
		horizontalFOV = DefaultHorizontalFOV
	}
	halfWidth := math.Tan(horizontalFOV * math.Pi / 360)
	return &Camera{
		toWorld:    m,
		origin:     m.TransformPoint(core.Vec3{}),
		width:      width,
		height:     height,
		halfWidth:  halfWidth,
		halfHeight: halfWidth * float64(height) / float64(width),
	}
}

// NewSceneCamera builds a camera from a scene entity, using its earliest
// transform and "horizontal_fov" parameter
func NewSceneCamera(cam *scene.Camera, width, height int) *Camera {
	m := core.Identity()
	if cam.Transform.Size() > 0 {
		m = cam.Transform.Earliest()
	}
	return NewCamera(m, cam.Params.Float("horizontal_fov", DefaultHorizontalFOV), width, height)
}

// GetRay generates a jittered ray through pixel (i, j), with j = 0 the top row
func (c *Camera) GetRay(i, j int, random *rand.Rand) core.Ray {
	u := (float64(i) + random.Float64()) / float64(c.width)
	v := (float64(j) + random.Float64()) / float64(c.height)
	return c.rayAt(u, v)
}

// rayAt returns the ray through normalized image coordinates in [0,1]
func (c *Camera) rayAt(u, v float64) core.Ray {
	local := core.NewVec3((2*u-1)*c.halfWidth, (1-2*v)*c.halfHeight, -1)
	return core.NewRay(c.origin, c.toWorld.TransformDirection(local).Normalize())
}

// Forward returns the world space viewing direction
func (c *Camera) Forward() core.Vec3 {
	return c.toWorld.TransformDirection(core.NewVec3(0, 0, -1)).Normalize()
}
