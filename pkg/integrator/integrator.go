// Package integrator computes the radiance carried along camera rays
// through a flattened scene.
package integrator

import (
	"math/rand"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/geometry"
	"github.com/df07/go-scene-bridge/pkg/lights"
)

// Scene is the read-only view of a flattened scene an integrator traces against
type Scene interface {
	Hit(ray core.Ray, tMin, tMax float64, hit *geometry.HitRecord) bool
	Lights() []lights.Light

	// Environment returns the environment light, or nil for a black background
	Environment() lights.Environment

	// Albedo returns the diffuse reflectance of a surface index
	Albedo(surface int) core.Vec3
}

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	RayColor(ray core.Ray, scene Scene, random *rand.Rand) core.Vec3
}
