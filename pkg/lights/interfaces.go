package lights

import "github.com/df07/go-scene-bridge/pkg/core"

type LightType string

const (
	LightTypePoint       LightType = "point"
	LightTypeDirectional LightType = "directional"
	LightTypeSpot        LightType = "spot"
)

// Light is a singular light sampled for direct lighting
type Light interface {
	Type() LightType

	// Sample returns the light arriving at point. Direction points FROM
	// the shading point TO the light.
	Sample(point core.Vec3) LightSample
}

// LightSample contains the contribution of a light at a shading point
type LightSample struct {
	Direction core.Vec3 // Unit direction from shading point to light
	Distance  float64   // Distance to light, +Inf for directional lights
	Emission  core.Vec3 // Incident radiance
}

// Environment is emission from infinitely far away
type Environment interface {
	// Emit returns the radiance arriving along -direction
	Emit(direction core.Vec3) core.Vec3
}
