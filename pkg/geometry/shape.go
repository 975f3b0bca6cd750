// Package geometry holds the ray intersection primitives of the
// interactive renderer.
package geometry

import "github.com/df07/go-scene-bridge/pkg/core"

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Shading normal, facing the ray
	T         float64   // Parameter t along the ray
	FrontFace bool      // Whether ray hit the front face
	Surface   int       // Index of the surface the shape was created with
}

// SetFaceNormal sets the normal vector and determines front/back face
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// Shape is anything that can be hit by rays
type Shape interface {
	Hit(ray core.Ray, tMin, tMax float64, hit *HitRecord) bool
	BoundingBox() core.AABB
}
