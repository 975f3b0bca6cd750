package geometry

import (
	"github.com/df07/go-scene-bridge/pkg/core"
)

// Triangle is a single triangle with optional per-vertex normals
type Triangle struct {
	V0, V1, V2 core.Vec3 // The three vertices
	Surface    int       // Surface index reported in hit records

	normals *[3]core.Vec3 // Per-vertex shading normals, nil for flat shading
	normal  core.Vec3     // Cached geometric normal
	bbox    core.AABB     // Cached bounding box
}

// NewTriangle creates a flat shaded triangle
func NewTriangle(v0, v1, v2 core.Vec3, surface int) *Triangle {
	t := &Triangle{V0: v0, V1: v1, V2: v2, Surface: surface}
	t.normal = v1.Subtract(v0).Cross(v2.Subtract(v0)).Normalize()
	t.bbox = core.NewAABBFromPoints(v0, v1, v2)
	return t
}

// NewSmoothTriangle creates a triangle that interpolates vertex normals
func NewSmoothTriangle(v0, v1, v2, n0, n1, n2 core.Vec3, surface int) *Triangle {
	t := NewTriangle(v0, v1, v2, surface)
	t.normals = &[3]core.Vec3{n0.Normalize(), n1.Normalize(), n2.Normalize()}
	return t
}

// Hit tests if a ray intersects with the triangle using the Möller-Trumbore algorithm
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64, hit *HitRecord) bool {
	const epsilon = 1e-8

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Ray lies in the plane of the triangle
	if a > -epsilon && a < epsilon {
		return false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return false
	}

	tParam := f * edge2.Dot(q)
	if tParam < tMin || tParam > tMax {
		return false
	}

	hit.T = tParam
	hit.Point = ray.At(tParam)
	hit.Surface = t.Surface

	normal := t.normal
	if t.normals != nil {
		w := 1 - u - v
		n := t.normals[0].Multiply(w).Add(t.normals[1].Multiply(u)).Add(t.normals[2].Multiply(v)).Normalize()
		if n != (core.Vec3{}) {
			normal = n
		}
	}
	hit.SetFaceNormal(ray, normal)
	return true
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

// Normal returns the geometric normal
func (t *Triangle) Normal() core.Vec3 {
	return t.normal
}
