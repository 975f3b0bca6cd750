// Package procedural defines the scene description protocol that every
// backend implements and that scene readers and procedurals drive.
package procedural

import (
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
)

// Renderer is an immediate mode scene description sink. Calls are
// issued from a single goroutine in protocol order.
type Renderer interface {
	SetOption(name string, value any)
	GetOption(name string) (any, bool)

	Camera(name string, params core.Params)
	Display(name, displayType, data string, params core.Params)

	WorldBegin()
	WorldEnd()

	TransformBegin()
	TransformEnd()
	SetTransform(m core.Mat44)
	ConcatTransform(m core.Mat44)
	GetTransform() core.Mat44

	AttributeBegin()
	AttributeEnd()
	SetAttribute(name string, value any)
	GetAttribute(name string) (any, bool)
	Shader(shaderType, name string, params core.Params)

	Light(name, handle string, params core.Params)
	Illuminate(handle string, on bool)

	MotionBegin(times []float64)
	MotionEnd() error

	// Geometry calls return an error only when the primitive data is
	// invalid; unsupported primitives are reported on the logger.
	Mesh(mesh *primitive.MeshPrimitive) error
	Points(points *primitive.PointsPrimitive) error
	Curves(curves *primitive.CurvesPrimitive) error
	Procedural(p Procedural)

	InstanceBegin(name string, params core.Params)
	InstanceEnd()
	Instance(name string)

	Command(name string, params core.Params) any

	EditBegin(editType string, params core.Params)
	EditEnd()
}

// Procedural generates scene description on demand
type Procedural interface {
	// Bound returns the object space bounds of everything Render emits
	Bound() core.AABB
	Render(r Renderer)
}

// Func adapts a function and a bound to the Procedural interface
type Func struct {
	Bounds core.AABB
	Fn     func(r Renderer)
}

func (f Func) Bound() core.AABB   { return f.Bounds }
func (f Func) Render(r Renderer) { f.Fn(r) }
