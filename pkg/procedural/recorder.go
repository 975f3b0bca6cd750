package procedural

import (
	"fmt"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
)

// Call is one recorded protocol call
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// Recorder is a Renderer that records every call. Procedurals are
// expanded in place. Options and attributes are stored so that getters
// answer like a real backend.
type Recorder struct {
	Calls []Call

	options    map[string]any
	attributes []map[string]any
	transforms []core.Mat44
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{
		options:    map[string]any{},
		attributes: []map[string]any{{}},
		transforms: []core.Mat44{core.Identity()},
	}
}

func (r *Recorder) record(name string, args ...any) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

// Names returns the names of the recorded calls in order
func (r *Recorder) Names() []string {
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Name
	}
	return names
}

// Find returns the recorded calls with the given name
func (r *Recorder) Find(name string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) SetOption(name string, value any) {
	r.options[name] = value
	r.record("setOption", name, value)
}

func (r *Recorder) GetOption(name string) (any, bool) {
	v, ok := r.options[name]
	return v, ok
}

func (r *Recorder) Camera(name string, params core.Params) { r.record("camera", name, params) }

func (r *Recorder) Display(name, displayType, data string, params core.Params) {
	r.record("display", name, displayType, data, params)
}

func (r *Recorder) WorldBegin() { r.record("worldBegin") }
func (r *Recorder) WorldEnd()   { r.record("worldEnd") }

func (r *Recorder) pushTransform() {
	r.transforms = append(r.transforms, r.transforms[len(r.transforms)-1])
}

func (r *Recorder) popTransform() {
	if len(r.transforms) > 1 {
		r.transforms = r.transforms[:len(r.transforms)-1]
	}
}

func (r *Recorder) TransformBegin() {
	r.pushTransform()
	r.record("transformBegin")
}

func (r *Recorder) TransformEnd() {
	r.popTransform()
	r.record("transformEnd")
}

func (r *Recorder) SetTransform(m core.Mat44) {
	r.transforms[len(r.transforms)-1] = m
	r.record("setTransform", m)
}

func (r *Recorder) ConcatTransform(m core.Mat44) {
	top := &r.transforms[len(r.transforms)-1]
	*top = m.Multiply(*top)
	r.record("concatTransform", m)
}

func (r *Recorder) GetTransform() core.Mat44 { return r.transforms[len(r.transforms)-1] }

func (r *Recorder) AttributeBegin() {
	top := r.attributes[len(r.attributes)-1]
	copied := make(map[string]any, len(top))
	for k, v := range top {
		copied[k] = v
	}
	r.attributes = append(r.attributes, copied)
	r.pushTransform()
	r.record("attributeBegin")
}

func (r *Recorder) AttributeEnd() {
	if len(r.attributes) > 1 {
		r.attributes = r.attributes[:len(r.attributes)-1]
	}
	r.popTransform()
	r.record("attributeEnd")
}

func (r *Recorder) SetAttribute(name string, value any) {
	r.attributes[len(r.attributes)-1][name] = value
	r.record("setAttribute", name, value)
}

func (r *Recorder) GetAttribute(name string) (any, bool) {
	v, ok := r.attributes[len(r.attributes)-1][name]
	return v, ok
}

func (r *Recorder) Shader(shaderType, name string, params core.Params) {
	r.record("shader", shaderType, name, params)
}

func (r *Recorder) Light(name, handle string, params core.Params) {
	r.record("light", name, handle, params)
}

func (r *Recorder) Illuminate(handle string, on bool) { r.record("illuminate", handle, on) }

func (r *Recorder) MotionBegin(times []float64) { r.record("motionBegin", times) }

func (r *Recorder) MotionEnd() error {
	r.record("motionEnd")
	return nil
}

func (r *Recorder) Mesh(mesh *primitive.MeshPrimitive) error {
	r.record("mesh", mesh)
	return nil
}

func (r *Recorder) Points(points *primitive.PointsPrimitive) error {
	r.record("points", points)
	return nil
}

func (r *Recorder) Curves(curves *primitive.CurvesPrimitive) error {
	r.record("curves", curves)
	return nil
}

func (r *Recorder) Procedural(p Procedural) {
	r.record("procedural", p.Bound())
	p.Render(r)
}

func (r *Recorder) InstanceBegin(name string, params core.Params) {
	r.record("instanceBegin", name, params)
}

func (r *Recorder) InstanceEnd()         { r.record("instanceEnd") }
func (r *Recorder) Instance(name string) { r.record("instance", name) }

func (r *Recorder) Command(name string, params core.Params) any {
	r.record("command", name, params)
	return nil
}

func (r *Recorder) EditBegin(editType string, params core.Params) {
	r.record("editBegin", editType, params)
}

func (r *Recorder) EditEnd() { r.record("editEnd") }

var _ Renderer = (*Recorder)(nil)
