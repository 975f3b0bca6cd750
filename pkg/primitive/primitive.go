// Package primitive holds the immutable geometric primitives emitted through
// the scene-description protocol, together with their primitive variables
// and the interpolation used for deformation motion blur.
package primitive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Interpolation describes how a primitive variable is distributed over the topology
type Interpolation int

const (
	Invalid Interpolation = iota
	Constant
	Uniform
	Vertex
	Varying
	FaceVarying
)

var interpolationNames = map[Interpolation]string{
	Invalid:     "invalid",
	Constant:    "constant",
	Uniform:     "uniform",
	Vertex:      "vertex",
	Varying:     "varying",
	FaceVarying: "facevarying",
}

func (i Interpolation) String() string {
	if name, ok := interpolationNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// ParseInterpolation converts a textual interpolation name
func ParseInterpolation(name string) (Interpolation, bool) {
	for k, v := range interpolationNames {
		if v == strings.ToLower(name) && k != Invalid {
			return k, true
		}
	}
	return Invalid, false
}

// Variable is a named piece of primitive data. Data holds one of
// []core.Vec3, []core.Color, []float64, []int, []string or a scalar
// (float64, int, string, bool, core.Color, core.Vec3).
type Variable struct {
	Interpolation Interpolation
	Data          any
}

// Len returns the number of elements in the variable data
func (v Variable) Len() int {
	switch d := v.Data.(type) {
	case []core.Vec3:
		return len(d)
	case []core.Color:
		return len(d)
	case []float64:
		return len(d)
	case []int:
		return len(d)
	case []string:
		return len(d)
	case nil:
		return 0
	}
	return 1
}

// Variables maps variable names to their data
type Variables map[string]Variable

// Names returns the variable names in lexical order
func (vs Variables) Names() []string {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Vec3s returns the named variable as a point/vector/normal array
func (vs Variables) Vec3s(name string) ([]core.Vec3, bool) {
	v, ok := vs[name]
	if !ok {
		return nil, false
	}
	data, ok := v.Data.([]core.Vec3)
	return data, ok
}

// Floats returns the named variable as a float array
func (vs Variables) Floats(name string) ([]float64, bool) {
	v, ok := vs[name]
	if !ok {
		return nil, false
	}
	data, ok := v.Data.([]float64)
	return data, ok
}

func (vs Variables) hash(h *core.Hasher) {
	h.AppendInt(len(vs))
	for _, name := range vs.Names() {
		v := vs[name]
		h.AppendString(name)
		h.AppendInt(int(v.Interpolation))
		h.Append(v.Data)
	}
}

// Primitive is an immutable renderable value object
type Primitive interface {
	core.Hashable

	// TypeName identifies the primitive kind ("MeshPrimitive", "PointsPrimitive", ...)
	TypeName() string

	// Variables returns the primitive variables. Callers must not modify them.
	Variables() Variables

	// Validate checks variable sizes against the topology
	Validate() error

	// Bound returns the object space bounding box of the "P" variable
	Bound() core.AABB
}

// HashOf returns the content hash of a primitive
func HashOf(p Primitive) core.Hash {
	h := core.NewHasher()
	p.Hash(h)
	return h.Sum()
}

func boundOf(vars Variables) core.AABB {
	points, ok := vars.Vec3s("P")
	if !ok {
		return core.AABB{}
	}
	return core.NewAABBFromPoints(points...)
}

func validateSizes(typeName string, vars Variables, expected func(Interpolation) int) error {
	for _, name := range vars.Names() {
		v := vars[name]
		want := expected(v.Interpolation)
		if want < 0 {
			return fmt.Errorf("%s: variable %q has invalid interpolation %v: %w", typeName, name, v.Interpolation, core.ErrInvalidValue)
		}
		if v.Len() != want {
			return fmt.Errorf("%s: variable %q has %d elements, expected %d for %v interpolation: %w",
				typeName, name, v.Len(), want, v.Interpolation, core.ErrTopologyMismatch)
		}
	}
	return nil
}
