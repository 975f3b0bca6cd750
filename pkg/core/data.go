package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Color is an RGB color value. It is distinct from Vec3 so that parameter
// conversion can recognise color-valued parameters.
type Color struct {
	R, G, B float64
}

// Vec3 returns the color as a vector
func (c Color) Vec3() Vec3 {
	return Vec3{c.R, c.G, c.B}
}

// V2f is a pair of floats (shutter intervals, clipping planes)
type V2f [2]float64

// V2i is a pair of ints (resolutions)
type V2i [2]int

// Box2f is a 2D float box (crop and screen windows)
type Box2f struct {
	Min, Max V2f
}

// Params is a named parameter block passed through the scene-description
// protocol. Values are one of the types understood by DataToString and Hasher.
type Params map[string]any

// Clone returns a shallow copy of the parameter block
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SortedKeys returns the parameter names in lexical order
func (p Params) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string parameter
func (p Params) String(name string) (string, bool) {
	v, ok := p[name].(string)
	return v, ok
}

// Bool returns a bool parameter
func (p Params) Bool(name string) (bool, bool) {
	v, ok := p[name].(bool)
	return v, ok
}

// Float returns a numeric parameter as float64
func (p Params) Float(name string) (float64, bool) {
	switch v := p[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Int returns an int parameter
func (p Params) Int(name string) (int, bool) {
	v, ok := p[name].(int)
	return v, ok
}

// DataToString renders a value the way renderer parameter arrays store it:
// scalars as-is, tuples space separated. Unsupported values return "".
func DataToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case Color:
		return joinFloats(v.R, v.G, v.B)
	case Vec3:
		return joinFloats(v.X, v.Y, v.Z)
	case V2f:
		return joinFloats(v[0], v[1])
	case V2i:
		return fmt.Sprintf("%d %d", v[0], v[1])
	case Box2f:
		return joinFloats(v.Min[0], v.Min[1], v.Max[0], v.Max[1])
	case Mat44:
		return joinFloats(v.Values()...)
	case []float64:
		return joinFloats(v...)
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(v, " ")
	}
	return ""
}

func joinFloats(values ...float64) string {
	parts := make([]string, len(values))
	for i, f := range values {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
