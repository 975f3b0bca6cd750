// Package scene is the native scene graph the project backend builds:
// a project holding a frame, render configurations and a scene of
// assemblies, objects, instances, lights and shading entities.
package scene

import (
	"sort"
	"strconv"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// ParamArray is a nested string dictionary addressed by dotted paths such
// as "generic_frame_renderer.passes"
type ParamArray map[string]any

// NewParamArray converts a protocol parameter block into a ParamArray.
// Values that DataToString cannot represent are dropped.
func NewParamArray(params core.Params) ParamArray {
	pa := ParamArray{}
	for _, name := range params.SortedKeys() {
		if s := core.DataToString(params[name]); s != "" {
			pa.Insert(name, s)
		}
	}
	return pa
}

// Insert stores value at path, creating intermediate dictionaries
func (pa ParamArray) Insert(path string, value any) ParamArray {
	keys := strings.Split(path, ".")
	dict := pa
	for _, key := range keys[:len(keys)-1] {
		child, ok := dict[key].(ParamArray)
		if !ok {
			child = ParamArray{}
			dict[key] = child
		}
		dict = child
	}

	last := keys[len(keys)-1]
	switch v := value.(type) {
	case ParamArray:
		dict[last] = v
	case string:
		dict[last] = v
	default:
		dict[last] = core.DataToString(v)
	}
	return pa
}

// Remove deletes the value at path. Empty parent dictionaries are kept.
func (pa ParamArray) Remove(path string) {
	keys := strings.Split(path, ".")
	dict := pa
	for _, key := range keys[:len(keys)-1] {
		child, ok := dict[key].(ParamArray)
		if !ok {
			return
		}
		dict = child
	}
	delete(dict, keys[len(keys)-1])
}

// Get returns the string at path
func (pa ParamArray) Get(path string) (string, bool) {
	keys := strings.Split(path, ".")
	dict := pa
	for _, key := range keys[:len(keys)-1] {
		child, ok := dict[key].(ParamArray)
		if !ok {
			return "", false
		}
		dict = child
	}
	v, ok := dict[keys[len(keys)-1]].(string)
	return v, ok
}

// Exists reports whether a value or dictionary lives at path
func (pa ParamArray) Exists(path string) bool {
	if _, ok := pa.Get(path); ok {
		return true
	}
	_, ok := pa.Dictionary(path)
	return ok
}

// Dictionary returns the nested dictionary at path
func (pa ParamArray) Dictionary(path string) (ParamArray, bool) {
	dict := pa
	for _, key := range strings.Split(path, ".") {
		child, ok := dict[key].(ParamArray)
		if !ok {
			return nil, false
		}
		dict = child
	}
	return dict, true
}

// String returns the value at path or def
func (pa ParamArray) String(path, def string) string {
	if v, ok := pa.Get(path); ok {
		return v
	}
	return def
}

// Float returns the value at path parsed as a float, or def
func (pa ParamArray) Float(path string, def float64) float64 {
	if v, ok := pa.Get(path); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the value at path parsed as an int, or def
func (pa ParamArray) Int(path string, def int) int {
	if v, ok := pa.Get(path); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Bool returns the value at path parsed as a bool, or def
func (pa ParamArray) Bool(path string, def bool) bool {
	if v, ok := pa.Get(path); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Floats returns the value at path parsed as a space separated float list
func (pa ParamArray) Floats(path string) []float64 {
	v, ok := pa.Get(path)
	if !ok {
		return nil
	}
	var out []float64
	for _, field := range strings.Fields(v) {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

// Vec3 returns a three component value at path, or def
func (pa ParamArray) Vec3(path string, def core.Vec3) core.Vec3 {
	fs := pa.Floats(path)
	switch len(fs) {
	case 1:
		return core.NewVec3(fs[0], fs[0], fs[0])
	case 3:
		return core.NewVec3(fs[0], fs[1], fs[2])
	}
	return def
}

// Merge copies every value of other into pa, recursing into dictionaries
func (pa ParamArray) Merge(other ParamArray) ParamArray {
	for k, v := range other {
		if child, ok := v.(ParamArray); ok {
			existing, ok := pa[k].(ParamArray)
			if !ok {
				existing = ParamArray{}
				pa[k] = existing
			}
			existing.Merge(child)
			continue
		}
		pa[k] = v
	}
	return pa
}

// Clone returns a deep copy
func (pa ParamArray) Clone() ParamArray {
	return ParamArray{}.Merge(pa)
}

// Keys returns the top level keys in lexical order
func (pa ParamArray) Keys() []string {
	keys := make([]string, 0, len(pa))
	for k := range pa {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
