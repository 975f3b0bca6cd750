// Package attributes holds the inheritable shading and visibility state
// pushed and popped alongside the transform stack.
package attributes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// Attribute names with dedicated handling
const (
	NameAttribute           = "name"
	VisibilityPrefix        = "as:visibility:"
	AlphaMapAttribute       = "as:alpha_map"
	MediumPriorityAttribute = "as:medium_priority"
	PhotonTargetAttribute   = "as:photon_target"
	ShadingSamplesAttribute = "as:shading_samples"
	DoubleSidedAttribute    = "doubleSided"
)

// State is one scope of inherited attributes
type State struct {
	Name           string
	Shaders        []scene.Shader
	Surface        *scene.Shader
	Visibility     map[string]bool
	AlphaMap       string
	MediumPriority int
	PhotonTarget   bool
	ShadingSamples int
	DoubleSided    bool

	// Attributes holds every value set through SetAttribute
	Attributes core.Params
}

// NewState returns the default root state
func NewState() *State {
	return &State{
		Name:           "unnamed",
		Visibility:     map[string]bool{},
		ShadingSamples: 1,
		DoubleSided:    true,
		Attributes:     core.Params{},
	}
}

// SetAttribute sets a named attribute. Attributes with dedicated handling
// are type checked; a wrongly typed value returns ErrInvalidValue and
// leaves the state unchanged.
func (s *State) SetAttribute(name string, value any) error {
	switch {
	case name == NameAttribute:
		v, ok := value.(string)
		if !ok {
			return typeError(name, "string", value)
		}
		s.Name = v
	case strings.HasPrefix(name, VisibilityPrefix):
		v, ok := value.(bool)
		if !ok {
			return typeError(name, "bool", value)
		}
		s.Visibility[strings.TrimPrefix(name, VisibilityPrefix)] = v
	case name == AlphaMapAttribute:
		v, ok := value.(string)
		if !ok {
			return typeError(name, "string", value)
		}
		s.AlphaMap = v
	case name == MediumPriorityAttribute:
		v, ok := value.(int)
		if !ok {
			return typeError(name, "int", value)
		}
		s.MediumPriority = v
	case name == PhotonTargetAttribute:
		v, ok := value.(bool)
		if !ok {
			return typeError(name, "bool", value)
		}
		s.PhotonTarget = v
	case name == ShadingSamplesAttribute:
		v, ok := value.(int)
		if !ok || v < 1 {
			return typeError(name, "positive int", value)
		}
		s.ShadingSamples = v
	case name == DoubleSidedAttribute:
		v, ok := value.(bool)
		if !ok {
			return typeError(name, "bool", value)
		}
		s.DoubleSided = v
	}
	s.Attributes[name] = value
	return nil
}

func typeError(name, want string, got any) error {
	return fmt.Errorf("attribute %q expects a %s value, got %T: %w", name, want, got, core.ErrInvalidValue)
}

// GetAttribute returns a previously set attribute
func (s *State) GetAttribute(name string) (any, bool) {
	if name == NameAttribute {
		return s.Name, true
	}
	v, ok := s.Attributes[name]
	return v, ok
}

// AddShader appends a shader layer to the current network
func (s *State) AddShader(sh scene.Shader) {
	if sh.Layer == "" {
		sh.Layer = fmt.Sprintf("%s_%d", sh.Name, len(s.Shaders))
	}
	s.Shaders = append(s.Shaders, sh)
}

// SetSurface sets the closing surface shader of the network
func (s *State) SetSurface(sh scene.Shader) {
	if sh.Layer == "" {
		sh.Layer = "surface"
	}
	s.Surface = &sh
}

// ShadingStateValid reports whether a material can be created
func (s *State) ShadingStateValid() bool {
	return s.Surface != nil
}

// ShaderGroupHash hashes the shader network
func (s *State) ShaderGroupHash() core.Hash {
	h := core.NewHasher()
	h.AppendInt(len(s.Shaders))
	for _, sh := range s.Shaders {
		hashShader(h, sh)
	}
	if s.Surface != nil {
		hashShader(h, *s.Surface)
	}
	return h.Sum()
}

func hashShader(h *core.Hasher, sh scene.Shader) {
	h.AppendString(sh.Type)
	h.AppendString(sh.Name)
	h.AppendString(sh.Layer)
	h.Append(sh.Params)
}

// Hash feeds the attributes that affect converted geometry into h. The
// scope name is excluded so that renamed copies share geometry.
func (s *State) Hash(h *core.Hasher) {
	flags := s.VisibilityFlags()
	h.AppendInt(len(flags))
	for _, flag := range flags {
		h.AppendString(flag)
		h.Append(s.Visibility[flag])
	}
	h.AppendString(s.AlphaMap)
	h.AppendInt(s.MediumPriority)
	h.Append(s.PhotonTarget)
	h.AppendInt(s.ShadingSamples)
	h.Append(s.DoubleSided)
}

// VisibilityFlags returns the names of the explicitly set visibility flags
func (s *State) VisibilityFlags() []string {
	flags := make([]string, 0, len(s.Visibility))
	for flag := range s.Visibility {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	return flags
}

// VisibilityParams returns the visibility flags as a parameter dictionary
func (s *State) VisibilityParams() scene.ParamArray {
	pa := scene.ParamArray{}
	for flag, v := range s.Visibility {
		pa.Insert(flag, v)
	}
	return pa
}

// Visible reports whether a ray type sees geometry with this state
func (s *State) Visible(flag string) bool {
	v, ok := s.Visibility[flag]
	return !ok || v
}
