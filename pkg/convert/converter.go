// Package convert turns scene primitives into native scene graph objects,
// instancing repeated geometry by content hash.
package convert

import (
	"errors"
	"fmt"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// Option names understood by the converter
const (
	AutomaticInstancingOption = "as:automatic_instancing"
	MeshFileFormatOption      = "as:mesh_file_format"
)

// Backend produces a native object from one primitive, or from several
// motion samples of it
type Backend interface {
	Convert(name string, samples []primitive.Primitive) (*scene.Object, error)
}

// OptionSetter is implemented by backends with options of their own
type OptionSetter interface {
	SetOption(name string, value any) error
}

// Converter converts primitives through a Backend and caches the resulting
// assemblies by content hash
type Converter struct {
	backend       Backend
	logger        core.Logger
	interpolators *primitive.Interpolators

	automaticInstancing bool
	shutterOpen         float64
	shutterClose        float64

	cache       map[core.Hash]*scene.Assembly
	conversions int
}

// New creates a converter with automatic instancing enabled and no shutter
func New(backend Backend, logger core.Logger) *Converter {
	return &Converter{
		backend:             backend,
		logger:              core.OrDiscard(logger),
		interpolators:       primitive.DefaultInterpolators,
		automaticInstancing: true,
		cache:               make(map[core.Hash]*scene.Assembly),
	}
}

// SetOption applies a converter option. Options the converter does not
// handle itself are passed to the backend.
func (c *Converter) SetOption(name string, value any) error {
	if name == AutomaticInstancingOption {
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s expects a bool value: %w", name, core.ErrInvalidValue)
		}
		c.automaticInstancing = v
		return nil
	}
	if setter, ok := c.backend.(OptionSetter); ok {
		return setter.SetOption(name, value)
	}
	return fmt.Errorf("unknown converter option %q: %w", name, core.ErrInvalidValue)
}

// AutomaticInstancing reports whether repeated primitives are instanced
func (c *Converter) AutomaticInstancing() bool { return c.automaticInstancing }

// SetShutterInterval sets the camera shutter used for motion sampling
func (c *Converter) SetShutterInterval(shutterOpen, shutterClose float64) {
	c.shutterOpen, c.shutterClose = shutterOpen, shutterClose
}

// ShutterValid reports whether a usable (open < close) shutter is set
func (c *Converter) ShutterValid() bool {
	return c.shutterOpen < c.shutterClose
}

// Conversions returns how many times the backend produced an object
func (c *Converter) Conversions() int { return c.conversions }

// ConvertPrimitive converts a single primitive into an assembly inserted in
// container, returning a cached assembly when an identical primitive with the
// same attributes and material was converted before. It returns nil and
// logs a warning when the backend cannot convert the primitive.
func (c *Converter) ConvertPrimitive(prim primitive.Primitive, attrs *attributes.State, material string, container *scene.Assembly) *scene.Assembly {
	h := core.NewHasher()
	prim.Hash(h)
	attrs.Hash(h)
	h.AppendString(material)
	hash := h.Sum()

	if asm, ok := c.lookup(hash); ok {
		return asm
	}

	obj, err := c.backend.Convert(hash.String(), []primitive.Primitive{prim})
	if err != nil {
		c.logger.Warnf("convertPrimitive: Cannot convert primitive %s: %v", prim.TypeName(), err)
		return nil
	}
	return c.wrap(hash, obj, attrs, material, container)
}

// ConvertPrimitiveSamples converts a deforming primitive. Without a valid
// shutter, or when the samples cannot be interpolated onto the canonical
// sample times, only the first sample is converted. Errors are returned
// only for samples that cannot form a deformation (missing variables or
// differing topology).
func (c *Converter) ConvertPrimitiveSamples(times []float64, prims []primitive.Primitive, attrs *attributes.State, material string, container *scene.Assembly) (*scene.Assembly, error) {
	if len(prims) == 0 {
		return nil, nil
	}
	if len(prims) == 1 {
		return c.ConvertPrimitive(prims[0], attrs, material, container), nil
	}

	if !c.ShutterValid() {
		c.logger.Errorf("convertPrimitive: Camera shutter interval is invalid (%g >= %g), ignoring deformation motion blur.", c.shutterOpen, c.shutterClose)
		return c.ConvertPrimitive(prims[0], attrs, material, container), nil
	}

	if NeedsResampling(times, c.shutterOpen, c.shutterClose) {
		_, resampled, err := ResamplePrimitives(c.interpolators, times, prims, c.shutterOpen, c.shutterClose)
		if err != nil {
			c.logger.Warnf("convertPrimitive: Cannot resample primitive motion, using first sample: %v", err)
			return c.ConvertPrimitive(prims[0], attrs, material, container), nil
		}
		prims = resampled
	}

	h := core.NewHasher()
	for _, p := range prims {
		p.Hash(h)
	}
	attrs.Hash(h)
	h.AppendString(material)
	h.AppendInt(len(prims))
	h.AppendFloat(c.shutterOpen)
	h.AppendFloat(c.shutterClose)
	hash := h.Sum()

	if asm, ok := c.lookup(hash); ok {
		return asm, nil
	}

	obj, err := c.backend.Convert(hash.String(), prims)
	if err != nil {
		if errors.Is(err, core.ErrMissingVariable) || errors.Is(err, core.ErrTopologyMismatch) {
			return nil, fmt.Errorf("convertPrimitive: %w", err)
		}
		c.logger.Warnf("convertPrimitive: Cannot convert primitive %s: %v", prims[0].TypeName(), err)
		return nil, nil
	}
	return c.wrap(hash, obj, attrs, material, container), nil
}

func (c *Converter) lookup(hash core.Hash) (*scene.Assembly, bool) {
	if !c.automaticInstancing {
		return nil, false
	}
	asm, ok := c.cache[hash]
	return asm, ok
}

// wrap places obj in a new assembly with a single object instance
func (c *Converter) wrap(hash core.Hash, obj *scene.Object, attrs *attributes.State, material string, container *scene.Assembly) *scene.Assembly {
	c.conversions++
	name := hash.String()

	asm := scene.NewAssembly(name + "_assembly")
	obj.Name = name
	asm.Objects.Insert(obj)

	inst := &scene.ObjectInstance{
		Entity:    scene.Entity{Name: name + "_obj_instance", Params: scene.ParamArray{}},
		Object:    name,
		Transform: core.Identity(),
	}
	if material != "" {
		inst.FrontMaterials = map[string]string{"default": material}
		if attrs.DoubleSided {
			inst.BackMaterials = map[string]string{"default": material}
		}
	}
	if attrs.MediumPriority != 0 {
		inst.Params.Insert("medium_priority", attrs.MediumPriority)
	}
	if attrs.PhotonTarget {
		inst.Params.Insert("photon_target", true)
	}
	if flags := attrs.VisibilityParams(); len(flags) > 0 {
		inst.Params.Insert("visibility", flags)
	}
	asm.ObjectInstances.Insert(inst)

	container.Assemblies.InsertUnique(asm)
	if c.automaticInstancing {
		c.cache[hash] = asm
	}
	return asm
}
