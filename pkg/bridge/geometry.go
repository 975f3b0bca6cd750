package bridge

import (
	"fmt"

	"github.com/df07/go-scene-bridge/pkg/convert"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/procedural"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// Mesh implements procedural.Renderer. The mesh is converted into the main
// assembly (or found in the instance cache) and placed with the current
// transform in the current target.
func (r *Renderer) Mesh(mesh *primitive.MeshPrimitive) error {
	if r.main == nil {
		r.logger.Warnf("mesh: Geometry not inside world block, ignoring.")
		return nil
	}
	if err := mesh.Validate(); err != nil {
		return fmt.Errorf("mesh: %w", err)
	}

	material := r.currentMaterialName()
	if r.motion.InsideMotionBlock() {
		r.motion.Primitive(mesh, material)
		return nil
	}

	if asm := r.converter.ConvertPrimitive(mesh, r.attributes.Top(), material, r.main); asm != nil {
		r.createAssemblyInstance(asm.Name)
	}
	return nil
}

// Points implements procedural.Renderer. Points are not supported.
func (r *Renderer) Points(points *primitive.PointsPrimitive) error {
	if err := points.Validate(); err != nil {
		return fmt.Errorf("points: %w", err)
	}
	r.logger.Warnf("points: Not implemented.")
	return nil
}

// Curves implements procedural.Renderer. Curves are not supported.
func (r *Renderer) Curves(curves *primitive.CurvesPrimitive) error {
	if err := curves.Validate(); err != nil {
		return fmt.Errorf("curves: %w", err)
	}
	r.logger.Warnf("curves: Not implemented.")
	return nil
}

// Procedural implements procedural.Renderer. Procedurals are expanded immediately.
func (r *Renderer) Procedural(p procedural.Procedural) {
	p.Render(r)
}

// InstanceBegin implements procedural.Renderer. Geometry up to the
// matching InstanceEnd goes into a new assembly named name, relative to
// an identity transform.
func (r *Renderer) InstanceBegin(name string, params core.Params) {
	if r.main == nil {
		r.logger.Warnf("instanceBegin: Instance not inside world block, ignoring.")
		return
	}
	if r.instance != "" {
		r.logger.Errorf("instanceBegin: Instance %q is already open.", r.instance)
		return
	}
	if _, exists := r.main.Assemblies.Get(name); exists {
		r.logger.Warnf("instanceBegin: Redefining instance %q.", name)
	}

	asm := scene.NewAssembly(name)
	asm.Params = scene.NewParamArray(params)
	r.main.Assemblies.Insert(asm)

	r.instance = name
	r.target = asm
	r.AttributeBegin()
	r.transforms.SetTransform(core.Identity())
}

// InstanceEnd implements procedural.Renderer
func (r *Renderer) InstanceEnd() {
	if r.instance == "" {
		r.logger.Warnf("instanceEnd: No matching instanceBegin() call.")
		return
	}
	r.AttributeEnd()
	r.instance = ""
	r.target = r.main
}

// Instance implements procedural.Renderer. It places the named instance
// assembly with the current transform.
func (r *Renderer) Instance(name string) {
	if r.main == nil {
		r.logger.Warnf("instance: Instance not inside world block, ignoring.")
		return
	}
	if name == r.instance {
		r.logger.Errorf("instance: Instance %q cannot reference itself.", name)
		return
	}
	if _, ok := r.main.Assemblies.Get(name); !ok {
		r.logger.Errorf("instance: Unknown instance %q.", name)
		return
	}
	r.createAssemblyInstance(name)
}

// currentMaterialName materializes the shading state as a material in the
// main assembly. It returns "" when no surface shader is set.
func (r *Renderer) currentMaterialName() string {
	state := r.attributes.Top()
	if !state.ShadingStateValid() {
		return ""
	}
	sg := r.shading.CreateShaderGroup(state, r.main)
	return r.shading.CreateMaterial(state, r.main, sg)
}

func (r *Renderer) createAssemblyInstance(assembly string) *scene.AssemblyInstance {
	return convert.CreateAssemblyInstance(r.target, assembly, r.attributes.Top(), r.transforms.Top())
}
