package bridge

import (
	"strings"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/lights"
	"github.com/df07/go-scene-bridge/pkg/renderer"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// WorldBegin implements procedural.Renderer. It creates the main assembly
// that receives every light and primitive of the world.
func (r *Renderer) WorldBegin() {
	if r.transforms.Size() > 1 {
		r.logger.Warnf("worldBegin: Missing transformEnd() call detected.")
		r.transforms.Clear()
	}
	if r.main != nil {
		r.logger.Errorf("worldBegin: Nested worldBegin() call.")
		return
	}

	r.main = scene.NewAssembly(MainAssembly)
	r.target = r.main
	r.project.Scene.Assemblies.Insert(r.main)
	r.lights = lights.NewHandler(r.project, r.main, r.factories, r.logger)
}

// WorldEnd implements procedural.Renderer. Editable renders start the
// background render, batch renders write the project file and anything
// else renders the final configuration before returning.
func (r *Renderer) WorldEnd() {
	if r.main == nil {
		r.logger.Errorf("worldEnd: No matching worldBegin() call.")
		return
	}
	if r.transforms.Size() != 1 {
		r.logger.Warnf("worldEnd: Missing transformEnd() call detected.")
	}
	if r.instance != "" {
		r.logger.Warnf("worldEnd: Missing instanceEnd() call detected.")
		r.InstanceEnd()
	}

	r.defaultCamera()

	r.project.Scene.AssemblyInstances.Insert(
		scene.NewAssemblyInstance("assembly_inst", MainAssembly, transform.NewSequence(core.Identity())))

	switch {
	case r.isEditable():
		r.edit.StartRendering()
	case r.isProjectGen():
		opts := scene.WriteOptions{OmitGeometry: true, MeshFormat: r.batch.Format()}
		if err := scene.WriteProject(r.project, r.fileName, opts); err != nil {
			r.logger.Errorf("worldEnd: %v", err)
			return
		}
		r.logger.Infof("worldEnd: Wrote project %s", r.fileName)
	default:
		pr := renderer.NewProgressive(r.project, scene.FinalConfig, r.driver(), r.logger)
		if err := pr.Render(nil); err != nil {
			r.logger.Errorf("worldEnd: %v", err)
		}
	}
}

// TransformBegin implements procedural.Renderer
func (r *Renderer) TransformBegin() {
	r.transforms.Push()
}

// TransformEnd implements procedural.Renderer
func (r *Renderer) TransformEnd() {
	if err := r.transforms.Pop(); err != nil {
		r.logger.Warnf("transformEnd: No matching transformBegin() call.")
	}
}

// SetTransform implements procedural.Renderer
func (r *Renderer) SetTransform(m core.Mat44) {
	if r.motion.InsideMotionBlock() {
		r.motion.SetTransform(m)
		return
	}
	if err := r.transforms.SetTransform(m); err != nil {
		r.logger.Errorf("setTransform: %v", err)
	}
}

// ConcatTransform implements procedural.Renderer
func (r *Renderer) ConcatTransform(m core.Mat44) {
	if r.motion.InsideMotionBlock() {
		r.motion.ConcatTransform(m)
		return
	}
	if err := r.transforms.ConcatTransform(m); err != nil {
		r.logger.Errorf("concatTransform: %v", err)
	}
}

// GetTransform implements procedural.Renderer
func (r *Renderer) GetTransform() core.Mat44 {
	return r.transforms.Get()
}

// AttributeBegin implements procedural.Renderer. It also opens a transform scope.
func (r *Renderer) AttributeBegin() {
	r.TransformBegin()
	if err := r.attributes.Push(); err != nil {
		r.logger.Errorf("attributeBegin: %v", err)
	}
}

// AttributeEnd implements procedural.Renderer
func (r *Renderer) AttributeEnd() {
	if err := r.attributes.Pop(); err != nil {
		r.logger.Warnf("attributeEnd: No matching attributeBegin() call.")
	}
	r.TransformEnd()
}

// SetAttribute implements procedural.Renderer
func (r *Renderer) SetAttribute(name string, value any) {
	if err := r.attributes.Top().SetAttribute(name, value); err != nil {
		r.logger.Errorf("setAttribute: %v", err)
	}
}

// GetAttribute implements procedural.Renderer
func (r *Renderer) GetAttribute(name string) (any, bool) {
	return r.attributes.Top().GetAttribute(name)
}

// Shader implements procedural.Renderer. A surface shader set inside an
// attribute edit replaces the networks already created for the scope.
func (r *Renderer) Shader(shaderType, name string, params core.Params) {
	state := r.attributes.Top()
	switch shaderType {
	case "osl:shader", "shader":
		state.AddShader(scene.Shader{Type: "shader", Name: name, Params: params.Clone()})
	case "osl:surface", "surface":
		state.SetSurface(scene.Shader{Type: "surface", Name: name, Params: params.Clone()})
		if r.insideEditBlock() && r.main != nil {
			r.editShaderGroups(state)
		}
	default:
		r.logger.Warnf("shader: Unknown shader type %q.", shaderType)
	}
}

// Light implements procedural.Renderer. Models ending in
// "_environment_edf" declare the environment light; the one kept is named
// by the "as:environment_edf" option, or else the first declared.
func (r *Renderer) Light(name, handle string, params core.Params) {
	if r.lights == nil {
		r.logger.Errorf("light: Light specified before worldBegin.")
		return
	}

	model, ok := unprefixed(name)
	if !ok {
		return
	}

	if !isEnvironmentModel(model) {
		r.lights.Light(model, handle, r.transforms.Get(), params)
		return
	}

	lightName := r.attributes.Top().Name
	if selected, ok := r.stringOption(EnvironmentEDFOption); ok && selected != lightName {
		return
	}

	edfs := r.project.Scene.EnvironmentEDFs.Items()
	if r.insideEditBlock() {
		if len(edfs) > 0 && edfs[0].Name != handle {
			return
		}
	} else if len(edfs) > 0 {
		return
	}

	visible, _ := r.options[EnvironmentVisibleOption].(bool)
	r.lights.Environment(model, handle, visible, params)
}

// Illuminate implements procedural.Renderer
func (r *Renderer) Illuminate(handle string, on bool) {
	if r.lights == nil {
		r.logger.Errorf("illuminate: Called before worldBegin.")
		return
	}
	r.lights.Illuminate(handle, on)
}

// unprefixed strips the "as:" prefix from a model name. Names prefixed
// for another renderer are rejected.
func unprefixed(name string) (string, bool) {
	prefix, model, found := strings.Cut(name, ":")
	if !found {
		return name, true
	}
	return model, prefix == "as"
}

func isEnvironmentModel(model string) bool {
	return strings.HasSuffix(model, "_environment_edf")
}

// MotionBegin implements procedural.Renderer
func (r *Renderer) MotionBegin(times []float64) {
	if r.motion.InsideMotionBlock() {
		r.logger.Warnf("motionBegin: No matching motionEnd() call.")
		return
	}
	r.motion.MotionBegin(times)
}

// MotionEnd implements procedural.Renderer. Deformation samples that fail
// validation are returned as errors.
func (r *Renderer) MotionEnd() error {
	if !r.motion.InsideMotionBlock() {
		r.logger.Warnf("motionEnd: No matching motionBegin() call.")
		return nil
	}
	_, err := r.motion.MotionEnd(r.attributes.Top(), r.main, r.target)
	return err
}

// Command implements procedural.Renderer. "illuminate" switches a light
// by handle with the "handle" and "state" parameters.
func (r *Renderer) Command(name string, params core.Params) any {
	switch name {
	case "illuminate", "as:illuminate":
		handle, ok := params.String("handle")
		if !ok {
			r.logger.Errorf("command: %s expects a string \"handle\" parameter.", name)
			return nil
		}
		state, ok := params.Bool("state")
		if !ok {
			r.logger.Errorf("command: %s expects a bool \"state\" parameter.", name)
			return nil
		}
		r.Illuminate(handle, state)
		return nil
	}
	r.logger.Warnf("command: Not implemented: %q.", name)
	return nil
}

// EditBegin implements procedural.Renderer. The transform and attribute
// stacks start from their defaults in every edit.
func (r *Renderer) EditBegin(editType string, params core.Params) {
	if !r.isEditable() {
		r.logger.Warnf("editBegin: Non editable render.")
		return
	}
	r.transforms.Clear()
	r.attributes.Reset()
	r.edit.EditBegin(editType, params)
}

// EditEnd implements procedural.Renderer
func (r *Renderer) EditEnd() {
	if !r.isEditable() {
		r.logger.Warnf("editEnd: Non editable render.")
		return
	}
	r.edit.EditEnd()
}

// editShaderGroups applies the state's network to every shader group of
// the edited scope. An exact scope name restricts the edit to that scope.
func (r *Renderer) editShaderGroups(state *attributes.State) {
	exact := r.edit.ExactScopeName()
	scoped := state
	if exact != "" {
		copied := *state
		copied.Name = exact
		scoped = &copied
	}
	n := r.shading.EditShaderGroup(scoped, r.main, exact != "")
	r.logger.Debugf("shader: Edited %d shader groups of %q", n, scoped.Name)
}
