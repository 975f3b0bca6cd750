package renderer

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/geometry"
	"github.com/df07/go-scene-bridge/pkg/lights"
	"github.com/df07/go-scene-bridge/pkg/loaders"
	"github.com/df07/go-scene-bridge/pkg/meshio"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// DefaultAlbedo is the reflectance of surfaces without a usable shader
var DefaultAlbedo = core.NewVec3(0.8, 0.8, 0.8)

// Shader parameters read as diffuse color, in order of preference
var albedoParams = []string{"color", "base_color", "Cs", "Cd", "reflectance", "Kd"}

// World is a project flattened into world space triangles, singular
// lights and an environment
type World struct {
	bvh     *geometry.BVH
	lights  []lights.Light
	env     lights.Environment
	albedos []core.Vec3
	camera  *Camera

	project  *scene.Project
	baseDir  string
	surfaces map[string]int
	meshes   map[string]*scene.MeshData
	logger   core.Logger
}

// NewWorld flattens the project's scene. Objects and lights that cannot be
// resolved are skipped with a warning; unreadable mesh files are errors.
func NewWorld(p *scene.Project, logger core.Logger) (*World, error) {
	w := &World{
		project:  p,
		surfaces: make(map[string]int),
		meshes:   make(map[string]*scene.MeshData),
		logger:   core.OrDiscard(logger),
	}
	if p.Path != "" {
		w.baseDir = filepath.Dir(p.Path)
	}

	width, height := 640, 480
	if p.Frame != nil {
		width, height = p.Frame.Resolution()
	}
	if cam, ok := p.ActiveCamera(); ok {
		w.camera = NewSceneCamera(cam, width, height)
	} else {
		w.logger.Warnf("render: Project has no camera, using the default view.")
		w.camera = NewCamera(core.Identity(), DefaultHorizontalFOV, width, height)
	}

	var shapes []geometry.Shape
	sc := p.Scene
	for _, inst := range sc.AssemblyInstances.Items() {
		asm, ok := sc.Assemblies.Get(inst.Assembly)
		if !ok {
			w.logger.Warnf("render: Assembly instance %q references unknown assembly %q.", inst.Name, inst.Assembly)
			continue
		}
		s, err := w.flatten(asm, earliest(inst), []*scene.Assembly{asm}, inst.Params)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s...)
	}

	w.bvh = geometry.NewBVH(shapes)
	w.env = w.environment()
	return w, nil
}

// Hit implements integrator.Scene
func (w *World) Hit(ray core.Ray, tMin, tMax float64, hit *geometry.HitRecord) bool {
	return w.bvh.Hit(ray, tMin, tMax, hit)
}

// Lights implements integrator.Scene
func (w *World) Lights() []lights.Light { return w.lights }

// Environment implements integrator.Scene
func (w *World) Environment() lights.Environment { return w.env }

// Albedo implements integrator.Scene
func (w *World) Albedo(surface int) core.Vec3 {
	if surface < 0 || surface >= len(w.albedos) {
		return DefaultAlbedo
	}
	return w.albedos[surface]
}

// Camera returns the camera rays are generated from
func (w *World) Camera() *Camera { return w.camera }

// Stats returns the acceleration structure statistics
func (w *World) Stats() geometry.Stats { return w.bvh.Stats() }

func earliest(inst *scene.AssemblyInstance) core.Mat44 {
	if inst.Transforms.Size() == 0 {
		return core.Identity()
	}
	return inst.Transforms.Earliest()
}

// flatten places the contents of asm with m and recurses into its
// assembly instances. chain lists the enclosing assemblies, outermost first.
func (w *World) flatten(asm *scene.Assembly, m core.Mat44, chain []*scene.Assembly, instParams scene.ParamArray) ([]geometry.Shape, error) {
	if !cameraVisible(instParams) {
		return nil, nil
	}

	var shapes []geometry.Shape
	for _, oi := range asm.ObjectInstances.Items() {
		if !cameraVisible(oi.Params) {
			continue
		}
		obj, ok := asm.Objects.Get(oi.Object)
		if !ok {
			w.logger.Warnf("render: Object instance %q references unknown object %q.", oi.Name, oi.Object)
			continue
		}
		mesh, err := w.meshOf(obj)
		if err != nil {
			return nil, err
		}
		if mesh == nil {
			continue
		}
		surface := w.surface(oi.FrontMaterials["default"], chain)
		shapes = append(shapes, geometry.MeshTriangles(mesh, oi.Transform.Multiply(m), surface)...)
	}

	for _, l := range asm.Lights.Items() {
		if light := w.light(l, l.Transform.Multiply(m), chain); light != nil {
			w.lights = append(w.lights, light)
		}
	}

	for _, inst := range asm.AssemblyInstances.Items() {
		child, ok := findAssembly(inst.Assembly, chain)
		if !ok {
			w.logger.Warnf("render: Assembly instance %q references unknown assembly %q.", inst.Name, inst.Assembly)
			continue
		}
		s, err := w.flatten(child, earliest(inst).Multiply(m), append(chain[:len(chain):len(chain)], child), inst.Params)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s...)
	}
	return shapes, nil
}

func cameraVisible(params scene.ParamArray) bool {
	return params.Bool("visibility.camera", true)
}

func findAssembly(name string, chain []*scene.Assembly) (*scene.Assembly, bool) {
	for i := len(chain) - 1; i >= 0; i-- {
		if a, ok := chain[i].Assemblies.Get(name); ok {
			return a, true
		}
	}
	return nil, false
}

// meshOf returns the live mesh of an object, reading file backed objects
// once. Only the first motion sample file is used.
func (w *World) meshOf(obj *scene.Object) (*scene.MeshData, error) {
	if obj.Mesh != nil {
		return obj.Mesh, nil
	}
	if len(obj.Filenames) == 0 {
		w.logger.Warnf("render: Object %q has no geometry.", obj.Name)
		return nil, nil
	}

	path := obj.Filenames[0]
	if !filepath.IsAbs(path) && w.baseDir != "" {
		path = filepath.Join(w.baseDir, path)
	}
	if mesh, ok := w.meshes[path]; ok {
		return mesh, nil
	}

	m, err := meshio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: object %q: %w", obj.Name, err)
	}
	mesh := &scene.MeshData{Positions: m.Positions, Normals: m.Normals, Triangles: m.Triangles}
	w.meshes[path] = mesh
	return mesh, nil
}

// surface returns the albedo index of a material, resolving it once
func (w *World) surface(material string, chain []*scene.Assembly) int {
	if idx, ok := w.surfaces[material]; ok {
		return idx
	}
	albedo := DefaultAlbedo
	if material != "" {
		albedo = w.materialAlbedo(material, chain)
	}
	w.albedos = append(w.albedos, albedo)
	idx := len(w.albedos) - 1
	w.surfaces[material] = idx
	return idx
}

// materialAlbedo reads the diffuse color of the surface shader bound to a
// material: the last layer of its shader group carrying a color parameter
func (w *World) materialAlbedo(name string, chain []*scene.Assembly) core.Vec3 {
	mat, owner, ok := scene.FindMaterial(name, chain)
	if !ok {
		w.logger.Warnf("render: Unknown material %q.", name)
		return DefaultAlbedo
	}
	groupName, ok := mat.Params.Get("osl_surface")
	if !ok {
		return DefaultAlbedo
	}
	group, ok := owner.ShaderGroups.Get(groupName)
	if !ok {
		return DefaultAlbedo
	}

	for i := len(group.Shaders) - 1; i >= 0; i-- {
		if albedo, ok := shaderAlbedo(group.Shaders[i].Params); ok {
			return albedo
		}
	}
	return DefaultAlbedo
}

func shaderAlbedo(params core.Params) (core.Vec3, bool) {
	for _, name := range albedoParams {
		switch v := params[name].(type) {
		case core.Color:
			return scaleByKd(v.Vec3(), name, params), true
		case core.Vec3:
			return scaleByKd(v, name, params), true
		case []float64:
			if len(v) == 3 {
				return scaleByKd(core.NewVec3(v[0], v[1], v[2]), name, params), true
			}
		case float64:
			return core.NewVec3(v, v, v), true
		}
	}
	return core.Vec3{}, false
}

// scaleByKd applies a scalar "Kd" weight to a color read from another parameter
func scaleByKd(c core.Vec3, from string, params core.Params) core.Vec3 {
	if from == "Kd" {
		return c
	}
	if kd, ok := params.Float("Kd"); ok {
		return c.Multiply(kd)
	}
	return c
}

// color resolves a color parameter that holds either literal values or the
// name of a color entity in the assembly chain or the scene
func (w *World) color(params scene.ParamArray, name string, def core.Vec3, chain []*scene.Assembly) core.Vec3 {
	if fs := params.Floats(name); len(fs) == 1 || len(fs) == 3 {
		return params.Vec3(name, def)
	}
	ref, ok := params.Get(name)
	if !ok {
		return def
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if c, ok := chain[i].Colors.Get(ref); ok {
			return c.Color().Vec3()
		}
	}
	if c, ok := w.project.Scene.Colors.Get(ref); ok {
		return c.Color().Vec3()
	}
	w.logger.Warnf("render: Unknown color %q.", ref)
	return def
}

// light converts a light entity placed by m
func (w *World) light(l *scene.Light, m core.Mat44, chain []*scene.Assembly) lights.Light {
	multiplier := l.Params.Float("intensity_multiplier", 1)
	position := m.Translation()
	axis := m.TransformDirection(core.NewVec3(0, 0, -1)).Normalize()

	switch l.Model {
	case "point_light":
		return &lights.PointLight{
			Position:  position,
			Intensity: w.color(l.Params, "intensity", core.NewVec3(1, 1, 1), chain).Multiply(multiplier),
		}
	case "spot_light":
		return &lights.SpotLight{
			PointLight: lights.PointLight{
				Position:  position,
				Intensity: w.color(l.Params, "intensity", core.NewVec3(1, 1, 1), chain).Multiply(multiplier),
			},
			Axis:       axis,
			InnerAngle: l.Params.Float("inner_angle", 20),
			OuterAngle: l.Params.Float("outer_angle", 30),
		}
	case "directional_light", "sun_light":
		irradiance := w.color(l.Params, "irradiance", core.NewVec3(1, 1, 1), chain)
		if l.Params.Exists("radiance") {
			irradiance = w.color(l.Params, "radiance", irradiance, chain)
		}
		return &lights.DirectionalLight{
			Direction:  axis,
			Irradiance: irradiance.Multiply(l.Params.Float("radiance_multiplier", multiplier)),
		}
	}
	w.logger.Warnf("render: Unsupported light model %q for %q.", l.Model, l.Name)
	return nil
}

// environment converts the scene's active environment EDF
func (w *World) environment() lights.Environment {
	sc := w.project.Scene
	if sc.Environment == nil {
		return nil
	}
	edfName, ok := sc.Environment.Params.Get("environment_edf")
	if !ok {
		return nil
	}
	edf, ok := sc.EnvironmentEDFs.Get(edfName)
	if !ok {
		w.logger.Warnf("render: Unknown environment EDF %q.", edfName)
		return nil
	}

	params := edf.Params
	multiplier := params.Float("radiance_multiplier", 1)
	white := core.NewVec3(1, 1, 1)
	switch edf.Model {
	case "constant_environment_edf":
		return &lights.ConstantEnvironment{
			Radiance: w.color(params, "radiance", white, nil).Multiply(multiplier),
		}
	case "gradient_environment_edf":
		return &lights.GradientEnvironment{
			Horizon: w.color(params, "horizon_radiance", white, nil).Multiply(multiplier),
			Zenith:  w.color(params, "zenith_radiance", white, nil).Multiply(multiplier),
		}
	case "constant_hemisphere_environment_edf":
		return &lights.HemisphereEnvironment{
			Upper: w.color(params, "upper_hemi_radiance", white, nil).Multiply(multiplier),
			Lower: w.color(params, "lower_hemi_radiance", core.Vec3{}, nil).Multiply(multiplier),
		}
	case "latlong_map_environment_edf":
		return w.latLong(params, multiplier)
	}
	w.logger.Warnf("render: Unsupported environment EDF model %q.", edf.Model)
	return nil
}

// latLong loads the radiance map texture of a lat-long environment
func (w *World) latLong(params scene.ParamArray, multiplier float64) lights.Environment {
	sc := w.project.Scene
	instName, ok := params.Get(lights.RadianceMapParam)
	if !ok {
		instName, ok = params.Get("radiance")
	}
	if !ok {
		w.logger.Warnf("render: Lat-long environment has no radiance map.")
		return nil
	}
	inst, ok := sc.TextureInstances.Get(instName)
	if !ok {
		w.logger.Warnf("render: Unknown texture instance %q.", instName)
		return nil
	}
	tex, ok := sc.Textures.Get(inst.Texture)
	if !ok {
		w.logger.Warnf("render: Unknown texture %q.", inst.Texture)
		return nil
	}

	path := tex.Params.String("filename", "")
	if !filepath.IsAbs(path) && w.baseDir != "" {
		path = filepath.Join(w.baseDir, path)
	}
	img, err := loaders.LoadImage(path)
	if err != nil {
		w.logger.Warnf("render: Cannot load radiance map %q: %v", path, err)
		return nil
	}
	if tex.Params.String("color_space", "linear_rgb") == "srgb" {
		for i, p := range img.Pixels {
			img.Pixels[i] = srgbToLinear(p)
		}
	}
	return &lights.LatLongEnvironment{
		Width:      img.Width,
		Height:     img.Height,
		Pixels:     img.Pixels,
		Multiplier: multiplier,
	}
}

func srgbToLinear(c core.Vec3) core.Vec3 {
	channel := func(v float64) float64 {
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return core.NewVec3(channel(c.X), channel(c.Y), channel(c.Z))
}
