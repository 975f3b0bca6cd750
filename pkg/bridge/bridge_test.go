package bridge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/display"
	"github.com/df07/go-scene-bridge/pkg/edit"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/procedural"
	"github.com/df07/go-scene-bridge/pkg/renderer"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

func newTestRenderer(t *testing.T) (*Renderer, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	r := NewInteractive(core.NewLogger(&buf, log.DebugLevel))
	t.Cleanup(func() { _ = r.Close() })
	return r, &buf
}

func unitCube() *primitive.MeshPrimitive {
	return primitive.NewCube(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
}

func mainAssembly(t *testing.T, r *Renderer) *scene.Assembly {
	t.Helper()
	asm, ok := r.Project().Scene.Assemblies.Get(MainAssembly)
	require.True(t, ok)
	return asm
}

func TestRenderer_IdenticalMeshesShareOneConversion(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.WorldBegin()
	for i := range 3 {
		r.AttributeBegin()
		r.SetAttribute("name", "cube")
		r.ConcatTransform(core.Translate(core.NewVec3(float64(i)*3, 0, 0)))
		require.NoError(t, r.Mesh(unitCube()))
		r.AttributeEnd()
	}

	assert.Equal(t, 1, r.Converter().Conversions())
	main := mainAssembly(t, r)
	assert.Equal(t, 1, main.Assemblies.Len())
	assert.Equal(t,
		[]string{"cube_assembly_instance", "cube_assembly_instance1", "cube_assembly_instance2"},
		main.AssemblyInstances.Names())

	inst, ok := main.AssemblyInstances.Get("cube_assembly_instance2")
	require.True(t, ok)
	assert.Equal(t, core.NewVec3(6, 0, 0), inst.Transforms.Earliest().Translation())
}

func TestRenderer_MeshOutsideWorldIsIgnored(t *testing.T) {
	r, buf := newTestRenderer(t)
	require.NoError(t, r.Mesh(unitCube()))
	assert.Contains(t, buf.String(), "mesh: Geometry not inside world block, ignoring.")
	assert.Equal(t, 0, r.Converter().Conversions())
}

func TestRenderer_InvalidMeshReturnsError(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.WorldBegin()
	bad := primitive.NewMesh([]int{3}, []int{0, 1}, []core.Vec3{{}, {X: 1}, {Y: 1}})
	err := r.Mesh(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mesh:")
}

func TestRenderer_PointsAndCurvesAreNotImplemented(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.WorldBegin()
	require.NoError(t, r.Points(primitive.NewPoints([]core.Vec3{{}, {X: 1}})))
	assert.Contains(t, buf.String(), "points: Not implemented.")
}

func TestRenderer_ProceduralExpandsImmediately(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.WorldBegin()
	cube := unitCube()
	r.Procedural(procedural.Func{Bounds: cube.Bound(), Fn: func(inner procedural.Renderer) {
		assert.NoError(t, inner.Mesh(cube))
	}})
	assert.Equal(t, 1, r.Converter().Conversions())
	assert.Equal(t, 1, mainAssembly(t, r).AssemblyInstances.Len())
}

func TestRenderer_BatchWritesProjectAndGeometry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	r := NewBatch(path, core.DiscardLogger())

	r.Camera("cam", core.Params{"resolution": core.V2i{32, 24}})
	r.WorldBegin()
	require.NoError(t, r.Mesh(unitCube()))
	r.WorldEnd()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "assembly_inst")
	assert.Contains(t, string(data), "pinhole_camera")

	entries, err := os.ReadDir(filepath.Join(dir, scene.GeometryDir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenderer_BatchWithoutFileName(t *testing.T) {
	var buf bytes.Buffer
	NewBatch("", core.NewLogger(&buf, log.DebugLevel))
	assert.Contains(t, buf.String(), "Empty project filename")
}

func TestRenderer_ConfigOptions(t *testing.T) {
	r, _ := newTestRenderer(t)
	final := r.Project().Configuration(scene.FinalConfig)
	interactive := r.Project().Configuration(scene.InteractiveConfig)

	r.SetOption("as:cfg:pt:max_path_length", 8)
	assert.Equal(t, "8", final.String("pt.max_path_length", ""))
	assert.Equal(t, "8", interactive.String("pt.max_path_length", ""))

	r.SetOption("as:cfg:pt:max_path_length", 0)
	assert.False(t, final.Exists("pt.max_path_length"))
	assert.False(t, interactive.Exists("pt.max_path_length"))

	r.SetOption("as:cfg:generic_frame_renderer:passes", 4)
	assert.Equal(t, "4", final.String("generic_frame_renderer.passes", ""))
	assert.Equal(t, "permanent", final.String("shading_result_framebuffer", ""))
	assert.Equal(t, "true", final.String("uniform_pixel_renderer.decorrelate_pixels", ""))

	r.SetOption("as:cfg:generic_frame_renderer:passes", 1)
	assert.Equal(t, "ephemeral", final.String("shading_result_framebuffer", ""))
	assert.Equal(t, "false", interactive.String("uniform_pixel_renderer.decorrelate_pixels", ""))

	r.SetOption("as:cfg:shading_engine:override_shading:mode", "albedo")
	assert.Equal(t, "albedo", final.String("shading_engine.override_shading.mode", ""))
	r.SetOption("as:cfg:shading_engine:override_shading:mode", "no_override")
	assert.False(t, final.Exists("shading_engine.override_shading"))

	r.SetOption("as:cfg:pt:max_ray_intensity", 2.5)
	assert.Equal(t, "2.5", final.String("pt.max_ray_intensity", ""))
	r.SetOption("as:cfg:pt:max_ray_intensity", 0.0)
	assert.False(t, final.Exists("pt.max_ray_intensity"))
}

func TestRenderer_OptionsAreStored(t *testing.T) {
	r, buf := newTestRenderer(t)

	r.SetOption("ri:shadingRate", 1.0)
	assert.NotContains(t, buf.String(), "Unknown option")

	r.SetOption("bogus", 3)
	assert.Contains(t, buf.String(), `setOption: Unknown option "bogus".`)

	v, ok := r.GetOption("bogus")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	r.SetOption(SearchPathOption, "/textures")
	assert.Contains(t, r.Project().SearchPaths, "/textures")
}

func TestRenderer_EditableOptionCreatesHandler(t *testing.T) {
	r, _ := newTestRenderer(t)
	assert.Nil(t, r.EditHandler())
	r.SetOption(EditableOption, true)
	assert.NotNil(t, r.EditHandler())
	r.SetOption(EditableOption, false)
	assert.Nil(t, r.EditHandler())
}

func TestRenderer_CameraSelection(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.SetOption(CameraOption, "second")

	r.Camera("first", core.Params{})
	assert.Equal(t, 0, r.Project().Scene.Cameras.Len())

	r.SetTransform(core.Translate(core.NewVec3(0, 0, 5)))
	r.Camera("second", core.Params{
		"resolution":     core.V2i{320, 240},
		"projection:fov": 45.0,
		"shutter":        core.V2f{0, 0.5},
	})

	cameras := r.Project().Scene.Cameras
	require.Equal(t, 1, cameras.Len())
	cam := cameras.Items()[0]
	assert.Equal(t, "second", cam.Name)
	assert.Equal(t, "pinhole_camera", cam.Model)
	assert.Equal(t, 45.0, cam.Params.Float("horizontal_fov", 0))
	assert.Equal(t, core.NewVec3(0, 0, 5), cam.Transform.Earliest().Translation())
	assert.True(t, r.Converter().ShutterValid())

	frame := r.Project().Frame.Params
	assert.Equal(t, "second", frame.String("camera", ""))
	assert.Equal(t, "320 240", frame.String("resolution", ""))
	assert.Equal(t, "0 0 319 239", frame.String("crop_window", ""))
}

func TestRenderer_UnsupportedProjection(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.Camera("ortho", core.Params{"projection": "orthographic"})
	assert.Equal(t, 0, r.Project().Scene.Cameras.Len())
	assert.Contains(t, buf.String(), "camera: Couldn't create camera.")
}

func TestRenderer_DefaultCameraUsesResolutionOption(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.SetOption(ResolutionOption, core.V2i{8, 6})
	r.defaultCamera()

	cam, ok := r.Project().ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, "camera", cam.Name)
	assert.Equal(t, "8 6", r.Project().Frame.Params.String("resolution", ""))
}

func TestRenderer_EnvironmentSelection(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.SetOption(EnvironmentEDFOption, "sky")
	r.WorldBegin()

	for _, name := range []string{"ground", "sky"} {
		r.AttributeBegin()
		r.SetAttribute("name", name)
		r.Light("as:constant_environment_edf", name+"Light", core.Params{"radiance": core.Color{R: 1, G: 1, B: 1}})
		r.AttributeEnd()
	}

	edfs := r.Project().Scene.EnvironmentEDFs
	require.Equal(t, 1, edfs.Len())
	assert.Equal(t, "skyLight", edfs.Items()[0].Name)
}

func TestRenderer_FirstEnvironmentWins(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.SetOption(EnvironmentVisibleOption, true)
	r.WorldBegin()
	r.Light("constant_environment_edf", "a", core.Params{})
	r.Light("constant_environment_edf", "b", core.Params{})

	sc := r.Project().Scene
	require.Equal(t, 1, sc.EnvironmentEDFs.Len())
	assert.Equal(t, "a", sc.EnvironmentEDFs.Items()[0].Name)
	assert.Equal(t, 1, sc.EnvironmentShaders.Len())
}

func TestRenderer_Lights(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.Light("point_light", "early", core.Params{})
	assert.Contains(t, buf.String(), "light: Light specified before worldBegin.")

	r.WorldBegin()
	r.Light("ri:pointlight", "other", core.Params{})
	r.ConcatTransform(core.Translate(core.NewVec3(0, 4, 0)))
	r.Light("as:point_light", "key", core.Params{"intensity": core.Color{R: 1, G: 1, B: 1}})

	main := mainAssembly(t, r)
	require.Equal(t, 1, main.Lights.Len())
	light, ok := main.Lights.Get("key")
	require.True(t, ok)
	assert.Equal(t, core.NewVec3(0, 4, 0), light.Transform.Translation())

	r.Command("illuminate", core.Params{"handle": "key", "state": false})
	assert.Equal(t, 0, main.Lights.Len())
	r.Command("as:illuminate", core.Params{"handle": "key", "state": true})
	assert.Equal(t, 1, main.Lights.Len())

	r.Command("illuminate", core.Params{"state": true})
	assert.Contains(t, buf.String(), `expects a string "handle" parameter`)

	assert.Nil(t, r.Command("flush", nil))
	assert.Contains(t, buf.String(), `command: Not implemented: "flush".`)
}

func TestRenderer_UnbalancedWorldBegin(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.TransformBegin()
	r.WorldBegin()
	assert.Contains(t, buf.String(), "worldBegin: Missing transformEnd() call detected.")

	r.TransformEnd()
	assert.Contains(t, buf.String(), "transformEnd: No matching transformBegin() call.")
}

func TestRenderer_TransformMotionBlock(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.Camera("cam", core.Params{"shutter": core.V2f{0, 1}})
	r.WorldBegin()

	r.AttributeBegin()
	r.MotionBegin([]float64{0, 1})
	r.SetTransform(core.Identity())
	r.SetTransform(core.Translate(core.NewVec3(1, 0, 0)))
	require.NoError(t, r.MotionEnd())
	require.NoError(t, r.Mesh(unitCube()))
	r.AttributeEnd()

	insts := mainAssembly(t, r).AssemblyInstances.Items()
	require.Len(t, insts, 1)
	assert.Equal(t, 2, insts[0].Transforms.Size())
	assert.Equal(t, core.NewVec3(1, 0, 0), insts[0].Transforms.Evaluate(1).Translation())
}

func TestRenderer_DeformationWithoutShutter(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.WorldBegin()

	r.MotionBegin([]float64{0, 1})
	require.NoError(t, r.Mesh(unitCube()))
	require.NoError(t, r.Mesh(primitive.NewCube(core.NewVec3(-2, -2, -2), core.NewVec3(2, 2, 2))))
	require.NoError(t, r.MotionEnd())

	assert.Contains(t, buf.String(), "shutter interval is invalid")
	assert.Equal(t, 1, r.Converter().Conversions())
}

func TestRenderer_MotionEndWithoutBegin(t *testing.T) {
	r, buf := newTestRenderer(t)
	require.NoError(t, r.MotionEnd())
	assert.Contains(t, buf.String(), "motionEnd: No matching motionBegin() call.")
}

func TestRenderer_Instancing(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.WorldBegin()

	r.ConcatTransform(core.Translate(core.NewVec3(10, 0, 0)))
	r.InstanceBegin("tree", core.Params{})
	assert.Equal(t, core.Identity(), r.GetTransform())
	require.NoError(t, r.Mesh(unitCube()))
	r.Instance("tree")
	r.InstanceEnd()
	assert.Contains(t, buf.String(), `instance: Instance "tree" cannot reference itself.`)
	assert.Equal(t, core.NewVec3(10, 0, 0), r.GetTransform().Translation())

	for i := range 2 {
		r.AttributeBegin()
		r.SetAttribute("name", "forest")
		r.ConcatTransform(core.Translate(core.NewVec3(0, 0, float64(i))))
		r.Instance("tree")
		r.AttributeEnd()
	}
	r.Instance("bush")
	assert.Contains(t, buf.String(), `instance: Unknown instance "bush".`)

	main := mainAssembly(t, r)
	tree, ok := main.Assemblies.Get("tree")
	require.True(t, ok)
	assert.Equal(t, 1, tree.AssemblyInstances.Len())

	insts := main.AssemblyInstances.Items()
	require.Len(t, insts, 2)
	for _, inst := range insts {
		assert.Equal(t, "tree", inst.Assembly)
	}
	assert.Equal(t, core.NewVec3(10, 0, 1), insts[1].Transforms.Earliest().Translation())
}

func TestRenderer_CachedGeometryResolvesOutsideInstance(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.WorldBegin()

	r.InstanceBegin("tree", core.Params{})
	require.NoError(t, r.Mesh(unitCube()))
	r.InstanceEnd()
	r.Instance("tree")
	require.NoError(t, r.Mesh(unitCube()))

	assert.Equal(t, 1, r.Converter().Conversions())
	main := mainAssembly(t, r)
	tree, ok := main.Assemblies.Get("tree")
	require.True(t, ok)
	assert.Equal(t, 0, tree.Assemblies.Len())
	require.Equal(t, 1, tree.AssemblyInstances.Len())

	geom := tree.AssemblyInstances.Items()[0].Assembly
	_, ok = main.Assemblies.Get(geom)
	assert.True(t, ok)
	for _, inst := range main.AssemblyInstances.Items() {
		_, ok := main.Assemblies.Get(inst.Assembly)
		assert.True(t, ok, inst.Name)
	}

	world, err := renderer.NewWorld(r.Project(), r.logger)
	require.NoError(t, err)
	assert.Equal(t, 24, world.Stats().TotalShapes)
	assert.NotContains(t, buf.String(), "references unknown assembly")
}

func TestRenderer_SurfaceShaderCreatesMaterial(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.WorldBegin()
	r.AttributeBegin()
	r.Shader("surface", "matte", core.Params{"Kd": 0.5})
	require.NoError(t, r.Mesh(unitCube()))
	r.AttributeEnd()

	main := mainAssembly(t, r)
	assert.Equal(t, 1, main.ShaderGroups.Len())
	require.Equal(t, 1, main.Materials.Len())
	assert.Equal(t, "osl_material", main.Materials.Items()[0].Model)
}

func TestRenderer_AlphaMapGetsItsOwnMaterial(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.WorldBegin()
	for _, alpha := range []string{"", "leaf_mask.exr"} {
		r.AttributeBegin()
		if alpha != "" {
			r.SetAttribute("as:alpha_map", alpha)
		}
		r.Shader("surface", "matte", core.Params{"Kd": 0.5})
		require.NoError(t, r.Mesh(unitCube()))
		r.AttributeEnd()
	}

	main := mainAssembly(t, r)
	require.Equal(t, 2, main.Materials.Len())
	var alphas []string
	for _, m := range main.Materials.Items() {
		alphas = append(alphas, m.Params.String("alpha_map", ""))
	}
	assert.ElementsMatch(t, []string{"", "leaf_mask.exr"}, alphas)
}

func TestRenderer_DisplayTypes(t *testing.T) {
	r, _ := newTestRenderer(t)

	r.Display("beauty.png", "png", "rgba", core.Params{})
	frame := r.Project().Frame.Params
	assert.Equal(t, "beauty.png", frame.String("output_filename", ""))
	assert.Equal(t, "srgb", frame.String("color_space", ""))
	assert.Nil(t, r.Project().Display)

	r.Display("preview", "memory", "rgba", core.Params{"quantize": 0})
	d := r.Project().Display
	require.NotNil(t, d)
	assert.Equal(t, "memory", d.Model)
	assert.Equal(t, "memory", d.Params.String("plugin_name", ""))
	assert.Equal(t, "0", d.Params.String("beauty.quantize", ""))
	assert.NotNil(t, r.driver())
}

func TestRenderer_UnknownDisplayIsSkipped(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.Display("ie", "ieDisplay", "rgba", core.Params{})
	assert.Nil(t, r.driver())
	assert.Contains(t, buf.String(), "display:")
}

func TestRenderer_FinalRenderWritesImage(t *testing.T) {
	r, _ := newTestRenderer(t)
	out := filepath.Join(t.TempDir(), "beauty.png")
	mem := display.NewMemory()
	r.AddDisplayDriver(mem)

	r.Camera("cam", core.Params{"resolution": core.V2i{4, 3}})
	r.Display(out, "png", "rgba", core.Params{})
	r.WorldBegin()
	r.Light("constant_environment_edf", "sky", core.Params{"radiance": core.Color{R: 0.5, G: 0.5, B: 0.5}})
	r.ConcatTransform(core.Translate(core.NewVec3(0, 0, -5)))
	require.NoError(t, r.Mesh(unitCube()))
	r.WorldEnd()

	_, err := os.Stat(out)
	assert.NoError(t, err)

	last, ok := mem.Last()
	require.True(t, ok)
	assert.True(t, last.Final)
}

func TestRenderer_EditableRender(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.SetOption(EditableOption, true)
	r.SetOption("as:cfg:progressive_frame_renderer:max_passes", 2)
	mem := display.NewMemory()
	r.AddDisplayDriver(mem)

	r.Camera("cam", core.Params{"resolution": core.V2i{4, 4}})
	r.WorldBegin()
	r.AttributeBegin()
	r.SetAttribute("name", "obj")
	r.Shader("surface", "matte", core.Params{"Kd": 0.5})
	require.NoError(t, r.Mesh(unitCube()))
	r.AttributeEnd()
	r.WorldEnd()

	h := r.EditHandler()
	require.NotNil(t, h)
	assert.Equal(t, 1, h.Starts())
	r.Wait()
	assert.Greater(t, mem.Passes(), 0)

	r.EditBegin(edit.AttributeEdit, core.Params{edit.ExactScopeNameParam: "obj"})
	r.EditBegin(edit.AttributeEdit, core.Params{edit.ExactScopeNameParam: "obj"})
	assert.Equal(t, 1, h.Stops())

	r.AttributeBegin()
	r.SetAttribute("name", "obj")
	r.Shader("surface", "matte", core.Params{"Kd": 0.9})
	r.AttributeEnd()

	r.EditEnd()
	assert.Equal(t, 1, h.Starts())
	r.EditEnd()
	assert.Equal(t, 2, h.Starts())
	assert.Contains(t, buf.String(), `shader: Edited 1 shader groups of "obj"`)

	sg := mainAssembly(t, r).ShaderGroups.Items()[0]
	require.NotEmpty(t, sg.Shaders)
	assert.Equal(t, 0.9, sg.Shaders[len(sg.Shaders)-1].Params["Kd"])
}

func TestRenderer_EditOnNonEditableRender(t *testing.T) {
	r, buf := newTestRenderer(t)
	r.EditBegin(edit.AttributeEdit, core.Params{})
	r.EditEnd()
	assert.Contains(t, buf.String(), "editBegin: Non editable render.")
	assert.Contains(t, buf.String(), "editEnd: Non editable render.")
}
