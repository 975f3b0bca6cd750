package scene

import (
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// Camera is a camera with a possibly motion sampled transform
type Camera struct {
	Entity
	Transform transform.Sequence
}

// Frame describes the output image
type Frame struct {
	Entity
}

// Resolution returns the frame resolution, defaulting to 640x480
func (f *Frame) Resolution() (int, int) {
	res := f.Params.Floats("resolution")
	if len(res) != 2 || res[0] < 1 || res[1] < 1 {
		return 640, 480
	}
	return int(res[0]), int(res[1])
}

// Display is an output driver attached to the project
type Display struct {
	Entity
}

// Configuration is a named set of render settings layered over a base
type Configuration struct {
	Entity
	Base string
}

// Light is a singular light placed by a transform
type Light struct {
	Entity
	Transform core.Mat44
}

// EnvironmentEDF is an environment emission function
type EnvironmentEDF struct {
	Entity
}

// EnvironmentShader shades rays escaping to the environment
type EnvironmentShader struct {
	Entity
}

// Environment binds the active environment EDF and shader
type Environment struct {
	Entity
}

// ColorEntity is a named color value
type ColorEntity struct {
	Entity
	Values []float64
}

// Color returns the entity value as an RGB color
func (c *ColorEntity) Color() core.Color {
	switch len(c.Values) {
	case 1:
		return core.Color{R: c.Values[0], G: c.Values[0], B: c.Values[0]}
	case 3:
		return core.Color{R: c.Values[0], G: c.Values[1], B: c.Values[2]}
	}
	return core.Color{}
}

// Texture is an image file texture
type Texture struct {
	Entity
}

// TextureInstance references a texture with sampling settings
type TextureInstance struct {
	Entity
	Texture string
}

// Shader is one layer of a shader group
type Shader struct {
	Type   string
	Name   string
	Layer  string
	Params core.Params
}

// ShaderGroup is a network of shader layers
type ShaderGroup struct {
	Entity
	Shaders []Shader
}

// Material binds a surface shader group
type Material struct {
	Entity
}

// MeshPose holds the per-motion-sample data of a deforming mesh
type MeshPose struct {
	Positions []core.Vec3
	Normals   []core.Vec3
	Tangents  []core.Vec3
}

// MeshData is live triangle geometry held in memory
type MeshData struct {
	Positions []core.Vec3
	Normals   []core.Vec3 // per vertex, may be empty
	Tangents  []core.Vec3 // per vertex, may be empty
	Triangles [][3]int

	// Poses holds motion samples after the first, which lives in Positions
	Poses []MeshPose
}

// MotionSegmentCount returns the number of motion segments
func (m *MeshData) MotionSegmentCount() int {
	return len(m.Poses)
}

// Object is a geometric object. Interactive objects carry live Mesh data,
// file backed objects reference one file per motion sample.
type Object struct {
	Entity
	Mesh      *MeshData
	Filenames []string
}

// ObjectInstance places an object with material assignments
type ObjectInstance struct {
	Entity
	Object         string
	Transform      core.Mat44
	FrontMaterials map[string]string
	BackMaterials  map[string]string
}

// AssemblyInstance places an assembly with a motion sampled transform
type AssemblyInstance struct {
	Entity
	Assembly   string
	Transforms transform.Sequence
}

// Assembly is a self contained sub-scene
type Assembly struct {
	Entity
	Objects           Container[*Object]
	ObjectInstances   Container[*ObjectInstance]
	Assemblies        Container[*Assembly]
	AssemblyInstances Container[*AssemblyInstance]
	Lights            Container[*Light]
	Colors            Container[*ColorEntity]
	Textures          Container[*Texture]
	TextureInstances  Container[*TextureInstance]
	Materials         Container[*Material]
	ShaderGroups      Container[*ShaderGroup]
}

// NewAssembly creates an empty assembly
func NewAssembly(name string) *Assembly {
	return &Assembly{Entity: Entity{Name: name, Params: ParamArray{}}}
}

// NewAssemblyInstance creates an instance of the named assembly
func NewAssemblyInstance(name, assembly string, transforms transform.Sequence) *AssemblyInstance {
	return &AssemblyInstance{
		Entity:     Entity{Name: name, Params: ParamArray{}},
		Assembly:   assembly,
		Transforms: transforms,
	}
}
