package scene

// Scene is the top level container of cameras, environment and assemblies
type Scene struct {
	Cameras            Container[*Camera]
	Assemblies         Container[*Assembly]
	AssemblyInstances  Container[*AssemblyInstance]
	EnvironmentEDFs    Container[*EnvironmentEDF]
	EnvironmentShaders Container[*EnvironmentShader]
	Colors             Container[*ColorEntity]
	Textures           Container[*Texture]
	TextureInstances   Container[*TextureInstance]
	Environment        *Environment
}

// NewScene creates an empty scene
func NewScene() *Scene {
	return &Scene{}
}

// Project is the root of the native scene graph
type Project struct {
	Name           string
	Path           string
	SearchPaths    []string
	Frame          *Frame
	Display        *Display
	Configurations Container[*Configuration]
	Scene          *Scene
}

// Names of the built-in configurations
const (
	FinalConfig       = "final"
	InteractiveConfig = "interactive"
)

// NewProject creates a project with the built-in "final" and
// "interactive" configurations and an empty scene
func NewProject(name string) *Project {
	p := &Project{Name: name, Scene: NewScene()}
	p.Configurations.Insert(&Configuration{
		Entity: Entity{Name: FinalConfig, Params: ParamArray{}},
		Base:   "base_final",
	})
	p.Configurations.Insert(&Configuration{
		Entity: Entity{Name: InteractiveConfig, Params: ParamArray{}},
		Base:   "base_interactive",
	})
	return p
}

// Configuration returns the named configuration's parameters
func (p *Project) Configuration(name string) ParamArray {
	cfg, ok := p.Configurations.Get(name)
	if !ok {
		return ParamArray{}
	}
	return cfg.Params
}

// ActiveCamera returns the camera named by the frame, or the first camera
func (p *Project) ActiveCamera() (*Camera, bool) {
	if p.Frame != nil {
		if name, ok := p.Frame.Params.Get("camera"); ok {
			if cam, ok := p.Scene.Cameras.Get(name); ok {
				return cam, true
			}
		}
	}
	items := p.Scene.Cameras.Items()
	if len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

// FindMaterial looks a material up in the assembly chain from innermost to outermost
func FindMaterial(name string, chain []*Assembly) (*Material, *Assembly, bool) {
	for i := len(chain) - 1; i >= 0; i-- {
		if m, ok := chain[i].Materials.Get(name); ok {
			return m, chain[i], true
		}
	}
	return nil, nil, false
}
