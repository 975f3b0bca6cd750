package scene

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/meshio"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// WriteOptions controls project serialization
type WriteOptions struct {
	// OmitGeometry skips writing mesh files for live objects. Used when the
	// geometry was already written to the side-car store during conversion.
	OmitGeometry bool

	// MeshFormat selects the mesh file format for live objects
	MeshFormat string
}

// GeometryDir is the side-car directory holding mesh files, relative to the project file
const GeometryDir = "_geometry"

type sampleDoc struct {
	Time   float64   `yaml:"time"`
	Matrix []float64 `yaml:"matrix,flow"`
}

type entityDoc struct {
	Name       string     `yaml:"name"`
	Model      string     `yaml:"model,omitempty"`
	Parameters ParamArray `yaml:"parameters,omitempty"`

	Base       string            `yaml:"base,omitempty"`
	Object     string            `yaml:"object,omitempty"`
	Assembly   string            `yaml:"assembly,omitempty"`
	Texture    string            `yaml:"texture,omitempty"`
	Values     []float64         `yaml:"values,flow,omitempty"`
	Filenames  []string          `yaml:"filenames,omitempty"`
	Shaders    []shaderDoc       `yaml:"shaders,omitempty"`
	Front      map[string]string `yaml:"front_materials,omitempty"`
	Back       map[string]string `yaml:"back_materials,omitempty"`
	Transform  []float64         `yaml:"transform,flow,omitempty"`
	Transforms []sampleDoc       `yaml:"transforms,omitempty"`
}

type shaderDoc struct {
	Type       string     `yaml:"type"`
	Name       string     `yaml:"name"`
	Layer      string     `yaml:"layer"`
	Parameters ParamArray `yaml:"parameters,omitempty"`
}

type assemblyDoc struct {
	Name              string        `yaml:"name"`
	Colors            []entityDoc   `yaml:"colors,omitempty"`
	Textures          []entityDoc   `yaml:"textures,omitempty"`
	TextureInstances  []entityDoc   `yaml:"texture_instances,omitempty"`
	ShaderGroups      []entityDoc   `yaml:"shader_groups,omitempty"`
	Materials         []entityDoc   `yaml:"materials,omitempty"`
	Lights            []entityDoc   `yaml:"lights,omitempty"`
	Objects           []entityDoc   `yaml:"objects,omitempty"`
	ObjectInstances   []entityDoc   `yaml:"object_instances,omitempty"`
	Assemblies        []assemblyDoc `yaml:"assemblies,omitempty"`
	AssemblyInstances []entityDoc   `yaml:"assembly_instances,omitempty"`
}

type sceneDoc struct {
	Cameras            []entityDoc   `yaml:"cameras,omitempty"`
	Colors             []entityDoc   `yaml:"colors,omitempty"`
	Textures           []entityDoc   `yaml:"textures,omitempty"`
	TextureInstances   []entityDoc   `yaml:"texture_instances,omitempty"`
	EnvironmentEDFs    []entityDoc   `yaml:"environment_edfs,omitempty"`
	EnvironmentShaders []entityDoc   `yaml:"environment_shaders,omitempty"`
	Environment        *entityDoc    `yaml:"environment,omitempty"`
	Assemblies         []assemblyDoc `yaml:"assemblies,omitempty"`
	AssemblyInstances  []entityDoc   `yaml:"assembly_instances,omitempty"`
}

type projectDoc struct {
	Project        string      `yaml:"project"`
	SearchPaths    []string    `yaml:"search_paths,omitempty"`
	Frame          *entityDoc  `yaml:"frame,omitempty"`
	Display        *entityDoc  `yaml:"display,omitempty"`
	Configurations []entityDoc `yaml:"configurations"`
	Scene          sceneDoc    `yaml:"scene"`
}

// WriteProject serializes the project to a YAML file at path
func WriteProject(p *Project, path string, opts WriteOptions) error {
	w := &projectWriter{dir: filepath.Dir(path), opts: opts}
	if w.opts.MeshFormat == "" {
		w.opts.MeshFormat = meshio.DefaultFormat
	}

	doc, err := w.project(p)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project %s: %w", path, err)
	}
	return nil
}

type projectWriter struct {
	dir  string
	opts WriteOptions
}

func (w *projectWriter) project(p *Project) (*projectDoc, error) {
	doc := &projectDoc{Project: p.Name, SearchPaths: p.SearchPaths}
	if p.Frame != nil {
		d := entity(&p.Frame.Entity)
		doc.Frame = &d
	}
	if p.Display != nil {
		d := entity(&p.Display.Entity)
		doc.Display = &d
	}
	for _, cfg := range p.Configurations.Items() {
		d := entity(&cfg.Entity)
		d.Base = cfg.Base
		doc.Configurations = append(doc.Configurations, d)
	}

	s := p.Scene
	for _, cam := range s.Cameras.Items() {
		d := entity(&cam.Entity)
		d.Transforms = samples(cam.Transform)
		doc.Scene.Cameras = append(doc.Scene.Cameras, d)
	}
	doc.Scene.Colors = colors(s.Colors.Items())
	doc.Scene.Textures = entities(s.Textures.Items())
	for _, ti := range s.TextureInstances.Items() {
		d := entity(&ti.Entity)
		d.Texture = ti.Texture
		doc.Scene.TextureInstances = append(doc.Scene.TextureInstances, d)
	}
	doc.Scene.EnvironmentEDFs = entities(s.EnvironmentEDFs.Items())
	doc.Scene.EnvironmentShaders = entities(s.EnvironmentShaders.Items())
	if s.Environment != nil {
		d := entity(&s.Environment.Entity)
		doc.Scene.Environment = &d
	}
	for _, a := range s.Assemblies.Items() {
		ad, err := w.assembly(a)
		if err != nil {
			return nil, err
		}
		doc.Scene.Assemblies = append(doc.Scene.Assemblies, ad)
	}
	doc.Scene.AssemblyInstances = assemblyInstances(s.AssemblyInstances.Items())
	return doc, nil
}

func (w *projectWriter) assembly(a *Assembly) (assemblyDoc, error) {
	doc := assemblyDoc{Name: a.Name}
	doc.Colors = colors(a.Colors.Items())
	doc.Textures = entities(a.Textures.Items())
	for _, ti := range a.TextureInstances.Items() {
		d := entity(&ti.Entity)
		d.Texture = ti.Texture
		doc.TextureInstances = append(doc.TextureInstances, d)
	}
	for _, sg := range a.ShaderGroups.Items() {
		d := entity(&sg.Entity)
		for _, sh := range sg.Shaders {
			d.Shaders = append(d.Shaders, shaderDoc{
				Type:       sh.Type,
				Name:       sh.Name,
				Layer:      sh.Layer,
				Parameters: NewParamArray(sh.Params),
			})
		}
		doc.ShaderGroups = append(doc.ShaderGroups, d)
	}
	doc.Materials = entities(a.Materials.Items())
	for _, l := range a.Lights.Items() {
		d := entity(&l.Entity)
		d.Transform = l.Transform.Values()
		doc.Lights = append(doc.Lights, d)
	}
	for _, o := range a.Objects.Items() {
		d := entity(&o.Entity)
		filenames, err := w.objectFiles(o)
		if err != nil {
			return doc, err
		}
		d.Filenames = filenames
		doc.Objects = append(doc.Objects, d)
	}
	for _, oi := range a.ObjectInstances.Items() {
		d := entity(&oi.Entity)
		d.Object = oi.Object
		d.Transform = oi.Transform.Values()
		d.Front = oi.FrontMaterials
		d.Back = oi.BackMaterials
		doc.ObjectInstances = append(doc.ObjectInstances, d)
	}
	for _, child := range a.Assemblies.Items() {
		cd, err := w.assembly(child)
		if err != nil {
			return doc, err
		}
		doc.Assemblies = append(doc.Assemblies, cd)
	}
	doc.AssemblyInstances = assemblyInstances(a.AssemblyInstances.Items())
	return doc, nil
}

// objectFiles returns the files an object references, writing live
// geometry to the side-car directory unless geometry is omitted
func (w *projectWriter) objectFiles(o *Object) ([]string, error) {
	if o.Mesh == nil || w.opts.OmitGeometry {
		return o.Filenames, nil
	}

	ext, err := meshio.Extension(w.opts.MeshFormat)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(w.dir, GeometryDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create geometry directory: %w", err)
	}

	poses := append([]MeshPose{{Positions: o.Mesh.Positions, Normals: o.Mesh.Normals}}, o.Mesh.Poses...)
	filenames := make([]string, 0, len(poses))
	for i, pose := range poses {
		name := fmt.Sprintf("%s.%s", o.Name, ext)
		if len(poses) > 1 {
			name = fmt.Sprintf("%s_%d.%s", o.Name, i, ext)
		}
		rel := filepath.Join(GeometryDir, name)
		mesh := &meshio.Mesh{Positions: pose.Positions, Normals: pose.Normals, Triangles: o.Mesh.Triangles}
		if err := meshio.WriteFile(filepath.Join(w.dir, rel), w.opts.MeshFormat, mesh); err != nil {
			return nil, err
		}
		filenames = append(filenames, filepath.ToSlash(rel))
	}
	return filenames, nil
}

func entity(e *Entity) entityDoc {
	return entityDoc{Name: e.Name, Model: e.Model, Parameters: e.Params}
}

func entities[T interface{ base() *Entity }](items []T) []entityDoc {
	var out []entityDoc
	for _, item := range items {
		out = append(out, entity(item.base()))
	}
	return out
}

func colors(items []*ColorEntity) []entityDoc {
	var out []entityDoc
	for _, c := range items {
		d := entity(&c.Entity)
		d.Values = c.Values
		out = append(out, d)
	}
	return out
}

func assemblyInstances(items []*AssemblyInstance) []entityDoc {
	var out []entityDoc
	for _, ai := range items {
		d := entity(&ai.Entity)
		d.Assembly = ai.Assembly
		d.Transforms = samples(ai.Transforms)
		out = append(out, d)
	}
	return out
}

func samples(seq transform.Sequence) []sampleDoc {
	if seq.Size() == 0 {
		return []sampleDoc{{Time: 0, Matrix: core.Identity().Values()}}
	}
	out := make([]sampleDoc, seq.Size())
	for i := 0; i < seq.Size(); i++ {
		s := seq.Sample(i)
		out[i] = sampleDoc{Time: s.Time, Matrix: s.Matrix.Values()}
	}
	return out
}
