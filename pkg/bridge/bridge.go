// Package bridge is the project backend: it receives the scene-description
// protocol and builds a native project, which it either writes to a
// project file or renders with the progressive renderer.
package bridge

import (
	"path/filepath"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/convert"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/display"
	"github.com/df07/go-scene-bridge/pkg/edit"
	"github.com/df07/go-scene-bridge/pkg/lights"
	"github.com/df07/go-scene-bridge/pkg/motion"
	"github.com/df07/go-scene-bridge/pkg/procedural"
	"github.com/df07/go-scene-bridge/pkg/renderer"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// MainAssembly is the name of the assembly holding the whole world
const MainAssembly = "assembly"

// Renderer implements procedural.Renderer on top of a native project
type Renderer struct {
	logger    core.Logger
	project   *scene.Project
	factories *scene.Factories

	fileName string
	batch    *convert.BatchBackend

	options    map[string]any
	transforms *transform.Stack
	attributes *attributes.Stack
	shading    *attributes.ShadingCache
	converter  *convert.Converter
	motion     *motion.Handler
	lights     *lights.Handler
	edit       *edit.Handler

	main *scene.Assembly

	// target receives assembly instances of converted geometry: the main
	// assembly, or the assembly of an open instance definition. Converted
	// assemblies always live in main.
	target   *scene.Assembly
	instance string

	drivers       []display.Driver
	projectDriver display.Driver
	driverOpened  bool
}

// NewInteractive creates a backend that keeps geometry in memory and
// renders at worldEnd
func NewInteractive(logger core.Logger) *Renderer {
	r := newRenderer(logger)

	// Progressive display drivers expect full precision pixels
	r.project.Frame.Params.Insert("pixel_format", "float")

	r.converter = convert.New(convert.NewInteractiveBackend(), r.logger)
	r.motion = motion.NewHandler(r.transforms, r.converter, r.logger)
	return r
}

// NewBatch creates a backend that writes a project file to fileName at
// worldEnd. Geometry goes to a side-car directory next to it.
func NewBatch(fileName string, logger core.Logger) *Renderer {
	r := newRenderer(logger)
	if fileName == "" {
		r.logger.Errorf("bridge: Empty project filename.")
	}

	r.fileName = fileName
	dir := filepath.Dir(fileName)
	r.project.Path = fileName
	r.project.SearchPaths = append(r.project.SearchPaths, dir)

	r.batch = convert.NewBatchBackend(dir, r.logger)
	r.converter = convert.New(r.batch, r.logger)
	r.motion = motion.NewHandler(r.transforms, r.converter, r.logger)
	return r
}

func newRenderer(logger core.Logger) *Renderer {
	r := &Renderer{
		logger:     core.OrDiscard(logger),
		project:    scene.NewProject("project"),
		factories:  scene.NewFactories(),
		options:    make(map[string]any),
		transforms: transform.NewStack(),
		attributes: attributes.NewStack(),
		shading:    attributes.NewShadingCache(),
	}

	interactive := r.project.Configuration(scene.InteractiveConfig)
	interactive.Insert("sample_renderer", "generic")
	interactive.Insert("sample_generator", "generic")
	interactive.Insert("tile_renderer", "generic")
	interactive.Insert("frame_renderer", "progressive")
	interactive.Insert("lighting_engine", "pt")
	interactive.Insert("sampling_mode", "qmc")
	interactive.Insert("spectrum_mode", "rgb")
	interactive.Insert("progressive_frame_renderer.max_fps", "5")

	final := r.project.Configuration(scene.FinalConfig)
	final.Insert("sample_renderer", "generic")
	final.Insert("sample_generator", "generic")
	final.Insert("tile_renderer", "generic")
	final.Insert("frame_renderer", "generic")
	final.Insert("lighting_engine", "pt")
	final.Insert("pixel_renderer", "uniform")
	final.Insert("sampling_mode", "qmc")
	final.Insert("spectrum_mode", "rgb")
	final.Insert("uniform_pixel_renderer.samples", "1")

	r.project.Frame = &scene.Frame{Entity: scene.Entity{Name: "beauty", Params: scene.ParamArray{}}}
	r.project.Frame.Params.Insert("resolution", "640 480")
	r.project.Scene.Environment = &scene.Environment{Entity: scene.Entity{Name: "environment", Params: scene.ParamArray{}}}
	return r
}

// Project returns the native project being built
func (r *Renderer) Project() *scene.Project { return r.project }

// Converter returns the primitive converter
func (r *Renderer) Converter() *convert.Converter { return r.converter }

// EditHandler returns the edit handler of an editable render, or nil
func (r *Renderer) EditHandler() *edit.Handler { return r.edit }

// Factories returns the model registries used for lights and cameras
func (r *Renderer) Factories() *scene.Factories { return r.factories }

// AddDisplayDriver attaches a driver receiving every rendered pass in
// addition to the project's display
func (r *Renderer) AddDisplayDriver(d display.Driver) {
	r.drivers = append(r.drivers, d)
}

// Wait blocks until an editable render finishes on its own
func (r *Renderer) Wait() {
	if r.edit != nil {
		r.edit.Wait()
	}
}

// Close stops any background render and closes the display drivers
func (r *Renderer) Close() error {
	if r.edit != nil {
		r.edit.StopRendering()
	}
	if d := r.driver(); d != nil {
		return d.Close()
	}
	return nil
}

func (r *Renderer) isEditable() bool   { return r.edit != nil }
func (r *Renderer) isProjectGen() bool { return r.fileName != "" }

func (r *Renderer) insideEditBlock() bool {
	return r.edit != nil && r.edit.InsideEditBlock()
}

// driver returns the drivers passes are delivered to, opening the
// project display on first use. Unknown display types are logged and skipped.
func (r *Renderer) driver() display.Driver {
	if !r.driverOpened && r.project.Display != nil {
		r.driverOpened = true
		d, err := display.Open(r.project.Display)
		if err != nil {
			r.logger.Warnf("display: %v", err)
		} else {
			r.projectDriver = d
		}
	}

	var drivers display.Multi
	if r.projectDriver != nil {
		drivers = append(drivers, r.projectDriver)
	}
	drivers = append(drivers, r.drivers...)
	if len(drivers) == 0 {
		return nil
	}
	return drivers
}

// newMasterRenderer builds the renderer of an interactive render session
func (r *Renderer) newMasterRenderer() (edit.MasterRenderer, error) {
	return renderer.NewProgressive(r.project, scene.InteractiveConfig, r.driver(), r.logger), nil
}

var _ procedural.Renderer = (*Renderer)(nil)
