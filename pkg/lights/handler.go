// Package lights turns light and environment declarations into scene
// entities and switches them on and off by handle.
package lights

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/h2non/filetype"
	"github.com/mitchellh/go-homedir"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// RadianceMapParam names the environment parameter converted to a texture
const RadianceMapParam = "radiance_map"

// entry is a light declaration kept so it can be recreated after being
// switched off
type entry struct {
	environment bool
	model       string
	visible     bool
	transform   core.Mat44
	params      core.Params

	// names of the native entities created for the light
	colors           []string
	textures         []string
	textureInstances []string
	shader           string
	on               bool
}

// Handler owns the lights of one project. Singular lights live in the
// main assembly, environment lights in the scene.
type Handler struct {
	project   *scene.Project
	assembly  *scene.Assembly
	factories *scene.Factories
	logger    core.Logger

	entries map[string]*entry
	created int
}

// NewHandler creates a light handler for project. Singular lights are
// inserted in assembly.
func NewHandler(project *scene.Project, assembly *scene.Assembly, factories *scene.Factories, logger core.Logger) *Handler {
	return &Handler{
		project:   project,
		assembly:  assembly,
		factories: factories,
		logger:    core.OrDiscard(logger),
		entries:   make(map[string]*entry),
	}
}

// Created returns how many native lights were created, counting re-creations
func (h *Handler) Created() int { return h.created }

// Handles returns the declared light handles
func (h *Handler) Handles() []string {
	handles := make([]string, 0, len(h.entries))
	for handle := range h.entries {
		handles = append(handles, handle)
	}
	sort.Strings(handles)
	return handles
}

// IsOn reports whether the light with the given handle is illuminating
func (h *Handler) IsOn(handle string) bool {
	e, ok := h.entries[handle]
	return ok && e.on
}

// Environment declares an environment light. A repeated handle replaces
// the previous declaration.
func (h *Handler) Environment(model, handle string, visible bool, params core.Params) {
	h.declare(handle, &entry{
		environment: true,
		model:       model,
		visible:     visible,
		transform:   core.Identity(),
		params:      params.Clone(),
	})
}

// Light declares a singular light placed by m
func (h *Handler) Light(model, handle string, m core.Mat44, params core.Params) {
	h.declare(handle, &entry{
		model:     model,
		transform: m,
		params:    params.Clone(),
	})
}

func (h *Handler) declare(handle string, e *entry) {
	if old, ok := h.entries[handle]; ok && old.on {
		h.remove(handle, old)
	}
	h.entries[handle] = e
	h.create(handle, e)
}

// Illuminate switches a light on or off. Switching on a light that is
// already on does nothing; switching it back on after it was switched off
// recreates it from its declaration.
func (h *Handler) Illuminate(handle string, on bool) {
	e, ok := h.entries[handle]
	if !ok {
		h.logger.Warnf("illuminate: Unknown light handle %q.", handle)
		return
	}
	switch {
	case on && !e.on:
		h.create(handle, e)
	case !on && e.on:
		h.remove(handle, e)
	}
}

func (h *Handler) create(handle string, e *entry) {
	if e.environment {
		h.createEnvironment(handle, e)
	} else {
		h.createLight(handle, e)
	}
}

func (h *Handler) createLight(handle string, e *entry) {
	params := h.convertParams(handle, e, &h.assembly.Colors, nil)
	light, err := h.factories.Lights.Create(e.model, handle, params)
	if err != nil {
		h.logger.Errorf("light: %v", err)
		h.discardColors(e, &h.assembly.Colors)
		return
	}
	light.Transform = e.transform
	h.assembly.Lights.Insert(light)
	e.on = true
	h.created++
}

func (h *Handler) createEnvironment(handle string, e *entry) {
	sc := h.project.Scene
	params := h.convertParams(handle, e, &sc.Colors, sc)
	edf, err := h.factories.EnvironmentEDFs.Create(e.model, handle, params)
	if err != nil {
		h.logger.Errorf("light: %v", err)
		h.discardColors(e, &sc.Colors)
		return
	}
	sc.EnvironmentEDFs.Insert(edf)

	env := &scene.Environment{Entity: scene.Entity{Name: "environment", Params: scene.ParamArray{}}}
	env.Params.Insert("environment_edf", handle)
	if e.visible {
		shader := &scene.EnvironmentShader{Entity: scene.Entity{
			Name:   handle + "_shader",
			Model:  "edf_environment_shader",
			Params: scene.ParamArray{},
		}}
		shader.Params.Insert("environment_edf", handle)
		sc.EnvironmentShaders.Insert(shader)
		env.Params.Insert("environment_shader", shader.Name)
		e.shader = shader.Name
	}
	sc.Environment = env
	e.on = true
	h.created++
}

// convertParams builds the native parameters of a light, hoisting color
// values into color entities and, for environments, the radiance map into
// a texture and texture instance
func (h *Handler) convertParams(handle string, e *entry, colors *scene.Container[*scene.ColorEntity], sc *scene.Scene) scene.ParamArray {
	e.colors, e.textures, e.textureInstances, e.shader = nil, nil, nil, ""
	out := scene.ParamArray{}

	for _, name := range e.params.SortedKeys() {
		switch v := e.params[name].(type) {
		case core.Color:
			c := &scene.ColorEntity{
				Entity: scene.Entity{Name: handle + "_" + name, Params: scene.ParamArray{}},
				Values: []float64{v.R, v.G, v.B},
			}
			c.Params.Insert("color_space", "linear_rgb")
			colorName := colors.InsertUnique(c)
			e.colors = append(e.colors, colorName)
			out.Insert(name, colorName)

		case string:
			if name == RadianceMapParam && sc != nil {
				instance, err := h.radianceMap(handle, v, e, sc)
				if err != nil {
					h.logger.Errorf("light: Cannot load radiance map for %q: %v", handle, err)
					continue
				}
				out.Insert(name, instance)
				continue
			}
			out.Insert(name, v)

		default:
			if s := core.DataToString(v); s != "" {
				out.Insert(name, s)
			} else {
				h.logger.Warnf("light: Ignoring parameter %q of unsupported type %T.", name, v)
			}
		}
	}
	return out
}

func (h *Handler) radianceMap(handle, path string, e *entry, sc *scene.Scene) (string, error) {
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}

	kind, err := filetype.MatchFile(resolved)
	if err != nil {
		return "", err
	}
	colorSpace := "linear_rgb"
	switch {
	case kind == filetype.Unknown:
		h.logger.Warnf("light: Unrecognised radiance map format %q, loading anyway.", resolved)
	case kind.MIME.Type != "image":
		return "", fmt.Errorf("%s is %s, not an image: %w", resolved, kind.MIME.Value, core.ErrInvalidValue)
	case kind.Extension == "png" || kind.Extension == "jpg":
		colorSpace = "srgb"
	}

	tex := &scene.Texture{Entity: scene.Entity{Name: handle + "_radiance_map", Model: "disk_texture_2d", Params: scene.ParamArray{}}}
	tex.Params.Insert("filename", resolved)
	tex.Params.Insert("color_space", colorSpace)
	texName := sc.Textures.InsertUnique(tex)
	e.textures = append(e.textures, texName)

	inst := &scene.TextureInstance{
		Entity:  scene.Entity{Name: texName + "_instance", Params: scene.ParamArray{}},
		Texture: texName,
	}
	inst.Params.Insert("addressing_mode", "wrap")
	inst.Params.Insert("filtering_mode", "bilinear")
	instName := sc.TextureInstances.InsertUnique(inst)
	e.textureInstances = append(e.textureInstances, instName)
	return instName, nil
}

// resolve expands "~" and looks relative paths up in the project search paths
func (h *Handler) resolve(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		if _, err := os.Stat(expanded); err != nil {
			return "", err
		}
		return expanded, nil
	}

	for _, dir := range h.project.SearchPaths {
		dir, err := homedir.Expand(dir)
		if err != nil {
			continue
		}
		candidate := filepath.Join(dir, expanded)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(expanded); err != nil {
		return "", fmt.Errorf("%q not found in search paths: %w", path, err)
	}
	return expanded, nil
}

func (h *Handler) discardColors(e *entry, colors *scene.Container[*scene.ColorEntity]) {
	for _, name := range e.colors {
		colors.Remove(name)
	}
	e.colors = nil
}

// remove deletes every native entity created for the light
func (h *Handler) remove(handle string, e *entry) {
	if e.environment {
		sc := h.project.Scene
		sc.EnvironmentEDFs.Remove(handle)
		h.discardColors(e, &sc.Colors)
		for _, name := range e.textureInstances {
			sc.TextureInstances.Remove(name)
		}
		for _, name := range e.textures {
			sc.Textures.Remove(name)
		}
		if e.shader != "" {
			sc.EnvironmentShaders.Remove(e.shader)
		}
		if sc.Environment != nil && sc.Environment.Params.String("environment_edf", "") == handle {
			sc.Environment = nil
		}
	} else {
		h.assembly.Lights.Remove(handle)
		h.discardColors(e, &h.assembly.Colors)
	}
	e.textures, e.textureInstances, e.shader = nil, nil, ""
	e.on = false
}
