package bridge

import (
	"strings"

	"github.com/df07/go-scene-bridge/pkg/convert"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/edit"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// Option names with dedicated handling
const (
	ConfigOptionPrefix       = "as:cfg:"
	SearchPathOption         = "as:searchpath"
	EnvironmentEDFOption     = "as:environment_edf"
	EnvironmentVisibleOption = "as:environment_edf_background"
	EditableOption           = "editable"
	CameraOption             = "render:camera"
	ResolutionOption         = "camera:resolution"
)

// SetOption implements procedural.Renderer. Every value is stored for
// GetOption; "as:cfg:" options also update both render configurations.
func (r *Renderer) SetOption(name string, value any) {
	r.options[name] = value

	switch {
	case strings.HasPrefix(name, ConfigOptionPrefix):
		r.setConfigOption(strings.ReplaceAll(strings.TrimPrefix(name, ConfigOptionPrefix), ":", "."), value)

	case strings.HasPrefix(name, "as:"):
		switch name {
		case SearchPathOption:
			path, ok := value.(string)
			if !ok {
				r.logger.Errorf("setOption: %s option expects a string value.", name)
				return
			}
			r.project.SearchPaths = append(r.project.SearchPaths, path)
		case convert.AutomaticInstancingOption, convert.MeshFileFormatOption:
			if err := r.converter.SetOption(name, value); err != nil {
				r.logger.Warnf("setOption: %v", err)
			}
		}

	case strings.Contains(name, ":"):
		// Options prefixed for some other renderer

	case name == EditableOption:
		editable, ok := value.(bool)
		if !ok {
			r.logger.Errorf("setOption: editable option expects a bool value.")
			return
		}
		if !editable {
			r.edit = nil
			return
		}
		if r.edit == nil {
			r.edit = edit.NewHandler(r.newMasterRenderer, r.logger)
		}

	default:
		r.logger.Warnf("setOption: Unknown option %q.", name)
	}
}

// setConfigOption writes a render setting to the final and interactive
// configurations. A zero thread count, path length or ray intensity
// removes the setting so the renderer default applies.
func (r *Renderer) setConfigOption(path string, value any) {
	valueStr := core.DataToString(value)
	if valueStr == "" {
		return
	}
	final := r.project.Configuration(scene.FinalConfig)
	interactive := r.project.Configuration(scene.InteractiveConfig)
	removeBoth := func(p string) {
		final.Remove(p)
		interactive.Remove(p)
	}

	switch {
	case path == "rendering_threads" || strings.HasSuffix(path, "max_path_length"):
		if n, ok := value.(int); ok {
			if n == 0 {
				removeBoth(path)
				return
			}
		} else {
			r.logger.Errorf("setOption: %s option expects an int value.", path)
		}

	case path == "pt.max_ray_intensity":
		wrapped := core.Params{"v": value}
		if f, ok := wrapped.Float("v"); ok {
			if f == 0 {
				removeBoth(path)
				return
			}
		} else {
			r.logger.Errorf("setOption: %s option expects a float value.", path)
		}

	case path == "generic_frame_renderer.passes":
		if n, ok := value.(int); ok {
			framebuffer, decorrelate := "ephemeral", "false"
			if n > 1 {
				framebuffer, decorrelate = "permanent", "true"
			}
			final.Insert("shading_result_framebuffer", framebuffer)
			final.Insert("uniform_pixel_renderer.decorrelate_pixels", decorrelate)
			interactive.Insert("uniform_pixel_renderer.decorrelate_pixels", decorrelate)
		} else {
			r.logger.Errorf("setOption: %s option expects an int value.", path)
		}

	case path == "shading_engine.override_shading.mode":
		if mode, ok := value.(string); ok {
			if mode == "no_override" {
				removeBoth("shading_engine.override_shading")
				return
			}
		} else {
			r.logger.Errorf("setOption: %s option expects a string value.", path)
		}
	}

	final.Insert(path, valueStr)
	interactive.Insert(path, valueStr)
}

// GetOption implements procedural.Renderer
func (r *Renderer) GetOption(name string) (any, bool) {
	v, ok := r.options[name]
	return v, ok
}

func (r *Renderer) stringOption(name string) (string, bool) {
	v, ok := r.options[name].(string)
	return v, ok
}
