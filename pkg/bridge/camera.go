package bridge

import (
	"path/filepath"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// Standard camera parameter defaults
var (
	defaultResolution     = core.V2i{640, 480}
	defaultCropWindow     = core.Box2f{Max: core.V2f{1, 1}}
	defaultClippingPlanes = core.V2f{0.01, 100000}
)

const defaultFOV = 90.0

// cameraSettings are the standard camera parameters with defaults applied
type cameraSettings struct {
	projection     string
	fov            float64
	resolution     core.V2i
	cropWindow     core.Box2f
	clippingPlanes core.V2f
	shutter        core.V2f
}

func readCameraSettings(params core.Params) cameraSettings {
	s := cameraSettings{
		projection:     "perspective",
		fov:            defaultFOV,
		resolution:     defaultResolution,
		cropWindow:     defaultCropWindow,
		clippingPlanes: defaultClippingPlanes,
	}
	if v, ok := params.String("projection"); ok {
		s.projection = v
	}
	if v, ok := params.Float("projection:fov"); ok {
		s.fov = v
	}
	if v, ok := params["resolution"].(core.V2i); ok {
		s.resolution = v
	}
	if v, ok := params["cropWindow"].(core.Box2f); ok {
		s.cropWindow = v
	}
	if v, ok := params["clippingPlanes"].(core.V2f); ok {
		s.clippingPlanes = v
	}
	if v, ok := params["shutter"].(core.V2f); ok {
		s.shutter = v
	}
	return s
}

// Camera implements procedural.Renderer. Only one camera is kept: the one
// named by the "render:camera" option, or else the first declared. Inside
// an edit block only the kept camera's transform is updated.
func (r *Renderer) Camera(name string, params core.Params) {
	if selected, ok := r.stringOption(CameraOption); ok && selected != name {
		return
	}

	cameras := r.project.Scene.Cameras.Items()
	if r.insideEditBlock() {
		if len(cameras) == 0 || cameras[0].Name != name {
			return
		}
		cameras[0].Transform = r.transforms.Top()
		return
	}
	if len(cameras) > 0 {
		return
	}

	settings := readCameraSettings(params)
	camera := r.convertCamera(name, settings)
	if camera == nil {
		r.logger.Warnf("camera: Couldn't create camera.")
		return
	}

	r.converter.SetShutterInterval(settings.shutter[0], settings.shutter[1])
	camera.Transform = r.transforms.Top()
	r.setCamera(camera, settings)
}

func (r *Renderer) convertCamera(name string, s cameraSettings) *scene.Camera {
	if s.projection != "perspective" {
		r.logger.Warnf("camera: Unsupported projection %q.", s.projection)
		return nil
	}

	params := scene.ParamArray{}
	params.Insert("horizontal_fov", s.fov)
	params.Insert("near_z", -s.clippingPlanes[0])
	params.Insert("shutter_open_time", s.shutter[0])
	params.Insert("shutter_close_time", s.shutter[1])

	camera, err := r.factories.Cameras.Create("pinhole_camera", name, params)
	if err != nil {
		r.logger.Errorf("camera: %v", err)
		return nil
	}
	return camera
}

// setCamera makes camera the only camera and points the frame at it
func (r *Renderer) setCamera(camera *scene.Camera, s cameraSettings) {
	r.project.Scene.Cameras.Clear()
	r.project.Scene.Cameras.Insert(camera)

	frame := r.project.Frame.Params
	frame.Insert("camera", camera.Name)
	frame.Insert("resolution", s.resolution)

	w, h := float64(s.resolution[0]-1), float64(s.resolution[1]-1)
	frame.Insert("crop_window", []int{
		int(s.cropWindow.Min[0] * w),
		int(s.cropWindow.Min[1] * h),
		int(s.cropWindow.Max[0] * w),
		int(s.cropWindow.Max[1] * h),
	})
}

// defaultCamera creates a perspective camera at the origin when the
// scene declared none
func (r *Renderer) defaultCamera() {
	if r.project.Scene.Cameras.Len() > 0 {
		return
	}

	settings := readCameraSettings(core.Params{})
	if res, ok := r.options[ResolutionOption].(core.V2i); ok {
		settings.resolution = res
	}
	camera := r.convertCamera("camera", settings)
	camera.Transform = transform.NewSequence(core.Identity())
	r.setCamera(camera, settings)
}

// Display implements procedural.Renderer. png and exr outputs are written
// by the frame itself; any other type becomes the project display.
func (r *Renderer) Display(name, displayType, data string, params core.Params) {
	frame := r.project.Frame.Params
	if displayType == "png" || displayType == "exr" {
		frame.Insert("output_filename", name)
		frame.Insert("output_aovs", false)
		if displayType == "png" {
			frame.Insert("color_space", "srgb")
		} else {
			frame.Insert("color_space", "linear_rgb")
		}
		return
	}

	pa := scene.ParamArray{}
	pa.Insert("displayName", name)
	pa.Insert("type", displayType)
	pa.Insert("data", data)
	pa.Insert("plugin_name", displayType)
	if filepath.Ext(name) != "" {
		pa.Insert("filename", name)
	}
	pa.Insert("beauty", scene.NewParamArray(params))

	r.project.Display = &scene.Display{Entity: scene.Entity{Name: name, Model: displayType, Params: pa}}
	r.driverOpened = false
	r.projectDriver = nil
}
