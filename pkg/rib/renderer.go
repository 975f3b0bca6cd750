package rib

import (
	"io"
	"strconv"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/procedural"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// AutomaticInstancingAttribute enables object instancing of identical meshes
const AutomaticInstancingAttribute = "ri:automaticInstancing"

type optionHandler func(r *Renderer, name string, value any)
type attributeHandler func(r *Renderer, name string, value any)
type commandHandler func(r *Renderer, name string, params core.Params)

var (
	optionHandlers = map[string]optionHandler{
		"ri:searchpath:shader": (*Renderer).setShaderSearchPathOption,
	}

	attributeHandlers = map[string]attributeHandler{
		attributes.NameAttribute:                 (*Renderer).setNameAttribute,
		attributes.DoubleSidedAttribute:          (*Renderer).setDoubleSidedAttribute,
		AutomaticInstancingAttribute:             (*Renderer).setAutomaticInstancingAttribute,
		"ri:shadingRate":                         (*Renderer).setShadingRateAttribute,
		"ri:matte":                               (*Renderer).setMatteAttribute,
		"ri:color":                               (*Renderer).setColorAttribute,
		"color":                                  (*Renderer).setColorAttribute,
		"ri:opacity":                             (*Renderer).setOpacityAttribute,
		"opacity":                                (*Renderer).setOpacityAttribute,
		"ri:sides":                               (*Renderer).setSidesAttribute,
		"ri:geometricApproximation:motionFactor": (*Renderer).setGeometricApproximationAttribute,
		"ri:geometricApproximation:focusFactor":  (*Renderer).setGeometricApproximationAttribute,
	}

	commandHandlers = map[string]commandHandler{
		"ri:readArchive":    (*Renderer).readArchiveCommand,
		"objectBegin":       (*Renderer).objectBeginCommand,
		"ri:objectBegin":    (*Renderer).objectBeginCommand,
		"objectEnd":         (*Renderer).objectEndCommand,
		"ri:objectEnd":      (*Renderer).objectEndCommand,
		"objectInstance":    (*Renderer).objectInstanceCommand,
		"ri:objectInstance": (*Renderer).objectInstanceCommand,
		"ri:illuminate":     (*Renderer).illuminateCommand,
	}
)

// Renderer implements procedural.Renderer by writing RIB requests. The
// transform and attribute stacks are tracked so that the getters answer
// without a RenderMan context.
type Renderer struct {
	out    *stream
	closer io.Closer
	logger core.Logger

	options    map[string]any
	transforms *transform.Stack
	attributes *attributes.Stack

	cameraParams    core.Params
	cameraTransform core.Mat44

	inWorld     bool
	motionDepth int

	// time samples declared by the open motion block and the calls seen in it
	motionSamples int
	motionCalls   int

	// names declared with ObjectBegin, including the content hash names
	// of automatically instanced meshes
	objects    map[string]bool
	openObject string
}

// New creates a renderer writing RIB to w
func New(w io.Writer, logger core.Logger) *Renderer {
	r := &Renderer{
		out:             newStream(w),
		logger:          core.OrDiscard(logger),
		options:         make(map[string]any),
		transforms:      transform.NewStack(),
		attributes:      attributes.NewStack(),
		cameraTransform: core.Identity(),
		objects:         make(map[string]bool),
	}
	r.attributes.Top().Attributes[AutomaticInstancingAttribute] = true
	r.out.request("##RenderMan RIB")
	r.out.request("version", "3.04")
	return r
}

// Create creates a renderer writing to a new file at path. Paths ending
// in ".gz" are gzip compressed.
func Create(path string, logger core.Logger) (*Renderer, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	r := New(f, logger)
	r.closer = f
	return r, nil
}

// Close flushes the stream and closes the file opened by Create. It
// returns the first write error.
func (r *Renderer) Close() error {
	err := r.out.flush()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
		r.closer = nil
	}
	return err
}

// SetOption implements procedural.Renderer
func (r *Renderer) SetOption(name string, value any) {
	if h, ok := optionHandlers[name]; ok {
		h(r, name, value)
		return
	}

	switch {
	case strings.HasPrefix(name, "ri:"):
		class, token, ok := strings.Cut(strings.TrimPrefix(name, "ri:"), ":")
		if !ok {
			r.logger.Warnf("setOption: Expected option name matching \"ri:*:*\" but got %q.", name)
			return
		}
		r.option(name, class, token, value)
	case strings.HasPrefix(name, "user:"):
		r.option(name, "user", strings.TrimPrefix(name, "user:"), value)
	case strings.Contains(name, ":"):
		// Options prefixed for some other renderer
	default:
		r.logger.Warnf("setOption: Unknown option %q.", name)
	}
}

func (r *Renderer) option(name, class, token string, value any) {
	ribType, v, ok := typedValue(value, "vector")
	if !ok {
		r.logger.Errorf("setOption: Unsupported value type %T for %q.", value, name)
		return
	}
	r.options[name] = value
	r.out.request("Option", quote(class), quote(ribType+" "+token), v)
}

func (r *Renderer) setShaderSearchPathOption(name string, value any) {
	path, ok := value.(string)
	if !ok {
		r.logger.Warnf("setOption: Expected a string value for %q.", name)
		return
	}
	r.options[name] = path
	r.out.request("Option", quote("searchpath"), quote("string shader"), strs(path))
}

// GetOption implements procedural.Renderer. "shutter" reports the camera
// shutter; other options report the value last set.
func (r *Renderer) GetOption(name string) (any, bool) {
	if name == "shutter" {
		v, ok := r.cameraParams["shutter"].(core.V2f)
		return v, ok
	}
	if v, ok := r.options[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ":") {
		r.logger.Warnf("getOption: Unknown option %q.", name)
	}
	return nil, false
}

// Camera implements procedural.Renderer. The camera is stored and written
// at WorldBegin. A "transform" parameter overrides the current transform.
func (r *Renderer) Camera(name string, params core.Params) {
	r.cameraParams = params.Clone()
	delete(r.cameraParams, "transform")
	r.cameraTransform = r.transforms.Get()
	if v, ok := params["transform"]; ok {
		m, ok := v.(core.Mat44)
		if !ok {
			r.logger.Errorf("camera: \"transform\" parameter should be of type Mat44.")
			return
		}
		r.cameraTransform = m
	}
}

// Display implements procedural.Renderer
func (r *Renderer) Display(name, displayType, data string, params core.Params) {
	args := append([]string{quote(name), quote(displayType), quote(data)}, paramList(params, "", r.logger)...)
	r.out.request("Display", args...)
}

// WorldBegin implements procedural.Renderer. The stored camera is written
// first, so its transform and settings apply to the world.
func (r *Renderer) WorldBegin() {
	if r.inWorld {
		r.logger.Errorf("worldBegin: Nested worldBegin() call.")
		return
	}
	r.writeCamera()
	r.inWorld = true
	r.out.open("WorldBegin")
}

func (r *Renderer) writeCamera() {
	params := r.cameraParams
	if inv, ok := r.cameraTransform.Inverse(); ok {
		r.out.request("Transform", matrix(inv))
	} else {
		r.logger.Errorf("worldBegin: Camera transform is not invertible.")
	}

	if v, ok := params["shutter"]; ok {
		if s, ok := v.(core.V2f); ok {
			r.out.request("Shutter", formatFloat(s[0]), formatFloat(s[1]))
		} else {
			r.logger.Errorf("worldBegin: Camera \"shutter\" parameter should be of type V2f.")
		}
	}
	if v, ok := params["hider"]; ok {
		if s, ok := v.(string); ok {
			r.out.request("Hider", append([]string{quote(s)}, paramList(params, "hider:", r.logger)...)...)
		} else {
			r.logger.Errorf("worldBegin: Camera \"hider\" parameter should be of type string.")
		}
	}

	res := core.V2i{640, 480}
	if v, ok := params["resolution"]; ok {
		if s, ok := v.(core.V2i); ok {
			res = s
		} else {
			r.logger.Errorf("worldBegin: Camera \"resolution\" parameter should be of type V2i.")
		}
	}
	r.out.request("Format", strconv.Itoa(res[0]), strconv.Itoa(res[1]), "1")

	for _, window := range []struct{ param, request string }{
		{"screenWindow", "ScreenWindow"},
		{"cropWindow", "CropWindow"},
	} {
		v, ok := params[window.param]
		if !ok {
			continue
		}
		b, ok := v.(core.Box2f)
		if !ok {
			r.logger.Errorf("worldBegin: Camera %q parameter should be of type Box2f.", window.param)
			continue
		}
		r.out.request(window.request, formatFloat(b.Min[0]), formatFloat(b.Max[0]), formatFloat(b.Min[1]), formatFloat(b.Max[1]))
	}

	if v, ok := params["clippingPlanes"]; ok {
		if c, ok := v.(core.V2f); ok {
			r.out.request("Clipping", formatFloat(c[0]), formatFloat(c[1]))
		} else {
			r.logger.Errorf("worldBegin: Camera \"clippingPlanes\" parameter should be of type V2f.")
		}
	}
	if v, ok := params["projection"]; ok {
		if s, ok := v.(string); ok {
			r.out.request("Projection", append([]string{quote(s)}, paramList(params, "projection:", r.logger)...)...)
		} else {
			r.logger.Errorf("worldBegin: Camera \"projection\" parameter should be of type string.")
		}
	}
}

// WorldEnd implements procedural.Renderer
func (r *Renderer) WorldEnd() {
	if !r.inWorld {
		r.logger.Errorf("worldEnd: No matching worldBegin() call.")
		return
	}
	if r.transforms.Size() != 1 {
		r.logger.Warnf("worldEnd: Missing transformEnd() call detected.")
	}
	r.inWorld = false
	r.out.close("WorldEnd")
}

// TransformBegin implements procedural.Renderer
func (r *Renderer) TransformBegin() {
	r.transforms.Push()
	r.out.open("TransformBegin")
}

// TransformEnd implements procedural.Renderer
func (r *Renderer) TransformEnd() {
	if err := r.transforms.Pop(); err != nil {
		r.logger.Warnf("transformEnd: No matching transformBegin() call.")
		return
	}
	r.out.close("TransformEnd")
}

// SetTransform implements procedural.Renderer
func (r *Renderer) SetTransform(m core.Mat44) {
	r.countMotionCall()
	if err := r.transforms.SetTransform(m); err != nil {
		r.logger.Errorf("setTransform: %v", err)
	}
	r.out.request("Transform", matrix(m))
}

// ConcatTransform implements procedural.Renderer
func (r *Renderer) ConcatTransform(m core.Mat44) {
	r.countMotionCall()
	if err := r.transforms.ConcatTransform(m); err != nil {
		r.logger.Errorf("concatTransform: %v", err)
	}
	r.out.request("ConcatTransform", matrix(m))
}

// GetTransform implements procedural.Renderer
func (r *Renderer) GetTransform() core.Mat44 {
	return r.transforms.Get()
}

// AttributeBegin implements procedural.Renderer
func (r *Renderer) AttributeBegin() {
	r.transforms.Push()
	if err := r.attributes.Push(); err != nil {
		r.logger.Errorf("attributeBegin: %v", err)
	}
	r.out.open("AttributeBegin")
}

// AttributeEnd implements procedural.Renderer
func (r *Renderer) AttributeEnd() {
	if err := r.attributes.Pop(); err != nil {
		r.logger.Warnf("attributeEnd: No matching attributeBegin() call.")
		return
	}
	_ = r.transforms.Pop()
	r.out.close("AttributeEnd")
}

// SetAttribute implements procedural.Renderer
func (r *Renderer) SetAttribute(name string, value any) {
	if h, ok := attributeHandlers[name]; ok {
		h(r, name, value)
		return
	}

	switch {
	case strings.HasPrefix(name, "ri:"):
		class, token, ok := strings.Cut(strings.TrimPrefix(name, "ri:"), ":")
		if !ok {
			r.logger.Warnf("setAttribute: Expected attribute name matching \"ri:*:*\" but got %q.", name)
			return
		}
		r.attribute(name, class, token, value)
	case strings.HasPrefix(name, "user:"):
		r.attribute(name, "user", strings.TrimPrefix(name, "user:"), value)
	case strings.Contains(name, ":"):
		// Attributes prefixed for some other renderer
	default:
		r.logger.Warnf("setAttribute: Unknown attribute %q.", name)
	}
}

func (r *Renderer) attribute(name, class, token string, value any) {
	ribType, v, ok := typedValue(value, "vector")
	if !ok {
		r.logger.Errorf("setAttribute: Unsupported value type %T for %q.", value, name)
		return
	}
	r.store(name, value)
	r.out.request("Attribute", quote(class), quote(ribType+" "+token), v)
}

func (r *Renderer) store(name string, value any) {
	r.attributes.Top().Attributes[name] = value
}

func (r *Renderer) setNameAttribute(name string, value any) {
	if err := r.attributes.Top().SetAttribute(name, value); err != nil {
		r.logger.Errorf("setAttribute: %v", err)
		return
	}
	r.out.request("Attribute", quote("identifier"), quote("string name"), strs(value.(string)))
}

func (r *Renderer) setDoubleSidedAttribute(name string, value any) {
	if err := r.attributes.Top().SetAttribute(name, value); err != nil {
		r.logger.Errorf("setAttribute: %v", err)
		return
	}
	sides := 1
	if value.(bool) {
		sides = 2
	}
	r.out.request("Sides", strconv.Itoa(sides))
}

func (r *Renderer) setAutomaticInstancingAttribute(name string, value any) {
	if _, ok := value.(bool); !ok {
		r.logger.Errorf("setAttribute: %s attribute expects a bool value.", name)
		return
	}
	r.store(name, value)
}

func (r *Renderer) setShadingRateAttribute(name string, value any) {
	f, ok := value.(float64)
	if !ok {
		r.logger.Errorf("setAttribute: %s attribute expects a float value.", name)
		return
	}
	r.store(name, f)
	r.out.request("ShadingRate", formatFloat(f))
}

func (r *Renderer) setMatteAttribute(name string, value any) {
	b, ok := value.(bool)
	if !ok {
		r.logger.Errorf("setAttribute: %s attribute expects a bool value.", name)
		return
	}
	r.store(name, b)
	matte := "0"
	if b {
		matte = "1"
	}
	r.out.request("Matte", matte)
}

func (r *Renderer) setColorAttribute(name string, value any) {
	c, ok := value.(core.Color)
	if !ok {
		r.logger.Errorf("setAttribute: %s attribute expects a color value.", name)
		return
	}
	r.store(name, c)
	r.out.request("Color", floats(c.R, c.G, c.B))
}

func (r *Renderer) setOpacityAttribute(name string, value any) {
	c, ok := value.(core.Color)
	if !ok {
		r.logger.Errorf("setAttribute: %s attribute expects a color value.", name)
		return
	}
	r.store(name, c)
	r.out.request("Opacity", floats(c.R, c.G, c.B))
}

func (r *Renderer) setSidesAttribute(name string, value any) {
	n, ok := value.(int)
	if !ok || (n != 1 && n != 2) {
		r.logger.Errorf("setAttribute: %s attribute expects an int value of 1 or 2.", name)
		return
	}
	r.store(name, n)
	r.out.request("Sides", strconv.Itoa(n))
}

func (r *Renderer) setGeometricApproximationAttribute(name string, value any) {
	f, ok := value.(float64)
	if !ok {
		r.logger.Errorf("setAttribute: %s attribute expects a float value.", name)
		return
	}
	r.store(name, f)
	kind := strings.ToLower(name[strings.LastIndex(name, ":")+1:])
	r.out.request("GeometricApproximation", quote(kind), formatFloat(f))
}

// GetAttribute implements procedural.Renderer
func (r *Renderer) GetAttribute(name string) (any, bool) {
	return r.attributes.Top().GetAttribute(name)
}

// Shader implements procedural.Renderer. Types may carry the "ri:" prefix;
// shaders for other renderers are ignored.
func (r *Renderer) Shader(shaderType, name string, params core.Params) {
	var request string
	switch strings.TrimPrefix(shaderType, "ri:") {
	case "surface":
		request = "Surface"
	case "displacement":
		request = "Displacement"
	case "light":
		r.lightSource(name, "", params)
		return
	case "atmosphere":
		request = "Atmosphere"
	case "interior":
		request = "Interior"
	case "exterior":
		request = "Exterior"
	case "deformation":
		request = "Deformation"
	default:
		if !strings.Contains(shaderType, ":") {
			r.logger.Warnf("shader: Unsupported shader type %q.", shaderType)
		}
		return
	}
	r.out.request(request, append([]string{quote(name)}, paramList(params, "", r.logger)...)...)
}

// Light implements procedural.Renderer. Lights for other renderers are ignored.
func (r *Renderer) Light(name, handle string, params core.Params) {
	prefix, model, found := strings.Cut(name, ":")
	if found {
		if prefix != "ri" {
			return
		}
		name = model
	}
	r.lightSource(name, handle, params)
}

func (r *Renderer) lightSource(name, handle string, params core.Params) {
	if handle == "" {
		handle = name
	}
	args := append([]string{quote(name), quote(handle)}, paramList(params, "", r.logger)...)
	r.out.request("LightSource", args...)
}

// Illuminate implements procedural.Renderer
func (r *Renderer) Illuminate(handle string, on bool) {
	state := "0"
	if on {
		state = "1"
	}
	r.out.request("Illuminate", quote(handle), state)
}

// MotionBegin implements procedural.Renderer
func (r *Renderer) MotionBegin(times []float64) {
	if r.motionDepth > 0 {
		r.logger.Warnf("motionBegin: No matching motionEnd() call.")
		return
	}
	sorted := sortedTimes(times)
	r.motionDepth++
	r.motionSamples, r.motionCalls = len(sorted), 0
	r.transforms.MotionBegin(sorted)
	r.out.open("MotionBegin", floats(sorted...))
}

// MotionEnd implements procedural.Renderer
func (r *Renderer) MotionEnd() error {
	if r.motionDepth == 0 {
		r.logger.Warnf("motionEnd: No matching motionBegin() call.")
		return nil
	}
	r.motionDepth--
	if r.motionCalls != r.motionSamples {
		r.logger.Errorf("motionEnd: Wrong number of calls in motion block: %d calls for %d time samples.", r.motionCalls, r.motionSamples)
	}
	r.transforms.MotionEnd()
	r.out.close("MotionEnd")
	return nil
}

// countMotionCall records a transform or primitive call made inside a
// motion block
func (r *Renderer) countMotionCall() {
	if r.motionDepth > 0 {
		r.motionCalls++
	}
}

// Procedural implements procedural.Renderer. Procedurals with an empty
// bound are skipped; others are expanded in place.
func (r *Renderer) Procedural(p procedural.Procedural) {
	b := p.Bound()
	if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
		return
	}
	r.out.open("AttributeBegin")
	r.transforms.Push()
	_ = r.attributes.Push()
	p.Render(r)
	_ = r.attributes.Pop()
	_ = r.transforms.Pop()
	r.out.close("AttributeEnd")
}

// InstanceBegin implements procedural.Renderer
func (r *Renderer) InstanceBegin(name string, params core.Params) {
	r.objectBegin("instanceBegin", name)
}

// InstanceEnd implements procedural.Renderer
func (r *Renderer) InstanceEnd() {
	r.objectEnd("instanceEnd")
}

// Instance implements procedural.Renderer
func (r *Renderer) Instance(name string) {
	r.objectInstance("instance", name)
}

func (r *Renderer) objectBegin(op, name string) {
	if r.openObject != "" {
		r.logger.Errorf("%s: Object %q is already open.", op, r.openObject)
		return
	}
	r.openObject = name
	r.objects[name] = true
	r.out.open("ObjectBegin", quote(name))
}

func (r *Renderer) objectEnd(op string) {
	if r.openObject == "" {
		r.logger.Warnf("%s: No matching objectBegin() call.", op)
		return
	}
	r.openObject = ""
	r.out.close("ObjectEnd")
}

func (r *Renderer) objectInstance(op, name string) {
	if !r.objects[name] {
		r.logger.Errorf("%s: No object named %q available for instancing.", op, name)
		return
	}
	r.out.request("ObjectInstance", quote(name))
}

// Command implements procedural.Renderer
func (r *Renderer) Command(name string, params core.Params) any {
	h, ok := commandHandlers[name]
	if !ok {
		r.logger.Warnf("command: Unknown command %q.", name)
		return nil
	}
	h(r, name, params)
	return nil
}

func (r *Renderer) nameParam(command string, params core.Params) (string, bool) {
	name, ok := params.String("name")
	if !ok {
		r.logger.Errorf("command: %s command expects a string value called \"name\".", command)
	}
	return name, ok
}

func (r *Renderer) readArchiveCommand(command string, params core.Params) {
	if name, ok := r.nameParam(command, params); ok {
		r.out.request("ReadArchive", quote(name))
	}
}

func (r *Renderer) objectBeginCommand(command string, params core.Params) {
	if name, ok := r.nameParam(command, params); ok {
		r.objectBegin("command", name)
	}
}

func (r *Renderer) objectEndCommand(command string, params core.Params) {
	r.objectEnd("command")
}

func (r *Renderer) objectInstanceCommand(command string, params core.Params) {
	if name, ok := r.nameParam(command, params); ok {
		r.objectInstance("command", name)
	}
}

func (r *Renderer) illuminateCommand(command string, params core.Params) {
	handle, ok := params.String("handle")
	if !ok {
		r.logger.Errorf("command: %s command expects a string value called \"handle\".", command)
		return
	}
	state, ok := params.Bool("state")
	if !ok {
		r.logger.Errorf("command: %s command expects a bool value called \"state\".", command)
		return
	}
	r.Illuminate(handle, state)
}

// EditBegin implements procedural.Renderer. RIB streams cannot be edited.
func (r *Renderer) EditBegin(editType string, params core.Params) {
	r.logger.Warnf("editBegin: Non editable render.")
}

// EditEnd implements procedural.Renderer
func (r *Renderer) EditEnd() {
	r.logger.Warnf("editEnd: Non editable render.")
}

var _ procedural.Renderer = (*Renderer)(nil)
