package loaders

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/procedural"
)

// Player replays parsed statements as calls on a procedural.Renderer
type Player struct {
	renderer procedural.Renderer
	logger   core.Logger

	// Dir resolves relative Procedural file names
	Dir string
}

// NewPlayer creates a player driving r
func NewPlayer(r procedural.Renderer, logger core.Logger) *Player {
	return &Player{renderer: r, logger: core.OrDiscard(logger)}
}

// RenderScene parses reader and plays every statement on r
func RenderScene(reader io.Reader, r procedural.Renderer, logger core.Logger) error {
	stmts, err := ParseScene(reader)
	if err != nil {
		return err
	}
	return NewPlayer(r, logger).Play(stmts)
}

// RenderSceneFile loads filename and plays it on r
func RenderSceneFile(filename string, r procedural.Renderer, logger core.Logger) error {
	stmts, err := LoadScene(filename)
	if err != nil {
		return err
	}
	p := NewPlayer(r, logger)
	p.Dir = filepath.Dir(filename)
	return p.Play(stmts)
}

// Play issues each statement in order and stops at the first error
func (p *Player) Play(stmts []Statement) error {
	for i := range stmts {
		if err := p.play(&stmts[i]); err != nil {
			return fmt.Errorf("line %d: %s: %w", stmts[i].Line, stmts[i].Type, err)
		}
	}
	return nil
}

func (p *Player) play(s *Statement) error {
	r := p.renderer
	switch s.Type {
	case "Option":
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		for _, name := range params.SortedKeys() {
			r.SetOption(name, params[name])
		}
	case "Camera":
		name, err := s.arg(0)
		if err != nil {
			return err
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.Camera(name, params)
	case "Display":
		if len(s.Args) != 3 {
			return fmt.Errorf("expected name, type and data arguments")
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.Display(s.Args[0], s.Args[1], s.Args[2], params)
	case "WorldBegin":
		r.WorldBegin()
	case "WorldEnd":
		r.WorldEnd()
	case "TransformBegin":
		r.TransformBegin()
	case "TransformEnd":
		r.TransformEnd()
	case "AttributeBegin":
		r.AttributeBegin()
	case "AttributeEnd":
		r.AttributeEnd()
	case "Transform", "ConcatTransform":
		values, err := s.floatArgs()
		if err != nil {
			return err
		}
		m, ok := core.NewMat44(values)
		if !ok {
			return fmt.Errorf("expected 16 values, got %d", len(values))
		}
		if s.Type == "Transform" {
			r.SetTransform(m)
		} else {
			r.ConcatTransform(m)
		}
	case "Translate", "Scale":
		v, err := s.floatArgs()
		if err != nil {
			return err
		}
		if len(v) != 3 {
			return fmt.Errorf("expected 3 values, got %d", len(v))
		}
		if s.Type == "Translate" {
			r.ConcatTransform(core.Translate(core.NewVec3(v[0], v[1], v[2])))
		} else {
			r.ConcatTransform(core.Scale(core.NewVec3(v[0], v[1], v[2])))
		}
	case "Rotate":
		v, err := s.floatArgs()
		if err != nil {
			return err
		}
		if len(v) != 4 {
			return fmt.Errorf("expected angle and axis, got %d values", len(v))
		}
		r.ConcatTransform(core.Rotate(v[0], core.NewVec3(v[1], v[2], v[3])))
	case "Attribute":
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		for _, name := range params.SortedKeys() {
			r.SetAttribute(name, params[name])
		}
	case "Shader":
		if len(s.Args) != 2 {
			return fmt.Errorf("expected type and name arguments")
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.Shader(s.Args[0], s.Args[1], params)
	case "LightSource":
		if len(s.Args) != 2 {
			return fmt.Errorf("expected name and handle arguments")
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.Light(s.Args[0], s.Args[1], params)
	case "Illuminate":
		if len(s.Args) != 2 {
			return fmt.Errorf("expected handle and state arguments")
		}
		on, err := parseBool(s.Args[1])
		if err != nil {
			return err
		}
		r.Illuminate(s.Args[0], on)
	case "MotionBegin":
		times, err := s.floatArgs()
		if err != nil {
			return err
		}
		r.MotionBegin(times)
	case "MotionEnd":
		return r.MotionEnd()
	case "Mesh":
		mesh, err := s.mesh()
		if err != nil {
			return err
		}
		return r.Mesh(mesh)
	case "Points":
		vars, err := primitiveVariables(s.Params)
		if err != nil {
			return err
		}
		return r.Points(&primitive.PointsPrimitive{NumPoints: vars["P"].Len(), Vars: vars})
	case "Curves":
		curves, err := s.curves()
		if err != nil {
			return err
		}
		return r.Curves(curves)
	case "Procedural":
		return p.procedural(s)
	case "InstanceBegin":
		name, err := s.arg(0)
		if err != nil {
			return err
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.InstanceBegin(name, params)
	case "InstanceEnd":
		r.InstanceEnd()
	case "Instance":
		name, err := s.arg(0)
		if err != nil {
			return err
		}
		r.Instance(name)
	case "Command":
		name, err := s.arg(0)
		if err != nil {
			return err
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.Command(name, params)
	case "EditBegin":
		editType, err := s.arg(0)
		if err != nil {
			return err
		}
		params, err := paramValues(s.Params)
		if err != nil {
			return err
		}
		r.EditBegin(editType, params)
	case "EditEnd":
		r.EditEnd()
	default:
		return fmt.Errorf("unknown request")
	}
	return nil
}

// procedural defers loading another scene file until the renderer
// expands it. The bound is given as [xmin xmax ymin ymax zmin zmax].
func (p *Player) procedural(s *Statement) error {
	if len(s.Args) != 2 || !isArray(s.Args[1]) {
		return fmt.Errorf("expected file name and bound arguments")
	}
	b, err := parseFloats(arrayValues(s.Args[1]))
	if err != nil {
		return err
	}
	if len(b) != 6 {
		return fmt.Errorf("bound needs 6 values, got %d", len(b))
	}

	filename := s.Args[0]
	if !filepath.IsAbs(filename) && p.Dir != "" {
		filename = filepath.Join(p.Dir, filename)
	}

	p.renderer.Procedural(procedural.Func{
		Bounds: core.AABB{Min: core.NewVec3(b[0], b[2], b[4]), Max: core.NewVec3(b[1], b[3], b[5])},
		Fn: func(r procedural.Renderer) {
			stmts, err := LoadScene(filename)
			if err == nil {
				child := &Player{renderer: r, logger: p.logger, Dir: filepath.Dir(filename)}
				err = child.Play(stmts)
			}
			if err != nil {
				p.logger.Errorf("procedural: %s: %v", filename, err)
			}
		},
	})
	return nil
}

func (s *Statement) arg(i int) (string, error) {
	if i >= len(s.Args) {
		return "", fmt.Errorf("missing argument %d", i+1)
	}
	return s.Args[i], nil
}

// floatArgs flattens the positional arguments, bracketed or not, to floats
func (s *Statement) floatArgs() ([]float64, error) {
	var values []string
	for _, a := range s.Args {
		if isArray(a) {
			values = append(values, arrayValues(a)...)
		} else {
			values = append(values, a)
		}
	}
	return parseFloats(values)
}

func (s *Statement) intArrayArg(i int) ([]int, error) {
	a, err := s.arg(i)
	if err != nil {
		return nil, err
	}
	if !isArray(a) {
		return nil, fmt.Errorf("argument %d should be an array", i+1)
	}
	return parseInts(arrayValues(a))
}

// mesh reads Mesh "interpolation" [verticesPerFace] [vertexIds] primvars
func (s *Statement) mesh() (*primitive.MeshPrimitive, error) {
	interp, err := s.arg(0)
	if err != nil {
		return nil, err
	}
	nverts, err := s.intArrayArg(1)
	if err != nil {
		return nil, err
	}
	ids, err := s.intArrayArg(2)
	if err != nil {
		return nil, err
	}
	vars, err := primitiveVariables(s.Params)
	if err != nil {
		return nil, err
	}
	return &primitive.MeshPrimitive{VerticesPerFace: nverts, VertexIDs: ids, Interpolation: interp, Vars: vars}, nil
}

// curves reads Curves "basis" [verticesPerCurve] "periodic|nonperiodic" primvars
func (s *Statement) curves() (*primitive.CurvesPrimitive, error) {
	basis, err := s.arg(0)
	if err != nil {
		return nil, err
	}
	nverts, err := s.intArrayArg(1)
	if err != nil {
		return nil, err
	}
	wrap, err := s.arg(2)
	if err != nil {
		return nil, err
	}
	if wrap != "periodic" && wrap != "nonperiodic" {
		return nil, fmt.Errorf("expected \"periodic\" or \"nonperiodic\", got %q", wrap)
	}
	vars, err := primitiveVariables(s.Params)
	if err != nil {
		return nil, err
	}
	return &primitive.CurvesPrimitive{VerticesPerCurve: nverts, Basis: basis, Periodic: wrap == "periodic", Vars: vars}, nil
}

// paramValues converts plain parameters to a parameter block. A single
// value becomes a scalar, several become a slice.
func paramValues(params []Param) (core.Params, error) {
	out := make(core.Params, len(params))
	for _, param := range params {
		if param.Class != "" {
			return nil, fmt.Errorf("parameter %q: unexpected interpolation class %q", param.Name, param.Class)
		}
		v, err := convertValue(param, true)
		if err != nil {
			return nil, err
		}
		out[param.Name] = v
	}
	return out, nil
}

// primitiveVariables converts "class type name" declarations to primitive
// variables, always holding slices
func primitiveVariables(params []Param) (primitive.Variables, error) {
	vars := make(primitive.Variables, len(params))
	for _, param := range params {
		interp, ok := primitive.ParseInterpolation(param.Class)
		if !ok {
			return nil, fmt.Errorf("variable %q: unknown interpolation %q", param.Name, param.Class)
		}
		v, err := convertValue(param, false)
		if err != nil {
			return nil, err
		}
		vars[param.Name] = primitive.Variable{Interpolation: interp, Data: v}
	}
	return vars, nil
}

func convertValue(param Param, scalar bool) (any, error) {
	fail := func(err error) (any, error) {
		return nil, fmt.Errorf("parameter %q: %w", param.Name, err)
	}
	count := func(n int) error {
		if len(param.Values) != n {
			return fmt.Errorf("%s needs %d values, got %d", param.Type, n, len(param.Values))
		}
		return nil
	}

	switch param.Type {
	case "string":
		if scalar && len(param.Values) == 1 {
			return param.Values[0], nil
		}
		return param.Values, nil
	case "bool":
		if err := count(1); err != nil {
			return fail(err)
		}
		b, err := parseBool(param.Values[0])
		if err != nil {
			return fail(err)
		}
		return b, nil
	case "int":
		n, err := parseInts(param.Values)
		if err != nil {
			return fail(err)
		}
		if scalar && len(n) == 1 {
			return n[0], nil
		}
		return n, nil
	case "float":
		f, err := parseFloats(param.Values)
		if err != nil {
			return fail(err)
		}
		if scalar && len(f) == 1 {
			return f[0], nil
		}
		return f, nil
	case "int[2]":
		n, err := parseInts(param.Values)
		if err == nil {
			err = count(2)
		}
		if err != nil {
			return fail(err)
		}
		return core.V2i{n[0], n[1]}, nil
	case "float[2]":
		f, err := parseFloats(param.Values)
		if err == nil {
			err = count(2)
		}
		if err != nil {
			return fail(err)
		}
		return core.V2f{f[0], f[1]}, nil
	case "box2f":
		f, err := parseFloats(param.Values)
		if err == nil {
			err = count(4)
		}
		if err != nil {
			return fail(err)
		}
		return core.Box2f{Min: core.V2f{f[0], f[1]}, Max: core.V2f{f[2], f[3]}}, nil
	case "matrix":
		f, err := parseFloats(param.Values)
		if err != nil {
			return fail(err)
		}
		m, ok := core.NewMat44(f)
		if !ok {
			return fail(count(16))
		}
		return m, nil
	case "color", "rgb":
		f, err := parseFloats(param.Values)
		if err == nil && len(f)%3 != 0 {
			err = fmt.Errorf("%s values must come in triples, got %d", param.Type, len(f))
		}
		if err != nil {
			return fail(err)
		}
		colors := make([]core.Color, len(f)/3)
		for i := range colors {
			colors[i] = core.Color{R: f[3*i], G: f[3*i+1], B: f[3*i+2]}
		}
		if scalar && len(colors) == 1 {
			return colors[0], nil
		}
		return colors, nil
	case "point", "vector", "normal":
		f, err := parseFloats(param.Values)
		if err == nil && len(f)%3 != 0 {
			err = fmt.Errorf("%s values must come in triples, got %d", param.Type, len(f))
		}
		if err != nil {
			return fail(err)
		}
		vecs := make([]core.Vec3, len(f)/3)
		for i := range vecs {
			vecs[i] = core.NewVec3(f[3*i], f[3*i+1], f[3*i+2])
		}
		if scalar && len(vecs) == 1 {
			return vecs[0], nil
		}
		return vecs, nil
	}
	return fail(fmt.Errorf("unknown type %q", param.Type))
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool '%s'", s)
}
