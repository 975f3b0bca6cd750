package rib

import (
	"slices"

	"github.com/df07/go-scene-bridge/pkg/primitive"
)

// primVarList renders primitive variables as RIB parameter tokens with
// their storage class
func (r *Renderer) primVarList(vars primitive.Variables) []string {
	var out []string
	for _, name := range vars.Names() {
		v := vars[name]
		vecType := "vector"
		switch name {
		case "P":
			vecType = "point"
		case "N":
			vecType = "normal"
		}
		ribType, value, ok := typedValue(v.Data, vecType)
		if !ok {
			r.logger.Warnf("primitiveVariableList: Ignoring variable %q of unsupported type %T.", name, v.Data)
			continue
		}
		out = append(out, quote(v.Interpolation.String()+" "+ribType+" "+name), value)
	}
	return out
}

// Mesh implements procedural.Renderer. Catmull-Clark meshes are written as
// subdivision meshes, anything else as polygons. Outside motion blocks
// identical meshes are written once and instanced.
func (r *Renderer) Mesh(mesh *primitive.MeshPrimitive) error {
	if err := mesh.Validate(); err != nil {
		return err
	}
	r.countMotionCall()

	instancing, _ := r.attributes.Top().Attributes[AutomaticInstancingAttribute].(bool)
	if !instancing || r.motionDepth > 0 || r.openObject != "" {
		r.writeMesh(mesh)
		return nil
	}

	name := primitive.HashOf(mesh).String()
	if !r.objects[name] {
		r.objects[name] = true
		r.out.open("ObjectBegin", quote(name))
		r.writeMesh(mesh)
		r.out.close("ObjectEnd")
	}
	r.out.request("ObjectInstance", quote(name))
	return nil
}

func (r *Renderer) writeMesh(mesh *primitive.MeshPrimitive) {
	vars := r.primVarList(mesh.Vars)

	if mesh.Interpolation == "catmullClark" {
		args := []string{
			quote("catmull-clark"),
			ints(mesh.VerticesPerFace...),
			ints(mesh.VertexIDs...),
			strs("interpolateboundary"),
			ints(0, 0),
			"[]",
			"[]",
		}
		r.out.request("SubdivisionMesh", append(args, vars...)...)
		return
	}

	if mesh.Interpolation != "linear" && mesh.Interpolation != "" {
		r.logger.Warnf("mesh: Unsupported interpolation type %q, rendering as polygons.", mesh.Interpolation)
	}
	loops := make([]int, len(mesh.VerticesPerFace))
	for i := range loops {
		loops[i] = 1
	}
	args := []string{ints(loops...), ints(mesh.VerticesPerFace...), ints(mesh.VertexIDs...)}
	r.out.request("PointsGeneralPolygons", append(args, vars...)...)
}

// Points implements procedural.Renderer
func (r *Renderer) Points(points *primitive.PointsPrimitive) error {
	if err := points.Validate(); err != nil {
		return err
	}
	r.countMotionCall()
	r.out.request("Points", r.primVarList(points.Vars)...)
	return nil
}

// Curves implements procedural.Renderer. Linear curves are written as
// such; every other basis is written as cubic with a matching Basis request.
func (r *Renderer) Curves(curves *primitive.CurvesPrimitive) error {
	if err := curves.Validate(); err != nil {
		return err
	}
	r.countMotionCall()

	degree := "cubic"
	switch curves.Basis {
	case "linear":
		degree = "linear"
	case "bezier", "bspline", "catmull-rom", "catmullrom", "hermite", "power":
		basis := curves.Basis
		if basis == "catmullrom" {
			basis = "catmull-rom"
		}
		step := "3"
		switch basis {
		case "bspline", "catmull-rom":
			step = "1"
		case "hermite":
			step = "2"
		case "power":
			step = "4"
		}
		r.out.request("Basis", quote(basis), step, quote(basis), step)
	default:
		r.logger.Warnf("curves: Unknown basis %q, should be one of \"linear\", \"bezier\", \"bspline\" or \"catmullrom\".", curves.Basis)
		return nil
	}

	wrap := "nonperiodic"
	if curves.Periodic {
		wrap = "periodic"
	}
	args := []string{quote(degree), ints(curves.VerticesPerCurve...), quote(wrap)}
	r.out.request("Curves", append(args, r.primVarList(curves.Vars)...)...)
	return nil
}

// sortedTimes returns times in increasing order without duplicates
func sortedTimes(times []float64) []float64 {
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
