package primitive

import (
	"fmt"
	"sort"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Interpolator blends two samples of the same primitive type
type Interpolator func(a, b Primitive, t float64) (Primitive, error)

// Interpolators is a registry of interpolation functions keyed by primitive type name
type Interpolators struct {
	byType map[string]Interpolator
}

// NewInterpolators creates a registry holding the built-in primitive types
func NewInterpolators() *Interpolators {
	r := &Interpolators{byType: make(map[string]Interpolator)}
	r.Register("MeshPrimitive", interpolateMesh)
	r.Register("PointsPrimitive", interpolatePoints)
	r.Register("CurvesPrimitive", interpolateCurves)
	return r
}

// Register adds or replaces the interpolator for a type name
func (r *Interpolators) Register(typeName string, fn Interpolator) {
	r.byType[typeName] = fn
}

// Types returns the registered type names
func (r *Interpolators) Types() []string {
	names := make([]string, 0, len(r.byType))
	for name := range r.byType {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lerp returns a + (b-a)*t. t=0 returns a and t=1 returns b unchanged.
func (r *Interpolators) Lerp(a, b Primitive, t float64) (Primitive, error) {
	if a.TypeName() != b.TypeName() {
		return nil, fmt.Errorf("cannot interpolate %s with %s: %w", a.TypeName(), b.TypeName(), core.ErrTopologyMismatch)
	}
	if t <= 0 {
		return a, nil
	}
	if t >= 1 {
		return b, nil
	}
	fn, ok := r.byType[a.TypeName()]
	if !ok {
		return nil, fmt.Errorf("no interpolator for %s: %w", a.TypeName(), core.ErrUnsupportedPrimitive)
	}
	return fn(a, b, t)
}

// DefaultInterpolators is the process-wide registry used by converters
var DefaultInterpolators = NewInterpolators()

func interpolateMesh(a, b Primitive, t float64) (Primitive, error) {
	ma, mb := a.(*MeshPrimitive), b.(*MeshPrimitive)
	if !ma.SameTopology(mb) {
		return nil, fmt.Errorf("MeshPrimitive: %w", core.ErrTopologyMismatch)
	}
	vars, err := lerpVariables(ma.Vars, mb.Vars, t)
	if err != nil {
		return nil, err
	}
	return ma.withVariables(vars), nil
}

func interpolatePoints(a, b Primitive, t float64) (Primitive, error) {
	pa, pb := a.(*PointsPrimitive), b.(*PointsPrimitive)
	if pa.NumPoints != pb.NumPoints {
		return nil, fmt.Errorf("PointsPrimitive: %d vs %d points: %w", pa.NumPoints, pb.NumPoints, core.ErrTopologyMismatch)
	}
	vars, err := lerpVariables(pa.Vars, pb.Vars, t)
	if err != nil {
		return nil, err
	}
	return pa.withVariables(vars), nil
}

func interpolateCurves(a, b Primitive, t float64) (Primitive, error) {
	ca, cb := a.(*CurvesPrimitive), b.(*CurvesPrimitive)
	if !ca.sameTopology(cb) {
		return nil, fmt.Errorf("CurvesPrimitive: %w", core.ErrTopologyMismatch)
	}
	vars, err := lerpVariables(ca.Vars, cb.Vars, t)
	if err != nil {
		return nil, err
	}
	return ca.withVariables(vars), nil
}

// lerpVariables blends numeric data and keeps non-numeric data from a.
// Variables present only in one sample are taken from a.
func lerpVariables(a, b Variables, t float64) (Variables, error) {
	out := make(Variables, len(a))
	for name, va := range a {
		vb, ok := b[name]
		if !ok {
			out[name] = va
			continue
		}
		if va.Interpolation != vb.Interpolation {
			return nil, fmt.Errorf("variable %q: interpolation %v vs %v: %w", name, va.Interpolation, vb.Interpolation, core.ErrTopologyMismatch)
		}
		data, err := lerpData(va.Data, vb.Data, t)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		out[name] = Variable{Interpolation: va.Interpolation, Data: data}
	}
	return out, nil
}

func lerpData(a, b any, t float64) (any, error) {
	switch da := a.(type) {
	case []core.Vec3:
		db, ok := b.([]core.Vec3)
		if !ok || len(da) != len(db) {
			return nil, core.ErrTopologyMismatch
		}
		out := make([]core.Vec3, len(da))
		for i := range da {
			out[i] = da[i].Lerp(db[i], t)
		}
		return out, nil
	case []core.Color:
		db, ok := b.([]core.Color)
		if !ok || len(da) != len(db) {
			return nil, core.ErrTopologyMismatch
		}
		out := make([]core.Color, len(da))
		for i := range da {
			v := da[i].Vec3().Lerp(db[i].Vec3(), t)
			out[i] = core.Color{R: v.X, G: v.Y, B: v.Z}
		}
		return out, nil
	case []float64:
		db, ok := b.([]float64)
		if !ok || len(da) != len(db) {
			return nil, core.ErrTopologyMismatch
		}
		out := make([]float64, len(da))
		for i := range da {
			out[i] = da[i] + (db[i]-da[i])*t
		}
		return out, nil
	case float64:
		db, ok := b.(float64)
		if !ok {
			return nil, core.ErrTopologyMismatch
		}
		return da + (db-da)*t, nil
	case core.Vec3:
		db, ok := b.(core.Vec3)
		if !ok {
			return nil, core.ErrTopologyMismatch
		}
		return da.Lerp(db, t), nil
	case core.Color:
		db, ok := b.(core.Color)
		if !ok {
			return nil, core.ErrTopologyMismatch
		}
		v := da.Vec3().Lerp(db.Vec3(), t)
		return core.Color{R: v.X, G: v.Y, B: v.Z}, nil
	}
	return a, nil
}
