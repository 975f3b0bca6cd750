package primitive

import (
	"fmt"
	"slices"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// CurvesPrimitive is a set of linear or cubic curves
type CurvesPrimitive struct {
	VerticesPerCurve []int
	Basis            string // "linear", "bezier", "bspline", "catmullrom"
	Periodic         bool
	Vars             Variables
}

// NewCurves creates a curve set from per-curve vertex counts and control points
func NewCurves(verticesPerCurve []int, basis string, points []core.Vec3) *CurvesPrimitive {
	return &CurvesPrimitive{
		VerticesPerCurve: verticesPerCurve,
		Basis:            basis,
		Vars:             Variables{"P": {Interpolation: Vertex, Data: points}},
	}
}

func (c *CurvesPrimitive) TypeName() string     { return "CurvesPrimitive" }
func (c *CurvesPrimitive) Variables() Variables { return c.Vars }
func (c *CurvesPrimitive) Bound() core.AABB     { return boundOf(c.Vars) }

// NumVertices returns the total number of control points
func (c *CurvesPrimitive) NumVertices() int {
	total := 0
	for _, n := range c.VerticesPerCurve {
		total += n
	}
	return total
}

// Validate implements Primitive
func (c *CurvesPrimitive) Validate() error {
	for _, n := range c.VerticesPerCurve {
		if n < 2 {
			return fmt.Errorf("CurvesPrimitive: curve with %d vertices: %w", n, core.ErrInvalidValue)
		}
	}
	return validateSizes(c.TypeName(), c.Vars, func(interp Interpolation) int {
		switch interp {
		case Constant:
			return 1
		case Uniform:
			return len(c.VerticesPerCurve)
		case Vertex:
			return c.NumVertices()
		case Varying, FaceVarying:
			total := 0
			for _, n := range c.VerticesPerCurve {
				total += c.segmentEnds(n)
			}
			return total
		}
		return -1
	})
}

// segmentEnds returns the number of varying values for a curve with n control points
func (c *CurvesPrimitive) segmentEnds(n int) int {
	switch c.Basis {
	case "linear":
		return n
	case "bezier":
		return (n-4)/3 + 2
	}
	return n - 2
}

// Hash implements core.Hashable
func (c *CurvesPrimitive) Hash(h *core.Hasher) {
	h.AppendString(c.TypeName())
	h.Append(c.VerticesPerCurve)
	h.AppendString(c.Basis)
	h.Append(c.Periodic)
	c.Vars.hash(h)
}

func (c *CurvesPrimitive) sameTopology(other *CurvesPrimitive) bool {
	return slices.Equal(c.VerticesPerCurve, other.VerticesPerCurve) &&
		c.Basis == other.Basis && c.Periodic == other.Periodic
}

func (c *CurvesPrimitive) withVariables(vars Variables) Primitive {
	return &CurvesPrimitive{
		VerticesPerCurve: c.VerticesPerCurve,
		Basis:            c.Basis,
		Periodic:         c.Periodic,
		Vars:             vars,
	}
}
