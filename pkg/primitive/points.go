package primitive

import (
	"github.com/df07/go-scene-bridge/pkg/core"
)

// PointsPrimitive is a particle cloud
type PointsPrimitive struct {
	NumPoints int
	Vars      Variables
}

// NewPoints creates a point cloud from positions
func NewPoints(points []core.Vec3) *PointsPrimitive {
	return &PointsPrimitive{
		NumPoints: len(points),
		Vars:      Variables{"P": {Interpolation: Vertex, Data: points}},
	}
}

func (p *PointsPrimitive) TypeName() string     { return "PointsPrimitive" }
func (p *PointsPrimitive) Variables() Variables { return p.Vars }
func (p *PointsPrimitive) Bound() core.AABB     { return boundOf(p.Vars) }

// Validate implements Primitive
func (p *PointsPrimitive) Validate() error {
	return validateSizes(p.TypeName(), p.Vars, func(interp Interpolation) int {
		switch interp {
		case Constant:
			return 1
		case Uniform:
			return 1
		case Vertex, Varying, FaceVarying:
			return p.NumPoints
		}
		return -1
	})
}

// Hash implements core.Hashable
func (p *PointsPrimitive) Hash(h *core.Hasher) {
	h.AppendString(p.TypeName())
	h.AppendInt(p.NumPoints)
	p.Vars.hash(h)
}

func (p *PointsPrimitive) withVariables(vars Variables) Primitive {
	return &PointsPrimitive{NumPoints: p.NumPoints, Vars: vars}
}
