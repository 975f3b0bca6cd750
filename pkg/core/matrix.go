package core

import (
	"math"
)

// Mat44 is a 4x4 transform using the row-vector convention: a point p is
// transformed as p*M, so translation lives in the last row and A.Multiply(B)
// applies A first and B second.
type Mat44 [4][4]float64

// Identity returns the identity matrix
func Identity() Mat44 {
	return Mat44{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// NewMat44 builds a matrix from 16 row-major values
func NewMat44(values []float64) (Mat44, bool) {
	var m Mat44
	if len(values) != 16 {
		return m, false
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i][j] = values[i*4+j]
		}
	}
	return m, true
}

// Translate returns a translation matrix
func Translate(v Vec3) Mat44 {
	m := Identity()
	m[3][0], m[3][1], m[3][2] = v.X, v.Y, v.Z
	return m
}

// Scale returns a scaling matrix
func Scale(v Vec3) Mat44 {
	m := Identity()
	m[0][0], m[1][1], m[2][2] = v.X, v.Y, v.Z
	return m
}

// Rotate returns a rotation of angleDegrees around axis
func Rotate(angleDegrees float64, axis Vec3) Mat44 {
	a := axis.Normalize()
	rad := angleDegrees * math.Pi / 180.0
	c, s := math.Cos(rad), math.Sin(rad)
	t := 1 - c

	// Rodrigues rotation, transposed for row vectors
	m := Identity()
	m[0][0] = t*a.X*a.X + c
	m[0][1] = t*a.X*a.Y + s*a.Z
	m[0][2] = t*a.X*a.Z - s*a.Y
	m[1][0] = t*a.X*a.Y - s*a.Z
	m[1][1] = t*a.Y*a.Y + c
	m[1][2] = t*a.Y*a.Z + s*a.X
	m[2][0] = t*a.X*a.Z + s*a.Y
	m[2][1] = t*a.Y*a.Z - s*a.X
	m[2][2] = t*a.Z*a.Z + c
	return m
}

// Multiply returns m*other
func (m Mat44) Multiply(other Mat44) Mat44 {
	var out Mat44
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i][k] * other[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// TransformPoint transforms a point, including translation and projective divide
func (m Mat44) TransformPoint(p Vec3) Vec3 {
	x := p.X*m[0][0] + p.Y*m[1][0] + p.Z*m[2][0] + m[3][0]
	y := p.X*m[0][1] + p.Y*m[1][1] + p.Z*m[2][1] + m[3][1]
	z := p.X*m[0][2] + p.Y*m[1][2] + p.Z*m[2][2] + m[3][2]
	w := p.X*m[0][3] + p.Y*m[1][3] + p.Z*m[2][3] + m[3][3]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// TransformDirection transforms a vector, ignoring translation
func (m Mat44) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		X: d.X*m[0][0] + d.Y*m[1][0] + d.Z*m[2][0],
		Y: d.X*m[0][1] + d.Y*m[1][1] + d.Z*m[2][1],
		Z: d.X*m[0][2] + d.Y*m[1][2] + d.Z*m[2][2],
	}
}

// TransformNormal transforms a normal by the inverse transpose
func (m Mat44) TransformNormal(n Vec3) Vec3 {
	inv, ok := m.Inverse()
	if !ok {
		return m.TransformDirection(n).Normalize()
	}
	return Vec3{
		X: n.X*inv[0][0] + n.Y*inv[0][1] + n.Z*inv[0][2],
		Y: n.X*inv[1][0] + n.Y*inv[1][1] + n.Z*inv[1][2],
		Z: n.X*inv[2][0] + n.Y*inv[2][1] + n.Z*inv[2][2],
	}.Normalize()
}

// Translation returns the translation component
func (m Mat44) Translation() Vec3 {
	return Vec3{m[3][0], m[3][1], m[3][2]}
}

// Lerp interpolates each component towards other. t=0 returns m exactly.
func (m Mat44) Lerp(other Mat44, t float64) Mat44 {
	var out Mat44
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i][j] + (other[i][j]-m[i][j])*t
		}
	}
	return out
}

// EqualWithTolerance reports whether all components differ by at most tol
func (m Mat44) EqualWithTolerance(other Mat44, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-other[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Values returns the 16 components in row-major order
func (m Mat44) Values() []float64 {
	out := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		out = append(out, m[i][:]...)
	}
	return out
}

// Inverse computes the inverse with Gauss-Jordan elimination.
// The second return value is false for singular matrices.
func (m Mat44) Inverse() (Mat44, bool) {
	a := m
	inv := Identity()

	for col := 0; col < 4; col++ {
		// Partial pivot
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Mat44{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		scale := 1.0 / a[col][col]
		for j := 0; j < 4; j++ {
			a[col][j] *= scale
			inv[col][j] *= scale
		}

		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			f := a[row][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 4; j++ {
				a[row][j] -= f * a[col][j]
				inv[row][j] -= f * inv[col][j]
			}
		}
	}

	return inv, true
}
