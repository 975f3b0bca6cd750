package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Lerp(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vec3
		t        float64
		expected Vec3
	}{
		{"start", NewVec3(0, 0, 0), NewVec3(2, 4, 6), 0, NewVec3(0, 0, 0)},
		{"end", NewVec3(0, 0, 0), NewVec3(2, 4, 6), 1, NewVec3(2, 4, 6)},
		{"midpoint", NewVec3(1, 1, 1), NewVec3(3, 5, 7), 0.5, NewVec3(2, 3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.a.Lerp(tt.b, tt.t)
			assert.InDelta(t, 0, result.Subtract(tt.expected).Length(), 1e-12)
		})
	}
}

func TestVec3_CrossAndNormalize(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	assert.Equal(t, NewVec3(0, 0, 1), x.Cross(y))

	n := NewVec3(3, 0, 4).Normalize()
	assert.InDelta(t, 1.0, n.Length(), 1e-12)
	assert.InDelta(t, 0.6, n.X, 1e-12)

	// Zero vectors stay zero instead of producing NaN
	zero := Vec3{}.Normalize()
	assert.False(t, math.IsNaN(zero.X))
}

func TestAABB_Hit(t *testing.T) {
	box := NewAABBFromPoints(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	hit := NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1))
	assert.True(t, box.Hit(hit, 0.001, math.Inf(1)))

	miss := NewRay(NewVec3(0, 3, -5), NewVec3(0, 0, 1))
	assert.False(t, box.Hit(miss, 0.001, math.Inf(1)))

	assert.Equal(t, 0, box.Union(NewAABBFromPoints(NewVec3(5, 0, 0))).LongestAxis())
}
