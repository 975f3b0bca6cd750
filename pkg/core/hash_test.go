package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasher_Deterministic(t *testing.T) {
	params := Params{"b": 2.0, "a": "x", "c": Color{1, 0, 0}}
	h1 := NewHasher().Append(params).Append([]int{3, 3}).Sum()

	// Same content built in a different insertion order
	other := Params{}
	other["c"] = Color{1, 0, 0}
	other["a"] = "x"
	other["b"] = 2.0
	h2 := NewHasher().Append(other).Append([]int{3, 3}).Sum()

	assert.Equal(t, h1, h2)
	assert.Len(t, h1.String(), HashSize*2)
	assert.False(t, h1.IsZero())
}

func TestHasher_Sensitivity(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"int vs float", 1, 1.0},
		{"string content", "cube", "cubes"},
		{"float slices", []float64{0, 1, 2}, []float64{0, 1, 2.0001}},
		{"int slices length", []int{1, 2}, []int{1, 2, 0}},
		{"params values", Params{"k": 1.0}, Params{"k": 2.0}},
		{"matrices", Identity(), Translate(NewVec3(0, 0, 1))},
		{"string split", []string{"ab", "c"}, []string{"a", "bc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := NewHasher().Append(tt.a).Sum()
			hb := NewHasher().Append(tt.b).Sum()
			assert.NotEqual(t, ha, hb)
		})
	}
}
