package convert

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// countingBackend wraps the interactive backend and counts conversions
type countingBackend struct {
	InteractiveBackend
	calls   int
	samples []int
}

func (b *countingBackend) Convert(name string, samples []primitive.Primitive) (*scene.Object, error) {
	b.calls++
	b.samples = append(b.samples, len(samples))
	return b.InteractiveBackend.Convert(name, samples)
}

func cube() *primitive.MeshPrimitive {
	return primitive.NewCube(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
}

func shiftedCube(x float64) *primitive.MeshPrimitive {
	return primitive.NewCube(core.NewVec3(x-1, -1, -1), core.NewVec3(x+1, 1, 1))
}

func newTestConverter(t *testing.T) (*Converter, *countingBackend, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	backend := &countingBackend{}
	return New(backend, core.NewLogger(&buf, log.DebugLevel)), backend, &buf
}

func TestConverter_InstanceCacheIdempotent(t *testing.T) {
	c, backend, _ := newTestConverter(t)
	parent := scene.NewAssembly("assembly")
	attrs := attributes.NewState()

	a1 := c.ConvertPrimitive(cube(), attrs, "material", parent)
	a2 := c.ConvertPrimitive(cube(), attrs, "material", parent)

	require.NotNil(t, a1)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, 1, parent.Assemblies.Len())
	assert.Equal(t, 1, c.Conversions())
}

func TestConverter_HashSensitivity(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(attrs *attributes.State) (*primitive.MeshPrimitive, string)
		distinct bool
	}{
		{
			name: "material",
			mutate: func(attrs *attributes.State) (*primitive.MeshPrimitive, string) {
				return cube(), "other_material"
			},
			distinct: true,
		},
		{
			name: "geometry",
			mutate: func(attrs *attributes.State) (*primitive.MeshPrimitive, string) {
				return shiftedCube(0.001), "material"
			},
			distinct: true,
		},
		{
			name: "visibility",
			mutate: func(attrs *attributes.State) (*primitive.MeshPrimitive, string) {
				_ = attrs.SetAttribute("as:visibility:camera", false)
				return cube(), "material"
			},
			distinct: true,
		},
		{
			name: "scope name only",
			mutate: func(attrs *attributes.State) (*primitive.MeshPrimitive, string) {
				_ = attrs.SetAttribute("name", "/renamed")
				return cube(), "material"
			},
			distinct: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, backend, _ := newTestConverter(t)
			parent := scene.NewAssembly("assembly")

			first := c.ConvertPrimitive(cube(), attributes.NewState(), "material", parent)

			attrs := attributes.NewState()
			prim, material := tt.mutate(attrs)
			second := c.ConvertPrimitive(prim, attrs, material, parent)

			if tt.distinct {
				assert.NotSame(t, first, second)
				assert.Equal(t, 2, backend.calls)
			} else {
				assert.Same(t, first, second)
				assert.Equal(t, 1, backend.calls)
			}
		})
	}
}

func TestConverter_InstancingDisabled(t *testing.T) {
	c, backend, _ := newTestConverter(t)
	require.NoError(t, c.SetOption(AutomaticInstancingOption, false))
	parent := scene.NewAssembly("assembly")
	attrs := attributes.NewState()

	a1 := c.ConvertPrimitive(cube(), attrs, "", parent)
	a2 := c.ConvertPrimitive(cube(), attrs, "", parent)
	assert.NotSame(t, a1, a2)
	assert.NotEqual(t, a1.Name, a2.Name)
	assert.Equal(t, 2, backend.calls)
	assert.Equal(t, 2, parent.Assemblies.Len())

	assert.ErrorIs(t, c.SetOption(AutomaticInstancingOption, "yes"), core.ErrInvalidValue)
}

func TestConverter_UnsupportedPrimitiveWarns(t *testing.T) {
	c, _, buf := newTestConverter(t)
	parent := scene.NewAssembly("assembly")

	asm := c.ConvertPrimitive(primitive.NewPoints([]core.Vec3{{}}), attributes.NewState(), "", parent)
	assert.Nil(t, asm)
	assert.Contains(t, buf.String(), "Cannot convert primitive PointsPrimitive")
	assert.Equal(t, 0, parent.Assemblies.Len())
}

func TestConverter_ObjectInstanceMaterials(t *testing.T) {
	c, _, _ := newTestConverter(t)
	parent := scene.NewAssembly("assembly")
	attrs := attributes.NewState()
	require.NoError(t, attrs.SetAttribute("doubleSided", false))

	asm := c.ConvertPrimitive(cube(), attrs, "red", parent)
	require.NotNil(t, asm)
	insts := asm.ObjectInstances.Items()
	require.Len(t, insts, 1)
	assert.Equal(t, "red", insts[0].FrontMaterials["default"])
	assert.Nil(t, insts[0].BackMaterials)
	assert.Equal(t, insts[0].Object, asm.Objects.Items()[0].Name)
}

func TestConverter_MotionWithoutShutterUsesFirstSample(t *testing.T) {
	c, backend, buf := newTestConverter(t)
	parent := scene.NewAssembly("assembly")

	asm, err := c.ConvertPrimitiveSamples([]float64{0, 1},
		[]primitive.Primitive{cube(), shiftedCube(1)}, attributes.NewState(), "", parent)
	require.NoError(t, err)
	require.NotNil(t, asm)
	assert.Contains(t, buf.String(), "shutter interval is invalid")
	assert.Equal(t, []int{1}, backend.samples)
	assert.Equal(t, 0, asm.Objects.Items()[0].Mesh.MotionSegmentCount())
}

func TestConverter_MotionResamples(t *testing.T) {
	c, backend, _ := newTestConverter(t)
	c.SetShutterInterval(0, 1)
	parent := scene.NewAssembly("assembly")

	asm, err := c.ConvertPrimitiveSamples([]float64{0, 0.5, 1},
		[]primitive.Primitive{cube(), shiftedCube(1), shiftedCube(2)}, attributes.NewState(), "", parent)
	require.NoError(t, err)
	require.NotNil(t, asm)

	// Three samples become four evenly spaced ones
	assert.Equal(t, []int{4}, backend.samples)
	mesh := asm.Objects.Items()[0].Mesh
	require.Len(t, mesh.Poses, 3)
	assert.InDelta(t, -1+2.0/3.0, mesh.Poses[0].Positions[0].X, 1e-9)
	assert.InDelta(t, 1.0, mesh.Poses[2].Positions[0].X, 1e-9)
}

func TestConverter_MotionTopologyMismatchIsError(t *testing.T) {
	c, _, _ := newTestConverter(t)
	c.SetShutterInterval(0, 1)
	parent := scene.NewAssembly("assembly")

	withNormals := cube()
	withNormals.Vars["N"] = primitive.Variable{Interpolation: primitive.Vertex, Data: make([]core.Vec3, 8)}

	_, err := c.ConvertPrimitiveSamples([]float64{0, 1},
		[]primitive.Primitive{withNormals, shiftedCube(1)}, attributes.NewState(), "", parent)
	assert.ErrorIs(t, err, core.ErrMissingVariable)

	_, err = c.ConvertPrimitiveSamples([]float64{0, 1},
		[]primitive.Primitive{cube(), primitive.NewMesh([]int{3}, []int{0, 1, 2}, make([]core.Vec3, 3))},
		attributes.NewState(), "", parent)
	assert.Error(t, err)
}

func TestConverter_MotionHashIncludesShutter(t *testing.T) {
	c, backend, _ := newTestConverter(t)
	parent := scene.NewAssembly("assembly")
	samples := []primitive.Primitive{cube(), shiftedCube(1)}

	c.SetShutterInterval(0, 1)
	a1, err := c.ConvertPrimitiveSamples([]float64{0, 1}, samples, attributes.NewState(), "", parent)
	require.NoError(t, err)
	a2, err := c.ConvertPrimitiveSamples([]float64{0, 1}, samples, attributes.NewState(), "", parent)
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	c.SetShutterInterval(0, 0.5)
	a3, err := c.ConvertPrimitiveSamples([]float64{0, 0.5}, samples, attributes.NewState(), "", parent)
	require.NoError(t, err)
	assert.NotSame(t, a1, a3)
	assert.Equal(t, 2, backend.calls)
}
