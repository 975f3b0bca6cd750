package convert

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/meshio"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

func TestBatchBackend_WritesOncePerHash(t *testing.T) {
	dir := t.TempDir()
	backend := NewBatchBackend(dir, nil)

	obj, err := backend.Convert("abc", []primitive.Primitive{cube()})
	require.NoError(t, err)
	assert.Equal(t, []string{"_geometry/abc.binarymesh"}, obj.Filenames)
	assert.Equal(t, "_geometry/abc.binarymesh", obj.Params.String("filename", ""))
	assert.FileExists(t, filepath.Join(dir, "_geometry", "abc.binarymesh"))

	// A second session converting the same content finds the file on disk
	again := NewBatchBackend(dir, nil)
	_, err = again.Convert("abc", []primitive.Primitive{cube()})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Writes())
	assert.Equal(t, 0, again.Writes())

	m, err := meshio.ReadFile(filepath.Join(dir, obj.Filenames[0]))
	require.NoError(t, err)
	assert.Len(t, m.Triangles, 12)
}

func TestBatchBackend_MotionSamplesPerFile(t *testing.T) {
	dir := t.TempDir()
	backend := NewBatchBackend(dir, nil)
	require.NoError(t, backend.SetOption(MeshFileFormatOption, "obj"))

	obj, err := backend.Convert("abc", []primitive.Primitive{cube(), shiftedCube(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"_geometry/abc_0.obj", "_geometry/abc_1.obj"}, obj.Filenames)
	assert.Equal(t, "_geometry/abc_1.obj", obj.Params.String("filename.1", ""))
	assert.Equal(t, 2, backend.Writes())
}

func TestBatchBackend_Options(t *testing.T) {
	backend := NewBatchBackend(t.TempDir(), nil)
	assert.ErrorIs(t, backend.SetOption(MeshFileFormatOption, "fbx"), core.ErrUnknownModel)
	assert.ErrorIs(t, backend.SetOption(MeshFileFormatOption, 3), core.ErrInvalidValue)
	assert.Equal(t, meshio.DefaultFormat, backend.Format())

	c := New(backend, nil)
	require.NoError(t, c.SetOption(MeshFileFormatOption, "obj"))
	assert.Equal(t, "obj", backend.Format())
}

func TestBatchBackend_CubeThreeTimes(t *testing.T) {
	dir := t.TempDir()
	backend := NewBatchBackend(dir, nil)
	c := New(backend, nil)
	parent := scene.NewAssembly("assembly")
	attrs := attributes.NewState()

	for i := 0; i < 3; i++ {
		require.NotNil(t, c.ConvertPrimitive(cube(), attrs, "material", parent))
	}
	assert.Equal(t, 1, backend.Writes())
	assert.Equal(t, 1, parent.Assemblies.Len())
}

func TestResampleTimes(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		open     float64
		close    float64
		expected []float64
	}{
		{"two", 2, 0, 1, []float64{0, 1}},
		{"three rounds up", 3, 0, 1, []float64{0, 1.0 / 3, 2.0 / 3, 1}},
		{"one becomes two", 1, -0.5, 0.5, []float64{-0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := ResampleTimes(tt.open, tt.close, tt.n)
			require.Len(t, times, len(tt.expected))
			for i := range times {
				assert.InDelta(t, tt.expected[i], times[i], 1e-12)
			}
			assert.False(t, NeedsResampling(times, tt.open, tt.close))
		})
	}
}

func TestNeedsResampling(t *testing.T) {
	assert.False(t, NeedsResampling([]float64{0, 0.5}, 0, 0.5))
	assert.True(t, NeedsResampling([]float64{0, 0.5, 1}, 0, 1), "non power of two")
	assert.True(t, NeedsResampling([]float64{0, 0.1, 0.2, 1}, 0, 1), "uneven spacing")
	assert.True(t, NeedsResampling([]float64{0.25, 1}, 0, 1), "does not span shutter")
}

func TestResamplePrimitives_ExactTimesKeepSamples(t *testing.T) {
	a, b, c := cube(), shiftedCube(1), shiftedCube(3)
	times, out, err := ResamplePrimitives(primitive.DefaultInterpolators,
		[]float64{0, 1.0 / 3, 1}, []primitive.Primitive{a, b, c}, 0, 1)
	require.NoError(t, err)
	require.Len(t, times, 4)

	assert.Same(t, a, out[0])
	assert.Same(t, b, out[1])
	assert.Same(t, c, out[3])

	// 2/3 lies halfway between the 1/3 and 1 samples
	p, _ := out[2].Variables().Vec3s("P")
	assert.InDelta(t, 1.0, p[0].X, 1e-9)
}

func TestResamplePrimitives_ClampsOutsideRange(t *testing.T) {
	a, b := cube(), shiftedCube(1)
	_, out, err := ResamplePrimitives(primitive.DefaultInterpolators,
		[]float64{0.25, 0.5}, []primitive.Primitive{a, b}, 0, 1)
	require.NoError(t, err)
	assert.Same(t, a, out[0])
	assert.Same(t, b, out[1])
}
