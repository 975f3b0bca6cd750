package motion

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/convert"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

type fixture struct {
	handler   *Handler
	stack     *transform.Stack
	converter *convert.Converter
	log       *bytes.Buffer
}

func newFixture(t *testing.T, shutter bool) *fixture {
	t.Helper()
	var buf bytes.Buffer
	logger := core.NewLogger(&buf, log.DebugLevel)
	stack := transform.NewStack()
	conv := convert.New(convert.NewInteractiveBackend(), logger)
	if shutter {
		conv.SetShutterInterval(0, 1)
	}
	return &fixture{
		handler:   NewHandler(stack, conv, logger),
		stack:     stack,
		converter: conv,
		log:       &buf,
	}
}

func translate(x float64) core.Mat44 {
	return core.Translate(core.NewVec3(x, 0, 0))
}

func cubeAt(x float64) *primitive.MeshPrimitive {
	return primitive.NewCube(core.NewVec3(x-1, -1, -1), core.NewVec3(x+1, 1, 1))
}

func TestHandler_SetTransformBlock(t *testing.T) {
	f := newFixture(t, true)

	f.handler.MotionBegin([]float64{0, 1})
	assert.True(t, f.handler.InsideMotionBlock())
	f.handler.SetTransform(translate(1))
	f.handler.SetTransform(translate(3))
	_, err := f.handler.MotionEnd(attributes.NewState(), nil, nil)
	require.NoError(t, err)

	assert.False(t, f.handler.InsideMotionBlock())
	top := f.stack.Top()
	require.Equal(t, 2, top.Size())
	assert.Equal(t, []float64{0, 1}, top.Times())
	assert.True(t, f.stack.GetAt(0.5).EqualWithTolerance(translate(2), 1e-9))
	assert.Empty(t, f.log.String())
}

func TestHandler_ConcatTransformBlock(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.stack.SetTransform(translate(10)))

	f.handler.MotionBegin([]float64{1, 0})
	f.handler.ConcatTransform(translate(1))
	f.handler.ConcatTransform(translate(2))
	_, err := f.handler.MotionEnd(attributes.NewState(), nil, nil)
	require.NoError(t, err)

	assert.True(t, f.stack.GetAt(0).EqualWithTolerance(translate(11), 1e-9))
	assert.True(t, f.stack.GetAt(1).EqualWithTolerance(translate(12), 1e-9))
}

func TestHandler_CallCountDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		calls   int
		wantLog bool
	}{
		{name: "exact", calls: 2, wantLog: false},
		{name: "one short", calls: 1, wantLog: true},
		{name: "one extra", calls: 3, wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.handler.MotionBegin([]float64{0, 1})
			for i := 0; i < tt.calls; i++ {
				f.handler.SetTransform(translate(float64(i)))
			}
			_, err := f.handler.MotionEnd(attributes.NewState(), nil, nil)
			require.NoError(t, err)

			if tt.wantLog {
				assert.Contains(t, f.log.String(), "Wrong number of calls in motion block")
			} else {
				assert.NotContains(t, f.log.String(), "Wrong number of calls")
			}
			assert.False(t, f.handler.InsideMotionBlock())
		})
	}
}

func TestHandler_InvalidShutterUsesFirstSample(t *testing.T) {
	f := newFixture(t, false)

	f.handler.MotionBegin([]float64{0, 1})
	f.handler.SetTransform(translate(1))
	f.handler.SetTransform(translate(5))
	_, err := f.handler.MotionEnd(attributes.NewState(), nil, nil)
	require.NoError(t, err)

	assert.Contains(t, f.log.String(), "shutter interval is invalid")
	assert.Equal(t, 1, f.stack.Top().Size())
	assert.True(t, f.stack.Get().EqualWithTolerance(translate(1), 1e-9))
}

func TestHandler_MixedCallsLogged(t *testing.T) {
	f := newFixture(t, true)

	f.handler.MotionBegin([]float64{0, 1})
	f.handler.SetTransform(translate(1))
	f.handler.ConcatTransform(translate(2))
	assert.Equal(t, SetTransformBlock, f.handler.Type())
	assert.Contains(t, f.log.String(), "Cannot mix setTransform and concatTransform")

	f.handler.Primitive(cubeAt(0), "")
	assert.Contains(t, f.log.String(), "Cannot mix setTransform and primitive")
}

func TestHandler_MixedPrimitiveTypesLogged(t *testing.T) {
	f := newFixture(t, true)

	f.handler.MotionBegin([]float64{0, 1})
	f.handler.Primitive(cubeAt(0), "")
	f.handler.Primitive(primitive.NewPoints([]core.Vec3{{}}), "")

	assert.Contains(t, f.log.String(), "Cannot mix MeshPrimitive and PointsPrimitive")
}

func TestHandler_PrimitiveBlockInstancesAssembly(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.stack.SetTransform(translate(4)))
	parent := scene.NewAssembly("assembly")
	attrs := attributes.NewState()
	attrs.Name = "blob"

	f.handler.MotionBegin([]float64{0, 1})
	f.handler.Primitive(cubeAt(0), "")
	f.handler.Primitive(cubeAt(1), "")
	inst, err := f.handler.MotionEnd(attrs, parent, parent)
	require.NoError(t, err)
	require.NotNil(t, inst)

	assert.Equal(t, "blob_assembly_instance", inst.Name)
	assert.Equal(t, 1, parent.Assemblies.Len())
	assert.Equal(t, 1, parent.AssemblyInstances.Len())
	assert.True(t, inst.Transforms.Earliest().EqualWithTolerance(translate(4), 1e-9))

	asm, ok := parent.Assemblies.Get(inst.Assembly)
	require.True(t, ok)
	obj := asm.Objects.Items()[0]
	require.NotNil(t, obj.Mesh)
	assert.Equal(t, 1, obj.Mesh.MotionSegmentCount())
}

func TestHandler_PrimitiveBlockTopologyError(t *testing.T) {
	f := newFixture(t, true)
	parent := scene.NewAssembly("assembly")

	other := primitive.NewMesh([]int{3}, []int{0, 1, 2}, []core.Vec3{{}, {X: 1}, {Y: 1}})

	f.handler.MotionBegin([]float64{0, 1})
	f.handler.Primitive(cubeAt(0), "")
	f.handler.Primitive(other, "")
	_, err := f.handler.MotionEnd(attributes.NewState(), parent, parent)

	assert.ErrorIs(t, err, core.ErrTopologyMismatch)
	assert.Equal(t, 0, parent.AssemblyInstances.Len())
}
