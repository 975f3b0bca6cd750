// Package motion accumulates the calls of a motion block and dispatches
// them to the transform stack or the primitive converter when it closes.
package motion

import (
	"fmt"
	"sort"

	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/convert"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// BlockType is fixed by the first call inside a motion block
type BlockType int

const (
	NoBlock BlockType = iota
	SetTransformBlock
	ConcatTransformBlock
	PrimitiveBlock
)

func (b BlockType) String() string {
	switch b {
	case SetTransformBlock:
		return "setTransform"
	case ConcatTransformBlock:
		return "concatTransform"
	case PrimitiveBlock:
		return "primitive"
	}
	return "none"
}

// Handler is the motion block state machine
type Handler struct {
	transforms *transform.Stack
	converter  *convert.Converter
	logger     core.Logger

	inside    bool
	blockType BlockType
	times     []float64
	matrices  []core.Mat44
	prims     []primitive.Primitive
	material  string
}

// NewHandler creates a handler writing to the given stack and converter
func NewHandler(transforms *transform.Stack, converter *convert.Converter, logger core.Logger) *Handler {
	return &Handler{
		transforms: transforms,
		converter:  converter,
		logger:     core.OrDiscard(logger),
	}
}

// InsideMotionBlock reports whether a block is open
func (h *Handler) InsideMotionBlock() bool { return h.inside }

// Type returns the current block type
func (h *Handler) Type() BlockType { return h.blockType }

// MotionBegin opens a block sampled at times. Duplicate times are merged.
func (h *Handler) MotionBegin(times []float64) {
	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)
	h.times = h.times[:0]
	for i, t := range sorted {
		if i == 0 || t != sorted[i-1] {
			h.times = append(h.times, t)
		}
	}
	h.inside = true
	h.blockType = NoBlock
	h.matrices = nil
	h.prims = nil
	h.material = ""
}

func (h *Handler) lock(op string, t BlockType) bool {
	if h.blockType == NoBlock {
		h.blockType = t
		return true
	}
	if h.blockType != t {
		h.logger.Errorf("%s: Cannot mix %v and %v calls inside a motion block.", op, h.blockType, t)
		return false
	}
	return true
}

// SetTransform records a transform sample
func (h *Handler) SetTransform(m core.Mat44) {
	if h.lock("setTransform", SetTransformBlock) {
		h.matrices = append(h.matrices, m)
	}
}

// ConcatTransform records a transform sample to compose onto the current transform
func (h *Handler) ConcatTransform(m core.Mat44) {
	if h.lock("concatTransform", ConcatTransformBlock) {
		h.matrices = append(h.matrices, m)
	}
}

// Primitive records a deformation sample. All samples must share a type.
func (h *Handler) Primitive(prim primitive.Primitive, material string) {
	if !h.lock("primitive", PrimitiveBlock) {
		return
	}
	if len(h.prims) > 0 && h.prims[0].TypeName() != prim.TypeName() {
		h.logger.Errorf("primitive: Cannot mix %s and %s inside a motion block.", h.prims[0].TypeName(), prim.TypeName())
		return
	}
	h.prims = append(h.prims, prim)
	h.material = material
}

// MotionEnd closes the block. Transform blocks update the transform stack;
// primitive blocks convert the samples into container and instance the
// result in parent using the current static transform. A mismatched call count is logged
// and the block proceeds with the samples it has. Errors are returned
// only for deformation samples that fail validation.
func (h *Handler) MotionEnd(attrs *attributes.State, container, parent *scene.Assembly) (*scene.AssemblyInstance, error) {
	defer h.reset()

	calls := len(h.matrices)
	if h.blockType == PrimitiveBlock {
		calls = len(h.prims)
	}
	if calls != len(h.times) {
		h.logger.Errorf("motionEnd: Wrong number of calls in motion block: %d calls for %d time samples.", calls, len(h.times))
	}
	n := min(calls, len(h.times))
	if n == 0 {
		return nil, nil
	}

	switch h.blockType {
	case SetTransformBlock, ConcatTransformBlock:
		h.applyTransforms(n)
		return nil, nil
	case PrimitiveBlock:
		if container == nil || parent == nil {
			return nil, nil
		}
		asm, err := h.converter.ConvertPrimitiveSamples(h.times[:n], h.prims[:n], attrs, h.material, container)
		if err != nil {
			return nil, fmt.Errorf("motionEnd: %w", err)
		}
		if asm == nil {
			return nil, nil
		}
		inst := convert.CreateAssemblyInstance(parent, asm.Name, attrs, transform.NewSequence(h.transforms.Get()))
		return inst, nil
	}
	return nil, nil
}

func (h *Handler) applyTransforms(n int) {
	if !h.converter.ShutterValid() {
		h.logger.Errorf("motionEnd: Camera shutter interval is invalid, using the first transform sample only.")
		if h.blockType == SetTransformBlock {
			_ = h.transforms.SetTransform(h.matrices[0])
		} else {
			_ = h.transforms.ConcatTransform(h.matrices[0])
		}
		return
	}

	if h.blockType == SetTransformBlock {
		h.transforms.SetTransformSamples(h.times[:n], h.matrices[:n])
	} else {
		h.transforms.ConcatTransformSamples(h.times[:n], h.matrices[:n])
	}
}

func (h *Handler) reset() {
	h.inside = false
	h.blockType = NoBlock
	h.times = nil
	h.matrices = nil
	h.prims = nil
	h.material = ""
}
