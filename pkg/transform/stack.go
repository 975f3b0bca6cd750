package transform

import (
	"fmt"

	"github.com/df07/go-scene-bridge/pkg/core"
)

type scope struct {
	seq Sequence

	// While a motion block is open, writes go to seq.samples[cursor]
	inMotion bool
	cursor   int
}

// Stack is a stack of transform scopes. The bottom scope always exists.
type Stack struct {
	scopes []scope
}

// NewStack creates a stack holding a single identity scope
func NewStack() *Stack {
	s := &Stack{}
	s.Clear()
	return s
}

// Clear resets the stack to a single identity scope
func (s *Stack) Clear() {
	s.scopes = []scope{{seq: NewSequence(core.Identity())}}
}

// Size returns the number of scopes
func (s *Stack) Size() int { return len(s.scopes) }

// Push duplicates the top scope
func (s *Stack) Push() {
	top := s.top()
	s.scopes = append(s.scopes, scope{seq: top.seq.clone()})
}

// Pop discards the top scope. Popping the last scope returns
// ErrStackUnderflow and leaves the stack unchanged.
func (s *Stack) Pop() error {
	if len(s.scopes) <= 1 {
		return core.ErrStackUnderflow
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
	return nil
}

func (s *Stack) top() *scope {
	return &s.scopes[len(s.scopes)-1]
}

// Top returns a copy of the top scope's sequence
func (s *Stack) Top() Sequence {
	return s.top().seq.clone()
}

// Get returns the top transform's earliest sample
func (s *Stack) Get() core.Mat44 {
	return s.top().seq.Earliest()
}

// GetAt returns the top transform interpolated at time
func (s *Stack) GetAt(time float64) core.Mat44 {
	return s.top().seq.Evaluate(time)
}

// SetTransform replaces the current transform. Inside a motion block it
// writes the next sample instead.
func (s *Stack) SetTransform(m core.Mat44) error {
	top := s.top()
	if top.inMotion {
		return s.write(top, func(core.Mat44) core.Mat44 { return m })
	}
	top.seq = NewSequence(m)
	return nil
}

// ConcatTransform composes m onto the current transform so that m is
// applied first. Inside a motion block it composes onto the next sample.
func (s *Stack) ConcatTransform(m core.Mat44) error {
	top := s.top()
	if top.inMotion {
		return s.write(top, m.Multiply)
	}
	for i := range top.seq.samples {
		top.seq.samples[i].Matrix = m.Multiply(top.seq.samples[i].Matrix)
	}
	return nil
}

func (s *Stack) write(top *scope, fn func(core.Mat44) core.Mat44) error {
	if top.cursor >= top.seq.Size() {
		return fmt.Errorf("%d samples declared: %w", top.seq.Size(), core.ErrTooManySamples)
	}
	sample := &top.seq.samples[top.cursor]
	sample.Matrix = fn(sample.Matrix)
	top.cursor++
	return nil
}

// SetTransformSamples replaces the current transform with a motion sequence
func (s *Stack) SetTransformSamples(times []float64, matrices []core.Mat44) {
	s.top().seq = NewSequenceFromSamples(times, matrices)
}

// ConcatTransformSamples composes a motion sequence onto the current
// transform, evaluating the current transform at each of the given times
func (s *Stack) ConcatTransformSamples(times []float64, matrices []core.Mat44) {
	top := s.top()
	n := min(len(times), len(matrices))
	composed := make([]core.Mat44, n)
	for i := 0; i < n; i++ {
		composed[i] = matrices[i].Multiply(top.seq.Evaluate(times[i]))
	}
	top.seq = NewSequenceFromSamples(times[:n], composed)
}

// MotionBegin resamples the current transform at times and switches the
// top scope into sequential write mode
func (s *Stack) MotionBegin(times []float64) {
	top := s.top()
	resampled := make([]core.Mat44, len(times))
	for i, t := range times {
		resampled[i] = top.seq.Evaluate(t)
	}
	top.seq = NewSequenceFromSamples(times, resampled)
	top.inMotion = true
	top.cursor = 0
}

// MotionEnd leaves sequential write mode
func (s *Stack) MotionEnd() {
	top := s.top()
	top.inMotion = false
	top.cursor = 0
}

// InMotion reports whether the top scope is in sequential write mode
func (s *Stack) InMotion() bool {
	return s.top().inMotion
}
