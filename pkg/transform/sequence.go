// Package transform implements the time-sampled transform stack shared by
// the renderer backends.
package transform

import (
	"sort"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Sample is a transform at a point in time
type Sample struct {
	Time   float64
	Matrix core.Mat44
}

// Sequence is a time ordered list of transform samples with unique times
type Sequence struct {
	samples []Sample
}

// NewSequence creates a single sample sequence at time 0
func NewSequence(m core.Mat44) Sequence {
	return Sequence{samples: []Sample{{Time: 0, Matrix: m}}}
}

// NewSequenceFromSamples creates a sequence from parallel time and matrix slices.
// Duplicate times keep the last matrix.
func NewSequenceFromSamples(times []float64, matrices []core.Mat44) Sequence {
	var s Sequence
	n := min(len(times), len(matrices))
	for i := 0; i < n; i++ {
		s.Set(times[i], matrices[i])
	}
	return s
}

// Set inserts or replaces the sample at time
func (s *Sequence) Set(time float64, m core.Mat44) {
	i := sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Time >= time })
	if i < len(s.samples) && s.samples[i].Time == time {
		s.samples[i].Matrix = m
		return
	}
	s.samples = append(s.samples, Sample{})
	copy(s.samples[i+1:], s.samples[i:])
	s.samples[i] = Sample{Time: time, Matrix: m}
}

// Size returns the number of samples
func (s Sequence) Size() int { return len(s.samples) }

// Sample returns the i'th sample
func (s Sequence) Sample(i int) Sample { return s.samples[i] }

// Times returns the sample times in order
func (s Sequence) Times() []float64 {
	times := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		times[i] = sample.Time
	}
	return times
}

// Matrices returns the sample matrices in time order
func (s Sequence) Matrices() []core.Mat44 {
	ms := make([]core.Mat44, len(s.samples))
	for i, sample := range s.samples {
		ms[i] = sample.Matrix
	}
	return ms
}

// Earliest returns the matrix of the first sample, or identity if empty
func (s Sequence) Earliest() core.Mat44 {
	if len(s.samples) == 0 {
		return core.Identity()
	}
	return s.samples[0].Matrix
}

// Evaluate returns the linearly interpolated matrix at time, clamping
// outside the sample range
func (s Sequence) Evaluate(time float64) core.Mat44 {
	n := len(s.samples)
	switch {
	case n == 0:
		return core.Identity()
	case n == 1 || time <= s.samples[0].Time:
		return s.samples[0].Matrix
	case time >= s.samples[n-1].Time:
		return s.samples[n-1].Matrix
	}

	hi := sort.Search(n, func(i int) bool { return s.samples[i].Time >= time })
	if s.samples[hi].Time == time {
		return s.samples[hi].Matrix
	}
	a, b := s.samples[hi-1], s.samples[hi]
	t := (time - a.Time) / (b.Time - a.Time)
	return a.Matrix.Lerp(b.Matrix, t)
}

// clone returns a copy that does not share sample storage
func (s Sequence) clone() Sequence {
	return Sequence{samples: append([]Sample(nil), s.samples...)}
}
