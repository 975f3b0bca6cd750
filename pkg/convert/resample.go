package convert

import (
	"fmt"
	"math"

	"github.com/df07/go-scene-bridge/pkg/primitive"
)

const timeTolerance = 1e-4

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// ResampleTimes returns a power-of-two count (at least two, at least n)
// of evenly spaced times spanning [open, close]
func ResampleTimes(shutterOpen, shutterClose float64, n int) []float64 {
	count := nextPowerOfTwo(max(n, 2))
	times := make([]float64, count)
	step := (shutterClose - shutterOpen) / float64(count-1)
	for i := range times {
		times[i] = shutterOpen + step*float64(i)
	}
	times[count-1] = shutterClose
	return times
}

// NeedsResampling reports whether times are not already a power-of-two
// count of evenly spaced samples spanning exactly [open, close]
func NeedsResampling(times []float64, shutterOpen, shutterClose float64) bool {
	n := len(times)
	if !isPowerOfTwo(n) || n < 2 {
		return true
	}
	if math.Abs(times[0]-shutterOpen) > timeTolerance || math.Abs(times[n-1]-shutterClose) > timeTolerance {
		return true
	}
	step := (shutterClose - shutterOpen) / float64(n-1)
	for i := 1; i < n; i++ {
		if math.Abs(times[i]-times[i-1]-step) > timeTolerance {
			return true
		}
	}
	return false
}

// ResamplePrimitives interpolates primitives sampled at times onto the
// canonical sample times for [open, close]. Times outside the given
// samples clamp to the nearest end sample; canonical times matching a
// given sample return that sample unchanged.
func ResamplePrimitives(interp *primitive.Interpolators, times []float64, prims []primitive.Primitive, shutterOpen, shutterClose float64) ([]float64, []primitive.Primitive, error) {
	if len(times) != len(prims) || len(prims) == 0 {
		return nil, nil, fmt.Errorf("%d times for %d primitives", len(times), len(prims))
	}

	canonical := ResampleTimes(shutterOpen, shutterClose, len(times))
	out := make([]primitive.Primitive, len(canonical))
	last := len(times) - 1
	for i, t := range canonical {
		if t <= times[0]+timeTolerance {
			out[i] = prims[0]
			continue
		}
		if t >= times[last]-timeTolerance {
			out[i] = prims[last]
			continue
		}

		hi := 1
		for times[hi] < t-timeTolerance {
			hi++
		}
		if math.Abs(times[hi]-t) <= timeTolerance {
			out[i] = prims[hi]
			continue
		}

		lo := hi - 1
		blend := (t - times[lo]) / (times[hi] - times[lo])
		p, err := interp.Lerp(prims[lo], prims[hi], blend)
		if err != nil {
			return nil, nil, err
		}
		out[i] = p
	}
	return canonical, out, nil
}
