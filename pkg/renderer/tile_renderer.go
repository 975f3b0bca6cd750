package renderer

import (
	"image"
	"math"
	"math/rand"

	"github.com/df07/go-scene-bridge/pkg/integrator"
)

// TileRenderer handles the actual rendering of individual tiles using an integrator
type TileRenderer struct {
	world      *World
	integrator integrator.Integrator

	// AdaptiveThreshold stops sampling a pixel once the relative error of
	// its luminance falls below it. Zero disables adaptive sampling.
	AdaptiveThreshold float64

	// AdaptiveMinSamples is the fraction of the target samples always taken
	AdaptiveMinSamples float64
}

// NewTileRenderer creates a new tile renderer with the given world and integrator
func NewTileRenderer(world *World, integratorInst integrator.Integrator) *TileRenderer {
	return &TileRenderer{
		world:              world,
		integrator:         integratorInst,
		AdaptiveMinSamples: 0.25,
	}
}

// RenderTileBounds samples every pixel within bounds up to targetSamples
// total samples. pixelStats is indexed in image coordinates.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, pixelStats [][]PixelStats, random *rand.Rand, targetSamples int) RenderStats {
	stats := RenderStats{
		TotalPixels: bounds.Dx() * bounds.Dy(),
		MaxSamples:  targetSamples,
		MinSamples:  targetSamples,
	}

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			samplesUsed := tr.samplePixel(i, j, &pixelStats[j][i], random, targetSamples)
			stats.TotalSamples += samplesUsed
			stats.MinSamples = min(stats.MinSamples, samplesUsed)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, samplesUsed)
		}
	}

	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return stats
}

// samplePixel takes samples until the pixel reaches maxSamples or converges
func (tr *TileRenderer) samplePixel(i, j int, ps *PixelStats, random *rand.Rand, maxSamples int) int {
	initialSampleCount := ps.SampleCount
	camera := tr.world.Camera()

	for ps.SampleCount < maxSamples && !tr.shouldStopSampling(ps, maxSamples) {
		ray := camera.GetRay(i, j, random)
		ps.AddSample(tr.integrator.RayColor(ray, tr.world, random))
	}

	return ps.SampleCount - initialSampleCount
}

// shouldStopSampling determines if adaptive sampling should stop based on perceptual relative error
func (tr *TileRenderer) shouldStopSampling(ps *PixelStats, maxSamples int) bool {
	if tr.AdaptiveThreshold <= 0 {
		return false
	}

	minSamples := max(1, int(float64(maxSamples)*tr.AdaptiveMinSamples))
	if ps.SampleCount < minSamples {
		return false
	}

	mean := ps.LuminanceAccum / float64(ps.SampleCount)
	meanSq := ps.LuminanceSqAccum / float64(ps.SampleCount)
	variance := math.Max(0, meanSq-mean*mean)

	// Black pixels have no meaningful relative error
	if mean <= 1e-8 {
		return variance < 1e-6
	}

	return math.Sqrt(variance)/mean < tr.AdaptiveThreshold
}
