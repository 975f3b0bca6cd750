package integrator

import (
	"math"
	"math/rand"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/geometry"
)

// rayEpsilon offsets secondary rays from the surface they leave
const rayEpsilon = 0.001

// Config controls path length and termination
type Config struct {
	MaxDepth                  int // Maximum number of bounces
	RussianRouletteMinBounces int // Bounces before Russian roulette may terminate a path
}

// DefaultConfig returns the settings used when a render configuration is silent
func DefaultConfig() Config {
	return Config{MaxDepth: 8, RussianRouletteMinBounces: 3}
}

// PathTracingIntegrator implements unidirectional path tracing over
// diffuse surfaces with next event estimation of singular lights
type PathTracingIntegrator struct {
	config Config
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config Config) *PathTracingIntegrator {
	return &PathTracingIntegrator{config: config}
}

// RayColor computes the color for a single camera ray
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene Scene, random *rand.Rand) core.Vec3 {
	color := core.Vec3{}
	throughput := core.NewVec3(1, 1, 1)

	for bounce := 0; bounce < pt.config.MaxDepth; bounce++ {
		var hit geometry.HitRecord
		if !scene.Hit(ray, rayEpsilon, math.Inf(1), &hit) {
			if env := scene.Environment(); env != nil {
				color = color.Add(throughput.MultiplyVec(env.Emit(ray.Direction.Normalize())))
			}
			break
		}

		albedo := scene.Albedo(hit.Surface)
		color = color.Add(throughput.MultiplyVec(pt.directLighting(scene, &hit, albedo)))

		// Cosine weighted sampling cancels the cosine and 1/pi of the lambertian BRDF
		throughput = throughput.MultiplyVec(albedo)

		terminate, compensation := pt.applyRussianRoulette(bounce, throughput, random)
		if terminate {
			break
		}
		throughput = throughput.Multiply(compensation)

		ray = core.NewRay(hit.Point, sampleCosineHemisphere(hit.Normal, random))
	}

	return color
}

// directLighting sums the unoccluded contribution of every singular light
func (pt *PathTracingIntegrator) directLighting(scene Scene, hit *geometry.HitRecord, albedo core.Vec3) core.Vec3 {
	total := core.Vec3{}
	brdf := albedo.Multiply(1.0 / math.Pi)

	for _, light := range scene.Lights() {
		sample := light.Sample(hit.Point)
		cosine := sample.Direction.Dot(hit.Normal)
		if cosine <= 0 || sample.Emission.Luminance() <= 0 {
			continue
		}

		shadow := core.NewRay(hit.Point, sample.Direction)
		var blocker geometry.HitRecord
		if scene.Hit(shadow, rayEpsilon, sample.Distance-rayEpsilon, &blocker) {
			continue
		}

		total = total.Add(brdf.MultiplyVec(sample.Emission).Multiply(cosine))
	}

	return total
}

// applyRussianRoulette determines if a path should be terminated and returns the compensation factor
func (pt *PathTracingIntegrator) applyRussianRoulette(bounce int, throughput core.Vec3, random *rand.Rand) (bool, float64) {
	if bounce < pt.config.RussianRouletteMinBounces {
		return false, 1.0
	}

	// Survival probability between 0.5 and 0.95 keeps compensation within 2x
	survivalProb := math.Min(0.95, math.Max(0.5, throughput.Luminance()))
	if random.Float64() > survivalProb {
		return true, 0.0
	}
	return false, 1.0 / survivalProb
}

// sampleCosineHemisphere returns a cosine distributed direction around normal
func sampleCosineHemisphere(normal core.Vec3, random *rand.Rand) core.Vec3 {
	r1, r2 := random.Float64(), random.Float64()
	phi := 2 * math.Pi * r1
	r := math.Sqrt(r2)
	x, y, z := r*math.Cos(phi), r*math.Sin(phi), math.Sqrt(1-r2)

	// Orthonormal basis around the normal
	var helper core.Vec3
	if math.Abs(normal.X) > 0.9 {
		helper = core.NewVec3(0, 1, 0)
	} else {
		helper = core.NewVec3(1, 0, 0)
	}
	tangent := helper.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)

	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(z)).Normalize()
}
