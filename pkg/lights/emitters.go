package lights

import (
	"math"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// PointLight emits uniformly from a point
type PointLight struct {
	Position  core.Vec3
	Intensity core.Vec3
}

func (l *PointLight) Type() LightType { return LightTypePoint }

// Sample implements Light with inverse square falloff
func (l *PointLight) Sample(point core.Vec3) LightSample {
	toLight := l.Position.Subtract(point)
	distance := toLight.Length()
	if distance == 0 {
		return LightSample{}
	}
	return LightSample{
		Direction: toLight.Multiply(1 / distance),
		Distance:  distance,
		Emission:  l.Intensity.Multiply(1 / (distance * distance)),
	}
}

// SpotLight is a point light restricted to a cone
type SpotLight struct {
	PointLight
	Axis       core.Vec3 // Unit direction the spot points in
	InnerAngle float64   // Full intensity half angle, degrees
	OuterAngle float64   // Cutoff half angle, degrees
}

func (l *SpotLight) Type() LightType { return LightTypeSpot }

// Sample implements Light with a smooth falloff between the cone angles
func (l *SpotLight) Sample(point core.Vec3) LightSample {
	s := l.PointLight.Sample(point)
	if s.Distance == 0 {
		return s
	}

	cosAngle := s.Direction.Negate().Dot(l.Axis)
	cosInner := math.Cos(l.InnerAngle * math.Pi / 180)
	cosOuter := math.Cos(l.OuterAngle * math.Pi / 180)
	switch {
	case cosAngle >= cosInner:
	case cosAngle <= cosOuter:
		s.Emission = core.Vec3{}
	default:
		t := (cosAngle - cosOuter) / (cosInner - cosOuter)
		s.Emission = s.Emission.Multiply(t * t * (3 - 2*t))
	}
	return s
}

// DirectionalLight emits parallel rays along Direction
type DirectionalLight struct {
	Direction  core.Vec3 // Unit direction light travels in
	Irradiance core.Vec3
}

func (l *DirectionalLight) Type() LightType { return LightTypeDirectional }

// Sample implements Light
func (l *DirectionalLight) Sample(core.Vec3) LightSample {
	return LightSample{
		Direction: l.Direction.Negate(),
		Distance:  math.Inf(1),
		Emission:  l.Irradiance,
	}
}

// ConstantEnvironment emits the same radiance in every direction
type ConstantEnvironment struct {
	Radiance core.Vec3
}

func (e *ConstantEnvironment) Emit(core.Vec3) core.Vec3 { return e.Radiance }

// GradientEnvironment blends from horizon to zenith radiance with the
// elevation of the direction. Directions below the horizon get the
// horizon radiance.
type GradientEnvironment struct {
	Horizon core.Vec3
	Zenith  core.Vec3
}

func (e *GradientEnvironment) Emit(direction core.Vec3) core.Vec3 {
	t := max(0, direction.Normalize().Y)
	return e.Horizon.Lerp(e.Zenith, t)
}

// HemisphereEnvironment emits only from the upper hemisphere
type HemisphereEnvironment struct {
	Upper core.Vec3
	Lower core.Vec3
}

func (e *HemisphereEnvironment) Emit(direction core.Vec3) core.Vec3 {
	if direction.Y >= 0 {
		return e.Upper
	}
	return e.Lower
}

// LatLongEnvironment looks radiance up in an equirectangular map. The
// top row is the zenith and the centre column looks down -Z.
type LatLongEnvironment struct {
	Width, Height int
	Pixels        []core.Vec3 // Row major, Width*Height
	Multiplier    float64
}

func (e *LatLongEnvironment) Emit(direction core.Vec3) core.Vec3 {
	if e.Width == 0 || e.Height == 0 {
		return core.Vec3{}
	}
	d := direction.Normalize()
	u := 0.5 + math.Atan2(d.X, -d.Z)/(2*math.Pi)
	v := math.Acos(math.Max(-1, math.Min(1, d.Y))) / math.Pi

	x := min(int(u*float64(e.Width)), e.Width-1)
	y := min(int(v*float64(e.Height)), e.Height-1)
	return e.Pixels[y*e.Width+x].Multiply(e.Multiplier)
}
