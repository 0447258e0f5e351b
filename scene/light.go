package scene

import "math"

// minAttenuationDenominator bounds 1/(c + l·d + q·d²) for falloffs that
// evaluate to zero or below at some distance.
const minAttenuationDenominator = 1e-6

// Falloff describes how light intensity decays with distance:
//
//	attenuation(d) = window(d) / (Constant + Linear·d + Quadratic·d²)
//
// where window(d) = (1 - (d/radius)^4)^2 fades smoothly to exactly zero at
// the light radius. The zero value behaves like DefaultFalloff.
type Falloff struct {
	Constant  float64 `json:"constant"`
	Linear    float64 `json:"linear"`
	Quadratic float64 `json:"quadratic"`
}

// DefaultFalloff is a pure radius window with no inverse-distance term.
var DefaultFalloff = Falloff{Constant: 1}

// Attenuation returns the attenuation factor at distance d for a light of
// the given radius. It is zero for d >= radius and for a non-positive radius.
func (f Falloff) Attenuation(d, radius float64) float64 {
	if !(radius > 0) || !(d < radius) {
		return 0
	}
	if d < 0 {
		d = 0
	}
	if f == (Falloff{}) {
		f = DefaultFalloff
	}
	den := f.Constant + f.Linear*d + f.Quadratic*d*d
	if den < minAttenuationDenominator {
		den = minAttenuationDenominator
	}
	x := d / radius
	x2 := x * x
	w := 1 - x2*x2
	return w * w / den
}

// Light is an omnidirectional point light.
type Light struct {
	Position Vec2 `json:"position"`

	// Radius is the distance at which the light's contribution reaches zero.
	Radius float64 `json:"radius"`

	Color     RGB     `json:"color"`
	Intensity float64 `json:"intensity"`
	Enabled   bool    `json:"enabled"`
	Falloff   Falloff `json:"falloff"`

	// Size is the emitter radius. A ray that gets within Size of Position
	// counts as reaching the light.
	Size float64 `json:"size,omitempty"`

	// JitterIntensity and JitterTranslation randomize intensity and
	// position each frame by up to ± the given amount (flicker).
	JitterIntensity   float64 `json:"jitterIntensity,omitempty"`
	JitterTranslation float64 `json:"jitterTranslation,omitempty"`
}

// PointLight creates an enabled light with the default falloff.
func PointLight(pos Vec2, radius float64, color RGB, intensity float64) Light {
	return Light{
		Position:  pos,
		Radius:    radius,
		Color:     color,
		Intensity: intensity,
		Enabled:   true,
		Falloff:   DefaultFalloff,
	}
}

// Radiance returns the light arriving at distance d with no occlusion:
// Color · Intensity · Falloff.Attenuation(d, Radius), bounded to
// MaxRadiance.
func (l Light) Radiance(d float64) RGB {
	return l.Color.Scale(l.Intensity * l.Falloff.Attenuation(d, l.Radius)).Bounded()
}

// Contributes reports whether the light is enabled and can emit any light.
// Lights with non-finite parameters never contribute.
func (l Light) Contributes() bool {
	if !l.Enabled || !(l.Radius > 0) || !(l.Intensity > 0) || l.Color.IsZero() {
		return false
	}
	return l.Position.IsFinite() && isFinite(l.Radius) && isFinite(l.Intensity) &&
		l.Color.IsFinite() && isFinite(l.Size) &&
		isFinite(l.Falloff.Constant) && isFinite(l.Falloff.Linear) && isFinite(l.Falloff.Quadratic)
}

// Skylight is a uniform light from above the scene.
type Skylight struct {
	Color     RGB     `json:"color"`
	Intensity float64 `json:"intensity"`
}

// Mask is an axis-aligned rectangle shielded from sky light (a roof).
type Mask struct {
	Center   Vec2 `json:"center"`
	HalfSize Vec2 `json:"halfSize"`
}

// Contains reports whether p lies inside the mask.
func (m Mask) Contains(p Vec2) bool {
	return math.Abs(p.X-m.Center.X) <= m.HalfSize.X && math.Abs(p.Y-m.Center.Y) <= m.HalfSize.Y
}
