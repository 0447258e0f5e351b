package gi

import (
	"fmt"
	"math"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/scene"
)

// Parameter limits enforced by Validate.
const (
	MaxBounceRays    = 64
	MaxDenoiseRadius = 4
	MaxTemporalBlend = 0.5
	MaxStepEpsilon   = 1.0
)

// Config holds the pipeline parameters.
//
// Resolution fields (Width, Height, ProbeSpacing, OutputScale, TexelSize,
// Center) define the Layout; changing any of them through Reconfigure
// reallocates every grid. All other fields can change between frames.
type Config struct {
	// Width and Height are the working resolution of the occupancy grid
	// and distance field, in texels.
	Width, Height int

	// ProbeSpacing is the number of working texels between probes along
	// each axis. It must divide Width and Height.
	ProbeSpacing int

	// OutputScale is the number of output pixels per working texel along
	// each axis.
	OutputScale int

	// TexelSize is the world size of one working texel, and Center is the
	// world position at the middle of the working area.
	TexelSize float64
	Center    scene.Vec2

	// MaxSteps caps the sphere-tracing steps of any ray.
	MaxSteps int

	// StepEpsilon is the minimum march step in texels, at most
	// MaxStepEpsilon.
	StepEpsilon float64

	// OcclusionStreak is the number of consecutive minimum-length steps
	// after which a light ray is considered blocked.
	OcclusionStreak int

	// BounceRays is the number of one-bounce directions per probe, at most
	// MaxBounceRays. Zero disables indirect light.
	BounceRays int

	// BounceStrength scales the indirect light.
	BounceStrength float64

	// BounceDistance is the maximum length of a bounce ray in texels.
	BounceDistance float64

	// DirectStrength scales the direct light.
	DirectStrength float64

	// DenoiseRadiusX and DenoiseRadiusY are the denoise neighborhood half
	// extents in probes, at most MaxDenoiseRadius.
	DenoiseRadiusX, DenoiseRadiusY int

	// DenoiseSigma is the Gaussian falloff of the denoise weights in probes.
	DenoiseSigma float64

	// DenoiseEdgeAware stops the denoiser from mixing probes that cannot
	// see each other.
	DenoiseEdgeAware bool

	// TemporalBlend is the weight of the previous frame's probes, in
	// [0, MaxTemporalBlend]. Zero keeps every frame independent.
	TemporalBlend float64

	// Ambient is added to every output pixel.
	Ambient scene.RGB

	// MaxLights and MaxOccluders cap the per-frame input. Extra entries
	// are dropped with a warning. Zero means unlimited.
	MaxLights    int
	MaxOccluders int
}

// DefaultConfig returns the default parameters: a 256×256 working grid of
// 2-unit texels centered on the origin, a probe every 8 texels and output
// at twice the working resolution.
func DefaultConfig() Config {
	return Config{
		Width:            256,
		Height:           256,
		ProbeSpacing:     8,
		OutputScale:      2,
		TexelSize:        2,
		MaxSteps:         64,
		StepEpsilon:      0.5,
		OcclusionStreak:  3,
		BounceRays:       8,
		BounceStrength:   0.35,
		BounceDistance:   24,
		DirectStrength:   1,
		DenoiseRadiusX:   1,
		DenoiseRadiusY:   1,
		DenoiseSigma:     1,
		DenoiseEdgeAware: true,
		MaxLights:        256,
		MaxOccluders:     4096,
	}
}

// Validate reports the first problem with c. Errors wrap ErrZeroResolution,
// ErrProbeRatio, ErrOutputScale or ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrZeroResolution, c.Width, c.Height)
	}
	if c.ProbeSpacing <= 0 || c.Width%c.ProbeSpacing != 0 || c.Height%c.ProbeSpacing != 0 {
		return fmt.Errorf("%w: spacing %d for %dx%d", ErrProbeRatio, c.ProbeSpacing, c.Width, c.Height)
	}
	if c.OutputScale < 1 {
		return fmt.Errorf("%w: got %d", ErrOutputScale, c.OutputScale)
	}

	checks := []struct {
		ok   bool
		what string
	}{
		{positive(c.TexelSize), "texel size must be positive"},
		{c.Center.IsFinite(), "center must be finite"},
		{c.MaxSteps >= 1, "max steps must be at least 1"},
		{positive(c.StepEpsilon) && c.StepEpsilon <= MaxStepEpsilon, "step epsilon out of range"},
		{c.OcclusionStreak >= 1, "occlusion streak must be at least 1"},
		{c.BounceRays >= 0 && c.BounceRays <= MaxBounceRays, "bounce rays out of range"},
		{nonNegative(c.BounceStrength), "bounce strength must be non-negative"},
		{c.BounceRays == 0 || positive(c.BounceDistance), "bounce distance must be positive"},
		{nonNegative(c.DirectStrength), "direct strength must be non-negative"},
		{inRange(c.DenoiseRadiusX, 0, MaxDenoiseRadius), "denoise radius x out of range"},
		{inRange(c.DenoiseRadiusY, 0, MaxDenoiseRadius), "denoise radius y out of range"},
		{positive(c.DenoiseSigma), "denoise sigma must be positive"},
		{nonNegative(c.TemporalBlend) && c.TemporalBlend <= MaxTemporalBlend, "temporal blend out of range"},
		{c.Ambient.IsFinite() && c.Ambient.R >= 0 && c.Ambient.G >= 0 && c.Ambient.B >= 0, "ambient must be finite and non-negative"},
		{c.MaxLights >= 0, "max lights must be non-negative"},
		{c.MaxOccluders >= 0, "max occluders must be non-negative"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, chk.what)
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

// Layout is the grid geometry derived from a Config. Every buffer of a
// pipeline is sized from one Layout, so their ratios always agree.
type Layout struct {
	// Width and Height are the working resolution.
	Width, Height int

	// ProbesX and ProbesY are the probe grid dimensions.
	ProbesX, ProbesY int

	// OutputWidth and OutputHeight are the irradiance buffer dimensions.
	OutputWidth, OutputHeight int

	ProbeSpacing int
	OutputScale  int

	// Origin is the world position of the top-left corner of the working
	// area, and TexelSize the world size of one working texel.
	Origin    scene.Vec2
	TexelSize float64
}

// Layout derives the grid geometry. The config should be valid.
func (c Config) Layout() Layout {
	extent := scene.V2(float64(c.Width)*c.TexelSize, float64(c.Height)*c.TexelSize)
	l := Layout{
		Width:        c.Width,
		Height:       c.Height,
		OutputWidth:  c.Width * c.OutputScale,
		OutputHeight: c.Height * c.OutputScale,
		ProbeSpacing: c.ProbeSpacing,
		OutputScale:  c.OutputScale,
		Origin:       c.Center.Sub(extent.Mul(0.5)),
		TexelSize:    c.TexelSize,
	}
	if c.ProbeSpacing > 0 {
		l.ProbesX, l.ProbesY = c.Width/c.ProbeSpacing, c.Height/c.ProbeSpacing
	}
	return l
}

// WorldToOutput converts a world position to continuous output-pixel
// coordinates.
func (l Layout) WorldToOutput(p scene.Vec2) scene.Vec2 {
	t := l.transform().ToTexel(p)
	s := float64(l.OutputScale)
	return scene.V2(t.X*s, t.Y*s)
}

func (l Layout) working() grid.Size {
	return grid.Size{W: l.Width, H: l.Height}
}

func (l Layout) probes() grid.Size {
	return grid.Size{W: l.ProbesX, H: l.ProbesY}
}

func (l Layout) output() grid.Size {
	return grid.Size{W: l.OutputWidth, H: l.OutputHeight}
}

func (l Layout) transform() grid.Transform {
	return grid.Transform{Origin: l.Origin, TexelSize: l.TexelSize}
}
