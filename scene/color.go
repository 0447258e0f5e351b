package scene

import "math"

// RGB is a linear-light color. Components are not clamped: irradiance
// routinely exceeds 1 near bright lights.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Common colors.
var (
	Black = RGB{}
	White = RGB{R: 1, G: 1, B: 1}
)

// Gray returns a neutral color with all components set to v.
func Gray(v float64) RGB {
	return RGB{R: v, G: v, B: v}
}

// Add returns the component-wise sum.
func (c RGB) Add(d RGB) RGB {
	return RGB{R: c.R + d.R, G: c.G + d.G, B: c.B + d.B}
}

// Scale returns the color multiplied by s.
func (c RGB) Scale(s float64) RGB {
	return RGB{R: c.R * s, G: c.G * s, B: c.B * s}
}

// Mul returns the component-wise product (filtering c through d).
func (c RGB) Mul(d RGB) RGB {
	return RGB{R: c.R * d.R, G: c.G * d.G, B: c.B * d.B}
}

// Max returns the component-wise maximum.
func (c RGB) Max(d RGB) RGB {
	return RGB{R: math.Max(c.R, d.R), G: math.Max(c.G, d.G), B: math.Max(c.B, d.B)}
}

// Lerp linearly interpolates from c to d by t.
func (c RGB) Lerp(d RGB, t float64) RGB {
	return RGB{
		R: c.R + (d.R-c.R)*t,
		G: c.G + (d.G-c.G)*t,
		B: c.B + (d.B-c.B)*t,
	}
}

// IsZero reports whether all components are zero.
func (c RGB) IsZero() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// IsFinite reports whether all components are finite numbers.
func (c RGB) IsFinite() bool {
	return isFinite(c.R) && isFinite(c.G) && isFinite(c.B)
}

// MaxRadiance is the largest light value carried through the pipeline. It
// is the largest finite float32, so every stored value stays finite.
const MaxRadiance = math.MaxFloat32

// Bounded returns c with every component clamped to ±MaxRadiance. NaN
// components become zero.
func (c RGB) Bounded() RGB {
	return RGB{R: bound(c.R), G: bound(c.G), B: bound(c.B)}
}

func bound(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-MaxRadiance, math.Min(v, MaxRadiance))
}

// Luminance returns the Rec. 709 relative luminance.
func (c RGB) Luminance() float64 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

// RGB8 creates a linear color from 8-bit sRGB-style components divided by
// 255. No transfer function is applied.
func RGB8(r, g, b uint8) RGB {
	return RGB{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}
