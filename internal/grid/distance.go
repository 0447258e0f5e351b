package grid

import "math"

// DistanceField stores the signed distance, in working texels, from each
// texel center to the nearest occupancy boundary: positive outside
// occluders, negative inside, zero on boundary texels.
type DistanceField struct {
	Size
	Values []float32
}

// NewDistanceField allocates a zeroed distance field.
func NewDistanceField(size Size) *DistanceField {
	return &DistanceField{Size: size, Values: make([]float32, size.Len())}
}

// MaxDistance is the magnitude used for texels with no boundary anywhere in
// the grid (an empty or completely covered grid).
func (f *DistanceField) MaxDistance() float32 {
	return float32(f.W + f.H)
}

// At returns the value of texel (x, y). Texels outside the grid report
// -1, the value used for "inside an occluder".
func (f *DistanceField) At(x, y int) float32 {
	if !f.Contains(x, y) {
		return -1
	}
	return f.Values[f.Index(x, y)]
}

// Sample returns the value of the texel containing continuous coordinate
// (x, y).
func (f *DistanceField) Sample(x, y float64) float32 {
	return f.At(cell(x), cell(y))
}

// Sanitize replaces values that would break raymarching: NaN and -Inf
// become -1 (inside an occluder), +Inf and anything beyond MaxDistance are
// clamped to ±MaxDistance. It returns the number of non-finite values
// replaced.
func (f *DistanceField) Sanitize() int {
	maxD := f.MaxDistance()
	fixed := 0
	for i, v := range f.Values {
		switch {
		case math.IsNaN(float64(v)) || math.IsInf(float64(v), -1):
			f.Values[i] = -1
			fixed++
		case math.IsInf(float64(v), 1):
			f.Values[i] = maxD
			fixed++
		case v > maxD:
			f.Values[i] = maxD
		case v < -maxD:
			f.Values[i] = -maxD
		}
	}
	return fixed
}
