package grid

import (
	"math"

	"github.com/gogpu/gi/scene"
)

// Probe is one sparse lighting sample.
type Probe struct {
	Irradiance scene.RGB

	// Confidence is 0 for probes buried in an occluder and 1 for probes in
	// open space. Filters use it to weight probes against each other.
	Confidence float64
}

// ProbeGrid is a coarse grid of probes. Probe (i, j) sits at the center of
// an Spacing × Spacing block of working texels.
type ProbeGrid struct {
	Size
	Spacing int
	Probes  []Probe
}

// NewProbeGrid allocates a zeroed probe grid.
func NewProbeGrid(size Size, spacing int) *ProbeGrid {
	return &ProbeGrid{Size: size, Spacing: spacing, Probes: make([]Probe, size.Len())}
}

// CopyFrom copies the probes of src, which must have the same size.
func (g *ProbeGrid) CopyFrom(src *ProbeGrid) {
	copy(g.Probes, src.Probes)
}

// At returns probe (i, j).
func (g *ProbeGrid) At(i, j int) Probe {
	return g.Probes[g.Index(i, j)]
}

// Center returns the working-texel position of probe (i, j).
func (g *ProbeGrid) Center(i, j int) (x, y float64) {
	s := float64(g.Spacing)
	return (float64(i) + 0.5) * s, (float64(j) + 0.5) * s
}

// Cell returns the probe indices and bilinear fractions surrounding the
// working-texel position (x, y). Indices are not clamped.
func (g *ProbeGrid) Cell(x, y float64) (i0, j0 int, fx, fy float64) {
	s := float64(g.Spacing)
	gx := x/s - 0.5
	gy := y/s - 0.5
	fi, fj := math.Floor(gx), math.Floor(gy)
	return int(fi), int(fj), gx - fi, gy - fj
}

// Clamp clamps probe indices to the grid.
func (g *ProbeGrid) Clamp(i, j int) (int, int) {
	return min(max(i, 0), g.W-1), min(max(j, 0), g.H-1)
}

// SampleVisible returns the bilinear blend of the four probes around the
// working-texel position (x, y), weighting each by its confidence. When occ
// is non-nil, probes whose center cannot be seen from (x, y) are dropped.
// The second result is the total weight before normalization; zero means
// no probe contributed and the color is black.
func (g *ProbeGrid) SampleVisible(x, y float64, occ *Occupancy) (scene.RGB, float64) {
	i0, j0, fx, fy := g.Cell(x, y)
	var sum scene.RGB
	var total float64
	for k := range 4 {
		di, dj := k&1, k>>1
		w := fx
		if di == 0 {
			w = 1 - fx
		}
		if dj == 0 {
			w *= 1 - fy
		} else {
			w *= fy
		}
		if w <= 0 {
			continue
		}
		i, j := g.Clamp(i0+di, j0+dj)
		p := g.Probes[g.Index(i, j)]
		w *= p.Confidence
		if w <= 0 {
			continue
		}
		if occ != nil {
			cx, cy := g.Center(i, j)
			if !occ.Visible(x, y, cx, cy) {
				continue
			}
		}
		sum = sum.Add(p.Irradiance.Scale(w))
		total += w
	}
	if total <= 0 {
		return scene.Black, 0
	}
	return sum.Scale(1 / total), total
}
