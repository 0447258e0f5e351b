// Package upsample reconstructs the full-resolution irradiance buffer from
// the probe grid.
//
// Every output pixel blends the four probes around it bilinearly, weighted
// by probe confidence. Near occluders the distance field decides whether a
// line of sight test is needed, and probes the pixel cannot see are dropped
// so light never leaks through thin walls.
package upsample

import (
	"math"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/scene"
)

// clearanceSlack covers the distance between a point and its texel center
// plus the extent of the nearest covered texel.
const clearanceSlack = 0.5

// searchRadius is the probe reach of the fallback search. It spans the 4×4
// block of probes around the pixel's cell.
const searchRadius = 2

// Params controls the upsampler.
type Params struct {
	// Scale is the number of output pixels per working texel along each
	// axis.
	Scale int

	// Ambient is added to every output pixel.
	Ambient scene.RGB
}

// Upsample writes out from probes. out must be Scale times the size of the
// distance field, which in turn matches occ.
func Upsample(probes *grid.ProbeGrid, field *grid.DistanceField, occ *grid.Occupancy, out *grid.Irradiance, p Params, pool *parallel.WorkerPool) {
	scale := float64(max(p.Scale, 1))
	diag := float64(probes.Spacing)*math.Sqrt2 + clearanceSlack

	parallel.ForBands(pool, out.H, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			wy := (float64(y) + 0.5) / scale
			for x := range out.W {
				wx := (float64(x) + 0.5) / scale
				c := pixel(probes, field, occ, wx, wy, diag)
				out.Set(x, y, c.Add(p.Ambient))
			}
		}
	})
}

// pixel returns the reconstructed irradiance at working-texel position
// (wx, wy), without ambient.
func pixel(probes *grid.ProbeGrid, field *grid.DistanceField, occ *grid.Occupancy, wx, wy, diag float64) scene.RGB {
	// Walls are lit from their neighborhood, and a pixel with enough
	// clearance sees all four probes.
	test := occ
	if occ.OccupiedAt(wx, wy) || float64(field.Sample(wx, wy)) >= diag {
		test = nil
	}

	if c, w := probes.SampleVisible(wx, wy, test); w > 0 {
		return c
	}
	return search(probes, test, wx, wy)
}

// search blends the probes of the 4×4 block around (wx, wy) with inverse
// distance weights, keeping only probes visible through test when it is
// non-nil.
func search(probes *grid.ProbeGrid, test *grid.Occupancy, wx, wy float64) scene.RGB {
	i0, j0, _, _ := probes.Cell(wx, wy)
	var sum scene.RGB
	var total float64
	for j := j0 - searchRadius + 1; j <= j0+searchRadius; j++ {
		if j < 0 || j >= probes.H {
			continue
		}
		for i := i0 - searchRadius + 1; i <= i0+searchRadius; i++ {
			if i < 0 || i >= probes.W {
				continue
			}
			p := probes.Probes[probes.Index(i, j)]
			if p.Confidence <= 0 {
				continue
			}
			cx, cy := probes.Center(i, j)
			if test != nil && !test.Visible(wx, wy, cx, cy) {
				continue
			}
			w := p.Confidence / math.Max(math.Hypot(cx-wx, cy-wy), 1e-6)
			sum = sum.Add(p.Irradiance.Scale(w))
			total += w
		}
	}
	if total <= 0 {
		return scene.Black
	}
	return sum.Scale(1 / total)
}
