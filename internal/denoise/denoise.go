// Package denoise smooths a probe grid over a small spatial neighborhood.
//
// Each probe becomes the confidence- and distance-weighted mean of the
// probes around it. The filter is frame local; the only state it may keep
// is a bounded temporal blend that is off by default.
package denoise

import (
	"math"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/scene"
)

// Params controls the filter.
type Params struct {
	// RadiusX and RadiusY are the half extents of the neighborhood in
	// probes. Zero in both copies the input.
	RadiusX, RadiusY int

	// Sigma is the standard deviation of the Gaussian distance weight, in
	// probes. Non-positive values weight every neighbor equally.
	Sigma float64

	// EdgeAware skips neighbors hidden from the probe by an occluder.
	EdgeAware bool

	// TemporalBlend is the weight of the previous frame's output,
	// in [0, 0.5]. Zero disables history.
	TemporalBlend float64
}

// Filter applies Params to probe grids. It owns the temporal history and is
// not safe for concurrent use.
type Filter struct {
	Params Params

	kernel  []float64
	kernelX int
	kernelY int
	sigma   float64

	history     *grid.ProbeGrid
	haveHistory bool
}

// Reset drops the temporal history.
func (f *Filter) Reset() {
	f.haveHistory = false
}

// Apply filters src into dst. Both grids must have the same size and must
// not alias. occ is used for edge awareness and may be nil when EdgeAware
// is off.
func (f *Filter) Apply(src, dst *grid.ProbeGrid, occ *grid.Occupancy, pool *parallel.WorkerPool) {
	f.buildKernel()

	parallel.ForBands(pool, src.H, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			for i := range src.W {
				dst.Probes[src.Index(i, j)] = f.gather(src, occ, i, j)
			}
		}
	})

	f.blendHistory(dst)
}

// gather computes the filtered value of probe (i, j).
func (f *Filter) gather(src *grid.ProbeGrid, occ *grid.Occupancy, i, j int) grid.Probe {
	rx, ry := f.kernelX, f.kernelY
	if rx == 0 && ry == 0 {
		return src.At(i, j)
	}

	cx, cy := src.Center(i, j)
	edges := f.Params.EdgeAware && occ != nil
	// A buried probe sees nothing, so it gathers from every neighbor.
	if edges && occ.OccupiedAt(cx, cy) {
		edges = false
	}

	var irr scene.RGB
	var conf, total float64
	for dj := -ry; dj <= ry; dj++ {
		nj := j + dj
		if nj < 0 || nj >= src.H {
			continue
		}
		for di := -rx; di <= rx; di++ {
			ni := i + di
			if ni < 0 || ni >= src.W {
				continue
			}
			p := src.Probes[src.Index(ni, nj)]
			w := p.Confidence * f.kernel[(dj+ry)*(2*rx+1)+di+rx]
			if w <= 0 {
				continue
			}
			if edges && (di != 0 || dj != 0) {
				nx, ny := src.Center(ni, nj)
				if !occ.Visible(cx, cy, nx, ny) {
					continue
				}
			}
			irr = irr.Add(p.Irradiance.Scale(w))
			conf += p.Confidence * w
			total += w
		}
	}
	if total <= 0 {
		return grid.Probe{}
	}
	return grid.Probe{Irradiance: irr.Scale(1 / total), Confidence: conf / total}
}

// buildKernel caches the Gaussian weights for the current parameters.
func (f *Filter) buildKernel() {
	rx, ry := max(f.Params.RadiusX, 0), max(f.Params.RadiusY, 0)
	if f.kernel != nil && rx == f.kernelX && ry == f.kernelY && f.Params.Sigma == f.sigma {
		return
	}
	f.kernelX, f.kernelY, f.sigma = rx, ry, f.Params.Sigma
	f.kernel = make([]float64, (2*rx+1)*(2*ry+1))
	for dj := -ry; dj <= ry; dj++ {
		for di := -rx; di <= rx; di++ {
			w := 1.0
			if s := f.Params.Sigma; s > 0 {
				w = math.Exp(-float64(di*di+dj*dj) / (2 * s * s))
			}
			f.kernel[(dj+ry)*(2*rx+1)+di+rx] = w
		}
	}
}

// blendHistory mixes the previous output into dst and stores the result as
// the new history.
func (f *Filter) blendHistory(dst *grid.ProbeGrid) {
	alpha := min(max(f.Params.TemporalBlend, 0), 0.5)
	if alpha == 0 {
		f.haveHistory = false
		return
	}
	if f.history == nil || f.history.Size != dst.Size {
		f.history = grid.NewProbeGrid(dst.Size, dst.Spacing)
		f.haveHistory = false
	}
	if f.haveHistory {
		for i := range dst.Probes {
			prev := f.history.Probes[i].Irradiance
			dst.Probes[i].Irradiance = dst.Probes[i].Irradiance.Scale(1 - alpha).Add(prev.Scale(alpha))
		}
	}
	f.history.CopyFrom(dst)
	f.haveHistory = true
}
