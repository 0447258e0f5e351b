// Package raster converts occluder shapes into the occupancy grid.
//
// Axis-aligned boxes use exact texel-center sampling. Polygons and rotated
// boxes are scan converted with golang.org/x/image/vector and a texel is
// covered when at least half of its area lies inside the shape. Results are
// merged with union semantics, so the order of occluders never matters.
package raster

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/internal/parallel"
	"github.com/gogpu/gi/scene"
)

// halfCoverage is the alpha at or above which a texel counts as covered.
const halfCoverage = 0x80

// Stats reports what happened to the occluders of one frame.
type Stats struct {
	// Rasterized is the number of occluders that covered at least one texel.
	Rasterized int

	// Skipped counts non-opaque, degenerate and off-grid occluders.
	Skipped int
}

// span is the texel rectangle of one occluder, clipped to the grid.
// Boxes fill the whole rectangle; polygons carry a coverage mask.
type span struct {
	x0, y0, x1, y1 int
	albedo         scene.RGB
	coverage       *image.Alpha
}

// Rasterize clears occ and marks every texel covered by an opaque occluder.
// Occluders are read, never modified.
func Rasterize(occluders []scene.Occluder, occ *grid.Occupancy, xf grid.Transform, pool *parallel.WorkerPool) Stats {
	occ.Reset()

	spans := make([]span, len(occluders))
	keep := make([]bool, len(occluders))
	parallel.ForEach(pool, len(occluders), func(i int) {
		spans[i], keep[i] = prepare(occluders[i], occ.Size, xf)
	})

	var stats Stats
	live := spans[:0]
	for i := range spans {
		if !keep[i] {
			stats.Skipped++
			continue
		}
		live = append(live, spans[i])
	}
	stats.Rasterized = len(live)

	parallel.ForBands(pool, occ.H, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			mergeRow(occ, live, y)
		}
	})
	return stats
}

// prepare computes the clipped texel span of an occluder and, for shapes
// that are not axis-aligned boxes, its coverage mask. The second result is
// false when the occluder covers nothing.
func prepare(o scene.Occluder, size grid.Size, xf grid.Transform) (span, bool) {
	if !o.Opaque || o.Degenerate() {
		return span{}, false
	}
	if o.Shape == scene.ShapeBox && !o.IsRotated() {
		return boxSpan(o, size, xf)
	}
	return polygonSpan(o.Outline(), o.Albedo, size, xf)
}

// boxSpan selects the texels whose centers fall inside [min, max) of the box.
func boxSpan(o scene.Occluder, size grid.Size, xf grid.Transform) (span, bool) {
	lo := xf.ToTexel(o.Center.Sub(o.HalfSize))
	hi := xf.ToTexel(o.Center.Add(o.HalfSize))
	s := span{
		x0:     clampInt(int(math.Ceil(lo.X-0.5)), 0, size.W),
		y0:     clampInt(int(math.Ceil(lo.Y-0.5)), 0, size.H),
		x1:     clampInt(int(math.Ceil(hi.X-0.5)), 0, size.W),
		y1:     clampInt(int(math.Ceil(hi.Y-0.5)), 0, size.H),
		albedo: o.Albedo,
	}
	return s, s.x1 > s.x0 && s.y1 > s.y0
}

// polygonSpan scan converts a world-space outline into a coverage mask over
// its clipped bounding rectangle.
func polygonSpan(outline []scene.Vec2, albedo scene.RGB, size grid.Size, xf grid.Transform) (span, bool) {
	pts := make([]scene.Vec2, len(outline))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, p := range outline {
		t := xf.ToTexel(p)
		pts[i] = t
		minX, minY = math.Min(minX, t.X), math.Min(minY, t.Y)
		maxX, maxY = math.Max(maxX, t.X), math.Max(maxY, t.Y)
	}

	s := span{
		x0:     clampInt(int(math.Floor(minX)), 0, size.W),
		y0:     clampInt(int(math.Floor(minY)), 0, size.H),
		x1:     clampInt(int(math.Ceil(maxX)), 0, size.W),
		y1:     clampInt(int(math.Ceil(maxY)), 0, size.H),
		albedo: albedo,
	}
	w, h := s.x1-s.x0, s.y1-s.y0
	if w <= 0 || h <= 0 {
		return span{}, false
	}

	// The rasterizer clips to its own bounds, so vertices outside the
	// clipped rectangle are fine.
	z := vector.NewRasterizer(w, h)
	ox, oy := float64(s.x0), float64(s.y0)
	z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	s.coverage = mask

	for _, a := range mask.Pix {
		if a >= halfCoverage {
			return s, true
		}
	}
	return span{}, false
}

// mergeRow ORs every span into row y of the occupancy grid.
func mergeRow(occ *grid.Occupancy, spans []span, y int) {
	row := y * occ.W
	for i := range spans {
		s := &spans[i]
		if y < s.y0 || y >= s.y1 {
			continue
		}
		if s.coverage == nil {
			for x := s.x0; x < s.x1; x++ {
				mark(occ, row+x, s.albedo)
			}
			continue
		}
		off := (y - s.y0) * s.coverage.Stride
		for x := s.x0; x < s.x1; x++ {
			if s.coverage.Pix[off+x-s.x0] >= halfCoverage {
				mark(occ, row+x, s.albedo)
			}
		}
	}
}

func mark(occ *grid.Occupancy, i int, albedo scene.RGB) {
	if occ.Mask[i] == 0 {
		occ.Mask[i] = 1
		occ.Albedo[i] = albedo
		return
	}
	occ.Albedo[i] = occ.Albedo[i].Max(albedo)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
