package grid

import (
	"math"

	"github.com/gogpu/gi/scene"
)

// Occupancy marks the texels covered by opaque occluders.
type Occupancy struct {
	Size

	// Mask is 1 where an occluder covers the texel, 0 elsewhere.
	Mask []uint8

	// Albedo is the reflectance of the occluder covering each texel.
	// Meaningless where Mask is 0.
	Albedo []scene.RGB
}

// NewOccupancy allocates an empty occupancy grid.
func NewOccupancy(size Size) *Occupancy {
	return &Occupancy{
		Size:   size,
		Mask:   make([]uint8, size.Len()),
		Albedo: make([]scene.RGB, size.Len()),
	}
}

// Reset clears every texel.
func (o *Occupancy) Reset() {
	clear(o.Mask)
	clear(o.Albedo)
}

// Occupied reports whether texel (x, y) is covered. Texels outside the grid
// count as covered: nothing is visible through the border.
func (o *Occupancy) Occupied(x, y int) bool {
	if !o.Contains(x, y) {
		return true
	}
	return o.Mask[o.Index(x, y)] != 0
}

// OccupiedAt reports whether the texel containing continuous coordinate
// (x, y) is covered.
func (o *Occupancy) OccupiedAt(x, y float64) bool {
	return o.Occupied(cell(x), cell(y))
}

// Count returns the number of covered texels.
func (o *Occupancy) Count() int {
	n := 0
	for _, m := range o.Mask {
		if m != 0 {
			n++
		}
	}
	return n
}

// AlbedoNear returns the albedo of texel (x, y) if it is covered, otherwise
// the per-channel maximum albedo of its covered 8-neighbors, otherwise black.
func (o *Occupancy) AlbedoNear(x, y int) scene.RGB {
	if o.Contains(x, y) && o.Mask[o.Index(x, y)] != 0 {
		return o.Albedo[o.Index(x, y)]
	}
	var out scene.RGB
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || !o.Contains(nx, ny) {
				continue
			}
			if i := o.Index(nx, ny); o.Mask[i] != 0 {
				out = out.Max(o.Albedo[i])
			}
		}
	}
	return out
}

// Visible reports whether the segment from (ax, ay) to (bx, by) crosses no
// covered texel, including the texels holding both end points. The walk is
// an exact grid traversal, so a wall one texel thick is never skipped.
func (o *Occupancy) Visible(ax, ay, bx, by float64) bool {
	_, _, hit := o.FirstCovered(ax, ay, bx, by)
	return !hit
}

// FirstCovered walks the segment from (ax, ay) to (bx, by) and returns the
// first covered texel it enters. Texels outside the grid count as covered.
func (o *Occupancy) FirstCovered(ax, ay, bx, by float64) (int, int, bool) {
	x, y := cell(ax), cell(ay)
	endX, endY := cell(bx), cell(by)

	dx, dy := bx-ax, by-ay
	stepX, tMaxX, tDeltaX := traversalAxis(ax, dx, x)
	stepY, tMaxY, tDeltaY := traversalAxis(ay, dy, y)

	limit := abs(endX-x) + abs(endY-y) + 1
	for range limit + 1 {
		if o.Occupied(x, y) {
			return x, y, true
		}
		if x == endX && y == endY {
			return 0, 0, false
		}
		if tMaxX < tMaxY {
			x += stepX
			tMaxX += tDeltaX
		} else {
			y += stepY
			tMaxY += tDeltaY
		}
	}
	if o.Occupied(endX, endY) {
		return endX, endY, true
	}
	return 0, 0, false
}

// traversalAxis returns the step direction, the parametric distance to the
// first cell boundary and the parametric size of one cell along one axis.
func traversalAxis(a, d float64, c int) (step int, tMax, tDelta float64) {
	switch {
	case d > 0:
		return 1, (float64(c+1) - a) / d, 1 / d
	case d < 0:
		return -1, (a - float64(c)) / -d, -1 / d
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
