// Package probe computes the irradiance of the sparse light probes by
// sphere tracing the distance field toward every light and along a fixed
// fan of bounce directions.
package probe

import (
	"math"

	"github.com/gogpu/gi/internal/grid"
)

// sampleSlack is subtracted from every distance sample. Values are measured
// at texel centers, so a point anywhere in the texel may be up to half a
// texel closer to an occluder than the stored value says.
const sampleSlack = 0.5

// Tracer marches rays through a distance field in working-texel space.
type Tracer struct {
	// MaxSteps caps the number of march steps of one ray. A ray that runs
	// out of steps is treated as occluded.
	MaxSteps int

	// Epsilon is the minimum step length.
	Epsilon float64

	// Streak is the number of consecutive minimum-length steps after which
	// a ray counts as stuck against a surface and therefore occluded.
	Streak int
}

// Trace reports whether the segment from (ax, ay) toward (bx, by) is
// unobstructed: the march gets within reach of the target before leaving
// the grid, touching a covered texel, stalling or running out of steps.
// The second result is the number of steps taken.
func (t Tracer) Trace(field *grid.DistanceField, occ *grid.Occupancy, ax, ay, bx, by, reach float64) (bool, int) {
	reach = math.Max(reach, t.Epsilon)
	dx, dy := bx-ax, by-ay
	length := math.Hypot(dx, dy)
	if length <= reach {
		return true, 0
	}
	dx, dy = dx/length, dy/length

	x, y := ax, ay
	streak := 0
	for step := range t.MaxSteps {
		if !field.ContainsPoint(x, y) {
			return false, step
		}
		remaining := math.Hypot(bx-x, by-y)
		if remaining <= reach {
			return true, step
		}
		cx, cy := int(math.Floor(x)), int(math.Floor(y))
		if occ.Occupied(cx, cy) {
			return false, step
		}
		d := float64(field.At(cx, cy))
		if d < 0 {
			return false, step
		}

		s := d - sampleSlack
		forced := s < t.Epsilon
		if forced {
			s = t.Epsilon
			streak++
			if streak >= t.Streak {
				return false, step + 1
			}
		} else {
			streak = 0
		}
		s = math.Min(s, remaining)
		nx, ny := x+dx*s, y+dy*s
		// A forced step is longer than the free distance, so the texels it
		// crosses must be walked.
		if forced && !occ.Visible(x, y, nx, ny) {
			return false, step + 1
		}
		x, y = nx, ny
	}
	return false, t.MaxSteps
}

// Hit describes where a bounce ray stopped.
type Hit struct {
	// Surface is the covered texel the ray ran into.
	SurfaceX, SurfaceY int

	// LastX, LastY is the last free position before the surface.
	LastX, LastY float64
}

// March follows the ray from (ax, ay) in the unit direction (dx, dy) for at
// most maxDist texels and reports the first covered texel it meets. Rays
// that leave the grid, run out of distance or stall report no hit.
func (t Tracer) March(field *grid.DistanceField, occ *grid.Occupancy, ax, ay, dx, dy, maxDist float64) (Hit, bool, int) {
	x, y := ax, ay
	lastX, lastY := ax, ay
	traveled := 0.0
	streak := 0
	for step := range t.MaxSteps {
		if !field.ContainsPoint(x, y) {
			return Hit{}, false, step
		}
		cx, cy := int(math.Floor(x)), int(math.Floor(y))
		if occ.Occupied(cx, cy) || field.At(cx, cy) < 0 {
			return Hit{SurfaceX: cx, SurfaceY: cy, LastX: lastX, LastY: lastY}, true, step
		}
		if traveled >= maxDist {
			return Hit{}, false, step
		}
		lastX, lastY = x, y

		s := float64(field.At(cx, cy)) - sampleSlack
		forced := s < t.Epsilon
		if forced {
			s = t.Epsilon
			streak++
			if streak > t.Streak {
				return Hit{}, false, step + 1
			}
		} else {
			streak = 0
		}
		s = math.Min(s, maxDist-traveled)
		nx, ny := x+dx*s, y+dy*s
		if forced {
			if hx, hy, hit := occ.FirstCovered(x, y, nx, ny); hit {
				if !occ.Contains(hx, hy) {
					return Hit{}, false, step + 1
				}
				return Hit{SurfaceX: hx, SurfaceY: hy, LastX: x, LastY: y}, true, step + 1
			}
		}
		x, y = nx, ny
		traveled += s
	}
	return Hit{}, false, t.MaxSteps
}
