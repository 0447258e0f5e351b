// Package grid defines the per-frame buffers that flow between pipeline
// stages: occupancy, distance field, probe grid and irradiance.
//
// All grids are row-major with the origin at the top-left texel and Y
// increasing downward. Continuous texel coordinates put texel (x, y) over
// the square [x, x+1) × [y, y+1), so its center is (x+0.5, y+0.5).
package grid

import (
	"math"

	"github.com/gogpu/gi/scene"
)

// Size is the dimension of a grid in cells.
type Size struct {
	W, H int
}

// Len returns the number of cells.
func (s Size) Len() int {
	return s.W * s.H
}

// Index returns the row-major index of cell (x, y).
func (s Size) Index(x, y int) int {
	return y*s.W + x
}

// Contains reports whether cell (x, y) lies inside the grid.
func (s Size) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.W && y < s.H
}

// ContainsPoint reports whether continuous coordinate (x, y) lies inside
// the grid.
func (s Size) ContainsPoint(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(s.W) && y < float64(s.H)
}

// Transform maps world coordinates to continuous working-texel coordinates.
type Transform struct {
	// Origin is the world position of the top-left corner of texel (0, 0).
	Origin scene.Vec2

	// TexelSize is the world size of one working texel.
	TexelSize float64
}

// ToTexel converts a world position to texel coordinates.
func (t Transform) ToTexel(p scene.Vec2) scene.Vec2 {
	return scene.Vec2{X: (p.X - t.Origin.X) / t.TexelSize, Y: (p.Y - t.Origin.Y) / t.TexelSize}
}

// ToWorld converts texel coordinates to a world position.
func (t Transform) ToWorld(p scene.Vec2) scene.Vec2 {
	return scene.Vec2{X: t.Origin.X + p.X*t.TexelSize, Y: t.Origin.Y + p.Y*t.TexelSize}
}

// cell returns the integer cell containing continuous coordinate v.
func cell(v float64) int {
	return int(math.Floor(v))
}
