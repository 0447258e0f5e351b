package scene

import "math"

// Shape selects the geometry of an Occluder.
type Shape uint8

const (
	// ShapeBox is a rectangle of half extents HalfSize around Center,
	// rotated by Rotation radians.
	ShapeBox Shape = iota

	// ShapePolygon is a simple polygon whose Vertices are offsets from Center.
	ShapePolygon
)

// String returns a string representation of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Occluder is an opaque 2D shape that blocks light.
type Occluder struct {
	Shape    Shape   `json:"shape"`
	Center   Vec2    `json:"center"`
	HalfSize Vec2    `json:"halfSize,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Vertices []Vec2  `json:"vertices,omitempty"`

	// Opaque occluders block light. Non-opaque occluders are ignored by the
	// rasterizer.
	Opaque bool `json:"opaque"`

	// Albedo is the fraction of incident light the surface reflects as
	// bounce light, per channel. Zero absorbs everything.
	Albedo RGB `json:"albedo"`
}

// Box creates an opaque axis-aligned box with white albedo.
func Box(center, halfSize Vec2) Occluder {
	return Occluder{
		Shape:    ShapeBox,
		Center:   center,
		HalfSize: halfSize,
		Opaque:   true,
		Albedo:   White,
	}
}

// RotatedBox creates an opaque box rotated by angle radians around its center.
func RotatedBox(center, halfSize Vec2, angle float64) Occluder {
	o := Box(center, halfSize)
	o.Rotation = angle
	return o
}

// Polygon creates an opaque polygon with white albedo. Vertices are offsets
// from center and may wind either way.
func Polygon(center Vec2, vertices ...Vec2) Occluder {
	return Occluder{
		Shape:    ShapePolygon,
		Center:   center,
		Vertices: vertices,
		Opaque:   true,
		Albedo:   White,
	}
}

// IsRotated reports whether a box has a rotation that is not a multiple of
// a full turn.
func (o Occluder) IsRotated() bool {
	return o.Shape == ShapeBox && math.Remainder(o.Rotation, 2*math.Pi) != 0
}

// Outline returns the world-space vertices of the occluder.
// Boxes yield their four (possibly rotated) corners.
func (o Occluder) Outline() []Vec2 {
	switch o.Shape {
	case ShapeBox:
		hx, hy := o.HalfSize.X, o.HalfSize.Y
		corners := [4]Vec2{{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy}}
		out := make([]Vec2, 4)
		for i, c := range corners {
			if o.Rotation != 0 {
				c = c.Rotate(o.Rotation)
			}
			out[i] = o.Center.Add(c)
		}
		return out
	case ShapePolygon:
		out := make([]Vec2, len(o.Vertices))
		for i, v := range o.Vertices {
			out[i] = o.Center.Add(v)
		}
		return out
	default:
		return nil
	}
}

// Bounds returns the world-space axis-aligned bounding box.
func (o Occluder) Bounds() (lo, hi Vec2) {
	pts := o.Outline()
	if len(pts) == 0 {
		return o.Center, o.Center
	}
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Area returns the absolute enclosed area.
func (o Occluder) Area() float64 {
	switch o.Shape {
	case ShapeBox:
		return 4 * math.Abs(o.HalfSize.X*o.HalfSize.Y)
	case ShapePolygon:
		n := len(o.Vertices)
		if n < 3 {
			return 0
		}
		var sum float64
		for i := range n {
			sum += o.Vertices[i].Cross(o.Vertices[(i+1)%n])
		}
		return math.Abs(sum) / 2
	default:
		return 0
	}
}

// Degenerate reports whether the occluder has no area or non-finite
// coordinates. Degenerate occluders are skipped, they are not an error.
func (o Occluder) Degenerate() bool {
	if !o.Center.IsFinite() || !isFinite(o.Rotation) {
		return true
	}
	switch o.Shape {
	case ShapeBox:
		if !o.HalfSize.IsFinite() || o.HalfSize.X <= 0 || o.HalfSize.Y <= 0 {
			return true
		}
	case ShapePolygon:
		for _, v := range o.Vertices {
			if !v.IsFinite() {
				return true
			}
		}
	default:
		return true
	}
	a := o.Area()
	return !(a > 0) || math.IsInf(a, 0)
}
