package gi

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gi/internal/grid"
)

// Diagnostics visualizes the intermediate grids of the last frame, each
// scaled to the output resolution.
type Diagnostics struct {
	// Occupancy shows covered texels in their albedo color on black.
	Occupancy *image.RGBA

	// DistanceField shows clearance outside occluders in green and depth
	// inside them in red, brighter further from the boundary.
	DistanceField *image.RGBA

	// Probes shows the denoised probe irradiance, smoothly interpolated.
	Probes *image.RGBA
}

// Diagnostics renders the grids left by the last Render. Before the first
// frame every image is black.
func (p *Pipeline) Diagnostics(exposure float64) (*Diagnostics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	g := p.grids
	bounds := image.Rect(0, 0, p.layout.OutputWidth, p.layout.OutputHeight)
	return &Diagnostics{
		Occupancy:     scaled(occupancyImage(g.occ), bounds, xdraw.NearestNeighbor),
		DistanceField: scaled(distanceImage(g.field), bounds, xdraw.NearestNeighbor),
		Probes:        scaled(probeImage(g.probes, exposure), bounds, xdraw.CatmullRom),
	}, nil
}

func scaled(src image.Image, bounds image.Rectangle, s xdraw.Scaler) *image.RGBA {
	dst := image.NewRGBA(bounds)
	s.Scale(dst, bounds, src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func occupancyImage(occ *grid.Occupancy) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, occ.W, occ.H))
	for y := range occ.H {
		for x := range occ.W {
			i := occ.Index(x, y)
			if occ.Mask[i] == 0 {
				img.SetRGBA(x, y, color.RGBA{A: 0xff})
				continue
			}
			a := occ.Albedo[i]
			img.SetRGBA(x, y, color.RGBA{
				R: unit8(a.R),
				G: unit8(a.G),
				B: unit8(a.B),
				A: 0xff,
			})
		}
	}
	return img
}

func distanceImage(f *grid.DistanceField) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	// Clearance saturates at an eighth of the grid extent.
	norm := float64(f.MaxDistance()) / 16
	for y := range f.H {
		for x := range f.W {
			d := float64(f.At(x, y)) / norm
			c := color.RGBA{A: 0xff}
			if d >= 0 {
				c.G = unit8(d)
			} else {
				c.R = unit8(-d)
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func probeImage(g *grid.ProbeGrid, exposure float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.W, g.H))
	for j := range g.H {
		for i := range g.W {
			c := g.At(i, j).Irradiance
			img.SetRGBA(i, j, color.RGBA{
				R: tonemap(float32(c.R), exposure),
				G: tonemap(float32(c.G), exposure),
				B: tonemap(float32(c.B), exposure),
				A: 0xff,
			})
		}
	}
	return img
}

func unit8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
