package grid

import "github.com/gogpu/gi/scene"

// Irradiance is the full-resolution output: three float32 components (R, G,
// B) per pixel, row-major.
type Irradiance struct {
	Size
	Pix []float32
}

// NewIrradiance allocates a black irradiance buffer.
func NewIrradiance(size Size) *Irradiance {
	return &Irradiance{Size: size, Pix: make([]float32, size.Len()*3)}
}

// Set stores the color of pixel (x, y). Components are bounded to
// scene.MaxRadiance and NaN is stored as zero.
func (b *Irradiance) Set(x, y int, c scene.RGB) {
	c = c.Bounded()
	i := b.Index(x, y) * 3
	b.Pix[i+0] = float32(c.R)
	b.Pix[i+1] = float32(c.G)
	b.Pix[i+2] = float32(c.B)
}

// At returns the color of pixel (x, y), or black outside the buffer.
func (b *Irradiance) At(x, y int) scene.RGB {
	if !b.Contains(x, y) {
		return scene.Black
	}
	i := b.Index(x, y) * 3
	return scene.RGB{R: float64(b.Pix[i+0]), G: float64(b.Pix[i+1]), B: float64(b.Pix[i+2])}
}
