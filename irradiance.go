package gi

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gi/internal/grid"
	"github.com/gogpu/gi/scene"
)

// IrradianceBuffer is a read-only view of one frame's output: linear RGB
// irradiance per pixel, row-major, origin at the top-left, Y down. It uses
// the addressing of the occupancy grid scaled by Layout.OutputScale.
//
// A buffer returned by Render stays valid until the next-but-one Render on
// the same pipeline.
type IrradianceBuffer struct {
	buf   *grid.Irradiance
	frame uint64
}

// Width returns the width in pixels.
func (b *IrradianceBuffer) Width() int { return b.buf.W }

// Height returns the height in pixels.
func (b *IrradianceBuffer) Height() int { return b.buf.H }

// Frame returns the number of the frame that produced the buffer,
// starting at 1.
func (b *IrradianceBuffer) Frame() uint64 { return b.frame }

// At returns the irradiance of pixel (x, y), or black outside the buffer.
func (b *IrradianceBuffer) At(x, y int) scene.RGB {
	return b.buf.At(x, y)
}

// Pix returns the raw float data, three components per pixel.
// The slice must not be modified.
func (b *IrradianceBuffer) Pix() []float32 {
	return b.buf.Pix
}

// Stride returns the number of float32 values per row of Pix.
func (b *IrradianceBuffer) Stride() int {
	return b.buf.W * 3
}

// Format returns the texture format written by Encode.
func (b *IrradianceBuffer) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Encode tonemaps the buffer into dst as RGBA8, 4 bytes per pixel with
// opaque alpha, ready for a texture upload in Format(). Each channel maps
// through 1 - exp(-exposure·v), so zero stays black and bright values
// saturate smoothly.
func (b *IrradianceBuffer) Encode(dst []uint8, exposure float64) error {
	n := b.buf.Len()
	if len(dst) < n*4 {
		return fmt.Errorf("gi: encode: destination holds %d bytes, need %d", len(dst), n*4)
	}
	for i := range n {
		src := b.buf.Pix[i*3 : i*3+3]
		d := dst[i*4 : i*4+4]
		d[0] = tonemap(src[0], exposure)
		d[1] = tonemap(src[1], exposure)
		d[2] = tonemap(src[2], exposure)
		d[3] = 0xff
	}
	return nil
}

// ToImage returns the tonemapped buffer as an image.
func (b *IrradianceBuffer) ToImage(exposure float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.buf.W, b.buf.H))
	_ = b.Encode(img.Pix, exposure)
	return img
}

// SavePNG writes the tonemapped buffer to a PNG file.
func (b *IrradianceBuffer) SavePNG(path string, exposure float64) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, b.ToImage(exposure))
}

func tonemap(v float32, exposure float64) uint8 {
	x := float64(v) * exposure
	if !(x > 0) {
		return 0
	}
	return uint8(math.Round((1 - math.Exp(-x)) * 255)) //nolint:gosec // value is in [0, 255]
}
