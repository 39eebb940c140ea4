package detect

import (
	"context"
	"image"
	"image/color"
	"strings"
)

// Gray is a decoded single-channel 8-bit pixel matrix.
type Gray struct {
	Width  int
	Height int
	Pix    []uint8 // row-major, len = Width*Height
	Format string  // source encoding as reported by the decoder ("jpeg", "png", ...)
}

// At returns the pixel at column x, row y.
func (g *Gray) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// IsJPEG reports whether the source format is JPEG.
func (g *Gray) IsJPEG() bool {
	f := strings.ToLower(g.Format)
	return f == "jpeg" || f == "jpg"
}

// FromImage converts any decoded image to 8-bit grayscale.
func FromImage(img image.Image, format string) *Gray {
	b := img.Bounds()
	g := &Gray{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]uint8, b.Dx()*b.Dy()),
		Format: format,
	}
	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < g.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(g.Pix[y*g.Width:(y+1)*g.Width], src.Pix[off:off+g.Width])
		}
		return g
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.Pix[y*g.Width+x] = c.Y
		}
	}
	return g
}

// PixelProvider supplies the decoded pixels of an image document.
type PixelProvider interface {
	Pixels(ctx context.Context) (*Gray, error)
}

// StaticPixels adapts an in-memory matrix to PixelProvider.
type StaticPixels struct {
	G *Gray
}

// Pixels returns the wrapped matrix.
func (s StaticPixels) Pixels(ctx context.Context) (*Gray, error) {
	return s.G, nil
}
