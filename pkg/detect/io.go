package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadGeometry reads page geometry from disk.
func LoadGeometry(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading geometry: %w", err)
	}

	var g Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("unmarshaling geometry: %w", err)
	}

	return &g, nil
}

// GeometryFile is a GeometryProvider backed by a JSON file produced by an
// external layout parser.
type GeometryFile string

// PageGeometry loads the file.
func (f GeometryFile) PageGeometry(ctx context.Context) (*Geometry, error) {
	return LoadGeometry(string(f))
}

// DecodeImage decodes JPEG, PNG, GIF, BMP, TIFF or WebP bytes to grayscale.
func DecodeImage(data []byte) (*Gray, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return FromImage(img, format), nil
}

// ImageFile is a PixelProvider that decodes an image file on demand.
type ImageFile string

// Pixels reads and decodes the file.
func (f ImageFile) Pixels(ctx context.Context) (*Gray, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return DecodeImage(data)
}

// ImageBytes is a PixelProvider over an in-memory encoded image.
type ImageBytes []byte

// Pixels decodes the buffer.
func (b ImageBytes) Pixels(ctx context.Context) (*Gray, error) {
	return DecodeImage(b)
}
