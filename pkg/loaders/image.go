// Package loaders reads scene description files and the images they
// reference.
package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"

	_ "golang.org/x/image/tiff" // TIFF decoder

	"github.com/df07/go-scene-bridge/pkg/core"
)

// ImageData is a decoded image as linear values in [0,1], row-major from
// the top left pixel
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3
}

// At returns the pixel at x, y clamped to the image
func (d *ImageData) At(x, y int) core.Vec3 {
	x = min(max(x, 0), d.Width-1)
	y = min(max(y, 0), d.Height-1)
	return d.Pixels[y*d.Width+x]
}

// LoadImage loads a PNG, JPEG or TIFF image. The format is detected from
// the file header.
func LoadImage(filename string) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filename, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// RGBA returns uint32 in [0, 65535]
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			pixels[y*width+x] = core.NewVec3(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)
		}
	}

	return &ImageData{Width: width, Height: height, Pixels: pixels}, nil
}
