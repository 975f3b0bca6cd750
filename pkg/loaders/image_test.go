package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/df07/go-scene-bridge/pkg/core"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img.Set(0, 1, color.RGBA{R: 0, G: 255, B: 0, A: 255})
	img.Set(1, 1, color.RGBA{R: 0, G: 0, B: 255, A: 255})
	return img
}

func assertColor(t *testing.T, expected, got core.Vec3) {
	t.Helper()
	assert.InDelta(t, expected.X, got.X, 0.01)
	assert.InDelta(t, expected.Y, got.Y, 0.01)
	assert.InDelta(t, expected.Z, got.Z, 0.01)
}

func TestLoadImage(t *testing.T) {
	encoders := map[string]func(f *os.File, img image.Image) error{
		"test.png": func(f *os.File, img image.Image) error { return png.Encode(f, img) },
		"test.tif": func(f *os.File, img image.Image) error { return tiff.Encode(f, img, nil) },
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			f, err := os.Create(path)
			require.NoError(t, err)
			require.NoError(t, encode(f, testImage()))
			require.NoError(t, f.Close())

			data, err := LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, 2, data.Width)
			assert.Equal(t, 2, data.Height)
			require.Len(t, data.Pixels, 4)

			assertColor(t, core.NewVec3(1, 1, 1), data.Pixels[0])
			assertColor(t, core.NewVec3(1, 0, 0), data.Pixels[1])
			assertColor(t, core.NewVec3(0, 1, 0), data.Pixels[2])
			assertColor(t, core.NewVec3(0, 0, 1), data.Pixels[3])
			assertColor(t, core.NewVec3(0, 0, 1), data.At(5, 5))
		})
	}
}

func TestLoadImage_Errors(t *testing.T) {
	_, err := LoadImage("nonexistent.png")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = LoadImage(path)
	assert.ErrorContains(t, err, "failed to decode image")
}
