package display

import (
	"errors"
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
	"github.com/df07/go-scene-bridge/pkg/scene"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 1, color.RGBA{B: 255, A: 255})
	return img
}

func TestOpen_Memory(t *testing.T) {
	d, err := Open(&scene.Display{Entity: scene.Entity{Name: "preview", Model: "memory"}})
	require.NoError(t, err)

	mem, ok := d.(*Memory)
	require.True(t, ok)
	_, ok = mem.Last()
	assert.False(t, ok)

	require.NoError(t, d.Update(PassResult{Pass: 1, TotalPasses: 2}))
	require.NoError(t, d.Update(PassResult{Pass: 2, TotalPasses: 2, Final: true}))
	require.NoError(t, d.Close())

	last, ok := mem.Last()
	assert.True(t, ok)
	assert.Equal(t, 2, last.Pass)
	assert.True(t, last.Final)
	assert.Equal(t, 2, mem.Passes())
	assert.True(t, mem.Closed())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&scene.Display{Entity: scene.Entity{Name: "out", Model: "tif"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownModel))
	assert.Contains(t, err.Error(), `did you mean "tiff"?`)
}

func TestFile_WritesFinalPassOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames", "out.png")
	f := NewFile(path)

	require.NoError(t, f.Update(PassResult{Pass: 1, Image: testImage()}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "intermediate passes must not be written")

	require.NoError(t, f.Update(PassResult{Pass: 2, Image: testImage(), Final: true}))
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
}

func TestWriteImage_Tiff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tiff")
	require.NoError(t, WriteImage(path, testImage()))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := tiff.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	_, _, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), b)
}

func TestWriteImage_UnknownExtension(t *testing.T) {
	err := WriteImage(filepath.Join(t.TempDir(), "out.exr"), testImage())
	assert.True(t, errors.Is(err, core.ErrUnknownModel))
}

type failingDriver struct{ err error }

func (f failingDriver) Update(PassResult) error { return f.err }
func (f failingDriver) Close() error            { return nil }

func TestMulti(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	boom := errors.New("boom")
	m := Multi{a, failingDriver{boom}, b}

	err := m.Update(PassResult{Pass: 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.Passes())
	assert.Equal(t, 1, b.Passes())

	require.NoError(t, m.Close())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}
