package display

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// File writes the final pass of a session to an image file
type File struct {
	Path string
}

// NewFile creates a driver writing to path. The format follows the extension.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Update implements Driver. Intermediate passes are ignored.
func (f *File) Update(result PassResult) error {
	if !result.Final || result.Image == nil {
		return nil
	}
	return WriteImage(f.Path, result.Image)
}

// Close implements Driver
func (f *File) Close() error { return nil }

// WriteImage encodes img to path as png, tiff or jpeg depending on the extension
func WriteImage(path string, img image.Image) error {
	encode, err := encoderFor(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

func encoderFor(path string) (func(io.Writer, image.Image) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		}, nil
	}
	return nil, fmt.Errorf("image format for %q: %w", path, core.ErrUnknownModel)
}
