// Package display delivers rendered passes to output drivers: in-memory
// buffers, image files and the live preview server.
package display

import (
	"errors"
	"image"

	"github.com/df07/go-scene-bridge/pkg/scene"
)

// PassResult is one completed progressive pass
type PassResult struct {
	Pass        int         // 1-based pass number
	TotalPasses int         // Passes planned for this session
	Image       *image.RGBA // Tonemapped frame
	Samples     float64     // Average samples per pixel so far
	Final       bool        // Last pass of the session
}

// Driver receives passes as a render session progresses
type Driver interface {
	Update(result PassResult) error
	Close() error
}

// Drivers maps display types to driver factories
var Drivers = scene.NewRegistry[Driver]("display")

func init() {
	Drivers.Register("memory", func(name string, params scene.ParamArray) Driver {
		return NewMemory()
	})
	for _, format := range []string{"png", "tiff", "jpeg"} {
		Drivers.Register(format, func(name string, params scene.ParamArray) Driver {
			return NewFile(params.String("filename", name+"."+format))
		})
	}
}

// Open creates the driver for a project display entity
func Open(d *scene.Display) (Driver, error) {
	return Drivers.Create(d.Model, d.Name, d.Params)
}

// Multi fans every pass out to several drivers. Errors are joined.
type Multi []Driver

// Update implements Driver
func (m Multi) Update(result PassResult) error {
	var errs []error
	for _, d := range m {
		if err := d.Update(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Driver
func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
