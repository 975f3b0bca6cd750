package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/meshio"
	"github.com/df07/go-scene-bridge/pkg/primitive"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// BatchBackend writes converted geometry to content-hash named files in
// the project's side-car geometry directory. A file that already exists
// is not written again.
type BatchBackend struct {
	projectDir string
	format     string
	logger     core.Logger
	writes     int
}

// NewBatchBackend creates a backend storing geometry next to a project file in projectDir
func NewBatchBackend(projectDir string, logger core.Logger) *BatchBackend {
	return &BatchBackend{
		projectDir: projectDir,
		format:     meshio.DefaultFormat,
		logger:     core.OrDiscard(logger),
	}
}

// SetOption implements OptionSetter
func (b *BatchBackend) SetOption(name string, value any) error {
	if name != MeshFileFormatOption {
		return fmt.Errorf("unknown converter option %q: %w", name, core.ErrInvalidValue)
	}
	format, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s expects a string value: %w", name, core.ErrInvalidValue)
	}
	if _, err := meshio.Extension(format); err != nil {
		return err
	}
	b.format = format
	return nil
}

// Format returns the mesh file format in use
func (b *BatchBackend) Format() string { return b.format }

// Writes returns the number of geometry files written
func (b *BatchBackend) Writes() int { return b.writes }

// Convert implements Backend
func (b *BatchBackend) Convert(name string, samples []primitive.Primitive) (*scene.Object, error) {
	ext, err := meshio.Extension(b.format)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(b.projectDir, scene.GeometryDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create geometry directory: %w", err)
	}

	filenames := make([]string, 0, len(samples))
	for i, sample := range samples {
		mp, ok := sample.(*primitive.MeshPrimitive)
		if !ok {
			return nil, fmt.Errorf("%s: %w", sample.TypeName(), core.ErrUnsupportedPrimitive)
		}

		fileName := fmt.Sprintf("%s.%s", name, ext)
		if len(samples) > 1 {
			fileName = fmt.Sprintf("%s_%d.%s", name, i, ext)
		}
		rel := filepath.ToSlash(filepath.Join(scene.GeometryDir, fileName))
		filenames = append(filenames, rel)

		path := filepath.Join(b.projectDir, rel)
		if _, err := os.Stat(path); err == nil {
			b.logger.Debugf("convertPrimitive: %s already exists, skipping write", rel)
			continue
		}

		mesh, err := meshio.FromPrimitive(mp)
		if err != nil {
			return nil, err
		}
		if err := meshio.WriteFile(path, b.format, mesh); err != nil {
			return nil, err
		}
		b.writes++
	}

	params := scene.ParamArray{}
	if len(filenames) == 1 {
		params.Insert("filename", filenames[0])
	} else {
		for i, f := range filenames {
			params.Insert(fmt.Sprintf("filename.%d", i), f)
		}
	}
	return &scene.Object{
		Entity:    scene.Entity{Name: name, Model: "mesh_object", Params: params},
		Filenames: filenames,
	}, nil
}
