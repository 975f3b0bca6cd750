// Package meshio reads and writes triangle meshes in the file formats the
// batch converter can reference from a project file.
package meshio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/primitive"
)

// DefaultFormat is used when no mesh file format option is given
const DefaultFormat = "binarymesh"

// Mesh is a triangle mesh with optional per-vertex normals
type Mesh struct {
	Positions []core.Vec3
	Normals   []core.Vec3
	Triangles [][3]int
}

// Format encodes and decodes one mesh file format
type Format interface {
	Name() string
	Extension() string
	Write(w io.Writer, m *Mesh) error
	Read(r io.Reader) (*Mesh, error)
}

// Registry maps format names to implementations
type Registry struct {
	formats map[string]Format
}

// NewRegistry creates a registry with the built-in formats
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]Format)}
	r.Register(binaryMesh{})
	r.Register(objFormat{})
	r.Register(plyFormat{})
	return r
}

// Register adds or replaces a format
func (r *Registry) Register(f Format) {
	r.formats[f.Name()] = f
}

// Lookup returns the named format
func (r *Registry) Lookup(name string) (Format, error) {
	f, ok := r.formats[name]
	if !ok {
		return nil, fmt.Errorf("mesh file format %q (known: %s): %w", name, strings.Join(r.Names(), ", "), core.ErrUnknownModel)
	}
	return f, nil
}

// ByExtension returns the format owning a file extension, without the dot
func (r *Registry) ByExtension(ext string) (Format, error) {
	for _, f := range r.formats {
		if f.Extension() == ext {
			return f, nil
		}
	}
	return nil, fmt.Errorf("mesh file extension %q: %w", ext, core.ErrUnknownModel)
}

// Names returns the registered format names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Formats is the process-wide format registry
var Formats = NewRegistry()

// Extension returns the file extension for a format name
func Extension(format string) (string, error) {
	f, err := Formats.Lookup(format)
	if err != nil {
		return "", err
	}
	return f.Extension(), nil
}

// WriteFile writes a mesh to path in the given format
func WriteFile(path, format string, m *Mesh) error {
	f, err := Formats.Lookup(format)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mesh file: %w", err)
	}
	if err := f.Write(file, m); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// ReadFile reads a mesh, choosing the format from the file extension
func ReadFile(path string) (*Mesh, error) {
	f, err := Formats.ByExtension(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mesh file: %w", err)
	}
	defer file.Close()

	m, err := f.Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return m, nil
}

// FromPrimitive triangulates a mesh primitive. "P" is required; vertex
// interpolated "N" is carried over and other normals are dropped.
func FromPrimitive(p *primitive.MeshPrimitive) (*Mesh, error) {
	points, ok := p.Vars.Vec3s("P")
	if !ok {
		return nil, fmt.Errorf("MeshPrimitive has no \"P\" variable: %w", core.ErrMissingVariable)
	}

	m := &Mesh{Positions: points}
	m.Triangles, _ = p.Triangulate()

	if n, ok := p.Vars["N"]; ok && (n.Interpolation == primitive.Vertex || n.Interpolation == primitive.Varying) {
		if normals, ok := n.Data.([]core.Vec3); ok && len(normals) == len(points) {
			m.Normals = normals
		}
	}
	return m, nil
}
