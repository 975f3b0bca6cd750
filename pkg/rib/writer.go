// Package rib is a backend writing the scene-description protocol as a
// RenderMan Interface Bytestream.
package rib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// stream writes RIB requests, one per line, indented by block depth. The
// first write error is kept and every later write is dropped.
type stream struct {
	w     *bufio.Writer
	depth int
	err   error
}

func newStream(w io.Writer) *stream {
	return &stream{w: bufio.NewWriter(w)}
}

// request writes a request name followed by its arguments
func (s *stream) request(name string, args ...string) {
	if s.err != nil {
		return
	}
	line := strings.Repeat("\t", s.depth) + name
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	_, s.err = s.w.WriteString(line + "\n")
}

// open writes a request that starts a block
func (s *stream) open(name string, args ...string) {
	s.request(name, args...)
	s.depth++
}

// close writes a request that ends a block
func (s *stream) close(name string) {
	if s.depth > 0 {
		s.depth--
	}
	s.request(name)
}

func (s *stream) flush() error {
	if s.err != nil {
		return s.err
	}
	s.err = s.w.Flush()
	return s.err
}

// gzipFile closes the compressor before the file it writes to
type gzipFile struct {
	*gzip.Writer
	file *os.File
}

func (g *gzipFile) Close() error {
	if err := g.Writer.Close(); err != nil {
		g.file.Close()
		return err
	}
	return g.file.Close()
}

// createFile opens path for writing, gzip compressed when it ends in ".gz"
func createFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".gz") {
		return &gzipFile{Writer: gzip.NewWriter(f), file: f}, nil
	}
	return f, nil
}

func quote(s string) string { return strconv.Quote(s) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func floats(values ...float64) string {
	parts := make([]string, len(values))
	for i, f := range values {
		parts[i] = formatFloat(f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func ints(values ...int) string {
	parts := make([]string, len(values))
	for i, n := range values {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func strs(values ...string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quote(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func matrix(m core.Mat44) string { return floats(m.Values()...) }

func vec3s(values []core.Vec3) string {
	flat := make([]float64, 0, len(values)*3)
	for _, v := range values {
		flat = append(flat, v.X, v.Y, v.Z)
	}
	return floats(flat...)
}

func colors(values []core.Color) string {
	flat := make([]float64, 0, len(values)*3)
	for _, c := range values {
		flat = append(flat, c.R, c.G, c.B)
	}
	return floats(flat...)
}

// typedValue returns the RIB type and value of a parameter. Vec3 values
// take vecType ("point", "normal" or "vector"). ok is false for values
// RIB cannot represent.
func typedValue(value any, vecType string) (ribType, ribValue string, ok bool) {
	switch v := value.(type) {
	case float64:
		return "float", floats(v), true
	case float32:
		return "float", floats(float64(v)), true
	case int:
		return "int", ints(v), true
	case bool:
		n := 0
		if v {
			n = 1
		}
		return "int", ints(n), true
	case string:
		return "string", strs(v), true
	case core.Color:
		return "color", floats(v.R, v.G, v.B), true
	case core.Vec3:
		return vecType, floats(v.X, v.Y, v.Z), true
	case core.V2f:
		return "float[2]", floats(v[0], v[1]), true
	case core.V2i:
		return "int[2]", ints(v[0], v[1]), true
	case core.Mat44:
		return "matrix", matrix(v), true
	case []float64:
		return "float", floats(v...), true
	case []int:
		return "int", ints(v...), true
	case []string:
		return "string", strs(v...), true
	case []core.Color:
		return "color", colors(v), true
	case []core.Vec3:
		return vecType, vec3s(v), true
	}
	return "", "", false
}

// paramList renders a parameter block as alternating "type name" tokens
// and values in name order. Only names starting with prefix are kept, with
// the prefix removed. Unrepresentable values are reported and skipped.
func paramList(params core.Params, prefix string, logger core.Logger) []string {
	var out []string
	for _, name := range params.SortedKeys() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		token := strings.TrimPrefix(name, prefix)
		ribType, value, ok := typedValue(params[name], "vector")
		if !ok {
			logger.Warnf("parameterList: Ignoring parameter %q of unsupported type %T.", name, params[name])
			continue
		}
		out = append(out, quote(ribType+" "+token), value)
	}
	return out
}
