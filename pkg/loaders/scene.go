package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Statement is one parsed request of a scene description file
type Statement struct {
	Type   string   // Request name (Camera, Mesh, AttributeBegin, etc.)
	Args   []string // Positional arguments, unquoted; arrays keep their brackets
	Params []Param  // Typed parameters in file order
	Line   int      // Line the statement starts on
}

// Param is a typed parameter. Primitive variables also carry an
// interpolation class ("vertex point P").
type Param struct {
	Class  string   // Interpolation class, empty for plain parameters
	Type   string   // Value type (float, int, string, color, point, matrix, etc.)
	Name   string   // Parameter name, may contain ':'
	Values []string // Values as strings
}

// SceneParser accumulates multi-line statements into parsed Statements
type SceneParser struct {
	statements     []Statement
	statementLines []string
	startLine      int
	lineNumber     int
}

// directives lists every request a statement can start with
var directives = map[string]bool{
	"Option": true, "Camera": true, "Display": true,
	"WorldBegin": true, "WorldEnd": true,
	"TransformBegin": true, "TransformEnd": true,
	"Transform": true, "ConcatTransform": true,
	"Translate": true, "Scale": true, "Rotate": true,
	"AttributeBegin": true, "AttributeEnd": true, "Attribute": true,
	"Shader": true, "LightSource": true, "Illuminate": true,
	"MotionBegin": true, "MotionEnd": true,
	"Mesh": true, "Points": true, "Curves": true, "Procedural": true,
	"InstanceBegin": true, "InstanceEnd": true, "Instance": true,
	"Command": true, "EditBegin": true, "EditEnd": true,
}

// ParseScene parses scene description content from an io.Reader
func ParseScene(reader io.Reader) ([]Statement, error) {
	parser := &SceneParser{}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := parser.processLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	if err := parser.processAccumulatedStatement(); err != nil {
		return nil, err
	}
	return parser.statements, nil
}

// LoadScene loads and parses a scene description file. Files ending in
// ".gz" are decompressed.
func LoadScene(filename string) ([]Statement, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(filename, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", filename, err)
		}
		defer zr.Close()
		reader = zr
	}
	return ParseScene(reader)
}

// processLine handles a single line, starting a new statement when the
// line begins with a directive and continuing the previous one otherwise
func (p *SceneParser) processLine(line string) error {
	p.lineNumber++
	if i := commentStart(line); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if directives[firstWord(line)] {
		if err := p.processAccumulatedStatement(); err != nil {
			return err
		}
		p.statementLines = []string{line}
		p.startLine = p.lineNumber
		return nil
	}

	if len(p.statementLines) == 0 {
		return fmt.Errorf("line %d: unexpected continuation line: %s", p.lineNumber, line)
	}
	p.statementLines = append(p.statementLines, line)
	return nil
}

// processAccumulatedStatement parses any accumulated lines and clears them
func (p *SceneParser) processAccumulatedStatement() error {
	if len(p.statementLines) == 0 {
		return nil
	}
	full := strings.Join(p.statementLines, " ")
	p.statementLines = nil

	stmt, err := parseStatement(full)
	if err != nil {
		return fmt.Errorf("line %d: error parsing statement '%s': %w", p.startLine, full, err)
	}
	stmt.Line = p.startLine
	p.statements = append(p.statements, *stmt)
	return nil
}

func firstWord(line string) string {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i]
	}
	return line
}

// commentStart returns the index of a '#' outside quotes, or -1
func commentStart(line string) int {
	inQuotes := false
	for i, char := range line {
		switch char {
		case '"':
			inQuotes = !inQuotes
		case '#':
			if !inQuotes {
				return i
			}
		}
	}
	return -1
}

// tokenize splits a line respecting quoted strings and brackets
func tokenize(line string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	inBrackets := false

	for _, char := range line {
		switch char {
		case '"':
			current.WriteRune(char)
			if inBrackets {
				inQuotes = !inQuotes
			} else if inQuotes {
				tokens = append(tokens, current.String())
				current.Reset()
				inQuotes = false
			} else {
				inQuotes = true
			}
		case '[':
			if !inQuotes && !inBrackets {
				if current.Len() > 0 {
					tokens = append(tokens, current.String())
					current.Reset()
				}
				inBrackets = true
			}
			current.WriteRune(char)
		case ']':
			current.WriteRune(char)
			if !inQuotes && inBrackets {
				tokens = append(tokens, current.String())
				current.Reset()
				inBrackets = false
			}
		case ' ', '\t':
			if inQuotes || inBrackets {
				current.WriteRune(char)
			} else if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isQuoted(token string) bool {
	return len(token) >= 2 && strings.HasPrefix(token, "\"") && strings.HasSuffix(token, "\"")
}

func isArray(token string) bool {
	return strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]")
}

// arrayValues splits a bracketed array into its elements, unquoting strings
func arrayValues(token string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "["), "]")
	var values []string
	for _, t := range tokenize(inner) {
		values = append(values, unquote(t))
	}
	return values
}

func unquote(token string) string {
	if isQuoted(token) {
		return token[1 : len(token)-1]
	}
	return token
}

// parseStatement parses a complete statement. Positional arguments come
// first; the first quoted token holding a space starts the parameter list.
func parseStatement(line string) (*Statement, error) {
	parts := tokenize(line)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty statement")
	}
	stmt := &Statement{Type: parts[0]}
	parts = parts[1:]

	i := 0
	for i < len(parts) && !isParamDecl(parts[i]) {
		stmt.Args = append(stmt.Args, unquote(parts[i]))
		i++
	}

	for i < len(parts) {
		if !isParamDecl(parts[i]) {
			return nil, fmt.Errorf("expected parameter declaration, got %s", parts[i])
		}
		fields := strings.Fields(unquote(parts[i]))
		param := Param{Type: fields[0], Name: fields[1]}
		if len(fields) == 3 {
			param = Param{Class: fields[0], Type: fields[1], Name: fields[2]}
		} else if len(fields) != 2 {
			return nil, fmt.Errorf("invalid parameter declaration %s", parts[i])
		}
		i++

		if i >= len(parts) {
			return nil, fmt.Errorf("parameter %q has no value", param.Name)
		}
		if isArray(parts[i]) {
			param.Values = arrayValues(parts[i])
		} else {
			param.Values = []string{unquote(parts[i])}
		}
		i++
		stmt.Params = append(stmt.Params, param)
	}

	return stmt, nil
}

func isParamDecl(token string) bool {
	return isQuoted(token) && strings.ContainsAny(strings.TrimSpace(unquote(token)), " \t")
}

// parseFloats converts every value to a float
func parseFloats(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", v, err)
		}
		out[i] = f
	}
	return out, nil
}

// parseInts converts every value to an int
func parseInts(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", v, err)
		}
		out[i] = n
	}
	return out, nil
}

// validateFilePath validates a scene file path
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("invalid file path: null bytes not allowed")
	}

	cleanPath := filepath.Clean(filename)
	if len(cleanPath) > 512 {
		return fmt.Errorf("file path too long: maximum 512 characters allowed")
	}

	lower := strings.ToLower(strings.TrimSuffix(cleanPath, ".gz"))
	if !strings.HasSuffix(lower, ".scene") {
		return fmt.Errorf("invalid file type: only .scene files are allowed")
	}
	return nil
}
