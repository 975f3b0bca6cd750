// Package config reads the command line tool's TOML settings file and
// turns it into renderer options.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Option names set from the [render] table
const (
	ThreadsOption           = "as:cfg:rendering_threads"
	InteractivePassesOption = "as:cfg:progressive_frame_renderer:max_passes"
	FinalPassesOption       = "as:cfg:generic_frame_renderer:passes"
	SearchPathOption        = "as:searchpath"
)

// Config is the decoded settings file
type Config struct {
	LogLevel    string         `toml:"log_level"`
	Preview     string         `toml:"preview"` // Preview server address, empty to disable
	SearchPaths []string       `toml:"search_paths"`
	Options     map[string]any `toml:"options"`
	Render      Render         `toml:"render"`
}

// Render holds render settings. Zero values keep the renderer defaults.
type Render struct {
	Threads int `toml:"threads"`
	Passes  int `toml:"passes"`
}

// OptionSetter receives options; every procedural.Renderer is one
type OptionSetter interface {
	SetOption(name string, value any)
}

// Default returns the settings used without a file
func Default() *Config {
	return &Config{LogLevel: "info", Options: map[string]any{}}
}

// Load reads a settings file. "~" in search paths is expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes settings from TOML data on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	for i, p := range cfg.SearchPaths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("search path %q: %w", p, err)
		}
		cfg.SearchPaths[i] = expanded
	}

	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	if cfg.Render.Threads < 0 || cfg.Render.Passes < 0 {
		return nil, fmt.Errorf("render threads and passes must not be negative: %w", core.ErrInvalidValue)
	}
	return cfg, nil
}

// Level returns the configured log level
func (c *Config) Level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log_level %q: %w", c.LogLevel, core.ErrInvalidValue)
	}
	return level, nil
}

// Apply sets every configured option on r. Nested option tables are
// joined with ':' so [options.user] shot = "s01" sets "user:shot".
// Options are applied in name order, followed by search paths and the
// [render] settings.
func (c *Config) Apply(r OptionSetter) {
	flat := map[string]any{}
	flatten("", c.Options, flat)

	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.SetOption(name, flat[name])
	}

	for _, p := range c.SearchPaths {
		r.SetOption(SearchPathOption, p)
	}
	if c.Render.Threads > 0 {
		r.SetOption(ThreadsOption, c.Render.Threads)
	}
	if c.Render.Passes > 0 {
		r.SetOption(InteractivePassesOption, c.Render.Passes)
		r.SetOption(FinalPassesOption, c.Render.Passes)
	}
}

func flatten(prefix string, table map[string]any, out map[string]any) {
	for key, value := range table {
		name := key
		if prefix != "" {
			name = prefix + ":" + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = convert(value)
	}
}

// convert maps decoded TOML values to the types renderers expect. Pairs
// of numbers become core.V2i or core.V2f.
func convert(value any) any {
	switch v := value.(type) {
	case int64:
		return int(v)
	case []any:
		return convertArray(v)
	}
	return value
}

func convertArray(values []any) any {
	var ints []int
	var floats []float64
	var strs []string
	for _, e := range values {
		switch n := e.(type) {
		case int64:
			ints = append(ints, int(n))
			floats = append(floats, float64(n))
		case float64:
			floats = append(floats, n)
		case string:
			strs = append(strs, n)
		}
	}

	switch {
	case len(strs) == len(values):
		return strs
	case len(ints) == len(values) && len(ints) == 2:
		return core.V2i{ints[0], ints[1]}
	case len(ints) == len(values):
		return ints
	case len(floats) == len(values) && len(floats) == 2:
		return core.V2f{floats[0], floats[1]}
	case len(floats) == len(values):
		return floats
	}
	return values
}
