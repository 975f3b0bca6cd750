package scene

import (
	"fmt"
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Factory constructs an entity of one model
type Factory[T any] func(name string, params ParamArray) T

// Registry maps model names to entity factories
type Registry[T any] struct {
	kind      string
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry. kind is used in error messages.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, factories: make(map[string]Factory[T])}
}

// Register adds or replaces the factory for a model
func (r *Registry[T]) Register(model string, factory Factory[T]) {
	r.factories[model] = factory
}

// Models returns the registered model names
func (r *Registry[T]) Models() []string {
	models := make([]string, 0, len(r.factories))
	for m := range r.factories {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Has reports whether the model is registered
func (r *Registry[T]) Has(model string) bool {
	_, ok := r.factories[model]
	return ok
}

// Create builds an entity. Unknown models return ErrUnknownModel with the
// closest registered name as a suggestion.
func (r *Registry[T]) Create(model, name string, params ParamArray) (T, error) {
	factory, ok := r.factories[model]
	if !ok {
		var zero T
		if suggestion := r.suggest(model); suggestion != "" {
			return zero, fmt.Errorf("%s model %q (did you mean %q?): %w", r.kind, model, suggestion, core.ErrUnknownModel)
		}
		return zero, fmt.Errorf("%s model %q: %w", r.kind, model, core.ErrUnknownModel)
	}
	if params == nil {
		params = ParamArray{}
	}
	return factory(name, params), nil
}

func (r *Registry[T]) suggest(model string) string {
	metric := metrics.NewLevenshtein()
	best, bestScore := "", 0.5
	for _, candidate := range r.Models() {
		if score := strutil.Similarity(model, candidate, metric); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best
}

// Factories holds the registries for every model-keyed entity kind
type Factories struct {
	Lights          *Registry[*Light]
	EnvironmentEDFs *Registry[*EnvironmentEDF]
	Cameras         *Registry[*Camera]
}

// NewFactories creates registries populated with the built-in models
func NewFactories() *Factories {
	f := &Factories{
		Lights:          NewRegistry[*Light]("light"),
		EnvironmentEDFs: NewRegistry[*EnvironmentEDF]("environment edf"),
		Cameras:         NewRegistry[*Camera]("camera"),
	}

	for _, model := range []string{"point_light", "directional_light", "spot_light", "sun_light"} {
		f.Lights.Register(model, func(name string, params ParamArray) *Light {
			return &Light{Entity: Entity{Name: name, Model: model, Params: params}}
		})
	}

	for _, model := range []string{
		"constant_environment_edf",
		"constant_hemisphere_environment_edf",
		"gradient_environment_edf",
		"latlong_map_environment_edf",
	} {
		f.EnvironmentEDFs.Register(model, func(name string, params ParamArray) *EnvironmentEDF {
			return &EnvironmentEDF{Entity: Entity{Name: name, Model: model, Params: params}}
		})
	}

	for _, model := range []string{"pinhole_camera", "thinlens_camera"} {
		f.Cameras.Register(model, func(name string, params ParamArray) *Camera {
			return &Camera{Entity: Entity{Name: name, Model: model, Params: params}}
		})
	}

	return f
}
