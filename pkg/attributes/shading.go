package attributes

import (
	"slices"
	"strings"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// ShadingCache memoizes shader groups and materials created from attribute
// states so identical networks are materialized once per assembly
type ShadingCache struct {
	shaderGroups map[core.Hash]string
	materials    map[core.Hash]string

	// Shader groups created for each scope name, used by attribute edits
	byScope map[string][]string
}

// NewShadingCache creates an empty cache
func NewShadingCache() *ShadingCache {
	return &ShadingCache{
		shaderGroups: make(map[core.Hash]string),
		materials:    make(map[core.Hash]string),
		byScope:      make(map[string][]string),
	}
}

// CreateShaderGroup returns the name of a shader group matching the
// state's network, creating it in the assembly on first use. Groups are
// shared only between scopes with the same name, so editing one scope
// never changes the shading of another.
func (c *ShadingCache) CreateShaderGroup(s *State, assembly *scene.Assembly) string {
	network := s.ShaderGroupHash()
	hash := core.NewHasher().AppendHash(network).AppendString(s.Name).Sum()
	name, ok := c.shaderGroups[hash]
	if !ok {
		name = "sg_" + hash.String()
		assembly.ShaderGroups.Insert(&scene.ShaderGroup{
			Entity:  scene.Entity{Name: name, Params: scene.ParamArray{}},
			Shaders: networkOf(s),
		})
		c.shaderGroups[hash] = name
	}
	if !slices.Contains(c.byScope[s.Name], name) {
		c.byScope[s.Name] = append(c.byScope[s.Name], name)
	}
	return name
}

// CreateMaterial returns the name of a material bound to the shader group
// and the state's alpha map, creating it on first use
func (c *ShadingCache) CreateMaterial(s *State, assembly *scene.Assembly, shaderGroup string) string {
	hash := core.NewHasher().AppendString(shaderGroup).AppendString(s.AlphaMap).Sum()
	if name, ok := c.materials[hash]; ok {
		return name
	}

	name := "material_" + hash.String()
	params := scene.ParamArray{}
	params.Insert("osl_surface", shaderGroup)
	if s.AlphaMap != "" {
		params.Insert("alpha_map", s.AlphaMap)
	}
	assembly.Materials.Insert(&scene.Material{
		Entity: scene.Entity{Name: name, Model: "osl_material", Params: params},
	})
	c.materials[hash] = name
	return name
}

// EditShaderGroup replaces the network of every shader group created for
// the state's scope with the state's current network. When exact is false
// groups of descendant scopes ("scope/child") are edited too. It returns
// the number of groups changed.
func (c *ShadingCache) EditShaderGroup(s *State, assembly *scene.Assembly, exact bool) int {
	edited := 0
	for scope, names := range c.byScope {
		if scope != s.Name && (exact || !strings.HasPrefix(scope, s.Name+"/")) {
			continue
		}
		for _, name := range names {
			sg, ok := assembly.ShaderGroups.Get(name)
			if !ok {
				continue
			}
			sg.Shaders = networkOf(s)
			edited++
		}
	}
	return edited
}

func networkOf(s *State) []scene.Shader {
	shaders := slices.Clone(s.Shaders)
	if s.Surface != nil {
		shaders = append(shaders, *s.Surface)
	}
	return shaders
}
