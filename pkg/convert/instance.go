package convert

import (
	"github.com/df07/go-scene-bridge/pkg/attributes"
	"github.com/df07/go-scene-bridge/pkg/scene"
	"github.com/df07/go-scene-bridge/pkg/transform"
)

// CreateAssemblyInstance places an instance of the named assembly in
// parent, named after the attribute scope and carrying its visibility
func CreateAssemblyInstance(parent *scene.Assembly, assembly string, attrs *attributes.State, transforms transform.Sequence) *scene.AssemblyInstance {
	inst := scene.NewAssemblyInstance(attrs.Name+"_assembly_instance", assembly, transforms)
	if flags := attrs.VisibilityParams(); len(flags) > 0 {
		inst.Params.Insert("visibility", flags)
	}
	parent.AssemblyInstances.InsertUnique(inst)
	return inst
}
