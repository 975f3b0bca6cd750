package scene

import (
	"fmt"
	"sort"
)

// Entity is the common part of every scene graph node
type Entity struct {
	Name   string
	Model  string
	Params ParamArray
}

// EntityName returns the entity name
func (e *Entity) EntityName() string { return e.Name }

func (e *Entity) setName(name string) { e.Name = name }

func (e *Entity) base() *Entity { return e }

// Named is implemented by every scene graph node
type Named interface {
	EntityName() string
	setName(name string)
}

// Container is an insertion ordered set of entities with unique names
type Container[T Named] struct {
	items []T
	index map[string]int
}

// Len returns the number of entities
func (c *Container[T]) Len() int { return len(c.items) }

// Items returns the entities in insertion order
func (c *Container[T]) Items() []T { return c.items }

// Get returns the entity with the given name
func (c *Container[T]) Get(name string) (T, bool) {
	if i, ok := c.index[name]; ok {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Insert adds an entity, replacing any entity with the same name
func (c *Container[T]) Insert(item T) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	name := item.EntityName()
	if i, ok := c.index[name]; ok {
		c.items[i] = item
		return
	}
	c.index[name] = len(c.items)
	c.items = append(c.items, item)
}

// InsertUnique adds an entity, renaming it with a numeric suffix if its
// name is already taken. The final name is returned.
func (c *Container[T]) InsertUnique(item T) string {
	name := c.UniqueName(item.EntityName())
	item.setName(name)
	c.Insert(item)
	return name
}

// UniqueName returns name, or name with the smallest free numeric suffix
func (c *Container[T]) UniqueName(name string) string {
	if _, taken := c.index[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if _, taken := c.index[candidate]; !taken {
			return candidate
		}
	}
}

// Remove deletes the named entity, returning true if it existed
func (c *Container[T]) Remove(name string) bool {
	i, ok := c.index[name]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, name)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].EntityName()] = j
	}
	return true
}

// Names returns the entity names in lexical order
func (c *Container[T]) Names() []string {
	names := make([]string, 0, len(c.items))
	for _, item := range c.items {
		names = append(names, item.EntityName())
	}
	sort.Strings(names)
	return names
}

// Clear removes every entity
func (c *Container[T]) Clear() {
	c.items = nil
	c.index = nil
}
