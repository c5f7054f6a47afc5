// Package model is the registry of modeled entities: id field, routing overrides
// and typed properties used to reshape engine documents.
package model

import (
	"fmt"
	"slices"
	"sort"
)

// DefaultIDName is used when a definition does not name its id field.
const DefaultIDName = "id"

// Definition describes one modeled entity.
type Definition struct {
	Name        string
	IDName      string
	IDGenerated bool
	// Index and Type are the datasource-level routing override. Empty means unset.
	Index      string
	Type       string
	Properties map[string]Property
}

// PropertyNames returns the declared property names in sorted order.
func (d Definition) PropertyNames() []string {
	names := make([]string, 0, len(d.Properties))
	for n := range d.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IDValue returns the id carried by data, if any.
func (d Definition) IDValue(data map[string]any) (any, bool) {
	v, ok := data[d.idName()]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (d Definition) idName() string {
	if d.IDName == "" {
		return DefaultIDName
	}
	return d.IDName
}

// Registry resolves model definitions by name. Read-only after construction.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry validates and indexes definitions.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("model name is required")
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("model %q defined more than once", d.Name)
		}
		if d.IDName == "" {
			d.IDName = DefaultIDName
		}
		for name, p := range d.Properties {
			if !p.Kind.valid() {
				return nil, fmt.Errorf("model %q property %q: unknown kind %q", d.Name, name, p.Kind)
			}
		}
		r.defs[d.Name] = d
	}
	return r, nil
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	d, ok := r.defs[name]
	return d, ok
}

// Names returns all model names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
