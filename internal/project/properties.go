package project

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Properties is a project's mutable property bag. It performs no locking of
// its own; see the package documentation.
type Properties struct {
	values map[string]cty.Value
}

func newProperties(initial map[string]cty.Value) *Properties {
	values := make(map[string]cty.Value, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Properties{values: values}
}

// Get returns the named property.
func (p *Properties) Get(name string) (cty.Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Set stores the named property, replacing any previous value.
func (p *Properties) Set(name string, v cty.Value) {
	p.values[name] = v
}

// Delete removes the named property.
func (p *Properties) Delete(name string) {
	delete(p.values, name)
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	return len(p.values)
}

// Names returns the property names in sorted order.
func (p *Properties) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AsObject returns the bag as a single cty object value.
func (p *Properties) AsObject() cty.Value {
	if len(p.values) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(p.values))
	for k, v := range p.values {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}
