package project

import (
	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/zclconf/go-cty/cty"
)

// Descriptor declares a project before it is registered.
//
// In a tree passed to the registrar, the root descriptor is the build's root
// project and Children are its subprojects; paths are derived from Name. For
// single-project registration Path must be set explicitly.
type Descriptor struct {
	Name       string
	Path       buildid.Path
	Dir        string
	Properties map[string]cty.Value
	Children   []*Descriptor
}

// Walk visits d and then its descendants depth-first, in declaration order.
// Returning false from visit stops descent into that node's children.
func (d *Descriptor) Walk(visit func(*Descriptor) bool) {
	if d == nil || !visit(d) {
		return
	}
	for _, c := range d.Children {
		c.Walk(visit)
	}
}

// Count returns the number of descriptors in the tree rooted at d.
func (d *Descriptor) Count() int {
	n := 0
	d.Walk(func(*Descriptor) bool {
		n++
		return true
	})
	return n
}
