package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is a struct used to decode the top-level blocks of any file.
type fileRoot struct {
	Builds []*buildBlock `hcl:"build,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// buildBlock is a `build ":path" { ... }` block. Its own properties belong to
// the build's root project.
type buildBlock struct {
	Path       string          `hcl:"path,label"`
	Dir        string          `hcl:"dir,optional"`
	Properties *cty.Value      `hcl:"properties,optional"`
	Projects   []*projectBlock `hcl:"project,block"`
}

// projectBlock is a `project "name" { ... }` block, possibly nested.
type projectBlock struct {
	Name       string          `hcl:"name,label"`
	Dir        string          `hcl:"dir,optional"`
	Properties *cty.Value      `hcl:"properties,optional"`
	Projects   []*projectBlock `hcl:"project,block"`
}
