package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/config"
	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/fsutil"
	"github.com/specialistvlad/buildtree/internal/project"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL build-tree loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under paths and collects the declared builds in
// file order. A build path may only be declared once across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to find build files: %w", err)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	declared := make(map[buildid.Build]string)
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, b := range root.Builds {
			build, err := l.translateBuild(file, b)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			if prev, dup := declared[build.ID]; dup {
				return nil, fmt.Errorf("in %s: %w", file,
					errors.NewValidationError("build", b.Path, "already declared in "+prev))
			}
			declared[build.ID] = file
			model.Builds = append(model.Builds, build)
		}
	}

	if len(model.Builds) == 0 {
		logger.Warn("No builds declared.", "paths", paths)
	}
	logger.Debug("HCL loading complete.", "builds", len(model.Builds), "projects", model.ProjectCount())
	return model, nil
}

// translateBuild converts a build block into the agnostic model. A build
// without an explicit dir lives next to the file declaring it.
func (l *Loader) translateBuild(file string, b *buildBlock) (*config.Build, error) {
	id, err := buildid.ParseBuild(b.Path)
	if err != nil {
		return nil, err
	}

	dir := b.Dir
	if dir == "" {
		dir = filepath.Dir(file)
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(file), dir)
	}

	props, err := propertiesFromValue(b.Properties)
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", b.Path, err)
	}

	root := &project.Descriptor{
		Name:       id.Name(),
		Path:       buildid.Root,
		Dir:        dir,
		Properties: props,
	}
	for _, p := range b.Projects {
		child, err := l.translateProject(p, buildid.Root, dir)
		if err != nil {
			return nil, fmt.Errorf("build %q: %w", b.Path, err)
		}
		root.Children = append(root.Children, child)
	}

	return &config.Build{ID: id, Dir: dir, Source: file, Root: root}, nil
}

// translateProject converts a project block and its nested blocks. Paths are
// filled in for readability; the registrar derives its own from the names.
func (l *Loader) translateProject(p *projectBlock, parent buildid.Path, parentDir string) (*project.Descriptor, error) {
	path, err := parent.Child(p.Name)
	if err != nil {
		return nil, err
	}

	dir := p.Dir
	switch {
	case dir == "":
		dir = filepath.Join(parentDir, p.Name)
	case !filepath.IsAbs(dir):
		dir = filepath.Join(parentDir, dir)
	}

	props, err := propertiesFromValue(p.Properties)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", path, err)
	}

	d := &project.Descriptor{Name: p.Name, Path: path, Dir: dir, Properties: props}
	for _, c := range p.Projects {
		child, err := l.translateProject(c, path, dir)
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, child)
	}
	return d, nil
}
