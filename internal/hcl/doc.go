// Package hcl provides the HCL implementation of config.Loader. It reads
// `build` blocks, each holding a tree of nested `project` blocks, from .hcl
// files and translates them into the format-agnostic config.Model.
package hcl
