// Package config holds the format-neutral description of a build tree, as
// produced by a Loader, before any build is registered.
package config
