package config

import "context"

// Loader is the interface for a format-specific build-tree loader.
type Loader interface {
	// Load reads every build declared under the given paths (files or
	// directories) and translates them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
