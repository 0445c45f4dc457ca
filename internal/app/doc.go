// Package app wires a build tree to its inputs and outputs: it validates the
// configuration, loads the tree description, registers every build, runs the
// executor and serves diagnostics. Entrypoints such as cmd/cli only parse
// arguments and hand over a Config.
package app
