// Package cli turns the buildtree command line into an app.Config. Options
// come from cobra flags, BUILDTREE_* environment variables and an optional
// config file, merged through viper. Usage errors are reported as ExitError
// with exit code 2.
package cli
