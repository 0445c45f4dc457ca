package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/buildtree/internal/app"
	"github.com/specialistvlad/buildtree/internal/executor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that can set any option,
// e.g. BUILDTREE_LOG_LEVEL for --log-level.
const EnvPrefix = "BUILDTREE"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
//
// Every option can also come from a config file (--config) or a BUILDTREE_*
// environment variable. Flags win over the environment, which wins over the
// file.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	v := viper.New()

	var cfg *app.Config
	cmd := &cobra.Command{
		Use:   "buildtree [options] [TREE_PATH]",
		Short: "Registers a build tree and runs a workload over its projects.",
		Long: `buildtree - loads a build tree description and runs a workload over every
project, taking per-project locks and an all-projects lock through the
project lock coordinator.

TREE_PATH is a single .hcl file or a directory containing .hcl files.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			if err := readConfig(v); err != nil {
				return err
			}

			path := v.GetString("tree")
			if path == "" && len(positional) > 0 {
				path = positional[0]
			}
			slog.Debug("Tree path determined.", "path", path)
			if path == "" {
				slog.Debug("No tree path provided, printing usage and exiting.")
				return cmd.Help()
			}

			c, err := app.NewConfig(app.Config{
				TreePath:        path,
				LogFormat:       strings.ToLower(v.GetString("log-format")),
				LogLevel:        strings.ToLower(v.GetString("log-level")),
				HealthcheckPort: v.GetInt("healthcheck-port"),
				WorkerCount:     v.GetInt("workers"),
				GlobalPriority:  v.GetBool("global-priority"),
				Action:          v.GetString("action"),
				Rounds:          v.GetInt("rounds"),
				EventsURL:       v.GetString("events-url"),
				EventsNamespace: v.GetString("events-namespace"),
			})
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Config file (yaml, toml or json).")
	flags.StringP("tree", "t", "", "Path to the build tree file or directory.")
	flags.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	flags.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flags.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.Int("workers", 10, "Number of concurrent workers for the executor.")
	flags.Bool("global-priority", false, "Let a waiting all-projects lock block new project locks.")
	flags.String("action", "touch", "Workload applied to every project. Options: "+strings.Join(executor.ActionNames(), ", ")+".")
	flags.Int("rounds", 1, "Number of times the workload runs over the tree.")
	flags.String("events-url", "", "Socket.IO server that receives registration and lock events. Empty is disabled.")
	flags.String("events-namespace", "/", "Socket.IO namespace used with --events-url.")

	if err := v.BindPFlags(flags); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if cfg == nil {
		// --help, or no tree path.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

// readConfig merges the file named by --config, if any.
func readConfig(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	slog.Debug("Config file loaded.", "path", path)
	return nil
}
