package app

import (
	"net/url"
	"slices"
	"strconv"

	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/executor"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	TreePath string // hcl files describing the build tree

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	GlobalPriority bool   // waiting all-projects requests block new project locks
	Action         string // workload applied to every project
	Rounds         int

	EventsURL       string // Socket.IO server receiving build tree events, optional
	EventsNamespace string
}

var (
	logFormats = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.TreePath == "" {
		return nil, errors.NewValidationError("tree path", cfg.TreePath, "is required")
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, errors.NewValidationError("log format", cfg.LogFormat, "must be one of text, json")
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, errors.NewValidationError("log level", cfg.LogLevel, "must be one of debug, info, warn, error")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.NewValidationError("healthcheck port", strconv.Itoa(cfg.HealthcheckPort), "out of range")
	}
	if cfg.WorkerCount < 1 {
		return nil, errors.NewValidationError("worker count", strconv.Itoa(cfg.WorkerCount), "must be at least 1")
	}
	if cfg.Rounds < 0 {
		return nil, errors.NewValidationError("rounds", strconv.Itoa(cfg.Rounds), "must not be negative")
	}
	if cfg.EventsURL != "" {
		u, err := url.Parse(cfg.EventsURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.NewValidationError("events url", cfg.EventsURL, "must be an absolute URL")
		}
	}
	if _, err := executor.ActionByName(cfg.Action); err != nil {
		return nil, err
	}

	return &cfg, nil
}
