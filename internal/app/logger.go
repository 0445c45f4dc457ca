package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own logger from the validated config. It never
// touches slog.Default, so several apps can log side by side in tests. Debug
// logging also records the source line of every call.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(outW, handlerOpts)
	default:
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	if cfg.TreePath == "" {
		return slog.New(handler)
	}
	return slog.New(handler).With("tree", cfg.TreePath)
}
