package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/specialistvlad/buildtree/internal/buildtree"
	"github.com/specialistvlad/buildtree/internal/config"
	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/specialistvlad/buildtree/internal/event"
	"github.com/specialistvlad/buildtree/internal/eventsink"
	"github.com/specialistvlad/buildtree/internal/hcl"
)

const eventSinkTimeout = 10 * time.Second

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	bus        *event.Bus
	tree       *buildtree.Tree
	model      *config.Model
	httpServer *http.Server
	sink       *eventsink.SocketIO
}

// NewApp is the constructor for the main application. It returns an App with
// its own logger, event bus and an empty build tree. A nil loader selects the
// HCL loader.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		loader = hcl.NewLoader()
	}

	bus := event.NewBus(event.WithLogger(logger))
	bus.SubscribeAll(func(e event.Event) {
		logger.Debug("Event published.", "type", e.EventType())
	})

	opts := []buildtree.Option{buildtree.WithEventBus(bus)}
	if cfg.GlobalPriority {
		opts = append(opts, buildtree.WithGlobalPriority())
	}

	return &App{
		ctx:    ctx,
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
		bus:    bus,
		tree:   buildtree.New(opts...),
	}
}

// Tree returns the application's build tree. This is primarily for testing.
func (a *App) Tree() *buildtree.Tree {
	return a.tree
}

// Events returns the application's event bus.
func (a *App) Events() *event.Bus {
	return a.bus
}

// connectEventSink forwards every bus event to the configured Socket.IO
// server. It does nothing when no events URL is set.
func (a *App) connectEventSink(ctx context.Context) error {
	if a.config.EventsURL == "" {
		return nil
	}
	sink, err := eventsink.Dial(ctx, a.config.EventsURL, a.config.EventsNamespace, eventSinkTimeout)
	if err != nil {
		return fmt.Errorf("event sink: %w", err)
	}
	a.sink = sink
	eventsink.NewForwarder(sink, a.logger).Attach(a.bus)
	return nil
}

// Close shuts the health check server down and ends the build tree's
// lifetime.
func (a *App) Close() error {
	a.logger.Debug("Closing app...")
	err := a.closeHealthCheckServer()
	if a.sink != nil {
		_ = a.sink.Close()
	}
	if treeErr := a.tree.Close(); treeErr != nil && err == nil {
		err = treeErr
	}
	return err
}
