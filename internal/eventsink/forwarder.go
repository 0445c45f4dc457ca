package eventsink

import (
	"log/slog"
	"sync/atomic"

	"github.com/specialistvlad/buildtree/internal/event"
)

// Emitter sends one named message with a payload.
type Emitter interface {
	Emit(name string, args ...any) error
}

// Forwarder re-emits bus events through an Emitter.
type Forwarder struct {
	emitter Emitter
	logger  *slog.Logger

	sent   atomic.Int64
	failed atomic.Int64
}

// NewForwarder creates a Forwarder. A nil logger selects slog.Default().
func NewForwarder(emitter Emitter, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{emitter: emitter, logger: logger}
}

// Attach subscribes the forwarder to every event on bus and returns the
// subscription ID.
func (f *Forwarder) Attach(bus *event.Bus) string {
	return bus.SubscribeAll(f.Handle)
}

// Handle emits e. Emit failures are logged and counted, never returned: the
// bus runs handlers inline with lock transitions.
func (f *Forwarder) Handle(e event.Event) {
	if err := f.emitter.Emit(e.EventType(), Payload(e)); err != nil {
		f.failed.Add(1)
		f.logger.Warn("Failed to forward event.", "type", e.EventType(), "error", err)
		return
	}
	f.sent.Add(1)
}

// Sent returns how many events were emitted successfully.
func (f *Forwarder) Sent() int64 { return f.sent.Load() }

// Failed returns how many events could not be emitted.
func (f *Forwarder) Failed() int64 { return f.failed.Load() }

// Payload flattens e into the JSON-friendly map sent on the wire.
func Payload(e event.Event) map[string]any {
	p := map[string]any{
		"type":      e.EventType(),
		"timestamp": e.Timestamp().UnixMilli(),
	}
	switch e := e.(type) {
	case event.BuildRegisteredEvent:
		p["build"] = e.Build
		p["project_count"] = e.ProjectCount
	case event.ProjectRegisteredEvent:
		p["project"] = e.Project
	case event.LockEvent:
		p["target"] = e.Target
		switch e.EventType() {
		case event.TypeLockAcquired:
			p["waited_ms"] = e.Waited.Milliseconds()
		case event.TypeLockReleased:
			p["held_ms"] = e.Held.Milliseconds()
		}
	}
	return p
}
