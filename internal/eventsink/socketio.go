package eventsink

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/buildtree/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIO is an Emitter backed by a connected Socket.IO client.
type SocketIO struct {
	io *socket.Socket
}

// Dial connects to the Socket.IO server at rawURL and joins namespace. It
// waits for the connection to be confirmed, for at most timeout.
func Dial(ctx context.Context, rawURL, namespace string, timeout time.Duration) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "namespace", namespace)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse events URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("events URL %q must be absolute", rawURL)
	}
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetTimeout(timeout)

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	done := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		select {
		case done <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- err:
		default:
		}
	})

	io.Connect()

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-opCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to %s", rawURL)
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect to %s: %w", rawURL, err)
		}
	}

	logger.Info("Connected to event sink.", "sid", io.Id())
	return &SocketIO{io: io}, nil
}

// Emit sends one event to the server.
func (s *SocketIO) Emit(name string, args ...any) error {
	return s.io.Emit(name, args...)
}

// Close disconnects the client.
func (s *SocketIO) Close() error {
	s.io.Disconnect()
	return nil
}
