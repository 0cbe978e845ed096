package natives

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/drses/frozen-realms-shim/graph"
)

// Middleware wraps a native to add cross-cutting behaviour. name is the
// dotted path the native is registered under. Middleware executes in FIFO
// order (first registered wraps first, onion model).
type Middleware func(name string, next graph.NativeFunc) graph.NativeFunc

// PanicRecoveryMiddleware converts a panicking native into a thrown
// InternalError instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(name string, next graph.NativeFunc) graph.NativeFunc {
		return func(c graph.Call) (v graph.Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Debug("native panicked", "function", name, "panic", r, "stack", string(debug.Stack()))
					v = nil
					err = &graph.ThrownError{Kind: graph.KindInternalError, Message: fmt.Sprintf("%s panicked: %v", name, r)}
				}
			}()
			return next(c)
		}
	}
}

// LoggingMiddleware logs every native invocation at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(name string, next graph.NativeFunc) graph.NativeFunc {
		return func(c graph.Call) (graph.Value, error) {
			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}
			logger.DebugContext(ctx, "invoking native", "function", name, "args", len(c.Args))
			v, err := next(c)
			if err != nil {
				logger.DebugContext(ctx, "native failed", "function", name, "error", err)
			}
			return v, err
		}
	}
}
