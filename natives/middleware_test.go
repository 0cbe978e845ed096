package natives

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/graph"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithNative("boom", 0, func(graph.Call) (graph.Value, error) { panic("kaboom") }),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "boom", graph.Undefined)
	var thrown *graph.ThrownError
	require.True(t, errors.As(err, &thrown))
	assert.Equal(t, graph.KindInternalError, thrown.Kind)
	assert.Contains(t, thrown.Message, "kaboom")
}

func TestMiddleware_Order(t *testing.T) {
	var order []string
	trace := func(label string) Middleware {
		return func(name string, next graph.NativeFunc) graph.NativeFunc {
			return func(c graph.Call) (graph.Value, error) {
				order = append(order, label+":"+name)
				return next(c)
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(trace("first"), trace("second")),
		WithMiddleware(trace("third")),
		WithNative("f", 0, constant(1.0)),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "f", graph.Undefined)
	require.NoError(t, err)
	assert.Equal(t, []string{"first:f", "second:f", "third:f"}, order)
}

func TestMiddleware_WrapsConstructors(t *testing.T) {
	calls := 0
	count := func(_ string, next graph.NativeFunc) graph.NativeFunc {
		return func(c graph.Call) (graph.Value, error) {
			calls++
			return next(c)
		}
	}
	reg, err := NewRegistry(
		WithMiddleware(count),
		WithConstructor("C", 0, constant(1.0), constant(2.0)),
	)
	require.NoError(t, err)

	in := &graph.Intrinsics{FunctionPrototype: graph.New(nil)}
	c, err := reg.Materialize(in, "C")
	require.NoError(t, err)
	_, err = c.Call(context.Background(), graph.Undefined, nil)
	require.NoError(t, err)
	_, err = c.Construct(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg, err := NewRegistry(
		WithMiddleware(LoggingMiddleware(logger)),
		WithNative("ok", 0, constant(1.0)),
		WithNative("fail", 0, func(graph.Call) (graph.Value, error) {
			return nil, graph.Throw(graph.KindTypeError, "nope")
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "ok", graph.Undefined)
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), "fail", graph.Undefined)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "function=ok")
	assert.Contains(t, out, "native failed")
	assert.Contains(t, out, "TypeError: nope")
}
