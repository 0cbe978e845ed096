package natives

import (
	"context"
	"fmt"
	"sort"

	"github.com/drses/frozen-realms-shim/graph"
)

// Native describes one native function before it is materialized as a
// graph object. Construct is set for functions usable with new.
type Native struct {
	Func      graph.NativeFunc
	Construct graph.NativeFunc
	Name      string
	Length    int
}

// ShortName returns the last segment of the dotted path, which becomes the
// function's "name" property.
func (n Native) ShortName() string {
	for i := len(n.Name) - 1; i >= 0; i-- {
		if n.Name[i] == '.' {
			return n.Name[i+1:]
		}
	}
	return n.Name
}

// Registry is an immutable collection of named natives.
// Once created via NewRegistry, natives cannot be added or removed, so
// lookups need no locking.
type Registry struct {
	natives    map[string]Native
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	natives    map[string]Native
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any name is registered twice or is empty.
//
// Example usage:
//
//	reg, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(ArrayBundle(in)),
//	    WithNative("print", 1, printFn),
//	)
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		natives: make(map[string]Native),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.natives))
	for name := range b.natives {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware in reverse order so the first one wraps outermost.
	wrapped := make(map[string]Native, len(b.natives))
	for name, n := range b.natives {
		for i := len(b.middleware) - 1; i >= 0; i-- {
			n.Func = b.middleware[i](name, n.Func)
			if n.Construct != nil {
				n.Construct = b.middleware[i](name, n.Construct)
			}
		}
		wrapped[name] = n
	}

	return &Registry{
		natives:    wrapped,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Lookup returns the middleware-wrapped native registered under name.
func (r *Registry) Lookup(name string) (Native, bool) {
	n, ok := r.natives[name]
	return n, ok
}

// Has returns true if a native with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.natives[name]
	return ok
}

// Names returns a sorted list of all registered names.
func (r *Registry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Len returns the number of registered natives.
func (r *Registry) Len() int {
	return len(r.names)
}

// Invoke calls a native directly, without materializing it.
func (r *Registry) Invoke(ctx context.Context, name string, this graph.Value, args ...graph.Value) (graph.Value, error) {
	n, ok := r.natives[name]
	if !ok {
		return nil, graph.Throw(graph.KindReferenceError, "native %s is not registered", name)
	}
	v, err := n.Func(graph.Call{Context: ctx, This: this, Args: args})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return graph.Undefined, nil
	}
	return v, nil
}

// Materialize creates the function object for name, delegating to
// Function.prototype from in.
func (r *Registry) Materialize(in *graph.Intrinsics, name string) (*graph.Object, error) {
	n, ok := r.natives[name]
	if !ok {
		return nil, fmt.Errorf("native %q is not registered", name)
	}
	fn := in.NewFunction(n.ShortName(), n.Length, n.Func)
	if n.Construct != nil {
		fn.SetConstructor(n.Construct)
	}
	return fn, nil
}

func (b *registryBuilder) add(n Native) error {
	if n.Name == "" {
		return fmt.Errorf("native name cannot be empty")
	}
	if n.Func == nil {
		return fmt.Errorf("native %q has no implementation", n.Name)
	}
	if _, exists := b.natives[n.Name]; exists {
		return fmt.Errorf("duplicate native name: %q", n.Name)
	}
	b.natives[n.Name] = n
	return nil
}

// WithNative registers a plain native function.
func WithNative(name string, length int, fn graph.NativeFunc) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.add(Native{Name: name, Length: length, Func: fn}); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithConstructor registers a native that can be called and constructed.
func WithConstructor(name string, length int, call, construct graph.NativeFunc) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.add(Native{Name: name, Length: length, Func: call, Construct: construct}); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithBundle registers every native of a bundle.
func WithBundle(bundles ...Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for _, bundle := range bundles {
			for _, n := range bundle.Natives() {
				if err := b.add(n); err != nil {
					b.errors = append(b.errors, err)
				}
			}
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
