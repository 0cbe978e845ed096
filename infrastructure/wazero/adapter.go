// Package wazero registers granted host functions with the wazero runtime.
package wazero

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/drses/frozen-realms-shim/graph"
)

// DefaultModuleName is the import namespace confined modules link against.
const DefaultModuleName = "env"

// Import is a host function granted to a confined module. The module sees
// a function taking Params f64 arguments and returning one f64.
type Import struct {
	Fn     *graph.Object
	Params int
}

// ImportError reports that a granted host function failed while a module
// was calling it.
type ImportError struct {
	Err  error
	Name string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %q failed: %v", e.Name, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives import failures. Default is slog.Default().
	Logger *slog.Logger

	// OnFailure, when set, observes every import failure before the call
	// is aborted.
	OnFailure func(name string, err error)

	// ModuleName is the host module name (default: "env").
	ModuleName string
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "env").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithLogger sets the logger used for import failures.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithFailureHandler registers a callback for import failures.
func WithFailureHandler(fn func(name string, err error)) AdapterOption {
	return func(c *AdapterConfig) {
		c.OnFailure = fn
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName: DefaultModuleName,
		Logger:     slog.Default(),
	}
}

// RegisterImports instantiates a host module exporting exactly the given
// imports. Nothing else is reachable from the guest through this module.
//
// Each import is wrapped to:
//   - decode its f64 arguments from the value stack
//   - call the granted function with an undefined receiver
//   - convert the result to a number and push it as f64
//
// A failing import aborts the guest call; the failure is logged and handed
// to the configured failure handler.
func RegisterImports(ctx context.Context, runtime wazero.Runtime, imports map[string]Import, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	names := make([]string, 0, len(imports))
	for name := range imports {
		names = append(names, name)
	}
	sort.Strings(names)

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	for _, name := range names {
		name := name
		imp := imports[name]
		if imp.Fn == nil || !imp.Fn.IsCallable() {
			return fmt.Errorf("import %q is not callable", name)
		}
		if imp.Params < 0 {
			return fmt.Errorf("import %q has a negative parameter count", name)
		}
		params := make([]api.ValueType, imp.Params)
		for i := range params {
			params[i] = api.ValueTypeF64
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				handleImportCall(ctx, mod, stack, cfg, name, imp)
			}), params, []api.ValueType{api.ValueTypeF64}).
			Export(name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host module %q: %w", cfg.ModuleName, err)
	}
	return nil
}

func handleImportCall(ctx context.Context, mod api.Module, stack []uint64, cfg AdapterConfig, name string, imp Import) {
	args := make([]graph.Value, imp.Params)
	for i := range args {
		args[i] = api.DecodeF64(stack[i])
	}

	result, err := imp.Fn.Call(ctx, graph.Undefined, args)
	var n float64
	if err == nil {
		n, err = graph.ToNumber(ctx, result)
	}
	if err != nil {
		cfg.Logger.ErrorContext(ctx, "wazero: import failed", "function", name, "realm", RealmID(ctx, mod), "error", err)
		if cfg.OnFailure != nil {
			cfg.OnFailure(name, err)
		}
		// wazero turns a host panic into an error returned from the guest call.
		panic(&ImportError{Name: name, Err: err})
	}
	stack[0] = api.EncodeF64(n)
}
