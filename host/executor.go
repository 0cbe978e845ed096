package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/drses/frozen-realms-shim/graph"
	wazeroadapter "github.com/drses/frozen-realms-shim/infrastructure/wazero"
)

// Import is a host function granted to a confined module.
type Import = wazeroadapter.Import

// Func grants fn to a module as an import taking params f64 arguments.
func Func(name string, params int, fn graph.NativeFunc) Import {
	return Import{Fn: graph.NewFunction(nil, name, params, fn), Params: params}
}

var (
	// ErrInvalidModule is returned for bytes that do not compile.
	ErrInvalidModule = errors.New("invalid module")
	// ErrMissingImport is returned when a module links against anything
	// that was not granted, or against a grant with another signature.
	ErrMissingImport = errors.New("missing import")
	// ErrMissingExport is returned when the entry point is absent or takes
	// parameters.
	ErrMissingExport = errors.New("missing export")
)

// TrapError reports that the guest trapped while running.
type TrapError struct {
	Err error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("module trapped: %v", e.Err)
}

func (e *TrapError) Unwrap() error {
	return e.Err
}

// Executor runs WebAssembly modules in confinement: every run gets a fresh
// runtime, no WASI, and only the imports passed to Run.
type Executor struct {
	cfg executorConfig
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...Option) *Executor {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Executor{cfg: cfg}
}

// Run compiles wasmBytes, links it against imports, calls the entry point
// and returns its first result as a number. The runtime is closed before
// Run returns.
func (e *Executor) Run(ctx context.Context, wasmBytes []byte, imports map[string]Import) (graph.Value, error) {
	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if e.cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(e.cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	defer rt.Close(context.WithoutCancel(ctx))

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}
	if err := e.checkImports(compiled, imports); err != nil {
		return nil, err
	}

	var failure error
	err = wazeroadapter.RegisterImports(ctx, rt, imports,
		wazeroadapter.WithModuleName(e.cfg.moduleName),
		wazeroadapter.WithLogger(e.cfg.logger),
		wazeroadapter.WithFailureHandler(func(name string, err error) {
			if failure == nil {
				failure = &wazeroadapter.ImportError{Name: name, Err: err}
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register imports: %w", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("confined"))
	if err != nil {
		return nil, e.callError(ctx, failure, err)
	}

	fn := mod.ExportedFunction(e.cfg.entrypoint)
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingExport, e.cfg.entrypoint)
	}
	def := fn.Definition()
	if len(def.ParamTypes()) != 0 {
		return nil, fmt.Errorf("%w: %q must take no parameters", ErrMissingExport, e.cfg.entrypoint)
	}

	e.cfg.logger.DebugContext(ctx, "running confined module",
		"entrypoint", e.cfg.entrypoint, "imports", len(imports), "realm", wazeroadapter.RealmID(ctx, mod))
	results, err := fn.Call(ctx)
	if err != nil {
		return nil, e.callError(ctx, failure, err)
	}
	if len(results) == 0 {
		return graph.Undefined, nil
	}
	return decodeResult(def.ResultTypes()[0], results[0]), nil
}

// checkImports verifies every function the module imports was granted
// with a matching signature, and that nothing else is imported.
func (e *Executor) checkImports(compiled wazero.CompiledModule, imports map[string]Import) error {
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		imp, ok := imports[name]
		if module != e.cfg.moduleName || !ok {
			return fmt.Errorf("%w: %s.%s", ErrMissingImport, module, name)
		}
		if !f64Signature(def, imp.Params) {
			return fmt.Errorf("%w: %s.%s expects %d f64 parameters and an f64 result",
				ErrMissingImport, module, name, imp.Params)
		}
	}
	if mems := compiled.ImportedMemories(); len(mems) > 0 {
		return fmt.Errorf("%w: the module imports %d memories", ErrMissingImport, len(mems))
	}
	return nil
}

func f64Signature(def api.FunctionDefinition, params int) bool {
	if len(def.ParamTypes()) != params {
		return false
	}
	for _, t := range def.ParamTypes() {
		if t != api.ValueTypeF64 {
			return false
		}
	}
	results := def.ResultTypes()
	return len(results) == 1 && results[0] == api.ValueTypeF64
}

func (e *Executor) callError(ctx context.Context, failure, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("module interrupted: %w", ctxErr)
	}
	if failure != nil {
		return failure
	}
	return &TrapError{Err: err}
}

func decodeResult(t api.ValueType, raw uint64) graph.Value {
	switch t {
	case api.ValueTypeF64:
		return api.DecodeF64(raw)
	case api.ValueTypeF32:
		return float64(api.DecodeF32(raw))
	case api.ValueTypeI32:
		return float64(api.DecodeI32(raw))
	case api.ValueTypeI64:
		return float64(int64(raw))
	default:
		return graph.Undefined
	}
}
