package realm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
)

// Runner confines each call in a realm of its own.
type Runner struct {
	factory *Factory
	logger  *slog.Logger
}

// NewRunner returns a runner that mints realms from factory.
func NewRunner(factory *Factory) *Runner {
	return &Runner{factory: factory, logger: factory.cfg.logger}
}

// Confine evaluates source in a fresh realm with bindings installed as
// globals. Any failure is returned as an *errors.EvaluationError.
func (r *Runner) Confine(ctx context.Context, source string, bindings map[string]any) (v graph.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("confinement panicked", "panic", p)
			v, err = nil, &domainerrors.EvaluationError{
				Err:     fmt.Errorf("panic: %v", p),
				Kind:    domainerrors.EvalInternal,
				Message: fmt.Sprintf("panic: %v", p),
			}
		}
	}()

	rlm := r.factory.CreateRealm()
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := rlm.Bind(name, bindings[name]); err != nil {
			return nil, err
		}
	}
	return rlm.Evaluate(ctx, source)
}

// ConfineModule runs a WebAssembly module in a fresh realm. Only the
// functions in imports are linkable.
func (r *Runner) ConfineModule(ctx context.Context, wasm []byte, imports map[string]host.Import) (graph.Value, error) {
	return r.factory.CreateRealm().ConfineModule(ctx, wasm, imports)
}
