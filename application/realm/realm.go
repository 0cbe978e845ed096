package realm

import (
	"context"
	"fmt"
	"sync"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	wazeroadapter "github.com/drses/frozen-realms-shim/infrastructure/wazero"
	"github.com/drses/frozen-realms-shim/internal/script"
)

// Realm is one isolated evaluation environment. Its global record is its
// own; everything else it can reach is either frozen and shared, or was
// bound into it explicitly.
//
// A Realm is safe for concurrent use; evaluations are serialized.
type Realm struct {
	mu      sync.Mutex
	id      string
	global  *graph.Object
	interp  *script.Interpreter
	factory *Factory
}

// ID returns the realm's unique identifier.
func (r *Realm) ID() string {
	return r.id
}

// Global returns the realm's global record.
func (r *Realm) Global() *graph.Object {
	return r.global
}

// Bind converts value and installs it on the global record under name.
// Bound names are ordinary writable globals; a name already held by a
// shared primordial cannot be rebound.
func (r *Realm) Bind(name string, value any) error {
	if name == "" {
		return r.bindingError(name, fmt.Errorf("binding name cannot be empty"))
	}
	v, err := r.factory.ToValue(value)
	if err != nil {
		return r.bindingError(name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.global.DefineOwn(name, graph.DataDescriptor(v, true, true, true)); err != nil {
		return r.bindingError(name, err)
	}
	return nil
}

func (r *Realm) bindingError(name string, err error) error {
	return &domainerrors.EvaluationError{
		Err:     err,
		Kind:    domainerrors.EvalBinding,
		Message: fmt.Sprintf("cannot bind %q: %v", name, err),
		Realm:   r.id,
	}
}

// Evaluate runs source in the realm and returns its completion value.
// Globals declared by one evaluation are visible to the next.
func (r *Realm) Evaluate(ctx context.Context, source string) (v graph.Value, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverInto(&err)

	v, err = r.interp.Eval(ctx, source)
	if err != nil {
		return nil, r.classify(ctx, err)
	}
	return v, nil
}

// EvaluateProgram runs an already parsed program in the realm.
func (r *Realm) EvaluateProgram(ctx context.Context, prog *script.Program) (v graph.Value, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverInto(&err)

	v, err = r.interp.Run(ctx, prog)
	if err != nil {
		return nil, r.classify(ctx, err)
	}
	return v, nil
}

// ConfineModule runs a WebAssembly module on the factory's executor. The
// module can call only the functions in imports.
func (r *Realm) ConfineModule(ctx context.Context, wasm []byte, imports map[string]host.Import) (v graph.Value, err error) {
	defer r.recoverInto(&err)

	ctx = wazeroadapter.WithRealmID(ctx, r.id)
	v, err = r.factory.cfg.executor.Run(ctx, wasm, imports)
	if err != nil {
		return nil, r.classify(ctx, err)
	}
	return v, nil
}

func (r *Realm) recoverInto(err *error) {
	if p := recover(); p != nil {
		r.factory.cfg.logger.Error("confined evaluation panicked", "realm", r.id, "panic", p)
		*err = &domainerrors.EvaluationError{
			Err:     fmt.Errorf("panic: %v", p),
			Kind:    domainerrors.EvalInternal,
			Message: fmt.Sprintf("panic: %v", p),
			Realm:   r.id,
		}
	}
}

func (r *Realm) classify(ctx context.Context, err error) error {
	evalErr := Classify(ctx, err)
	evalErr.Realm = r.id
	r.factory.cfg.logger.DebugContext(ctx, "confined evaluation failed",
		"realm", r.id, "kind", evalErr.Kind, "error", evalErr.Message)
	return evalErr
}
