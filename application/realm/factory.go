// Package realm creates isolated evaluation environments over a hardened
// set of shared primordials and confines programs and modules inside them.
package realm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/internal/script"
	"github.com/drses/frozen-realms-shim/natives"
)

// ErrNotFrozen is returned when a factory is built over a root that has not
// been hardened.
var ErrNotFrozen = errors.New("shared root is not frozen")

type factoryConfig struct {
	logger       *slog.Logger
	executor     *host.Executor
	maxCallDepth int
}

func defaultFactoryConfig() factoryConfig {
	return factoryConfig{
		logger: slog.Default(),
	}
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryConfig)

// WithLogger sets the logger for realm lifecycle events.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(c *factoryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExecutor sets the module executor realms use for ConfineModule.
func WithExecutor(e *host.Executor) FactoryOption {
	return func(c *factoryConfig) {
		c.executor = e
	}
}

// WithMaxCallDepth bounds nested script calls in every realm.
func WithMaxCallDepth(n int) FactoryOption {
	return func(c *factoryConfig) {
		c.maxCallDepth = n
	}
}

// Factory mints realms that share one frozen set of primordials.
type Factory struct {
	root *graph.Object
	in   *graph.Intrinsics
	cfg  factoryConfig
}

// NewFactory returns a factory over tamedRoot. The root and the well-known
// prototypes must already be frozen; nothing a realm does can then reach
// another realm through them.
func NewFactory(tamedRoot *graph.Object, opts ...FactoryOption) (*Factory, error) {
	if tamedRoot == nil {
		return nil, fmt.Errorf("shared root cannot be nil")
	}
	cfg := defaultFactoryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.executor == nil {
		cfg.executor = host.NewExecutor(host.WithLogger(cfg.logger))
	}

	in, err := natives.IntrinsicsFrom(tamedRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to recover intrinsics: %w", err)
	}
	shared := map[string]*graph.Object{
		"global":             tamedRoot,
		"Object.prototype":   in.ObjectPrototype,
		"Function.prototype": in.FunctionPrototype,
		"Array.prototype":    in.ArrayPrototype,
		"String.prototype":   in.StringPrototype,
		"Number.prototype":   in.NumberPrototype,
		"Boolean.prototype":  in.BooleanPrototype,
	}
	for kind, p := range in.ErrorPrototypes {
		shared[string(kind)+".prototype"] = p
	}
	for name, o := range shared {
		if o != nil && !o.IsFrozen() {
			return nil, fmt.Errorf("%w: %s", ErrNotFrozen, name)
		}
	}
	if n := ensureErrorPrototypes(in); n > 0 {
		cfg.logger.Debug("created private error prototypes", "count", n)
	}
	return &Factory{root: tamedRoot, in: in, cfg: cfg}, nil
}

// ensureErrorPrototypes gives every error kind the runtime raises a
// prototype, even when the policy removed the constructor from the shared
// root. The replacements belong to this factory only and are frozen before
// any realm sees them.
func ensureErrorPrototypes(in *graph.Intrinsics) int {
	created := 0
	base, ok := in.ErrorPrototypes[graph.KindError]
	if !ok {
		base = privateErrorPrototype(in.ObjectPrototype, graph.KindError)
		in.ErrorPrototypes[graph.KindError] = base
		created++
	}
	for _, kind := range natives.ErrorKinds {
		if _, ok := in.ErrorPrototypes[kind]; !ok {
			in.ErrorPrototypes[kind] = privateErrorPrototype(base, kind)
			created++
		}
	}
	return created
}

func privateErrorPrototype(parent *graph.Object, kind graph.ErrorKind) *graph.Object {
	p := graph.New(parent)
	p.SetLabel(string(kind) + ".prototype")
	// A fresh extensible object accepts any new definition.
	_ = p.DefineOwn("name", graph.DataDescriptor(string(kind), false, false, false))
	_ = p.DefineOwn("message", graph.DataDescriptor("", false, false, false))
	p.Freeze()
	return p
}

// CreateRealm returns a realm with a fresh global record. The record does
// not delegate anywhere; every shared primordial appears on it as a
// non-writable, non-configurable binding to the same frozen object.
func (f *Factory) CreateRealm() *Realm {
	global := graph.New(nil)
	global.SetLabel("globalThis")
	for _, name := range f.root.OwnKeys() {
		d, ok := f.root.GetOwn(name)
		if !ok {
			continue
		}
		binding := graph.DataDescriptor(d.Value, false, false, false)
		if d.Accessor {
			binding = graph.AccessorDescriptor(d.Get, d.Set, false, false)
		}
		// A fresh extensible object accepts any new definition.
		_ = global.DefineOwn(name, binding)
	}
	if !global.HasOwn("globalThis") {
		_ = global.DefineOwn("globalThis", graph.DataDescriptor(global, false, false, false))
	}

	var opts []script.Option
	if f.cfg.maxCallDepth > 0 {
		opts = append(opts, script.WithMaxCallDepth(f.cfg.maxCallDepth))
	}
	r := &Realm{
		id:      uuid.NewString(),
		global:  global,
		interp:  script.New(f.in, global, opts...),
		factory: f,
	}
	f.cfg.logger.Debug("realm created", "realm", r.id, "bindings", len(global.OwnKeys()))
	return r
}

// Intrinsics returns the shared well-known prototypes.
func (f *Factory) Intrinsics() *graph.Intrinsics {
	return f.in
}
