package primordials

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/natives"
)

// hostConfig holds configuration for NewHost.
type hostConfig struct {
	logger     *slog.Logger
	defects    []string
	middleware []natives.Middleware
	extensions bool
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		logger: slog.Default(),
	}
}

// HostOption configures NewHost.
type HostOption func(*hostConfig)

// WithExtensions adds the non-standard host extensions: Math.random, Date,
// the legacy accessor helpers on Object.prototype and a process object.
func WithExtensions() HostOption {
	return func(c *hostConfig) {
		c.extensions = true
	}
}

// WithDefects installs the named broken natives. See Defects.
func WithDefects(names ...string) HostOption {
	return func(c *hostConfig) {
		c.defects = append(c.defects, names...)
	}
}

// WithLogger sets the logger used while building the host.
func WithLogger(l *slog.Logger) HostOption {
	return func(c *hostConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNativeMiddleware wraps every native with extra middleware, after
// panic recovery.
func WithNativeMiddleware(mw ...natives.Middleware) HostOption {
	return func(c *hostConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewHost builds a fresh, mutable host global object. Without options it
// holds exactly what DefaultPolicy permits.
func NewHost(opts ...HostOption) (*graph.Object, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	in := newIntrinsics()
	root := graph.New(in.ObjectPrototype)
	root.SetLabel("global")

	bundles := natives.StandardBundles(in)
	if cfg.extensions {
		bundles = append(bundles, extensionBundle(in))
	}
	reg, err := natives.NewRegistry(
		natives.WithMiddleware(natives.PanicRecoveryMiddleware()),
		natives.WithMiddleware(cfg.middleware...),
		natives.WithBundle(bundles...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build native registry: %w", err)
	}

	if err := install(root, in, reg); err != nil {
		return nil, err
	}
	if err := installValues(root, in); err != nil {
		return nil, err
	}
	if cfg.extensions {
		if err := installExtensionValues(root, in); err != nil {
			return nil, err
		}
	}
	for _, name := range cfg.defects {
		if err := installDefect(root, in, name); err != nil {
			return nil, err
		}
	}

	cfg.logger.Debug("host built",
		"natives", reg.Len(),
		"extensions", cfg.extensions,
		"defects", strings.Join(cfg.defects, ","))
	return root, nil
}

func newIntrinsics() *graph.Intrinsics {
	objProto := graph.New(nil)
	objProto.SetLabel("Object.prototype")

	proto := func(label string, internal graph.Value) *graph.Object {
		p := graph.New(objProto)
		p.SetLabel(label)
		if internal != nil {
			p.SetInternal(internal)
		}
		return p
	}

	in := &graph.Intrinsics{
		ObjectPrototype:   objProto,
		FunctionPrototype: proto("Function.prototype", nil),
		ArrayPrototype:    proto("Array.prototype", nil),
		StringPrototype:   proto("String.prototype", ""),
		NumberPrototype:   proto("Number.prototype", 0.0),
		BooleanPrototype:  proto("Boolean.prototype", false),
		ErrorPrototypes:   make(map[graph.ErrorKind]*graph.Object),
	}

	base := proto("Error.prototype", nil)
	in.ErrorPrototypes[graph.KindError] = base
	for _, kind := range natives.ErrorKinds {
		p := base
		if kind != graph.KindError {
			p = graph.New(base)
			p.SetLabel(string(kind) + ".prototype")
			in.ErrorPrototypes[kind] = p
		}
		_ = p.DefineOwn("name", graph.DataDescriptor(string(kind), true, false, true))
		_ = p.DefineOwn("message", graph.DataDescriptor("", true, false, true))
	}
	return in
}

// prototypeOf maps constructor names to the prototype their instances
// delegate to.
func prototypeOf(in *graph.Intrinsics, name string) (*graph.Object, bool) {
	switch name {
	case "Object":
		return in.ObjectPrototype, true
	case "Function":
		return in.FunctionPrototype, true
	case "Array":
		return in.ArrayPrototype, true
	case "String":
		return in.StringPrototype, true
	case "Number":
		return in.NumberPrototype, true
	case "Boolean":
		return in.BooleanPrototype, true
	}
	p, ok := in.ErrorPrototypes[graph.ErrorKind(name)]
	return p, ok
}

// install materializes every registered native at its dotted path. Names
// are sorted, so a constructor is always installed before its members.
func install(root *graph.Object, in *graph.Intrinsics, reg *natives.Registry) error {
	for _, name := range reg.Names() {
		fn, err := reg.Materialize(in, name)
		if err != nil {
			return err
		}
		path := strings.Split(name, ".")
		owner, err := ensurePath(root, in, path[:len(path)-1])
		if err != nil {
			return fmt.Errorf("failed to install %s: %w", name, err)
		}
		if err := owner.DefineOwn(path[len(path)-1], graph.DataDescriptor(fn, true, false, true)); err != nil {
			return fmt.Errorf("failed to install %s: %w", name, err)
		}
		if len(path) == 1 && fn.IsConstructor() {
			if err := linkConstructor(in, name, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func linkConstructor(in *graph.Intrinsics, name string, fn *graph.Object) error {
	proto, ok := prototypeOf(in, name)
	if !ok {
		proto = graph.New(in.ObjectPrototype)
		proto.SetLabel(name + ".prototype")
	}
	if err := fn.DefineOwn("prototype", graph.DataDescriptor(proto, false, false, false)); err != nil {
		return fmt.Errorf("failed to link %s.prototype: %w", name, err)
	}
	if err := proto.DefineOwn("constructor", graph.DataDescriptor(fn, true, false, true)); err != nil {
		return fmt.Errorf("failed to link %s.prototype.constructor: %w", name, err)
	}
	return nil
}

// ensurePath walks path from root, creating plain namespace objects for
// missing segments.
func ensurePath(root *graph.Object, in *graph.Intrinsics, path []string) (*graph.Object, error) {
	cur := root
	for i, seg := range path {
		d, ok := cur.GetOwn(seg)
		if !ok {
			ns := in.NewObject()
			ns.SetLabel(strings.Join(path[:i+1], "."))
			if err := cur.DefineOwn(seg, graph.DataDescriptor(ns, true, false, true)); err != nil {
				return nil, err
			}
			cur = ns
			continue
		}
		next, isObj := d.Value.(*graph.Object)
		if d.Accessor || !isObj {
			return nil, fmt.Errorf("%s is not an object", strings.Join(path[:i+1], "."))
		}
		cur = next
	}
	return cur, nil
}

func installValues(root *graph.Object, in *graph.Intrinsics) error {
	constants := map[string]map[string]graph.Value{
		"": {
			"NaN":       math.NaN(),
			"Infinity":  math.Inf(1),
			"undefined": graph.Undefined,
		},
		"Math": {
			"E":       math.E,
			"LN10":    math.Ln10,
			"LN2":     math.Ln2,
			"LOG10E":  math.Log10E,
			"LOG2E":   math.Log2E,
			"PI":      math.Pi,
			"SQRT1_2": math.Sqrt2 / 2,
			"SQRT2":   math.Sqrt2,
		},
		"Number": {
			"MAX_VALUE":         math.MaxFloat64,
			"MIN_VALUE":         math.SmallestNonzeroFloat64,
			"NaN":               math.NaN(),
			"NEGATIVE_INFINITY": math.Inf(-1),
			"POSITIVE_INFINITY": math.Inf(1),
		},
	}
	for owner, values := range constants {
		target := root
		if owner != "" {
			var err error
			if target, err = ensurePath(root, in, []string{owner}); err != nil {
				return err
			}
		}
		for name, v := range values {
			if err := target.DefineOwn(name, graph.DataDescriptor(v, false, false, false)); err != nil {
				return fmt.Errorf("failed to install %s.%s: %w", owner, name, err)
			}
		}
	}
	return nil
}
