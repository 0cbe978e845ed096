package primordials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drses/frozen-realms-shim/application/repair"
	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/natives"
)

// DefaultRepairs returns the bundled patches in the order they run.
func DefaultRepairs() []repair.Patch {
	return []repair.Patch{
		{
			Name:               DefectFreezeDoesNotFreeze,
			Description:        "Object.freeze leaves properties writable",
			Region:             "Object",
			UnrepairedSeverity: entities.SeverityNotIsolated,
			Detect: func(ctx context.Context, root *graph.Object) (bool, error) {
				in, err := natives.IntrinsicsFrom(root)
				if err != nil {
					return false, err
				}
				probe := in.NewObject()
				_ = probe.DefineOwn("x", graph.DataDescriptor(1.0, true, true, true))
				if _, err := call(ctx, root, graph.Undefined, []graph.Value{probe}, "Object", "freeze"); err != nil {
					return false, err
				}
				return !probe.IsFrozen(), nil
			},
			Repair: replace([]string{"Object"}, "freeze", func(*graph.Intrinsics) graph.NativeFunc {
				return natives.ObjectFreeze
			}),
		},
		{
			Name:               DefectDefinePropertySilentlyFails,
			Description:        "Object.defineProperty reports success for refused definitions",
			Region:             "Object",
			UnrepairedSeverity: entities.SeverityUnsafeSpecViolation,
			Detect: func(ctx context.Context, root *graph.Object) (bool, error) {
				in, err := natives.IntrinsicsFrom(root)
				if err != nil {
					return false, err
				}
				probe := in.NewObject()
				probe.PreventExtensions()
				attrs := in.NewObject()
				_ = attrs.DefineOwn("value", graph.DataDescriptor(1.0, true, true, true))
				_, err = call(ctx, root, graph.Undefined, []graph.Value{probe, "x", attrs}, "Object", "defineProperty")
				var thrown *graph.ThrownError
				if errors.As(err, &thrown) && thrown.Kind == graph.KindTypeError {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				return true, nil
			},
			Repair: replace([]string{"Object"}, "defineProperty", func(*graph.Intrinsics) graph.NativeFunc {
				return natives.ObjectDefineProperty
			}),
		},
		{
			Name:               DefectHasOwnPropertyWalksChain,
			Description:        "Object.prototype.hasOwnProperty reports inherited properties",
			Region:             "Object.prototype",
			UnrepairedSeverity: entities.SeverityUnsafeSpecViolation,
			Detect: func(ctx context.Context, root *graph.Object) (bool, error) {
				in, err := natives.IntrinsicsFrom(root)
				if err != nil {
					return false, err
				}
				parent := in.NewObject()
				_ = parent.DefineOwn("inherited", graph.DataDescriptor(true, true, true, true))
				child := graph.New(parent)
				v, err := call(ctx, root, child, []graph.Value{"inherited"}, "Object", "prototype", "hasOwnProperty")
				if err != nil {
					return false, err
				}
				return v == true, nil
			},
			Repair: replace([]string{"Object", "prototype"}, "hasOwnProperty", func(*graph.Intrinsics) graph.NativeFunc {
				return natives.ObjectHasOwnProperty
			}),
		},
		{
			Name:               DefectArrayPushIgnoresFrozen,
			Description:        "Array.prototype.push silently ignores frozen arrays",
			Region:             "Array.prototype",
			UnrepairedSeverity: entities.SeverityUnsafeSpecViolation,
			Detect: func(ctx context.Context, root *graph.Object) (bool, error) {
				in, err := natives.IntrinsicsFrom(root)
				if err != nil {
					return false, err
				}
				arr := in.NewArray(1.0)
				arr.Freeze()
				_, err = call(ctx, root, arr, []graph.Value{2.0}, "Array", "prototype", "push")
				var thrown *graph.ThrownError
				if errors.As(err, &thrown) && thrown.Kind == graph.KindTypeError {
					return false, nil
				}
				if err != nil {
					return false, err
				}
				return true, nil
			},
			Repair: replace([]string{"Array", "prototype"}, "push", func(*graph.Intrinsics) graph.NativeFunc {
				return natives.ArrayPush
			}),
		},
		{
			Name:               DefectJSONParseSetsDelegation,
			Description:        `JSON.parse treats a "__proto__" member as a delegation change`,
			Region:             "JSON",
			UnrepairedSeverity: entities.SeverityNotOcapSafe,
			Detect: func(ctx context.Context, root *graph.Object) (bool, error) {
				in, err := natives.IntrinsicsFrom(root)
				if err != nil {
					return false, err
				}
				v, err := call(ctx, root, graph.Undefined, []graph.Value{`{"__proto__": {"polluted": true}}`}, "JSON", "parse")
				if err != nil {
					return false, err
				}
				parsed, ok := v.(*graph.Object)
				if !ok {
					return false, fmt.Errorf("JSON.parse returned %s for an object literal", graph.Describe(v))
				}
				return parsed.Proto() != in.ObjectPrototype, nil
			},
			Repair: replace([]string{"JSON"}, "parse", natives.JSONParse),
		},
		{
			Name:               DefectFunctionBindExposesTarget,
			Description:        "bound functions expose their target function",
			Region:             "Function.prototype",
			Severity:           entities.SeveritySafeSpecViolation,
			UnrepairedSeverity: entities.SeverityNotOcapSafe,
			Detect: func(ctx context.Context, root *graph.Object) (bool, error) {
				in, err := natives.IntrinsicsFrom(root)
				if err != nil {
					return false, err
				}
				target := in.NewFunction("probe", 0, func(graph.Call) (graph.Value, error) {
					return graph.Undefined, nil
				})
				v, err := call(ctx, root, target, nil, "Function", "prototype", "bind")
				if err != nil {
					return false, err
				}
				bound, ok := v.(*graph.Object)
				if !ok {
					return false, fmt.Errorf("bind returned %s", graph.Describe(v))
				}
				for _, k := range bound.OwnKeys() {
					if k != "length" && k != "name" {
						return true, nil
					}
				}
				return false, nil
			},
			Repair: replace([]string{"Function", "prototype"}, "bind", natives.FunctionBind),
		},
	}
}

// DefaultCatalog builds a catalog from DefaultRepairs.
func DefaultCatalog(opts ...repair.CatalogOption) (*repair.Catalog, error) {
	return repair.NewCatalog(append([]repair.CatalogOption{repair.WithPatches(DefaultRepairs()...)}, opts...)...)
}

// call invokes the function found at path under root.
func call(ctx context.Context, root *graph.Object, this graph.Value, args []graph.Value, path ...string) (graph.Value, error) {
	fn, ok := graph.Lookup(root, path...)
	if !ok || !fn.IsCallable() {
		return nil, fmt.Errorf("%s is not available", strings.Join(path, "."))
	}
	return fn.Call(ctx, this, args)
}

func replace(owner []string, name string, build func(*graph.Intrinsics) graph.NativeFunc) repair.RepairFunc {
	return func(_ context.Context, root *graph.Object) error {
		in, err := natives.IntrinsicsFrom(root)
		if err != nil {
			return err
		}
		return installNative(root, in, owner, name, build(in))
	}
}
