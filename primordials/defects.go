package primordials

import (
	"fmt"
	"slices"
	"strings"

	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/natives"
)

// Defect names accepted by WithDefects. Each one replaces a standard
// native with a broken version that a repair in DefaultRepairs detects.
const (
	DefectFreezeDoesNotFreeze         = "freeze-does-not-freeze"
	DefectDefinePropertySilentlyFails = "define-property-silently-fails"
	DefectHasOwnPropertyWalksChain    = "has-own-property-walks-chain"
	DefectArrayPushIgnoresFrozen      = "array-push-ignores-frozen"
	DefectJSONParseSetsDelegation     = "json-parse-sets-delegation"
	DefectFunctionBindExposesTarget   = "function-bind-exposes-target"
)

type defect struct {
	owner []string
	name  string
	build func(in *graph.Intrinsics) graph.NativeFunc
}

var defects = map[string]defect{
	DefectFreezeDoesNotFreeze: {
		owner: []string{"Object"},
		name:  "freeze",
		build: func(*graph.Intrinsics) graph.NativeFunc {
			return func(c graph.Call) (graph.Value, error) {
				if o, ok := c.Arg(0).(*graph.Object); ok {
					o.PreventExtensions()
				}
				return c.Arg(0), nil
			}
		},
	},
	DefectDefinePropertySilentlyFails: {
		owner: []string{"Object"},
		name:  "defineProperty",
		build: func(*graph.Intrinsics) graph.NativeFunc {
			return func(c graph.Call) (graph.Value, error) {
				v, err := natives.ObjectDefineProperty(c)
				if err != nil {
					return c.Arg(0), nil
				}
				return v, nil
			}
		},
	},
	DefectHasOwnPropertyWalksChain: {
		owner: []string{"Object", "prototype"},
		name:  "hasOwnProperty",
		build: func(*graph.Intrinsics) graph.NativeFunc {
			return func(c graph.Call) (graph.Value, error) {
				o, ok := c.This.(*graph.Object)
				if !ok {
					return false, nil
				}
				name, err := graph.ToString(c.Context, c.Arg(0))
				if err != nil {
					return nil, err
				}
				for cur := o; cur != nil; cur = cur.Proto() {
					if cur.HasOwn(name) {
						return true, nil
					}
				}
				return false, nil
			}
		},
	},
	DefectArrayPushIgnoresFrozen: {
		owner: []string{"Array", "prototype"},
		name:  "push",
		build: func(*graph.Intrinsics) graph.NativeFunc {
			return func(c graph.Call) (graph.Value, error) {
				v, err := natives.ArrayPush(c)
				if err != nil {
					if o, ok := c.This.(*graph.Object); ok {
						return float64(graph.ArrayLength(o)), nil
					}
					return 0.0, nil
				}
				return v, nil
			}
		},
	},
	DefectJSONParseSetsDelegation: {
		owner: []string{"JSON"},
		name:  "parse",
		build: func(in *graph.Intrinsics) graph.NativeFunc {
			hook := func(o *graph.Object, key string, v graph.Value) (bool, error) {
				if key != "__proto__" {
					return false, nil
				}
				if p, ok := v.(*graph.Object); ok {
					return true, o.SetProto(p)
				}
				return false, nil
			}
			return func(c graph.Call) (graph.Value, error) {
				text, err := graph.ToString(c.Context, c.Arg(0))
				if err != nil {
					return nil, err
				}
				return natives.ParseJSONText(in, text, hook)
			}
		},
	},
	DefectFunctionBindExposesTarget: {
		owner: []string{"Function", "prototype"},
		name:  "bind",
		build: func(in *graph.Intrinsics) graph.NativeFunc {
			bind := natives.FunctionBind(in)
			return func(c graph.Call) (graph.Value, error) {
				v, err := bind(c)
				if err != nil {
					return nil, err
				}
				if bound, ok := v.(*graph.Object); ok {
					if err := bound.DefineOwn("target", graph.DataDescriptor(c.This, true, true, true)); err != nil {
						return nil, err
					}
				}
				return v, nil
			}
		},
	},
}

// Defects lists the defect names accepted by WithDefects, sorted.
func Defects() []string {
	names := make([]string, 0, len(defects))
	for name := range defects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func installDefect(root *graph.Object, in *graph.Intrinsics, name string) error {
	d, ok := defects[name]
	if !ok {
		return fmt.Errorf("unknown defect %q", name)
	}
	return installNative(root, in, d.owner, d.name, d.build(in))
}

// installNative replaces owner.name with a function built from f, keeping
// the standard attributes of a builtin method.
func installNative(root *graph.Object, in *graph.Intrinsics, owner []string, name string, f graph.NativeFunc) error {
	target, ok := graph.Lookup(root, owner...)
	if !ok {
		return fmt.Errorf("%s is not available", strings.Join(owner, "."))
	}
	length := 0
	if old, exists := target.GetOwn(name); exists {
		if prev, isObj := old.Value.(*graph.Object); isObj {
			if d, found := prev.GetOwn("length"); found {
				if n, isNum := d.Value.(float64); isNum {
					length = int(n)
				}
			}
		}
	}
	fn := in.NewFunction(name, length, f)
	if err := target.DefineOwn(name, graph.DataDescriptor(fn, true, false, true)); err != nil {
		return fmt.Errorf("failed to install %s.%s: %w", strings.Join(owner, "."), name, err)
	}
	return nil
}
