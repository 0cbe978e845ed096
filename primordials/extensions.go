package primordials

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/natives"
)

// timeValue is the internal slot of a Date instance, in milliseconds since
// the Unix epoch.
type timeValue struct {
	ms float64
}

const isoLayout = "2006-01-02T15:04:05.000Z"

// extensionBundle returns natives that real hosts carry but the default
// policy does not permit.
func extensionBundle(in *graph.Intrinsics) natives.Bundle {
	now := func() float64 { return float64(time.Now().UnixMilli()) }

	thisTime := func(c graph.Call, method string) (float64, error) {
		if o, ok := c.This.(*graph.Object); ok {
			if tv, ok := o.Internal().(timeValue); ok {
				return tv.ms, nil
			}
		}
		return 0, graph.Throw(graph.KindTypeError, "Date.prototype.%s called on incompatible receiver", method)
	}
	iso := func(c graph.Call) (graph.Value, error) {
		ms, err := thisTime(c, "toISOString")
		if err != nil {
			return nil, err
		}
		if math.IsNaN(ms) {
			return nil, graph.Throw(graph.KindRangeError, "invalid time value")
		}
		return time.UnixMilli(int64(ms)).UTC().Format(isoLayout), nil
	}
	getTime := func(c graph.Call) (graph.Value, error) {
		return thisTime(c, "getTime")
	}

	return natives.NewBundle(
		natives.Native{Name: "Math.random", Func: func(graph.Call) (graph.Value, error) {
			return rand.Float64(), nil
		}},
		natives.Native{
			Name:   "Date",
			Length: 7,
			Func: func(graph.Call) (graph.Value, error) {
				return time.Now().UTC().Format(time.RFC1123), nil
			},
			Construct: func(c graph.Call) (graph.Value, error) {
				ms := now()
				switch x := c.Arg(0).(type) {
				case float64:
					ms = math.Trunc(x)
				case string:
					t, err := time.Parse(time.RFC3339Nano, x)
					if err != nil {
						ms = math.NaN()
					} else {
						ms = float64(t.UnixMilli())
					}
				}
				proto := in.ObjectPrototype
				if d, ok := c.Callee.GetOwn("prototype"); ok {
					if p, isObj := d.Value.(*graph.Object); isObj {
						proto = p
					}
				}
				o := graph.New(proto)
				o.SetInternal(timeValue{ms: ms})
				return o, nil
			},
		},
		natives.Native{Name: "Date.now", Func: func(graph.Call) (graph.Value, error) {
			return now(), nil
		}},
		natives.Native{Name: "Date.prototype.getTime", Func: getTime},
		natives.Native{Name: "Date.prototype.valueOf", Func: getTime},
		natives.Native{Name: "Date.prototype.toISOString", Func: iso},
		natives.Native{Name: "Date.prototype.toJSON", Length: 1, Func: iso},
		natives.Native{Name: "Object.prototype.__defineGetter__", Length: 2, Func: func(c graph.Call) (graph.Value, error) {
			o, ok := c.This.(*graph.Object)
			if !ok {
				return nil, graph.Throw(graph.KindTypeError, "__defineGetter__ called on non-object")
			}
			name, err := graph.ToString(c.Context, c.Arg(0))
			if err != nil {
				return nil, err
			}
			getter, ok := c.Arg(1).(*graph.Object)
			if !ok || !getter.IsCallable() {
				return nil, graph.Throw(graph.KindTypeError, "__defineGetter__: getter is not a function")
			}
			var setter *graph.Object
			if d, exists := o.GetOwn(name); exists && d.Accessor {
				setter = d.Set
			}
			return graph.Undefined, o.DefineOwn(name, graph.AccessorDescriptor(getter, setter, true, true))
		}},
		natives.Native{Name: "Object.prototype.__lookupGetter__", Length: 1, Func: func(c graph.Call) (graph.Value, error) {
			o, ok := c.This.(*graph.Object)
			if !ok {
				return nil, graph.Throw(graph.KindTypeError, "__lookupGetter__ called on non-object")
			}
			name, err := graph.ToString(c.Context, c.Arg(0))
			if err != nil {
				return nil, err
			}
			for cur := o; cur != nil; cur = cur.Proto() {
				if d, exists := cur.GetOwn(name); exists {
					if d.Accessor && d.Get != nil {
						return d.Get, nil
					}
					return graph.Undefined, nil
				}
			}
			return graph.Undefined, nil
		}},
	)
}

// installExtensionValues adds the extension properties that are not plain
// natives: the __proto__ accessor and a non-configurable process object.
func installExtensionValues(root *graph.Object, in *graph.Intrinsics) error {
	getProto := in.NewFunction("get __proto__", 0, func(c graph.Call) (graph.Value, error) {
		o, ok := c.This.(*graph.Object)
		if !ok || o.Proto() == nil {
			return graph.Null, nil
		}
		return o.Proto(), nil
	})
	setProto := in.NewFunction("set __proto__", 1, func(c graph.Call) (graph.Value, error) {
		o, ok := c.This.(*graph.Object)
		if !ok {
			return graph.Undefined, nil
		}
		switch p := c.Arg(0).(type) {
		case *graph.Object:
			return graph.Undefined, o.SetProto(p)
		default:
			if graph.IsNull(p) {
				return graph.Undefined, o.SetProto(nil)
			}
		}
		return graph.Undefined, nil
	})
	if err := in.ObjectPrototype.DefineOwn("__proto__", graph.AccessorDescriptor(getProto, setProto, false, true)); err != nil {
		return fmt.Errorf("failed to install __proto__: %w", err)
	}

	process := in.NewObject()
	process.SetLabel("process")
	if err := process.DefineOwn("pid", graph.DataDescriptor(float64(os.Getpid()), false, true, false)); err != nil {
		return fmt.Errorf("failed to install process.pid: %w", err)
	}
	cwd := in.NewFunction("cwd", 0, func(graph.Call) (graph.Value, error) {
		dir, err := os.Getwd()
		if err != nil {
			return nil, graph.Throw(graph.KindError, "cwd: %v", err)
		}
		return dir, nil
	})
	if err := process.DefineOwn("cwd", graph.DataDescriptor(cwd, true, true, true)); err != nil {
		return fmt.Errorf("failed to install process.cwd: %w", err)
	}
	if err := root.DefineOwn("process", graph.DataDescriptor(process, false, false, false)); err != nil {
		return fmt.Errorf("failed to install process: %w", err)
	}
	return nil
}
