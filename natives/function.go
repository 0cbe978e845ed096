package natives

import (
	"github.com/drses/frozen-realms-shim/graph"
)

// FunctionBundle returns Function and the Function.prototype methods.
// Function itself cannot compile source text; it always throws.
func FunctionBundle(in *graph.Intrinsics) Bundle {
	refuse := func(graph.Call) (graph.Value, error) {
		return nil, graph.Throw(graph.KindTypeError, "Function constructor is not available in a confined realm")
	}
	return NewBundle(
		ctor("Function", 1, refuse, refuse),
		fn("Function.prototype.call", 1, func(c graph.Call) (graph.Value, error) {
			target, err := thisCallable(c, "call")
			if err != nil {
				return nil, err
			}
			var rest []graph.Value
			if len(c.Args) > 1 {
				rest = c.Args[1:]
			}
			return target.Call(c.Context, c.Arg(0), rest)
		}),
		fn("Function.prototype.apply", 2, func(c graph.Call) (graph.Value, error) {
			target, err := thisCallable(c, "apply")
			if err != nil {
				return nil, err
			}
			var args []graph.Value
			switch list := c.Arg(1).(type) {
			case *graph.Object:
				if args, err = graph.ArrayElements(c.Context, list); err != nil {
					return nil, err
				}
			default:
				if !graph.IsNullish(list) {
					return nil, graph.Throw(graph.KindTypeError, "apply: argument list must be an object")
				}
			}
			return target.Call(c.Context, c.Arg(0), args)
		}),
		fn("Function.prototype.bind", 1, FunctionBind(in)),
		fn("Function.prototype.toString", 0, func(c graph.Call) (graph.Value, error) {
			target, err := thisCallable(c, "toString")
			if err != nil {
				return nil, err
			}
			return "function " + target.Label() + "() { [native code] }", nil
		}),
	)
}

// FunctionBind returns the correct Function.prototype.bind: the bound
// function exposes nothing but its name and length.
func FunctionBind(in *graph.Intrinsics) graph.NativeFunc {
	return func(c graph.Call) (graph.Value, error) {
		target, err := thisCallable(c, "bind")
		if err != nil {
			return nil, err
		}
		boundThis := c.Arg(0)
		var boundArgs []graph.Value
		if len(c.Args) > 1 {
			boundArgs = append(boundArgs, c.Args[1:]...)
		}
		length := 0
		if d, ok := target.GetOwn("length"); ok {
			if n, isNum := d.Value.(float64); isNum && int(n) > len(boundArgs) {
				length = int(n) - len(boundArgs)
			}
		}
		bound := in.NewFunction("bound "+target.Label(), length, func(inner graph.Call) (graph.Value, error) {
			args := make([]graph.Value, 0, len(boundArgs)+len(inner.Args))
			args = append(args, boundArgs...)
			args = append(args, inner.Args...)
			return target.Call(inner.Context, boundThis, args)
		})
		return bound, nil
	}
}

func thisCallable(c graph.Call, method string) (*graph.Object, error) {
	o, ok := c.This.(*graph.Object)
	if !ok || !o.IsCallable() {
		return nil, graph.Throw(graph.KindTypeError, "Function.prototype.%s called on non-function", method)
	}
	return o, nil
}
