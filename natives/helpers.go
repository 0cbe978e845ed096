package natives

import (
	"fmt"

	"github.com/drses/frozen-realms-shim/graph"
)

func thisObject(c graph.Call, method string) (*graph.Object, error) {
	o, ok := c.This.(*graph.Object)
	if !ok {
		return nil, graph.Throw(graph.KindTypeError, "%s called on non-object", method)
	}
	return o, nil
}

func argObject(c graph.Call, i int, method string) (*graph.Object, error) {
	o, ok := c.Arg(i).(*graph.Object)
	if !ok {
		return nil, graph.Throw(graph.KindTypeError, "%s: argument %d is not an object", method, i+1)
	}
	return o, nil
}

func argCallable(c graph.Call, i int, method string) (*graph.Object, error) {
	o, ok := c.Arg(i).(*graph.Object)
	if !ok || !o.IsCallable() {
		return nil, graph.Throw(graph.KindTypeError, "%s: %s is not a function", method, graph.Describe(c.Arg(i)))
	}
	return o, nil
}

func argNumber(c graph.Call, i int) (float64, error) {
	return graph.ToNumber(c.Context, c.Arg(i))
}

func argString(c graph.Call, i int) (string, error) {
	return graph.ToString(c.Context, c.Arg(i))
}

// argIntDefault converts argument i to an integer, or returns def when the
// argument is missing or undefined.
func argIntDefault(c graph.Call, i, def int) (int, error) {
	if graph.IsUndefined(c.Arg(i)) {
		return def, nil
	}
	return graph.ToInteger(c.Context, c.Arg(i))
}

// relativeIndex resolves a possibly negative index against length.
func relativeIndex(idx, length int) int {
	if idx < 0 {
		idx += length
		if idx < 0 {
			return 0
		}
		return idx
	}
	if idx > length {
		return length
	}
	return idx
}

// IntrinsicsFrom recovers the well-known prototypes from a standard global
// object. It reads data properties only and never runs confined code.
func IntrinsicsFrom(root *graph.Object) (*graph.Intrinsics, error) {
	protoOf := func(ctor string) (*graph.Object, error) {
		p, ok := graph.Lookup(root, ctor, "prototype")
		if !ok {
			return nil, fmt.Errorf("global %s.prototype is not available", ctor)
		}
		return p, nil
	}

	in := &graph.Intrinsics{ErrorPrototypes: make(map[graph.ErrorKind]*graph.Object)}
	var err error
	if in.ObjectPrototype, err = protoOf("Object"); err != nil {
		return nil, err
	}
	if in.FunctionPrototype, err = protoOf("Function"); err != nil {
		return nil, err
	}
	if in.ArrayPrototype, err = protoOf("Array"); err != nil {
		return nil, err
	}
	// Wrapper and error prototypes are optional; a policy may remove them.
	in.StringPrototype, _ = protoOf("String")
	in.NumberPrototype, _ = protoOf("Number")
	in.BooleanPrototype, _ = protoOf("Boolean")
	for _, kind := range ErrorKinds {
		if p, perr := protoOf(string(kind)); perr == nil {
			in.ErrorPrototypes[kind] = p
		}
	}
	return in, nil
}
