package natives

import (
	"context"

	"github.com/drses/frozen-realms-shim/graph"
)

// ObjectBundle returns Object, its static functions and Object.prototype
// methods.
func ObjectBundle(in *graph.Intrinsics) Bundle {
	toObject := func(c graph.Call) (graph.Value, error) {
		if o, ok := c.Arg(0).(*graph.Object); ok {
			return o, nil
		}
		return in.NewObject(), nil
	}

	return NewBundle(
		ctor("Object", 1, toObject, toObject),
		fn("Object.keys", 1, func(c graph.Call) (graph.Value, error) {
			o, err := argObject(c, 0, "Object.keys")
			if err != nil {
				return nil, err
			}
			return in.NewArray(ownNames(o, true)...), nil
		}),
		fn("Object.getOwnPropertyNames", 1, func(c graph.Call) (graph.Value, error) {
			o, err := argObject(c, 0, "Object.getOwnPropertyNames")
			if err != nil {
				return nil, err
			}
			return in.NewArray(ownNames(o, false)...), nil
		}),
		fn("Object.getPrototypeOf", 1, func(c graph.Call) (graph.Value, error) {
			o, err := argObject(c, 0, "Object.getPrototypeOf")
			if err != nil {
				return nil, err
			}
			if p := o.Proto(); p != nil {
				return p, nil
			}
			return graph.Null, nil
		}),
		fn("Object.create", 2, func(c graph.Call) (graph.Value, error) {
			var proto *graph.Object
			switch p := c.Arg(0).(type) {
			case *graph.Object:
				proto = p
			default:
				if !graph.IsNull(p) {
					return nil, graph.Throw(graph.KindTypeError, "Object prototype may only be an object or null")
				}
			}
			o := graph.New(proto)
			if props, ok := c.Arg(1).(*graph.Object); ok {
				if err := defineProperties(c.Context, o, props); err != nil {
					return nil, err
				}
			}
			return o, nil
		}),
		fn("Object.defineProperty", 3, ObjectDefineProperty),
		fn("Object.defineProperties", 2, func(c graph.Call) (graph.Value, error) {
			o, err := argObject(c, 0, "Object.defineProperties")
			if err != nil {
				return nil, err
			}
			props, err := argObject(c, 1, "Object.defineProperties")
			if err != nil {
				return nil, err
			}
			return o, defineProperties(c.Context, o, props)
		}),
		fn("Object.getOwnPropertyDescriptor", 2, func(c graph.Call) (graph.Value, error) {
			o, err := argObject(c, 0, "Object.getOwnPropertyDescriptor")
			if err != nil {
				return nil, err
			}
			name, err := argString(c, 1)
			if err != nil {
				return nil, err
			}
			d, ok := o.GetOwn(name)
			if !ok {
				return graph.Undefined, nil
			}
			return fromDescriptor(in, d), nil
		}),
		fn("Object.freeze", 1, ObjectFreeze),
		fn("Object.isFrozen", 1, func(c graph.Call) (graph.Value, error) {
			o, ok := c.Arg(0).(*graph.Object)
			return !ok || o.IsFrozen(), nil
		}),
		fn("Object.preventExtensions", 1, func(c graph.Call) (graph.Value, error) {
			if o, ok := c.Arg(0).(*graph.Object); ok {
				o.PreventExtensions()
			}
			return c.Arg(0), nil
		}),
		fn("Object.isExtensible", 1, func(c graph.Call) (graph.Value, error) {
			o, ok := c.Arg(0).(*graph.Object)
			return ok && o.IsExtensible(), nil
		}),

		fn("Object.prototype.toString", 0, func(c graph.Call) (graph.Value, error) {
			return "[object " + classOf(c.This) + "]", nil
		}),
		fn("Object.prototype.toLocaleString", 0, func(c graph.Call) (graph.Value, error) {
			return "[object " + classOf(c.This) + "]", nil
		}),
		fn("Object.prototype.valueOf", 0, func(c graph.Call) (graph.Value, error) {
			return c.This, nil
		}),
		fn("Object.prototype.hasOwnProperty", 1, ObjectHasOwnProperty),
		fn("Object.prototype.isPrototypeOf", 1, func(c graph.Call) (graph.Value, error) {
			self, ok := c.This.(*graph.Object)
			v, isObj := c.Arg(0).(*graph.Object)
			if !ok || !isObj {
				return false, nil
			}
			for p := v.Proto(); p != nil; p = p.Proto() {
				if p == self {
					return true, nil
				}
			}
			return false, nil
		}),
		fn("Object.prototype.propertyIsEnumerable", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "propertyIsEnumerable")
			if err != nil {
				return nil, err
			}
			name, err := argString(c, 0)
			if err != nil {
				return nil, err
			}
			d, ok := o.GetOwn(name)
			return ok && d.Enumerable, nil
		}),
	)
}

// ObjectFreeze is the correct Object.freeze.
func ObjectFreeze(c graph.Call) (graph.Value, error) {
	if o, ok := c.Arg(0).(*graph.Object); ok {
		o.Freeze()
	}
	return c.Arg(0), nil
}

// ObjectHasOwnProperty is the correct Object.prototype.hasOwnProperty.
func ObjectHasOwnProperty(c graph.Call) (graph.Value, error) {
	o, err := thisObject(c, "hasOwnProperty")
	if err != nil {
		return nil, err
	}
	name, err := argString(c, 0)
	if err != nil {
		return nil, err
	}
	return o.HasOwn(name), nil
}

// ObjectDefineProperty is the correct Object.defineProperty: it fails loudly
// when the definition is refused.
func ObjectDefineProperty(c graph.Call) (graph.Value, error) {
	o, err := argObject(c, 0, "Object.defineProperty")
	if err != nil {
		return nil, err
	}
	name, err := argString(c, 1)
	if err != nil {
		return nil, err
	}
	attrs, err := argObject(c, 2, "Object.defineProperty")
	if err != nil {
		return nil, err
	}
	if err := defineFrom(c.Context, o, name, attrs); err != nil {
		return nil, err
	}
	return o, nil
}

func defineProperties(ctx context.Context, o, props *graph.Object) error {
	for _, name := range ownNames(props, true) {
		v, err := props.Get(ctx, name.(string))
		if err != nil {
			return err
		}
		attrs, ok := v.(*graph.Object)
		if !ok {
			return graph.Throw(graph.KindTypeError, "property description for %s must be an object", name)
		}
		if err := defineFrom(ctx, o, name.(string), attrs); err != nil {
			return err
		}
	}
	return nil
}

// defineFrom converts a descriptor object into a graph.Descriptor. Missing
// attributes keep their current value, or default to false for new
// properties.
func defineFrom(ctx context.Context, o *graph.Object, name string, attrs *graph.Object) error {
	d, exists := o.GetOwn(name)
	if !exists {
		d = graph.Descriptor{Value: graph.Undefined}
	}

	flag := func(key string, target *bool) error {
		if !attrs.HasOwn(key) {
			return nil
		}
		v, err := attrs.Get(ctx, key)
		if err != nil {
			return err
		}
		*target = graph.ToBoolean(v)
		return nil
	}
	if err := flag("enumerable", &d.Enumerable); err != nil {
		return err
	}
	if err := flag("configurable", &d.Configurable); err != nil {
		return err
	}

	hasGet, hasSet := attrs.HasOwn("get"), attrs.HasOwn("set")
	if hasGet || hasSet {
		if attrs.HasOwn("value") || attrs.HasOwn("writable") {
			return graph.Throw(graph.KindTypeError, "invalid property descriptor for %s: cannot both specify accessors and a value or writable attribute", name)
		}
		if !d.Accessor {
			d.Get, d.Set = nil, nil
		}
		d.Accessor = true
		for _, part := range []struct {
			key    string
			has    bool
			target **graph.Object
		}{{"get", hasGet, &d.Get}, {"set", hasSet, &d.Set}} {
			if !part.has {
				continue
			}
			v, err := attrs.Get(ctx, part.key)
			if err != nil {
				return err
			}
			switch f := v.(type) {
			case *graph.Object:
				if !f.IsCallable() {
					return graph.Throw(graph.KindTypeError, "%s must be a function", part.key)
				}
				*part.target = f
			default:
				if !graph.IsUndefined(v) {
					return graph.Throw(graph.KindTypeError, "%s must be a function", part.key)
				}
				*part.target = nil
			}
		}
		return o.DefineOwn(name, d)
	}

	if d.Accessor && (attrs.HasOwn("value") || attrs.HasOwn("writable")) {
		d = graph.Descriptor{Value: graph.Undefined, Enumerable: d.Enumerable, Configurable: d.Configurable}
	}
	if attrs.HasOwn("value") {
		v, err := attrs.Get(ctx, "value")
		if err != nil {
			return err
		}
		d.Value = v
	}
	if err := flag("writable", &d.Writable); err != nil {
		return err
	}
	return o.DefineOwn(name, d)
}

func fromDescriptor(in *graph.Intrinsics, d graph.Descriptor) *graph.Object {
	out := in.NewObject()
	set := func(k string, v graph.Value) {
		_ = out.DefineOwn(k, graph.DataDescriptor(v, true, true, true))
	}
	if d.Accessor {
		set("get", objectOrUndefined(d.Get))
		set("set", objectOrUndefined(d.Set))
	} else {
		set("value", d.Value)
		set("writable", d.Writable)
	}
	set("enumerable", d.Enumerable)
	set("configurable", d.Configurable)
	return out
}

func objectOrUndefined(o *graph.Object) graph.Value {
	if o == nil {
		return graph.Undefined
	}
	return o
}

// ownNames lists own property names, optionally only the enumerable ones.
func ownNames(o *graph.Object, enumerableOnly bool) []graph.Value {
	keys := o.OwnKeys()
	out := make([]graph.Value, 0, len(keys))
	for _, k := range keys {
		if enumerableOnly {
			d, ok := o.GetOwn(k)
			if !ok || !d.Enumerable {
				continue
			}
		}
		out = append(out, k)
	}
	return out
}

func classOf(v graph.Value) string {
	switch x := v.(type) {
	case *graph.Object:
		return x.Class().String()
	case string:
		return "String"
	case float64:
		return "Number"
	case bool:
		return "Boolean"
	default:
		if graph.IsNull(v) {
			return "Null"
		}
		return "Undefined"
	}
}
