package realm

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/drses/frozen-realms-shim/graph"
)

const maxConvertDepth = 64

// ToValue converts a Go value into a runtime value whose objects delegate
// to the shared, frozen prototypes.
func (f *Factory) ToValue(v any) (graph.Value, error) {
	return f.toValue(v, 0)
}

func (f *Factory) toValue(v any, depth int) (graph.Value, error) {
	if depth > maxConvertDepth {
		return nil, fmt.Errorf("value nested deeper than %d levels", maxConvertDepth)
	}
	switch x := v.(type) {
	case nil:
		return graph.Null, nil
	case *graph.Object:
		if x == nil {
			return graph.Null, nil
		}
		return x, nil
	case graph.NativeFunc:
		return f.in.NewFunction("", 0, x), nil
	case func(graph.Call) (graph.Value, error):
		return f.in.NewFunction("", 0, x), nil
	case bool, string, float64:
		return x, nil
	case map[string]any:
		obj := f.in.NewObject()
		for _, k := range sortedKeys(x) {
			ev, err := f.toValue(x[k], depth+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if err := obj.DefineOwn(k, graph.DataDescriptor(ev, true, true, true)); err != nil {
				return nil, err
			}
		}
		return obj, nil
	case []any:
		elems := make([]graph.Value, len(x))
		for i, e := range x {
			ev, err := f.toValue(e, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return f.in.NewArray(elems...), nil
	}
	if graph.IsUndefined(v) || graph.IsNull(v) {
		return v, nil
	}
	return f.reflectValue(reflect.ValueOf(v), depth)
}

func (f *Factory) reflectValue(rv reflect.Value, depth int) (graph.Value, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice, reflect.Array:
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return f.toValue(elems, depth)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return f.toValue(m, depth)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return graph.Null, nil
		}
		return f.toValue(rv.Elem().Interface(), depth+1)
	}
	return nil, fmt.Errorf("unsupported type %s", rv.Type())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Export converts a runtime value into plain Go values: nil, bool,
// float64, string, []any and map[string]any. Functions are returned as the
// *graph.Object itself. Only own data properties are read, so no confined
// code runs during the conversion.
func Export(v graph.Value) (any, error) {
	return export(v, map[*graph.Object]bool{})
}

func export(v graph.Value, visiting map[*graph.Object]bool) (any, error) {
	if graph.IsNullish(v) {
		return nil, nil
	}
	o, ok := v.(*graph.Object)
	if !ok {
		return v, nil
	}
	if o.IsCallable() {
		return o, nil
	}
	if visiting[o] {
		return nil, fmt.Errorf("cannot export a cyclic value")
	}
	visiting[o] = true
	defer delete(visiting, o)

	if name, msg, isErr := graph.ErrorName(o); isErr {
		return map[string]any{"name": name, "message": msg}, nil
	}
	if o.Class() == graph.ClassArray {
		n := graph.ArrayLength(o)
		out := make([]any, n)
		for i := 0; i < n; i++ {
			d, ok := o.GetOwn(graph.NumberToString(float64(i)))
			if !ok || d.Accessor {
				continue
			}
			ev, err := export(d.Value, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}
	out := make(map[string]any)
	for _, k := range o.OwnKeys() {
		d, ok := o.GetOwn(k)
		if !ok || d.Accessor || !d.Enumerable {
			continue
		}
		ev, err := export(d.Value, visiting)
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}
