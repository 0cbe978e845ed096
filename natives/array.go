package natives

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/drses/frozen-realms-shim/graph"
)

// ArrayBundle returns Array, Array.isArray and the Array.prototype methods.
// Methods are generic over array-likes and honour strict write semantics:
// mutating a frozen array throws.
func ArrayBundle(in *graph.Intrinsics) Bundle {
	construct := func(c graph.Call) (graph.Value, error) {
		if len(c.Args) == 1 {
			if n, ok := c.Args[0].(float64); ok {
				if n < 0 || n != float64(uint32(n)) {
					return nil, graph.Throw(graph.KindRangeError, "invalid array length")
				}
				arr := in.NewArray()
				if err := arr.Set(c.Context, "length", n); err != nil {
					return nil, err
				}
				return arr, nil
			}
		}
		return in.NewArray(c.Args...), nil
	}

	iterate := func(name string, body func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (stop bool, err error)) graph.NativeFunc {
		return func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, name)
			if err != nil {
				return nil, err
			}
			cb, err := argCallable(c, 0, name)
			if err != nil {
				return nil, err
			}
			n, err := lengthOf(c.Context, o)
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				if !hasProperty(o, strconv.Itoa(i)) {
					continue
				}
				v, err := o.Get(c.Context, strconv.Itoa(i))
				if err != nil {
					return nil, err
				}
				stop, err := body(c, cb, v, i, o)
				if err != nil {
					return nil, err
				}
				if stop {
					break
				}
			}
			return graph.Undefined, nil
		}
	}
	callback := func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (graph.Value, error) {
		return cb.Call(c.Context, c.Arg(1), []graph.Value{v, float64(i), o})
	}

	return NewBundle(
		ctor("Array", 1, construct, construct),
		fn("Array.isArray", 1, func(c graph.Call) (graph.Value, error) {
			o, ok := c.Arg(0).(*graph.Object)
			return ok && o.Class() == graph.ClassArray, nil
		}),
		fn("Array.prototype.push", 1, ArrayPush),
		fn("Array.prototype.pop", 0, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "pop")
			if err != nil {
				return nil, err
			}
			n, err := lengthOf(c.Context, o)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return graph.Undefined, o.Set(c.Context, "length", 0.0)
			}
			key := strconv.Itoa(n - 1)
			v, err := o.Get(c.Context, key)
			if err != nil {
				return nil, err
			}
			if err := o.Delete(key); err != nil {
				return nil, err
			}
			return v, o.Set(c.Context, "length", float64(n-1))
		}),
		fn("Array.prototype.shift", 0, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "shift")
			if err != nil {
				return nil, err
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			if len(elems) == 0 {
				return graph.Undefined, nil
			}
			if err := rewrite(c.Context, o, elems[1:]); err != nil {
				return nil, err
			}
			return elems[0], nil
		}),
		fn("Array.prototype.unshift", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "unshift")
			if err != nil {
				return nil, err
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			all := append(append([]graph.Value{}, c.Args...), elems...)
			if err := rewrite(c.Context, o, all); err != nil {
				return nil, err
			}
			return float64(len(all)), nil
		}),
		fn("Array.prototype.slice", 2, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "slice")
			if err != nil {
				return nil, err
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			start, err := argIntDefault(c, 0, 0)
			if err != nil {
				return nil, err
			}
			end, err := argIntDefault(c, 1, len(elems))
			if err != nil {
				return nil, err
			}
			start, end = relativeIndex(start, len(elems)), relativeIndex(end, len(elems))
			if end < start {
				end = start
			}
			return in.NewArray(elems[start:end]...), nil
		}),
		fn("Array.prototype.concat", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "concat")
			if err != nil {
				return nil, err
			}
			out, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			for _, a := range c.Args {
				if arr, ok := a.(*graph.Object); ok && arr.Class() == graph.ClassArray {
					more, err := graph.ArrayElements(c.Context, arr)
					if err != nil {
						return nil, err
					}
					out = append(out, more...)
					continue
				}
				out = append(out, a)
			}
			return in.NewArray(out...), nil
		}),
		fn("Array.prototype.join", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "join")
			if err != nil {
				return nil, err
			}
			sep := ","
			if !graph.IsUndefined(c.Arg(0)) {
				if sep, err = argString(c, 0); err != nil {
					return nil, err
				}
			}
			return joinElements(c.Context, o, sep, map[*graph.Object]bool{})
		}),
		fn("Array.prototype.toString", 0, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "toString")
			if err != nil {
				return nil, err
			}
			return joinElements(c.Context, o, ",", map[*graph.Object]bool{})
		}),
		fn("Array.prototype.reverse", 0, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "reverse")
			if err != nil {
				return nil, err
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
				elems[i], elems[j] = elems[j], elems[i]
			}
			return o, rewrite(c.Context, o, elems)
		}),
		fn("Array.prototype.indexOf", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "indexOf")
			if err != nil {
				return nil, err
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			from, err := argIntDefault(c, 1, 0)
			if err != nil {
				return nil, err
			}
			for i := relativeIndex(from, len(elems)); i < len(elems); i++ {
				if graph.StrictEquals(elems[i], c.Arg(0)) {
					return float64(i), nil
				}
			}
			return -1.0, nil
		}),
		fn("Array.prototype.forEach", 1, iterate("forEach", func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (bool, error) {
			_, err := callback(c, cb, v, i, o)
			return false, err
		})),
		fn("Array.prototype.map", 1, func(c graph.Call) (graph.Value, error) {
			var out []graph.Value
			_, err := iterate("map", func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (bool, error) {
				r, err := callback(c, cb, v, i, o)
				out = append(out, r)
				return false, err
			})(c)
			if err != nil {
				return nil, err
			}
			return in.NewArray(out...), nil
		}),
		fn("Array.prototype.filter", 1, func(c graph.Call) (graph.Value, error) {
			var out []graph.Value
			_, err := iterate("filter", func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (bool, error) {
				r, err := callback(c, cb, v, i, o)
				if err == nil && graph.ToBoolean(r) {
					out = append(out, v)
				}
				return false, err
			})(c)
			if err != nil {
				return nil, err
			}
			return in.NewArray(out...), nil
		}),
		fn("Array.prototype.some", 1, func(c graph.Call) (graph.Value, error) {
			found := false
			_, err := iterate("some", func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (bool, error) {
				r, err := callback(c, cb, v, i, o)
				found = err == nil && graph.ToBoolean(r)
				return found, err
			})(c)
			return found, err
		}),
		fn("Array.prototype.every", 1, func(c graph.Call) (graph.Value, error) {
			all := true
			_, err := iterate("every", func(c graph.Call, cb *graph.Object, v graph.Value, i int, o *graph.Object) (bool, error) {
				r, err := callback(c, cb, v, i, o)
				all = err == nil && graph.ToBoolean(r)
				return !all, err
			})(c)
			return all, err
		}),
		fn("Array.prototype.reduce", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "reduce")
			if err != nil {
				return nil, err
			}
			cb, err := argCallable(c, 0, "reduce")
			if err != nil {
				return nil, err
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			start := 0
			acc := c.Arg(1)
			if len(c.Args) < 2 {
				if len(elems) == 0 {
					return nil, graph.Throw(graph.KindTypeError, "reduce of empty array with no initial value")
				}
				acc, start = elems[0], 1
			}
			for i := start; i < len(elems); i++ {
				if acc, err = cb.Call(c.Context, graph.Undefined, []graph.Value{acc, elems[i], float64(i), o}); err != nil {
					return nil, err
				}
			}
			return acc, nil
		}),
		fn("Array.prototype.sort", 1, func(c graph.Call) (graph.Value, error) {
			o, err := thisObject(c, "sort")
			if err != nil {
				return nil, err
			}
			var cmp *graph.Object
			if !graph.IsUndefined(c.Arg(0)) {
				if cmp, err = argCallable(c, 0, "sort"); err != nil {
					return nil, err
				}
			}
			elems, err := graph.ArrayElements(c.Context, o)
			if err != nil {
				return nil, err
			}
			var sortErr error
			sort.SliceStable(elems, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				less, err := compareElements(c.Context, cmp, elems[i], elems[j])
				if err != nil {
					sortErr = err
				}
				return less
			})
			if sortErr != nil {
				return nil, sortErr
			}
			return o, rewrite(c.Context, o, elems)
		}),
	)
}

// ArrayPush is the correct Array.prototype.push.
func ArrayPush(c graph.Call) (graph.Value, error) {
	o, err := thisObject(c, "push")
	if err != nil {
		return nil, err
	}
	n, err := lengthOf(c.Context, o)
	if err != nil {
		return nil, err
	}
	for _, v := range c.Args {
		if err := o.Set(c.Context, strconv.Itoa(n), v); err != nil {
			return nil, err
		}
		n++
	}
	if err := o.Set(c.Context, "length", float64(n)); err != nil {
		return nil, err
	}
	return float64(n), nil
}

func lengthOf(ctx context.Context, o *graph.Object) (int, error) {
	v, err := o.Get(ctx, "length")
	if err != nil {
		return 0, err
	}
	n, err := graph.ToInteger(ctx, v)
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

func hasProperty(o *graph.Object, name string) bool {
	for cur := o; cur != nil; cur = cur.Proto() {
		if cur.HasOwn(name) {
			return true
		}
	}
	return false
}

// rewrite replaces the elements of o with elems.
func rewrite(ctx context.Context, o *graph.Object, elems []graph.Value) error {
	old, err := lengthOf(ctx, o)
	if err != nil {
		return err
	}
	for i, v := range elems {
		if err := o.Set(ctx, strconv.Itoa(i), v); err != nil {
			return err
		}
	}
	for i := len(elems); i < old; i++ {
		if err := o.Delete(strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return o.Set(ctx, "length", float64(len(elems)))
}

func joinElements(ctx context.Context, o *graph.Object, sep string, seen map[*graph.Object]bool) (string, error) {
	if seen[o] {
		return "", nil
	}
	seen[o] = true
	defer delete(seen, o)

	elems, err := graph.ArrayElements(ctx, o)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(elems))
	for i, v := range elems {
		if graph.IsNullish(v) {
			continue
		}
		if arr, ok := v.(*graph.Object); ok && arr.Class() == graph.ClassArray {
			if parts[i], err = joinElements(ctx, arr, ",", seen); err != nil {
				return "", err
			}
			continue
		}
		if parts[i], err = graph.ToString(ctx, v); err != nil {
			return "", err
		}
	}
	return strings.Join(parts, sep), nil
}

func compareElements(ctx context.Context, cmp *graph.Object, a, b graph.Value) (bool, error) {
	if graph.IsUndefined(a) || graph.IsUndefined(b) {
		return !graph.IsUndefined(a) && graph.IsUndefined(b), nil
	}
	if cmp != nil {
		r, err := cmp.Call(ctx, graph.Undefined, []graph.Value{a, b})
		if err != nil {
			return false, err
		}
		n, err := graph.ToNumber(ctx, r)
		if err != nil {
			return false, err
		}
		return n < 0, nil
	}
	as, err := graph.ToString(ctx, a)
	if err != nil {
		return false, err
	}
	bs, err := graph.ToString(ctx, b)
	if err != nil {
		return false, err
	}
	return as < bs, nil
}
