package natives

import (
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/drses/frozen-realms-shim/graph"
)

// StringBundle returns String, String.fromCharCode and the
// String.prototype methods. Indices count UTF-16 code units.
func StringBundle(in *graph.Intrinsics) Bundle {
	call := func(c graph.Call) (graph.Value, error) {
		if len(c.Args) == 0 {
			return "", nil
		}
		return argString(c, 0)
	}
	construct := func(c graph.Call) (graph.Value, error) {
		s, err := call(c)
		if err != nil {
			return nil, err
		}
		w := graph.New(in.StringPrototype)
		w.SetInternal(s)
		_ = w.DefineOwn("length", graph.DataDescriptor(float64(len(utf16.Encode([]rune(s.(string))))), false, false, false))
		return w, nil
	}

	method := func(name string, length int, body func(c graph.Call, s []uint16) (graph.Value, error)) Native {
		return fn("String.prototype."+name, length, func(c graph.Call) (graph.Value, error) {
			s, err := thisString(c, name)
			if err != nil {
				return nil, err
			}
			return body(c, utf16.Encode([]rune(s)))
		})
	}

	return NewBundle(
		ctor("String", 1, call, construct),
		fn("String.fromCharCode", 1, func(c graph.Call) (graph.Value, error) {
			units := make([]uint16, len(c.Args))
			for i := range c.Args {
				n, err := argNumber(c, i)
				if err != nil {
					return nil, err
				}
				units[i] = uint16(int64(n))
			}
			return decode(units), nil
		}),
		method("toString", 0, func(c graph.Call, s []uint16) (graph.Value, error) { return decode(s), nil }),
		method("valueOf", 0, func(c graph.Call, s []uint16) (graph.Value, error) { return decode(s), nil }),
		method("charAt", 1, func(c graph.Call, s []uint16) (graph.Value, error) {
			i, err := argIntDefault(c, 0, 0)
			if err != nil || i < 0 || i >= len(s) {
				return "", err
			}
			return decode(s[i : i+1]), nil
		}),
		method("charCodeAt", 1, func(c graph.Call, s []uint16) (graph.Value, error) {
			i, err := argIntDefault(c, 0, 0)
			if err != nil {
				return nil, err
			}
			if i < 0 || i >= len(s) {
				return nan(), nil
			}
			return float64(s[i]), nil
		}),
		method("indexOf", 1, func(c graph.Call, s []uint16) (graph.Value, error) {
			needle, err := argString(c, 0)
			if err != nil {
				return nil, err
			}
			from, err := argIntDefault(c, 1, 0)
			if err != nil {
				return nil, err
			}
			return float64(indexUnits(s, utf16.Encode([]rune(needle)), max(0, min(from, len(s))))), nil
		}),
		method("lastIndexOf", 1, func(c graph.Call, s []uint16) (graph.Value, error) {
			needle, err := argString(c, 0)
			if err != nil {
				return nil, err
			}
			n := utf16.Encode([]rune(needle))
			for i := len(s) - len(n); i >= 0; i-- {
				if slices.Equal(s[i:i+len(n)], n) {
					return float64(i), nil
				}
			}
			return -1.0, nil
		}),
		method("slice", 2, func(c graph.Call, s []uint16) (graph.Value, error) {
			start, err := argIntDefault(c, 0, 0)
			if err != nil {
				return nil, err
			}
			end, err := argIntDefault(c, 1, len(s))
			if err != nil {
				return nil, err
			}
			start, end = relativeIndex(start, len(s)), relativeIndex(end, len(s))
			if end < start {
				return "", nil
			}
			return decode(s[start:end]), nil
		}),
		method("substring", 2, func(c graph.Call, s []uint16) (graph.Value, error) {
			start, err := argIntDefault(c, 0, 0)
			if err != nil {
				return nil, err
			}
			end, err := argIntDefault(c, 1, len(s))
			if err != nil {
				return nil, err
			}
			start, end = max(0, min(start, len(s))), max(0, min(end, len(s)))
			if start > end {
				start, end = end, start
			}
			return decode(s[start:end]), nil
		}),
		method("toUpperCase", 0, func(c graph.Call, s []uint16) (graph.Value, error) {
			return strings.ToUpper(decode(s)), nil
		}),
		method("toLowerCase", 0, func(c graph.Call, s []uint16) (graph.Value, error) {
			return strings.ToLower(decode(s)), nil
		}),
		method("trim", 0, func(c graph.Call, s []uint16) (graph.Value, error) {
			return strings.TrimSpace(decode(s)), nil
		}),
		method("concat", 1, func(c graph.Call, s []uint16) (graph.Value, error) {
			var b strings.Builder
			b.WriteString(decode(s))
			for i := range c.Args {
				part, err := argString(c, i)
				if err != nil {
					return nil, err
				}
				b.WriteString(part)
			}
			return b.String(), nil
		}),
		method("split", 2, func(c graph.Call, s []uint16) (graph.Value, error) {
			limit := -1
			if !graph.IsUndefined(c.Arg(1)) {
				n, err := argNumber(c, 1)
				if err != nil {
					return nil, err
				}
				limit = int(uint32(int64(n)))
			}
			str := decode(s)
			var parts []string
			if graph.IsUndefined(c.Arg(0)) {
				parts = []string{str}
			} else {
				sep, err := argString(c, 0)
				if err != nil {
					return nil, err
				}
				if sep == "" {
					for _, r := range str {
						parts = append(parts, string(r))
					}
				} else {
					parts = strings.Split(str, sep)
				}
			}
			if limit >= 0 && len(parts) > limit {
				parts = parts[:limit]
			}
			out := make([]graph.Value, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return in.NewArray(out...), nil
		}),
		method("replace", 2, func(c graph.Call, s []uint16) (graph.Value, error) {
			str := decode(s)
			pattern, err := argString(c, 0)
			if err != nil {
				return nil, err
			}
			idx := strings.Index(str, pattern)
			if idx < 0 {
				return str, nil
			}
			var replacement string
			if f, ok := c.Arg(1).(*graph.Object); ok && f.IsCallable() {
				r, err := f.Call(c.Context, graph.Undefined, []graph.Value{pattern, float64(len(utf16.Encode([]rune(str[:idx])))), str})
				if err != nil {
					return nil, err
				}
				if replacement, err = graph.ToString(c.Context, r); err != nil {
					return nil, err
				}
			} else if replacement, err = argString(c, 1); err != nil {
				return nil, err
			}
			return str[:idx] + replacement + str[idx+len(pattern):], nil
		}),
	)
}

func thisString(c graph.Call, method string) (string, error) {
	switch x := c.This.(type) {
	case string:
		return x, nil
	case *graph.Object:
		if s, ok := x.Internal().(string); ok {
			return s, nil
		}
	}
	if graph.IsNullish(c.This) {
		return "", graph.Throw(graph.KindTypeError, "String.prototype.%s called on %s", method, graph.Describe(c.This))
	}
	return graph.ToString(c.Context, c.This)
}

func decode(units []uint16) string {
	return string(utf16.Decode(units))
}

func indexUnits(s, needle []uint16, from int) int {
	for i := from; i+len(needle) <= len(s); i++ {
		if slices.Equal(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
