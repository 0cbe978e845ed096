package graph

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Value is any value that can be stored in a property.
type Value = any

type undefinedType struct{}

type nullType struct{}

func (undefinedType) String() string { return "undefined" }

func (nullType) String() string { return "null" }

var (
	// Undefined is the value of missing properties and unset bindings.
	Undefined Value = undefinedType{}
	// Null is the explicit empty object reference.
	Null Value = nullType{}
)

// IsUndefined reports whether v is Undefined. A Go nil is treated the same.
func IsUndefined(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(undefinedType)
	return ok
}

// IsNull reports whether v is Null.
func IsNull(v Value) bool {
	_, ok := v.(nullType)
	return ok
}

// IsNullish reports whether v is Undefined or Null.
func IsNullish(v Value) bool {
	return IsUndefined(v) || IsNull(v)
}

// TypeOf returns the typeof tag for v.
func TypeOf(v Value) string {
	switch x := v.(type) {
	case nil, undefinedType:
		return "undefined"
	case nullType:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *Object:
		if x.IsCallable() {
			return "function"
		}
		return "object"
	default:
		return "undefined"
	}
}

// ToBoolean applies truthiness.
func ToBoolean(v Value) bool {
	switch x := v.(type) {
	case nil, undefinedType, nullType:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	case *Object:
		return true
	default:
		return false
	}
}

// ToPrimitive converts objects to primitives by calling their valueOf and
// toString methods. hint is "string" or "number".
func ToPrimitive(ctx context.Context, v Value, hint string) (Value, error) {
	o, ok := v.(*Object)
	if !ok {
		return v, nil
	}
	order := []string{"valueOf", "toString"}
	if hint == "string" {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		m, err := o.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		fn, callable := m.(*Object)
		if !callable || !fn.IsCallable() {
			continue
		}
		res, err := fn.Call(ctx, o, nil)
		if err != nil {
			return nil, err
		}
		if _, isObj := res.(*Object); !isObj {
			return res, nil
		}
	}
	return nil, Throw(KindTypeError, "cannot convert object to primitive value")
}

// ToNumber converts v to a number.
func ToNumber(ctx context.Context, v Value) (float64, error) {
	p, err := ToPrimitive(ctx, v, "number")
	if err != nil {
		return 0, err
	}
	return primitiveToNumber(p), nil
}

func primitiveToNumber(v Value) float64 {
	switch x := v.(type) {
	case nil, undefinedType:
		return math.NaN()
	case nullType:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case string:
		return StringToNumber(x)
	default:
		return math.NaN()
	}
}

// StringToNumber parses numeric text the way the runtime does: surrounding
// whitespace is ignored, the empty string is zero and garbage is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	if strings.ContainsAny(s, "_xXpP") || strings.Contains(strings.ToLower(s), "inf") || strings.Contains(strings.ToLower(s), "nan") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToString converts v to a string.
func ToString(ctx context.Context, v Value) (string, error) {
	p, err := ToPrimitive(ctx, v, "string")
	if err != nil {
		return "", err
	}
	s, _ := primitiveToString(p)
	return s, nil
}

func primitiveToString(v Value) (string, bool) {
	switch x := v.(type) {
	case nil, undefinedType:
		return "undefined", true
	case nullType:
		return "null", true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case float64:
		return NumberToString(x), true
	case string:
		return x, true
	default:
		return "", false
	}
}

// NumberToString formats a number the way the runtime prints it.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + string(sign) + digits
}

// ToInteger truncates a numeric value toward zero, mapping NaN to zero.
func ToInteger(ctx context.Context, v Value) (int, error) {
	f, err := ToNumber(ctx, v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	if math.IsInf(f, 1) || f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	if math.IsInf(f, -1) || f < math.MinInt32 {
		return math.MinInt32, nil
	}
	return int(f), nil
}

// SameValue is the identity comparison used for property redefinition.
func SameValue(a, b Value) bool {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		if fa == 0 && fb == 0 {
			return math.Signbit(fa) == math.Signbit(fb)
		}
		return fa == fb
	}
	return StrictEquals(a, b)
}

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	if IsUndefined(a) && IsUndefined(b) {
		return true
	}
	switch x := a.(type) {
	case nullType:
		return IsNull(b)
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	}
	return false
}

// LooseEquals implements ==.
func LooseEquals(ctx context.Context, a, b Value) (bool, error) {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b), nil
	}
	_, aObj := a.(*Object)
	_, bObj := b.(*Object)
	if aObj && bObj {
		return a == b, nil
	}
	if aObj || bObj {
		var err error
		if aObj {
			a, err = ToPrimitive(ctx, a, "number")
		} else {
			b, err = ToPrimitive(ctx, b, "number")
		}
		if err != nil {
			return false, err
		}
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return as == bs, nil
	}
	return primitiveToNumber(a) == primitiveToNumber(b), nil
}
