package graph

import (
	"context"
	"unicode/utf16"
)

// Intrinsics are the well-known prototypes natives and the evaluator need to
// build fresh values: literals, arrays, functions and thrown errors.
type Intrinsics struct {
	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	StringPrototype   *Object
	NumberPrototype   *Object
	BooleanPrototype  *Object
	ErrorPrototypes   map[ErrorKind]*Object
}

// NewObject creates a plain object delegating to Object.prototype.
func (in *Intrinsics) NewObject() *Object {
	return New(in.ObjectPrototype)
}

// NewArray creates an array delegating to Array.prototype.
func (in *Intrinsics) NewArray(elems ...Value) *Object {
	return NewArray(in.ArrayPrototype, elems...)
}

// NewFunction creates a function delegating to Function.prototype.
func (in *Intrinsics) NewFunction(name string, length int, fn NativeFunc) *Object {
	return NewFunction(in.FunctionPrototype, name, length, fn)
}

// NewError creates an error object of the given kind. Unknown kinds fall
// back to the plain Error prototype.
func (in *Intrinsics) NewError(kind ErrorKind, message string) *Object {
	proto, ok := in.ErrorPrototypes[kind]
	if !ok {
		proto = in.ErrorPrototypes[KindError]
	}
	return NewError(proto, message)
}

// ErrorValue converts a Go error raised inside the runtime into the value a
// catch clause observes.
func (in *Intrinsics) ErrorValue(err error) Value {
	switch e := err.(type) {
	case *Exception:
		return e.Value
	case *ThrownError:
		return in.NewError(e.Kind, e.Message)
	default:
		return in.NewError(KindInternalError, err.Error())
	}
}

// PrototypeFor returns the object property lookups on v start from.
// Primitives borrow their wrapper prototypes; nullish values have none.
func (in *Intrinsics) PrototypeFor(v Value) (*Object, bool) {
	switch x := v.(type) {
	case *Object:
		return x, true
	case string:
		return in.StringPrototype, in.StringPrototype != nil
	case float64:
		return in.NumberPrototype, in.NumberPrototype != nil
	case bool:
		return in.BooleanPrototype, in.BooleanPrototype != nil
	default:
		return nil, false
	}
}

// GetProperty reads name from any value, boxing primitives through their
// prototypes and answering "length" and indices for strings directly.
// String positions count UTF-16 code units.
func (in *Intrinsics) GetProperty(ctx context.Context, v Value, name string) (Value, error) {
	if IsNullish(v) {
		return nil, Throw(KindTypeError, "cannot read property '%s' of %s", name, Describe(v))
	}
	if s, ok := v.(string); ok {
		units := utf16.Encode([]rune(s))
		if name == "length" {
			return float64(len(units)), nil
		}
		if idx, isIdx := arrayIndex(name); isIdx {
			if idx < len(units) {
				return string(utf16.Decode(units[idx : idx+1])), nil
			}
			return Undefined, nil
		}
	}
	base, ok := in.PrototypeFor(v)
	if !ok {
		return Undefined, nil
	}
	return base.GetWithReceiver(ctx, name, v)
}

// Lookup resolves a dotted path such as "Array.prototype.push" starting from
// root, reading data properties only.
func Lookup(root *Object, path ...string) (*Object, bool) {
	cur := root
	for _, name := range path {
		v, ok := cur.lookupData(name)
		if !ok {
			return nil, false
		}
		next, isObj := v.(*Object)
		if !isObj {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
