package graph

import (
	"fmt"
)

// ErrorKind names the error constructor a native failure maps to.
type ErrorKind string

const (
	KindError          ErrorKind = "Error"
	KindTypeError      ErrorKind = "TypeError"
	KindRangeError     ErrorKind = "RangeError"
	KindReferenceError ErrorKind = "ReferenceError"
	KindSyntaxError    ErrorKind = "SyntaxError"
	KindInternalError  ErrorKind = "InternalError"
)

// ThrownError is an error raised by a native operation. It is catchable by
// confined code, which sees it as an instance of the named error constructor.
type ThrownError struct {
	Kind    ErrorKind
	Message string
}

func (e *ThrownError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Throw builds a ThrownError of the given kind.
func Throw(kind ErrorKind, format string, args ...any) error {
	return &ThrownError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Exception carries an arbitrary value thrown by confined code.
type Exception struct {
	Value Value
}

func (e *Exception) Error() string {
	return "uncaught " + Describe(e.Value)
}

// ErrorName reports the constructor name and message of an error-like
// value without invoking any accessor.
func ErrorName(v Value) (name, message string, ok bool) {
	o, isObj := v.(*Object)
	if !isObj || o.Class() != ClassError {
		return "", "", false
	}
	if d, found := o.lookupData("name"); found {
		name, _ = d.(string)
	}
	if d, found := o.lookupData("message"); found {
		message, _ = d.(string)
	}
	if name == "" {
		name = string(KindError)
	}
	return name, message, true
}

// Describe renders a value for diagnostics. It never calls into confined
// code, so it is safe to use on hostile values.
func Describe(v Value) string {
	if name, msg, ok := ErrorName(v); ok {
		if msg == "" {
			return name
		}
		return name + ": " + msg
	}
	switch x := v.(type) {
	case *Object:
		if x.IsCallable() {
			return fmt.Sprintf("[function %s]", x.Label())
		}
		if x.Class() == ClassArray {
			return fmt.Sprintf("[array length %d]", ArrayLength(x))
		}
		if x.Label() != "" {
			return "[object " + x.Label() + "]"
		}
		return "[object Object]"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		s, _ := primitiveToString(v)
		return s
	}
}
