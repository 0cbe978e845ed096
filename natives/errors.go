package natives

import (
	"github.com/drses/frozen-realms-shim/graph"
)

// ErrorKinds lists the error constructors of a standard global object.
var ErrorKinds = []graph.ErrorKind{
	graph.KindError,
	graph.KindTypeError,
	graph.KindRangeError,
	graph.KindReferenceError,
	graph.KindSyntaxError,
}

// ErrorBundle returns the error constructors and Error.prototype.toString.
func ErrorBundle(in *graph.Intrinsics) Bundle {
	natives := make([]Native, 0, len(ErrorKinds)+1)
	for _, kind := range ErrorKinds {
		kind := kind
		build := func(c graph.Call) (graph.Value, error) {
			msg := ""
			if !graph.IsUndefined(c.Arg(0)) {
				var err error
				if msg, err = argString(c, 0); err != nil {
					return nil, err
				}
			}
			return in.NewError(kind, msg), nil
		}
		natives = append(natives, ctor(string(kind), 1, build, build))
	}
	natives = append(natives, fn("Error.prototype.toString", 0, func(c graph.Call) (graph.Value, error) {
		o, err := thisObject(c, "Error.prototype.toString")
		if err != nil {
			return nil, err
		}
		name, err := stringProperty(c, o, "name", "Error")
		if err != nil {
			return nil, err
		}
		msg, err := stringProperty(c, o, "message", "")
		if err != nil {
			return nil, err
		}
		switch {
		case msg == "":
			return name, nil
		case name == "":
			return msg, nil
		default:
			return name + ": " + msg, nil
		}
	}))
	return NewBundle(natives...)
}

func stringProperty(c graph.Call, o *graph.Object, name, def string) (string, error) {
	v, err := o.Get(c.Context, name)
	if err != nil {
		return "", err
	}
	if graph.IsUndefined(v) {
		return def, nil
	}
	return graph.ToString(c.Context, v)
}
